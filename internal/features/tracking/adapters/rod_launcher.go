package adapter

import (
	"context"
	"fmt"
	"time"

	"icarry-tracker/internal/core/logger"
	"icarry-tracker/internal/core/proxy"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// BrowserSession is one isolated browser with a single page. It must be
// closed exactly once.
type BrowserSession interface {
	// Navigate loads url in the page.
	Navigate(ctx context.Context, url string) error
	// HTML returns the current rendered document.
	HTML(ctx context.Context) (string, error)
	// WaitAnchor blocks until an element matching xpath exists or timeout elapses.
	WaitAnchor(ctx context.Context, xpath string, timeout time.Duration) error
	// CurrentURL returns the page location, or "" when unknown.
	CurrentURL() string
	// Close releases the page, the browser process and any helper it started.
	Close() error
}

// SessionLauncher creates fresh browser sessions. Sessions are never reused.
type SessionLauncher interface {
	Launch(ctx context.Context) (BrowserSession, error)
}

// RodLauncher launches Chromium through go-rod with the stealth profile applied.
type RodLauncher struct {
	bin     string
	debug   bool
	profile StealthProfile
	proxy   proxy.Settings
	logger  *zap.Logger
}

// NewRodLauncher creates a launcher. bin may be empty to let rod locate or download Chromium.
// debug runs the browser headed.
func NewRodLauncher(bin string, debug bool, profile StealthProfile, proxySettings proxy.Settings) *RodLauncher {
	return &RodLauncher{
		bin:     bin,
		debug:   debug,
		profile: profile,
		proxy:   proxySettings,
		logger:  logger.Get(),
	}
}

// command builds the launcher switches for one session. proxyServer may be empty.
func (r *RodLauncher) command(ctx context.Context, proxyServer string) *launcher.Launcher {
	l := launcher.New().
		Context(ctx).
		Headless(!r.debug).
		NoSandbox(true).
		Leakless(true)

	if r.bin != "" {
		l = l.Bin(r.bin)
	}
	if proxyServer != "" {
		l = l.Proxy(proxyServer)
	}
	return r.profile.apply(l)
}

// Launch starts a new browser process and opens one page in it.
func (r *RodLauncher) Launch(ctx context.Context) (BrowserSession, error) {
	s := &rodSession{logger: r.logger}

	proxyServer := ""
	if r.proxy.HasCredentials() {
		fwd, err := proxy.NewForwardingProxy(r.proxy.FullURL(), r.debug)
		if err != nil {
			return nil, err
		}
		addr, err := fwd.Start(ctx)
		if err != nil {
			return nil, err
		}
		s.forwarder = fwd
		proxyServer = addr
	} else if r.proxy.HasProxy() {
		proxyServer = r.proxy.HostPort()
	}

	r.logger.Debug("Launching browser...",
		zap.Bool("headless", !r.debug),
		zap.String("proxy", r.proxy.String()),
	)

	s.launcher = r.command(ctx, proxyServer)
	u, err := s.launcher.Launch()
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("failed to launch browser: %w", err), s.Close())
	}
	s.launched = true

	s.browser = rod.New().Context(ctx).ControlURL(u)
	if err := s.browser.Connect(); err != nil {
		s.browser = nil
		return nil, multierr.Append(fmt.Errorf("failed to connect to browser: %w", err), s.Close())
	}

	if err := s.openPage(r.profile); err != nil {
		return nil, multierr.Append(err, s.Close())
	}
	return s, nil
}

// rodSession owns every resource of one launched browser.
type rodSession struct {
	launcher  *launcher.Launcher
	browser   *rod.Browser
	page      *rod.Page
	forwarder *proxy.ForwardingProxy
	logger    *zap.Logger
	launched  bool
	closed    bool
}

func (s *rodSession) openPage(profile StealthProfile) error {
	target := s.browser
	if profile.Incognito {
		incognito, err := s.browser.Incognito()
		if err != nil {
			return fmt.Errorf("failed to create incognito context: %w", err)
		}
		target = incognito
	}

	var (
		page *rod.Page
		err  error
	)
	if profile.DisableAutomation {
		page, err = stealth.Page(target)
	} else {
		page, err = target.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return fmt.Errorf("failed to open page: %w", err)
	}
	s.page = page

	if profile.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: profile.UserAgent}); err != nil {
			return fmt.Errorf("failed to override user agent: %w", err)
		}
	}
	if profile.Viewport.Width > 0 && profile.Viewport.Height > 0 {
		err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             profile.Viewport.Width,
			Height:            profile.Viewport.Height,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			return fmt.Errorf("failed to set viewport: %w", err)
		}
	}
	return nil
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	if err := s.page.Context(ctx).Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (s *rodSession) HTML(ctx context.Context) (string, error) {
	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}
	return html, nil
}

func (s *rodSession) WaitAnchor(ctx context.Context, xpath string, timeout time.Duration) error {
	page := s.page.Context(ctx).Timeout(timeout)
	defer page.CancelTimeout()

	_, err := page.ElementX(xpath)
	return err
}

func (s *rodSession) CurrentURL() string {
	if s.page == nil {
		return ""
	}
	info, err := s.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Close tears the session down in reverse order of creation. Every step runs
// even if an earlier one failed.
func (s *rodSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var err error
	if s.browser != nil {
		err = multierr.Append(err, s.browser.Close())
	}
	// Cleanup blocks until the process exits, so it is only safe once Launch succeeded.
	if s.launched {
		s.launcher.Kill()
		s.launcher.Cleanup()
	}
	if s.forwarder != nil {
		err = multierr.Append(err, s.forwarder.Stop())
	}
	return err
}
