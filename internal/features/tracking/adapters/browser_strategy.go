package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"icarry-tracker/internal/core/logger"
	"icarry-tracker/internal/core/wait"
	"icarry-tracker/internal/features/tracking/domain"
	"icarry-tracker/internal/features/tracking/ports"

	"go.uber.org/zap"
)

const (
	// diagnosticPreviewLength is how much of a failed page is logged in debug mode.
	diagnosticPreviewLength = 500
	// diagnosticTimeout bounds the page reads made after a failure.
	diagnosticTimeout = 5 * time.Second
)

// BrowserSettings tunes the waits of the browser strategy.
type BrowserSettings struct {
	// Debug logs the current URL and a page preview when an attempt fails.
	Debug bool
	// PollInterval is the pause between two challenge checks.
	PollInterval time.Duration
	// PollCeiling bounds the whole challenge wait.
	PollCeiling time.Duration
	// SettleDelay is waited once the challenge is gone (or the ceiling reached).
	SettleDelay time.Duration
	// AnchorXPath locates the element proving the tracking page rendered.
	AnchorXPath string
	// AnchorTimeout bounds the anchor wait.
	AnchorTimeout time.Duration
	// ValidationMarker must be present in the final HTML.
	ValidationMarker string
}

// BrowserStrategy acquires the page through a real browser session, waiting
// out the anti-bot challenge before reading the rendered HTML.
type BrowserStrategy struct {
	launcher SessionLauncher
	detector ports.ChallengeDetector
	settings BrowserSettings
	logger   *zap.Logger
}

// NewBrowserStrategy creates a BrowserStrategy. Each Acquire launches its own session.
func NewBrowserStrategy(launcher SessionLauncher, detector ports.ChallengeDetector, settings BrowserSettings) *BrowserStrategy {
	return &BrowserStrategy{
		launcher: launcher,
		detector: detector,
		settings: settings,
		logger:   logger.Get(),
	}
}

// Method returns domain.MethodBrowser.
func (s *BrowserStrategy) Method() domain.Method {
	return domain.MethodBrowser
}

// Acquire runs one full browser session against url.
func (s *BrowserStrategy) Acquire(ctx context.Context, url string) domain.AcquisitionResult {
	html, err := s.acquire(ctx, url)
	if err != nil {
		return domain.Failed(domain.MethodBrowser, err)
	}
	return domain.Content(html, domain.MethodBrowser)
}

func (s *BrowserStrategy) acquire(ctx context.Context, url string) (html string, err error) {
	session, err := s.launcher.Launch(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrSession, err)
	}
	defer s.release(session)
	defer func() {
		if err != nil && s.settings.Debug {
			s.diagnose(ctx, session, err)
		}
	}()

	s.logger.Debug("Navigating", zap.String("url", url))
	if err := session.Navigate(ctx, url); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrSession, err)
	}

	challengeActive, err := s.awaitChallenge(ctx, session)
	if err != nil {
		return "", err
	}

	if err := wait.Sleep(ctx, s.settings.SettleDelay); err != nil {
		return "", err
	}

	if err := session.WaitAnchor(ctx, s.settings.AnchorXPath, s.settings.AnchorTimeout); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if challengeActive {
			return "", fmt.Errorf("%w within %s: %w", domain.ErrChallengeTimeout, s.settings.PollCeiling, err)
		}
		return "", fmt.Errorf("%w after %s: %w", domain.ErrAnchorWaitTimeout, s.settings.AnchorTimeout, err)
	}

	html, err = session.HTML(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrSession, err)
	}
	if !strings.Contains(html, s.settings.ValidationMarker) {
		return "", fmt.Errorf("%w: marker %q not found", domain.ErrValidation, s.settings.ValidationMarker)
	}
	return html, nil
}

// awaitChallenge polls the page until the detector reports it clear. Reaching
// the ceiling is not an error here: the anchor wait decides. It returns
// whether the challenge was still active when polling stopped.
func (s *BrowserStrategy) awaitChallenge(ctx context.Context, session BrowserSession) (bool, error) {
	active := true
	checks, err := wait.Poll(ctx, wait.Options{Interval: s.settings.PollInterval, Ceiling: s.settings.PollCeiling},
		func(ctx context.Context) (bool, error) {
			page, err := session.HTML(ctx)
			if err != nil {
				// The document is replaced while the challenge redirects.
				s.logger.Debug("Page not readable yet", zap.Error(err))
				return false, nil
			}
			active = s.detector.IsChallengeActive(page)
			return !active, nil
		})

	switch {
	case err == nil:
		s.logger.Debug("Challenge cleared", zap.Int("checks", checks))
		return false, nil
	case errors.Is(err, wait.ErrCeilingReached):
		s.logger.Warn("Challenge still active at polling ceiling",
			zap.Int("checks", checks),
			zap.Duration("ceiling", s.settings.PollCeiling),
		)
		return active, nil
	default:
		return active, err
	}
}

// release closes the session; a failed close never masks the attempt's outcome.
func (s *BrowserStrategy) release(session BrowserSession) {
	if err := session.Close(); err != nil {
		s.logger.Warn("Failed to close browser session", zap.Error(err))
	}
}

// diagnose logs where the browser ended up and what it was showing.
func (s *BrowserStrategy) diagnose(ctx context.Context, session BrowserSession, cause error) {
	readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), diagnosticTimeout)
	defer cancel()

	fields := []zap.Field{
		zap.Error(cause),
		zap.String("current_url", session.CurrentURL()),
	}
	if page, err := session.HTML(readCtx); err == nil {
		fields = append(fields, zap.String("page_preview", preview(page, diagnosticPreviewLength)))
	}
	s.logger.Debug("Browser attempt failed", fields...)
}

// preview returns at most n characters of s without splitting a rune.
func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
