// Package app assembles the tracking pipeline from configuration.
package app

import (
	"fmt"

	"icarry-tracker/internal/core/config"
	"icarry-tracker/internal/core/proxy"
	trackingadapter "icarry-tracker/internal/features/tracking/adapters"
	"icarry-tracker/internal/features/tracking/challenge"
	"icarry-tracker/internal/features/tracking/domain"
	"icarry-tracker/internal/features/tracking/extract"
	"icarry-tracker/internal/features/tracking/ports"
	trackingservice "icarry-tracker/internal/features/tracking/service"
)

// ProxySettings converts the proxy configuration.
func ProxySettings(cfg *config.AppConfig) proxy.Settings {
	return proxy.Settings{
		Enabled:  cfg.Proxy.Enabled,
		Hostname: cfg.Proxy.Host,
		Port:     cfg.Proxy.Port,
		Username: cfg.Proxy.Username,
		Password: cfg.Proxy.Password,
	}
}

// NewDetector builds the challenge detector for the configured marker.
func NewDetector(cfg *config.AppConfig) *challenge.Detector {
	return challenge.NewDetector(cfg.Tracking.ValidationMarker)
}

// NewStrategy builds the acquisition strategy for method.
func NewStrategy(method domain.Method, cfg *config.AppConfig, detector ports.ChallengeDetector) (ports.ContentStrategy, error) {
	proxySettings := ProxySettings(cfg)

	switch method {
	case domain.MethodBrowser:
		profile := trackingadapter.DefaultStealthProfile()
		profile.UserAgent = cfg.Browser.UserAgent
		profile.Viewport = trackingadapter.Viewport{Width: cfg.Browser.WindowWidth, Height: cfg.Browser.WindowHeight}

		launcher := trackingadapter.NewRodLauncher(cfg.Browser.Bin, cfg.Debug, profile, proxySettings)
		return trackingadapter.NewBrowserStrategy(launcher, detector, trackingadapter.BrowserSettings{
			Debug:            cfg.Debug,
			PollInterval:     cfg.Browser.PollInterval,
			PollCeiling:      cfg.Browser.PollCeiling,
			SettleDelay:      cfg.Browser.SettleDelay,
			AnchorXPath:      extract.StatusAnchorXPath,
			AnchorTimeout:    cfg.Browser.AnchorTimeout,
			ValidationMarker: cfg.Tracking.ValidationMarker,
		}), nil

	case domain.MethodDirectHTTP:
		fetcher, err := NewFetcher(cfg)
		if err != nil {
			return nil, err
		}
		return trackingadapter.NewDirectHTTPStrategy(fetcher, cfg.Browser.UserAgent), nil

	default:
		return nil, fmt.Errorf("unknown acquisition method: %q", method)
	}
}

// NewFetcher builds the page fetcher selected by HTTP_CLIENT.
func NewFetcher(cfg *config.AppConfig) (trackingadapter.PageFetcher, error) {
	proxyURL := ProxySettings(cfg).FullURL()
	if cfg.HTTP.Client == "standard" {
		return trackingadapter.NewStandardFetcher(cfg.HTTP.Timeout, proxyURL)
	}
	return trackingadapter.NewCycleTLSFetcher(cfg.HTTP.Timeout, proxyURL), nil
}

// NewStrategies builds the configured strategies in order of preference.
func NewStrategies(cfg *config.AppConfig, detector ports.ChallengeDetector) ([]ports.ContentStrategy, error) {
	strategies := make([]ports.ContentStrategy, 0, len(cfg.Retry.Strategies))
	for _, name := range cfg.Retry.Strategies {
		method, err := domain.ParseMethod(name)
		if err != nil {
			return nil, err
		}
		strategy, err := NewStrategy(method, cfg, detector)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, strategy)
	}
	return strategies, nil
}

// NewTrackingService assembles the orchestrator with every configured strategy.
func NewTrackingService(cfg *config.AppConfig) (*trackingservice.TrackingService, error) {
	mode, err := trackingservice.ParseMode(cfg.Retry.Mode)
	if err != nil {
		return nil, err
	}

	detector := NewDetector(cfg)
	strategies, err := NewStrategies(cfg, detector)
	if err != nil {
		return nil, err
	}

	policy := trackingservice.Policy{
		Mode:        mode,
		MaxAttempts: cfg.Retry.MaxAttempts,
		Backoff:     cfg.Retry.Backoff,
	}
	return trackingservice.NewTrackingService(strategies, extract.NewFieldExtractor(), detector, policy, cfg.Tracking.ValidationMarker), nil
}
