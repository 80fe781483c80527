package httpclient

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"icarry-tracker/internal/core/logger"

	"go.uber.org/zap"
)

// LoggingRoundTripper captures request details for debugging.
type LoggingRoundTripper struct {
	// Proxied is the underlying RoundTripper to execute the request.
	Proxied http.RoundTripper
}

// RoundTrip executes the request and logs details.
func (lrt *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	logger.Get().Debug("HTTP Request Started",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
	)

	resp, err := lrt.Proxied.RoundTrip(req)

	duration := time.Since(start)

	if err != nil {
		logger.Get().Error("HTTP Request Failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL.String()),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	logger.Get().Debug("HTTP Request Completed",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", duration),
	)

	return resp, nil
}

// Option customizes the transport built by NewClient.
type Option func(*http.Transport) error

// WithProxy routes every request through proxyURL. An empty URL is a no-op.
func WithProxy(proxyURL string) Option {
	return func(t *http.Transport) error {
		if proxyURL == "" {
			return nil
		}
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return fmt.Errorf("invalid proxy URL: %w", err)
		}
		t.Proxy = http.ProxyURL(parsed)
		return nil
	}
}

// WithoutCompression stops the transport from negotiating gzip on its own,
// leaving Accept-Encoding and decoding to the caller.
func WithoutCompression() Option {
	return func(t *http.Transport) error {
		t.DisableCompression = true
		return nil
	}
}

// NewClient returns an http.Client with logging middleware.
func NewClient(timeout time.Duration, opts ...Option) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	for _, opt := range opts {
		if err := opt(transport); err != nil {
			return nil, err
		}
	}

	return &http.Client{
		Transport: &LoggingRoundTripper{
			Proxied: transport,
		},
		Timeout: timeout,
	}, nil
}
