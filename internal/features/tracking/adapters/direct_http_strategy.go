package adapter

import (
	"context"
	"fmt"

	"icarry-tracker/internal/core/logger"
	"icarry-tracker/internal/features/tracking/domain"

	"go.uber.org/zap"
)

// FetchResponse is the part of an HTTP response the direct strategy needs.
type FetchResponse struct {
	StatusCode int
	Body       string
}

// PageFetcher issues one GET with the given headers, sent in headerOrder when
// the client supports ordering.
type PageFetcher interface {
	Fetch(ctx context.Context, url string, headers map[string]string, headerOrder []string) (*FetchResponse, error)
}

// browserHeaderOrder is the order Chrome sends its navigation headers in.
var browserHeaderOrder = []string{
	"user-agent",
	"accept",
	"accept-encoding",
	"accept-language",
	"dnt",
	"upgrade-insecure-requests",
	"sec-fetch-dest",
	"sec-fetch-mode",
	"sec-fetch-site",
	"sec-fetch-user",
}

// BrowserHeaders returns the navigation headers of a desktop Chrome identified by userAgent.
func BrowserHeaders(userAgent string) map[string]string {
	return map[string]string{
		"User-Agent":                userAgent,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		"Accept-Encoding":           "gzip, deflate, br",
		"Accept-Language":           "en-US,en;q=0.9",
		"DNT":                       "1",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Sec-Fetch-User":            "?1",
	}
}

// DirectHTTPStrategy acquires the page with a single browser-like GET.
type DirectHTTPStrategy struct {
	fetcher   PageFetcher
	userAgent string
	logger    *zap.Logger
}

// NewDirectHTTPStrategy creates a DirectHTTPStrategy sending requests as userAgent.
func NewDirectHTTPStrategy(fetcher PageFetcher, userAgent string) *DirectHTTPStrategy {
	return &DirectHTTPStrategy{
		fetcher:   fetcher,
		userAgent: userAgent,
		logger:    logger.Get(),
	}
}

// Method returns domain.MethodDirectHTTP.
func (s *DirectHTTPStrategy) Method() domain.Method {
	return domain.MethodDirectHTTP
}

// Acquire fetches url once. Any non-2xx status is a failure carrying the code.
func (s *DirectHTTPStrategy) Acquire(ctx context.Context, url string) domain.AcquisitionResult {
	resp, err := s.fetcher.Fetch(ctx, url, BrowserHeaders(s.userAgent), browserHeaderOrder)
	if err != nil {
		return domain.Failed(domain.MethodDirectHTTP, fmt.Errorf("request failed: %w", err))
	}

	s.logger.Debug("Direct request completed",
		zap.Int("status_code", resp.StatusCode),
		zap.Int("body_bytes", len(resp.Body)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Failed(domain.MethodDirectHTTP, &domain.HTTPStatusError{StatusCode: resp.StatusCode})
	}
	return domain.Content(resp.Body, domain.MethodDirectHTTP)
}
