package ports

import (
	"context"

	"icarry-tracker/internal/features/tracking/domain"
)

// ContentStrategy defines one interchangeable way of acquiring tracking page HTML.
type ContentStrategy interface {
	// Method identifies the strategy in results and logs.
	Method() domain.Method
	// Acquire fetches the page at url. Failures are reported in the result, never panicked.
	Acquire(ctx context.Context, url string) domain.AcquisitionResult
}

// RecordExtractor turns page HTML into a TrackingRecord.
type RecordExtractor interface {
	// Extract never fails; missing landmarks leave fields absent.
	Extract(html string) domain.TrackingRecord
}

// ChallengeDetector decides whether HTML is still an anti-bot interstitial.
type ChallengeDetector interface {
	IsChallengeActive(html string) bool
}
