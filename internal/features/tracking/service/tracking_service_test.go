package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"icarry-tracker/internal/features/tracking/challenge"
	"icarry-tracker/internal/features/tracking/domain"
	"icarry-tracker/internal/features/tracking/extract"
	"icarry-tracker/internal/features/tracking/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const marker = "Shipment Tracking"

// scenarioPage carries status, courier and destination, no estimated delivery,
// two valid timeline rows and one malformed row.
const scenarioPage = `<html><body>
<h2>Shipment Tracking</h2>
<table><tr><td>Courier Name :</td><td>BlueDart</td></tr></table>
<p><b>Status:</b> <span>In Transit</span></p>
<p><b>Destination:</b> <span>Mumbai</span></p>
<table>
  <tr><th>Date</th><th>Location</th><th>Remark</th></tr>
  <tr><td>12-03-2024</td><td>DELHI HUB</td><td>Shipment picked up</td></tr>
  <tr><td>13-03-2024</td><td>MUMBAI HUB</td><td>In transit</td></tr>
  <tr><td>14-03-2024</td><td>MUMBAI</td></tr>
</table>
</body></html>`

// scriptedStrategy returns its results in order, repeating the last one.
type scriptedStrategy struct {
	method  domain.Method
	results []domain.AcquisitionResult
	calls   int
	urls    []string
}

func (s *scriptedStrategy) Method() domain.Method { return s.method }

func (s *scriptedStrategy) Acquire(_ context.Context, url string) domain.AcquisitionResult {
	s.urls = append(s.urls, url)
	i := s.calls
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.calls++
	return s.results[i]
}

// sleepRecorder replaces the back-off sleep.
type sleepRecorder struct {
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func newTestService(policy Policy, strategies ...ports.ContentStrategy) (*TrackingService, *sleepRecorder) {
	svc := NewTrackingService(strategies, extract.NewFieldExtractor(), challenge.NewDetector(marker), policy, marker)
	recorder := &sleepRecorder{}
	svc.sleep = recorder.sleep
	return svc, recorder
}

func newQuery(t *testing.T) domain.TrackingQuery {
	q, err := domain.NewTrackingQuery("347720741487", "https://www.icarry.in/track-shipment?a=%s")
	require.NoError(t, err)
	return q
}

// TestTrackingService_ScenarioA verifies a browser success yields the expected record.
func TestTrackingService_ScenarioA(t *testing.T) {
	browser := &scriptedStrategy{
		method:  domain.MethodBrowser,
		results: []domain.AcquisitionResult{domain.Content(scenarioPage, domain.MethodBrowser)},
	}
	svc, recorder := newTestService(DefaultPolicy(), browser)

	outcome, err := svc.Track(context.Background(), newQuery(t))

	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.Equal(t, domain.MethodBrowser, outcome.Method)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Empty(t, outcome.Failures)
	assert.NotEmpty(t, outcome.RunID)
	assert.Empty(t, recorder.delays)
	assert.Equal(t, []string{"https://www.icarry.in/track-shipment?a=347720741487"}, browser.urls)

	record := outcome.Record
	assert.Equal(t, "In Transit", domain.Value(record.Status))
	assert.Equal(t, "BlueDart", domain.Value(record.CourierName))
	assert.Equal(t, "Mumbai", domain.Value(record.Destination))
	assert.Nil(t, record.EstimatedDelivery)
	assert.Len(t, record.Timeline, 2)
}

// TestTrackingService_ScenarioB verifies two failures followed by a browser success within the budget.
func TestTrackingService_ScenarioB(t *testing.T) {
	browser := &scriptedStrategy{
		method: domain.MethodBrowser,
		results: []domain.AcquisitionResult{
			domain.Failed(domain.MethodBrowser, domain.ErrChallengeTimeout),
			domain.Failed(domain.MethodBrowser, domain.ErrAnchorWaitTimeout),
			domain.Content(scenarioPage, domain.MethodBrowser),
		},
	}
	svc, recorder := newTestService(DefaultPolicy(), browser)

	outcome, err := svc.Track(context.Background(), newQuery(t))

	require.NoError(t, err)
	assert.Equal(t, domain.MethodBrowser, outcome.Method)
	assert.Equal(t, 3, outcome.Attempts)
	require.Len(t, outcome.Failures, 2)
	assert.ErrorIs(t, outcome.Failures[0], domain.ErrChallengeTimeout)
	assert.ErrorIs(t, outcome.Failures[1], domain.ErrAnchorWaitTimeout)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, recorder.delays)
}

// TestTrackingService_ScenarioC verifies both strategies failing surfaces both reasons.
func TestTrackingService_ScenarioC(t *testing.T) {
	browser := &scriptedStrategy{
		method:  domain.MethodBrowser,
		results: []domain.AcquisitionResult{domain.Failed(domain.MethodBrowser, domain.ErrChallengeTimeout)},
	}
	direct := &scriptedStrategy{
		method:  domain.MethodDirectHTTP,
		results: []domain.AcquisitionResult{domain.Failed(domain.MethodDirectHTTP, &domain.HTTPStatusError{StatusCode: 403})},
	}
	policy := Policy{Mode: ModeFanOut, MaxAttempts: 3, Backoff: time.Second}
	svc, recorder := newTestService(policy, browser, direct)

	outcome, err := svc.Track(context.Background(), newQuery(t))

	assert.Nil(t, outcome)
	require.ErrorIs(t, err, domain.ErrExhaustedRetries)
	assert.ErrorIs(t, err, domain.ErrChallengeTimeout)
	assert.ErrorIs(t, err, domain.ErrHTTPStatus)
	assert.Contains(t, err.Error(), "challenge did not clear")
	assert.Contains(t, err.Error(), "unexpected HTTP status: 403")

	var exhausted *domain.ExhaustedRetriesError
	require.ErrorAs(t, err, &exhausted)
	require.Len(t, exhausted.Failures, 2)
	assert.Equal(t, domain.MethodBrowser, exhausted.Failures[0].Method)
	assert.Equal(t, domain.MethodDirectHTTP, exhausted.Failures[1].Method)

	assert.Equal(t, 1, browser.calls)
	assert.Equal(t, 1, direct.calls)
	assert.Len(t, recorder.delays, 1)
}

// TestTrackingService_RetryBound verifies an always failing strategy is tried exactly MaxAttempts times.
func TestTrackingService_RetryBound(t *testing.T) {
	for _, maxAttempts := range []int{1, 3, 5} {
		browser := &scriptedStrategy{
			method:  domain.MethodBrowser,
			results: []domain.AcquisitionResult{domain.Failed(domain.MethodBrowser, domain.ErrSession)},
		}
		direct := &scriptedStrategy{method: domain.MethodDirectHTTP}
		policy := Policy{Mode: ModeRetrySame, MaxAttempts: maxAttempts, Backoff: time.Millisecond}
		svc, recorder := newTestService(policy, browser, direct)

		_, err := svc.Track(context.Background(), newQuery(t))

		require.ErrorIs(t, err, domain.ErrExhaustedRetries)
		assert.Equal(t, maxAttempts, browser.calls)
		assert.Zero(t, direct.calls)
		assert.Len(t, recorder.delays, maxAttempts-1)
	}
}

// TestTrackingService_ContentValidation verifies untrustworthy or empty content counts as a failed attempt.
func TestTrackingService_ContentValidation(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected error
		reason   string
	}{
		{"MissingMarker", "<html><body>Welcome</body></html>", domain.ErrValidation, "marker \"Shipment Tracking\" not found"},
		{"ChallengePage", `<html><head><title>Just a moment...</title></head><body></body></html>`, domain.ErrValidation, "challenge page returned"},
		{"NoFields", "<html><body><h2>Shipment Tracking</h2></body></html>", domain.ErrNoTrackingData, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			direct := &scriptedStrategy{
				method:  domain.MethodDirectHTTP,
				results: []domain.AcquisitionResult{domain.Content(tt.html, domain.MethodDirectHTTP)},
			}
			policy := Policy{Mode: ModeRetrySame, MaxAttempts: 2}
			svc, _ := newTestService(policy, direct)

			_, err := svc.Track(context.Background(), newQuery(t))

			require.ErrorIs(t, err, domain.ErrExhaustedRetries)
			assert.ErrorIs(t, err, tt.expected)
			assert.Contains(t, err.Error(), tt.reason)
			assert.Equal(t, 2, direct.calls)
		})
	}
}

// TestTrackingService_Cancelled verifies a cancelled context stops the back-off.
func TestTrackingService_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	browser := &scriptedStrategy{
		method:  domain.MethodBrowser,
		results: []domain.AcquisitionResult{domain.Failed(domain.MethodBrowser, domain.ErrSession)},
	}
	svc, _ := newTestService(DefaultPolicy(), browser)
	svc.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	_, err := svc.Track(ctx, newQuery(t))

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, domain.ErrExhaustedRetries))
	assert.Equal(t, 1, browser.calls)
}

// TestTrackingService_NoStrategies verifies the service refuses to run without strategies.
func TestTrackingService_NoStrategies(t *testing.T) {
	svc, _ := newTestService(DefaultPolicy())

	_, err := svc.Track(context.Background(), newQuery(t))

	assert.ErrorIs(t, err, ErrNoStrategies)
}

// TestParseMode verifies mode parsing.
func TestParseMode(t *testing.T) {
	mode, err := ParseMode("fan_out")
	require.NoError(t, err)
	assert.Equal(t, ModeFanOut, mode)

	_, err = ParseMode("forever")
	assert.Error(t, err)
}
