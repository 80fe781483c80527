package domain

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// Recoverable failure kinds. The orchestrator turns each of them into a
// retry or fallback decision; none reaches the caller on its own.
var (
	// ErrChallengeTimeout means the anti-bot challenge never cleared within the polling ceiling.
	ErrChallengeTimeout = errors.New("challenge did not clear")
	// ErrAnchorWaitTimeout means the status anchor never appeared.
	ErrAnchorWaitTimeout = errors.New("status anchor did not appear")
	// ErrSession means the browser session could not be created, navigated or read.
	ErrSession = errors.New("browser session failed")
	// ErrHTTPStatus is matched by every HTTPStatusError.
	ErrHTTPStatus = errors.New("unexpected HTTP status")
	// ErrValidation means content arrived but is a challenge page or lacks the application marker.
	ErrValidation = errors.New("content failed validation")
	// ErrNoTrackingData means the page validated but no tracking field could be extracted.
	ErrNoTrackingData = errors.New("no tracking fields extracted")
)

// ErrExhaustedRetries is matched by every ExhaustedRetriesError.
var ErrExhaustedRetries = errors.New("all acquisition attempts exhausted")

// HTTPStatusError is returned by the direct-HTTP path for non-2xx responses.
type HTTPStatusError struct {
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status: %d", e.StatusCode)
}

// Is makes errors.Is(err, ErrHTTPStatus) hold for any status code.
func (e *HTTPStatusError) Is(target error) bool {
	return target == ErrHTTPStatus
}

// ExhaustedRetriesError is the terminal failure of a query. It keeps every
// attempt's failure so the operator can tell challenge problems from
// network or status problems.
type ExhaustedRetriesError struct {
	Failures []AttemptFailure
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("%v: %v", ErrExhaustedRetries, e.Reasons())
}

// Reasons concatenates the underlying reasons in attempt order.
func (e *ExhaustedRetriesError) Reasons() error {
	var combined error
	for _, f := range e.Failures {
		combined = multierr.Append(combined, f)
	}
	return combined
}

// Is matches ErrExhaustedRetries.
func (e *ExhaustedRetriesError) Is(target error) bool {
	return target == ErrExhaustedRetries
}

// Unwrap exposes every attempt failure to errors.Is / errors.As.
func (e *ExhaustedRetriesError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	return errs
}
