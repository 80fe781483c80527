package domain

import "fmt"

// Method identifies how page content was acquired.
type Method string

const (
	// MethodBrowser drives a real browser session through the challenge.
	MethodBrowser Method = "browser"
	// MethodDirectHTTP issues a single fingerprinted HTTP request.
	MethodDirectHTTP Method = "direct_http"
)

// ParseMethod converts a configuration value into a Method.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case MethodBrowser, MethodDirectHTTP:
		return Method(s), nil
	default:
		return "", fmt.Errorf("unknown acquisition method: %q", s)
	}
}

// AcquisitionResult is the outcome of one strategy invocation: either content
// acquired by Method, or a failure carrying the reason.
type AcquisitionResult struct {
	Method Method
	HTML   string
	Err    error
}

// Content builds a successful AcquisitionResult.
func Content(html string, method Method) AcquisitionResult {
	return AcquisitionResult{Method: method, HTML: html}
}

// Failed builds a failed AcquisitionResult.
func Failed(method Method, err error) AcquisitionResult {
	return AcquisitionResult{Method: method, Err: err}
}

// OK reports whether the result carries content.
func (r AcquisitionResult) OK() bool {
	return r.Err == nil
}

// AttemptFailure records one failed attempt of the orchestrator.
type AttemptFailure struct {
	// Attempt is the 1-based attempt number.
	Attempt int `json:"attempt"`
	// Method is the strategy that was invoked.
	Method Method `json:"method"`
	// Err is the underlying reason.
	Err error `json:"-"`
}

// Error formats the failure as "attempt N (method): reason".
func (f AttemptFailure) Error() string {
	return fmt.Sprintf("attempt %d (%s): %v", f.Attempt, f.Method, f.Err)
}

// Unwrap exposes the underlying reason to errors.Is / errors.As.
func (f AttemptFailure) Unwrap() error {
	return f.Err
}
