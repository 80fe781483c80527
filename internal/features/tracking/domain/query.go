package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrEmptyTrackingNumber is returned when a query is built without a tracking number.
var ErrEmptyTrackingNumber = errors.New("tracking number is required")

// TrackingQuery identifies one tracking lookup. It is built once per run and never mutated.
type TrackingQuery struct {
	number string
	url    string
}

// NewTrackingQuery derives the target URL for the tracking number from the template.
func NewTrackingQuery(number, urlTemplate string) (TrackingQuery, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return TrackingQuery{}, ErrEmptyTrackingNumber
	}
	return TrackingQuery{
		number: number,
		url:    BuildTargetURL(urlTemplate, number),
	}, nil
}

// Number returns the opaque tracking number.
func (q TrackingQuery) Number() string { return q.number }

// URL returns the page URL for the tracking number.
func (q TrackingQuery) URL() string { return q.url }

// BuildTargetURL interpolates the tracking number into the URL template.
// Templates carrying a %s verb are formatted; templates ending in "=" get the
// number appended; anything else gets an "a" query parameter.
func BuildTargetURL(template, number string) string {
	escaped := url.QueryEscape(number)
	switch {
	case strings.Contains(template, "%s"):
		return fmt.Sprintf(template, escaped)
	case strings.HasSuffix(template, "="):
		return template + escaped
	case strings.Contains(template, "?"):
		return template + "&a=" + escaped
	default:
		return template + "?a=" + escaped
	}
}
