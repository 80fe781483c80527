// Package challenge recognises anti-bot interstitials served in place of the tracking page.
package challenge

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultAppMarker is the text only the real tracking page renders.
const DefaultAppMarker = "Shipment Tracking"

// challengeSignatures are substrings that interstitial pages carry in their markup or scripts.
var challengeSignatures = []string{
	"challenge-platform",
	"cf-chl",
	"cf_chl_opt",
	"cf-browser-verification",
	"cf-challenge",
	"cf-turnstile",
	"just a moment...",
	"checking your browser",
	"verifying you are human",
	"attention required!",
}

// challengeSelectors match DOM nodes that only exist while a challenge runs.
var challengeSelectors = []string{
	"#challenge-running",
	"#cf-challenge-running",
	"#challenge-stage",
	"#challenge-form",
	"#turnstile-wrapper",
	`script[src*="challenge-platform"]`,
}

var challengeTitles = []string{
	"just a moment",
	"attention required",
	"checking your browser",
}

// Detector decides whether a document is still a challenge interstitial.
type Detector struct {
	appMarker string
}

// NewDetector creates a Detector; an empty marker falls back to DefaultAppMarker.
func NewDetector(appMarker string) *Detector {
	if appMarker == "" {
		appMarker = DefaultAppMarker
	}
	return &Detector{appMarker: appMarker}
}

// IsChallengeActive reports whether html is an active challenge. A document
// carrying the application marker is the real page and never counts as one.
func (d *Detector) IsChallengeActive(html string) bool {
	if strings.Contains(html, d.appMarker) {
		return false
	}

	lower := strings.ToLower(html)
	for _, sig := range challengeSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}

	for _, sel := range challengeSelectors {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}

	title := strings.ToLower(strings.TrimSpace(doc.Find("title").First().Text()))
	for _, t := range challengeTitles {
		if strings.HasPrefix(title, t) {
			return true
		}
	}

	return false
}
