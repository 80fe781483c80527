// Package report renders tracking outcomes for the console.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"icarry-tracker/internal/features/tracking/domain"
	"icarry-tracker/internal/features/tracking/service"
)

// NotAvailable is printed in place of an absent field.
const NotAvailable = "Not available"

// Format selects the rendering.
type Format string

const (
	// FormatText is the two-section human readable report.
	FormatText Format = "text"
	// FormatJSON is a single JSON document.
	FormatJSON Format = "json"
)

// ParseFormat converts a configuration value into a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatJSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown output format: %q", s)
	}
}

// Printer writes outcomes and failures to out.
type Printer struct {
	out    io.Writer
	format Format
}

// NewPrinter creates a Printer.
func NewPrinter(out io.Writer, format Format) *Printer {
	return &Printer{out: out, format: format}
}

// outcomeDocument is the JSON shape of a success.
type outcomeDocument struct {
	RunID          string                `json:"run_id"`
	TrackingNumber string                `json:"tracking_number"`
	URL            string                `json:"url"`
	Method         domain.Method         `json:"method"`
	Attempts       int                   `json:"attempts"`
	GlobalStatus   domain.TrackingStatus `json:"global_status"`
	Record         domain.TrackingRecord `json:"record"`
	Failures       []failureDocument     `json:"failures"`
}

// failureDocument is the JSON shape of one failed attempt.
type failureDocument struct {
	Attempt int           `json:"attempt"`
	Method  domain.Method `json:"method"`
	Reason  string        `json:"reason"`
}

// errorDocument is the JSON shape of a failed run.
type errorDocument struct {
	Error    string            `json:"error"`
	Failures []failureDocument `json:"failures"`
}

// PrintOutcome writes a successful tracking outcome.
func (p *Printer) PrintOutcome(o *service.TrackingOutcome) error {
	if p.format == FormatJSON {
		return p.writeJSON(outcomeDocument{
			RunID:          o.RunID,
			TrackingNumber: o.Query.Number(),
			URL:            o.Query.URL(),
			Method:         o.Method,
			Attempts:       o.Attempts,
			GlobalStatus:   o.Record.GlobalStatus(),
			Record:         o.Record,
			Failures:       failureDocuments(o.Failures),
		})
	}

	var b strings.Builder
	r := o.Record

	b.WriteString("=== Tracking Results ===\n")
	fmt.Fprintf(&b, "Tracking Number: %s\n", o.Query.Number())
	fmt.Fprintf(&b, "Courier: %s\n", orNotAvailable(r.CourierName))
	fmt.Fprintf(&b, "Status: %s\n", orNotAvailable(r.Status))
	fmt.Fprintf(&b, "Estimated Delivery: %s\n", orNotAvailable(r.EstimatedDelivery))
	fmt.Fprintf(&b, "Destination: %s\n", orNotAvailable(r.Destination))

	b.WriteString("\n=== Tracking Timeline ===\n")
	for _, entry := range r.Timeline {
		fmt.Fprintf(&b, "%s | %s | %s\n", entry.Date, entry.Location, entry.Remark)
	}

	_, err := io.WriteString(p.out, b.String())
	return err
}

// PrintFailure writes a failed run with every underlying reason.
func (p *Printer) PrintFailure(err error) error {
	var exhausted *domain.ExhaustedRetriesError
	var failures []domain.AttemptFailure
	if errors.As(err, &exhausted) {
		failures = exhausted.Failures
	}

	if p.format == FormatJSON {
		return p.writeJSON(errorDocument{
			Error:    err.Error(),
			Failures: failureDocuments(failures),
		})
	}

	var b strings.Builder
	if exhausted != nil {
		fmt.Fprintf(&b, "Tracking failed after %d attempts:\n", len(failures))
		for _, f := range failures {
			fmt.Fprintf(&b, "  - %s\n", f.Error())
		}
	} else {
		fmt.Fprintf(&b, "Tracking failed: %v\n", err)
	}

	_, werr := io.WriteString(p.out, b.String())
	return werr
}

func (p *Printer) writeJSON(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func failureDocuments(failures []domain.AttemptFailure) []failureDocument {
	docs := make([]failureDocument, 0, len(failures))
	for _, f := range failures {
		docs = append(docs, failureDocument{
			Attempt: f.Attempt,
			Method:  f.Method,
			Reason:  f.Err.Error(),
		})
	}
	return docs
}

func orNotAvailable(field *string) string {
	if field == nil {
		return NotAvailable
	}
	return *field
}
