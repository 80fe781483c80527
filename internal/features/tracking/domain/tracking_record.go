package domain

import (
	"strings"
	"unicode"
)

// TrackingStatus represents the normalised global status of a shipment.
type TrackingStatus string

const (
	// TrackingStatusUnknown indicates the page carried no status value.
	TrackingStatusUnknown TrackingStatus = "UNKNOWN"
	// TrackingStatusProcessing indicates the shipment is moving through the network.
	TrackingStatusProcessing TrackingStatus = "PROCESSING"
	// TrackingStatusCompleted indicates the shipment has been delivered.
	TrackingStatusCompleted TrackingStatus = "COMPLETED"
	// TrackingStatusOrigin indicates the shipment has not left the origin yet.
	TrackingStatusOrigin TrackingStatus = "ORIGIN"
	// TrackingStatusReturn indicates the shipment is being returned to sender.
	TrackingStatusReturn TrackingStatus = "RETURN"
	// TrackingStatusIncidence indicates there is an issue with the shipment.
	TrackingStatusIncidence TrackingStatus = "INCIDENCE"
)

// statusKeywords is checked in order; the first keyword found as a whole word
// (or word sequence) in the status text wins. Return keywords come before
// "delivered" so that "RTO Delivered" maps to RETURN.
var statusKeywords = []struct {
	keyword string
	status  TrackingStatus
}{
	{"rto", TrackingStatusReturn},
	{"return", TrackingStatusReturn},
	{"returned", TrackingStatusReturn},
	{"returning", TrackingStatusReturn},
	{"undelivered", TrackingStatusIncidence},
	{"not delivered", TrackingStatusIncidence},
	{"exception", TrackingStatusIncidence},
	{"failed", TrackingStatusIncidence},
	{"lost", TrackingStatusIncidence},
	{"damaged", TrackingStatusIncidence},
	{"delivered", TrackingStatusCompleted},
	{"pickup", TrackingStatusOrigin},
	{"picked up", TrackingStatusOrigin},
	{"manifest", TrackingStatusOrigin},
	{"manifested", TrackingStatusOrigin},
	{"booked", TrackingStatusOrigin},
}

// NormalizeStatus maps the courier-aggregator free text onto a TrackingStatus.
// Keywords never match inside a longer word, so place names such as
// "Alberton" or "Porto" do not read as a return.
func NormalizeStatus(text string) TrackingStatus {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return TrackingStatusUnknown
	}

	padded := " " + strings.Join(words, " ") + " "
	for _, k := range statusKeywords {
		if strings.Contains(padded, " "+k.keyword+" ") {
			return k.status
		}
	}
	return TrackingStatusProcessing
}

// TrackingRecord is the structured result extracted from a tracking page.
// A nil scalar field means the page did not carry that landmark.
type TrackingRecord struct {
	// CourierName is the carrier the aggregator routed the shipment to.
	CourierName *string `json:"courier_name,omitempty"`
	// Status is the raw status text shown on the page.
	Status *string `json:"status,omitempty"`
	// EstimatedDelivery is the raw estimated delivery text.
	EstimatedDelivery *string `json:"estimated_delivery,omitempty"`
	// Destination is the delivery destination.
	Destination *string `json:"destination,omitempty"`
	// Timeline holds the shipment history in document order.
	Timeline []TimelineEntry `json:"timeline"`
}

// TimelineEntry represents a single row of shipment history.
type TimelineEntry struct {
	Date     string `json:"date"`
	Location string `json:"location"`
	Remark   string `json:"remark"`
}

// HasAnyField reports whether at least one scalar field was extracted.
// Only such a record counts as a successful extraction.
func (r TrackingRecord) HasAnyField() bool {
	return r.CourierName != nil || r.Status != nil || r.EstimatedDelivery != nil || r.Destination != nil
}

// GlobalStatus returns the normalised status of the record.
func (r TrackingRecord) GlobalStatus() TrackingStatus {
	if r.Status == nil {
		return TrackingStatusUnknown
	}
	return NormalizeStatus(*r.Status)
}

// Value dereferences an optional field, returning "" when absent.
func Value(field *string) string {
	if field == nil {
		return ""
	}
	return *field
}
