// Package extract pulls tracking fields out of the rendered tracking page.
//
// Every field is anchored to a landmark: a label such as "Status:" followed by
// the element carrying the value. Extractions are independent of each other
// and never fail; a missing landmark leaves the field absent.
package extract

import (
	"strings"

	"icarry-tracker/internal/features/tracking/domain"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// StatusAnchorXPath locates the status value. The browser strategy waits for it
// as the signal that the page finished rendering.
const StatusAnchorXPath = "//b[contains(text(),'Status:')]/following-sibling::span"

const (
	courierXPath           = "//td[contains(text(), 'Courier Name')]/following-sibling::td[1]"
	statusXPath            = "//b[contains(., 'Status:')]/following-sibling::span[1]"
	estimatedDeliveryXPath = "//b[contains(., 'Estimated Delivery:')]/following-sibling::span[1]"
	destinationXPath       = "//b[contains(., 'Destination:')]/following-sibling::span[1]"

	dateLabel = "Date"
	// timelineTableXPath picks the innermost table whose header carries the Date label.
	timelineTableXPath = "//table[(.//b[contains(., 'Date')] or .//th[contains(., 'Date')])" +
		" and not(.//table[.//b[contains(., 'Date')] or .//th[contains(., 'Date')]])]"
	headerLabelXPath = ".//b[contains(., 'Date')]"

	timelineCells = 3
)

// FieldExtractor implements ports.RecordExtractor over XPath landmarks.
type FieldExtractor struct{}

// NewFieldExtractor creates a FieldExtractor.
func NewFieldExtractor() *FieldExtractor {
	return &FieldExtractor{}
}

// Extract parses html and runs every field extraction. An unparsable document
// yields an empty record.
func (e *FieldExtractor) Extract(content string) domain.TrackingRecord {
	doc, err := htmlquery.Parse(strings.NewReader(content))
	if err != nil {
		return domain.TrackingRecord{Timeline: []domain.TimelineEntry{}}
	}

	return domain.TrackingRecord{
		CourierName:       firstText(doc, courierXPath),
		Status:            firstText(doc, statusXPath),
		EstimatedDelivery: firstText(doc, estimatedDeliveryXPath),
		Destination:       firstText(doc, destinationXPath),
		Timeline:          timeline(doc),
	}
}

// firstText returns the normalised text of the first node matching expr, or
// nil when nothing matches or the match is blank.
func firstText(doc *html.Node, expr string) *string {
	node, err := htmlquery.Query(doc, expr)
	if err != nil || node == nil {
		return nil
	}
	text := normalize(htmlquery.InnerText(node))
	if text == "" {
		return nil
	}
	return &text
}

// timeline reads the data rows of the Date-labelled table in document order.
func timeline(doc *html.Node) []domain.TimelineEntry {
	entries := make([]domain.TimelineEntry, 0)

	table, err := htmlquery.Query(doc, timelineTableXPath)
	if err != nil || table == nil {
		return entries
	}

	for _, row := range tableRows(table) {
		if isHeaderRow(row) {
			continue
		}
		cells := childElements(row, "td")
		if len(cells) < timelineCells {
			continue
		}
		entries = append(entries, domain.TimelineEntry{
			Date:     normalize(htmlquery.InnerText(cells[0])),
			Location: normalize(htmlquery.InnerText(cells[1])),
			Remark:   normalize(htmlquery.InnerText(cells[2])),
		})
	}
	return entries
}

// tableRows returns the rows owned by table itself, skipping rows of nested tables.
func tableRows(table *html.Node) []*html.Node {
	var rows []*html.Node
	for c := table.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "tr":
			rows = append(rows, c)
		case "thead", "tbody", "tfoot":
			rows = append(rows, childElements(c, "tr")...)
		}
	}
	return rows
}

func isHeaderRow(row *html.Node) bool {
	if len(childElements(row, "th")) > 0 {
		return true
	}
	label, err := htmlquery.Query(row, headerLabelXPath)
	return err == nil && label != nil && strings.HasPrefix(normalize(htmlquery.InnerText(label)), dateLabel)
}

func childElements(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			out = append(out, c)
		}
	}
	return out
}

// normalize collapses runs of whitespace; unicode.IsSpace covers &nbsp; too.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
