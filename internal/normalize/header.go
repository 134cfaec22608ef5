package normalize

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"invoicecanon/internal/logger"
	"invoicecanon/pkg/models"
)

// DateOrder controls how ambiguous two-digit-leading numeric dates are
// read. The historical behavior is day-first; it is configuration, not
// a law.
type DateOrder string

const (
	DateOrderDayFirst   DateOrder = "day-first"
	DateOrderMonthFirst DateOrder = "month-first"
)

// HeaderNormalizer builds the canonical header from a raw document.
type HeaderNormalizer struct {
	dateOrder DateOrder
	log       zerolog.Logger
}

// NewHeaderNormalizer creates a header normalizer. An empty order
// defaults to day-first.
func NewHeaderNormalizer(order DateOrder) *HeaderNormalizer {
	if order == "" {
		order = DateOrderDayFirst
	}
	return &HeaderNormalizer{
		dateOrder: order,
		log:       logger.WithComponent("header-normalizer"),
	}
}

// Normalize resolves every canonical header field through the alias
// tables, parses the invoice date, back-fills the total when the source
// omitted it, and flags subtotal drift. Missing fields become nulls;
// Normalize never fails.
func (n *HeaderNormalizer) Normalize(doc map[string]any) (models.CanonicalHeader, []models.Warning) {
	var warnings []models.Warning

	header := models.CanonicalHeader{
		InvoiceNumber: n.resolveOptional(doc, "invoiceNumber"),
		PaymentTerms:  n.resolveOptional(doc, "paymentTerms"),
		PONumber:      n.resolveOptional(doc, "poNumber"),
		Vendor: models.Party{
			Name:    resolveText(doc, "vendorName"),
			Address: resolveText(doc, "vendorAddress"),
			Phone:   resolveText(doc, "vendorPhone"),
			TaxIDs:  resolveVendorTaxIDs(doc),
		},
		Customer: models.Party{
			Name:    resolveText(doc, "customerName"),
			Address: resolveText(doc, "customerAddress"),
		},
	}

	if raw, _ := ResolveString(doc, headerAliases["date"]); raw != "" {
		if iso, ok := n.parseDate(raw); ok {
			header.Date = &iso
		} else {
			warnings = append(warnings, models.Warning{
				Type:           "date_unparsed",
				Message:        fmt.Sprintf("invoice date %q could not be parsed", raw),
				AffectedFields: []string{"date"},
			})
		}
	}

	header.Totals, warnings = n.normalizeTotals(doc, warnings)

	n.log.Debug().
		Str("vendor", header.Vendor.Name).
		Float64("subtotal", header.Totals.Subtotal).
		Float64("total", header.Totals.Total).
		Int("warnings", len(warnings)).
		Msg("Header normalized")

	return header, warnings
}

func (n *HeaderNormalizer) resolveOptional(doc map[string]any, field string) *string {
	value, _ := ResolveString(doc, headerAliases[field])
	if value == "" {
		return nil
	}
	return &value
}

func resolveText(doc map[string]any, field string) string {
	value, _ := ResolveString(doc, headerAliases[field])
	return value
}

func resolveVendorTaxIDs(doc map[string]any) []string {
	var ids []string
	seen := make(map[string]struct{})
	for _, path := range vendorTaxIDAliases {
		value, ok := walkPath(doc, path)
		if !ok {
			continue
		}
		s, ok := coerceString(value)
		if !ok {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		ids = append(ids, s)
	}
	return ids
}

// normalizeTotals extracts subtotal, taxes and total, back-filling the
// total when absent. Stated amounts are never corrected; drift beyond
// max($0.02, 1% of the stated subtotal) only raises a warning.
func (n *HeaderNormalizer) normalizeTotals(doc map[string]any, warnings []models.Warning) (models.Totals, []models.Warning) {
	totals := models.Totals{Taxes: resolveTaxes(doc)}

	subtotalRaw, subtotalPath := Resolve(doc, headerAliases["subtotal"])
	if subtotalPath != "" {
		totals.Subtotal = ParseCurrency(subtotalRaw)
	}

	var taxSum float64
	for _, tax := range totals.Taxes {
		taxSum += tax.Amount
	}

	totalRaw, totalPath := Resolve(doc, headerAliases["total"])
	switch {
	case totalPath != "":
		totals.Total = ParseCurrency(totalRaw)
	case subtotalPath != "":
		totals.Total = round2(totals.Subtotal + taxSum)
	}

	if totalPath != "" && subtotalPath != "" {
		calculated := round2(totals.Subtotal + taxSum)
		drift := math.Abs(calculated - totals.Total)
		if drift > subtotalTolerance(totals.Subtotal) {
			warnings = append(warnings, models.Warning{
				Type: "subtotal_mismatch",
				Message: fmt.Sprintf("subtotal %.2f + taxes %.2f = %.2f does not match stated total %.2f",
					totals.Subtotal, taxSum, calculated, totals.Total),
				AffectedFields: []string{"totals.subtotal", "totals.total"},
				Details: map[string]float64{
					"calculated": calculated,
					"expected":   totals.Total,
					"difference": round2(drift),
				},
			})
		}
	}

	return totals, warnings
}

// subtotalTolerance is the magnitude-scaled drift tolerance:
// max($0.02, 1% of the stated subtotal).
func subtotalTolerance(subtotal float64) float64 {
	tolerance := math.Abs(subtotal) * 0.01
	if tolerance < 0.02 {
		tolerance = 0.02
	}
	return tolerance
}

func resolveTaxes(doc map[string]any) []models.TaxLine {
	for _, path := range taxArrayAliases {
		value, ok := walkPath(doc, path)
		if !ok {
			continue
		}
		entries, ok := value.([]any)
		if !ok {
			continue
		}
		var taxes []models.TaxLine
		for _, entry := range entries {
			switch e := entry.(type) {
			case map[string]any:
				line := models.TaxLine{}
				for _, key := range []string{"label", "name", "type"} {
					if s, ok := e[key].(string); ok && s != "" {
						line.Label = s
						break
					}
				}
				if amount, ok := e["amount"]; ok {
					line.Amount = ParseCurrency(amount)
				} else if amount, ok := e["value"]; ok {
					line.Amount = ParseCurrency(amount)
				}
				taxes = append(taxes, line)
			default:
				taxes = append(taxes, models.TaxLine{Amount: ParseCurrency(e)})
			}
		}
		return taxes
	}

	var taxes []models.TaxLine
	for _, scalar := range taxScalarAliases {
		for _, path := range scalar.Paths {
			value, ok := walkPath(doc, path)
			if !ok {
				continue
			}
			taxes = append(taxes, models.TaxLine{Label: scalar.Label, Amount: ParseCurrency(value)})
			break
		}
	}
	return taxes
}

// yearFirstLayouts are unambiguous regardless of locale.
var yearFirstLayouts = []string{
	"2006-01-02", "2006/01/02", "2006.01.02",
}

// textualLayouts spell the month out, so day position is unambiguous.
var textualLayouts = []string{
	"January 2, 2006", "Jan 2, 2006", "2 January 2006", "2 Jan 2006",
}

var dayFirstLayouts = []string{
	"02/01/2006", "02-01-2006", "02.01.2006", "2/1/2006", "02/01/06",
}

var monthFirstLayouts = []string{
	"01/02/2006", "01-02-2006", "01.02.2006", "1/2/2006", "01/02/06",
}

// parseDate accepts year-first and day/month-first numeric forms plus
// textual month forms. Ambiguous two-digit-leading forms follow the
// configured date order.
func (n *HeaderNormalizer) parseDate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	// ISO timestamps from readers arrive with a time component.
	if len(raw) > 10 {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t.Format("2006-01-02"), true
		}
	}

	layouts := make([]string, 0, len(yearFirstLayouts)+len(textualLayouts)+2*len(dayFirstLayouts))
	layouts = append(layouts, yearFirstLayouts...)
	layouts = append(layouts, textualLayouts...)
	if n.dateOrder == DateOrderMonthFirst {
		layouts = append(layouts, monthFirstLayouts...)
		layouts = append(layouts, dayFirstLayouts...)
	} else {
		layouts = append(layouts, dayFirstLayouts...)
		layouts = append(layouts, monthFirstLayouts...)
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
