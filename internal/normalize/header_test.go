package normalize

import (
	"testing"

	"invoicecanon/pkg/models"
)

func TestHeaderNormalizeFields(t *testing.T) {
	doc := map[string]any{
		"invoice_number": "INV-2041",
		"invoice_date":   "2025-03-15",
		"payment_terms":  "Net 30",
		"vendor":         map[string]any{"name": "Maplewood Farms Inc.", "address": "12 Rural Route 4"},
		"customer_name":  "Bistro Laurier",
		"gst_number":     "123456789 RT0001",
		"tvq_number":     "1234567890 TQ0001",
	}

	header, warnings := NewHeaderNormalizer("").Normalize(doc)

	if header.InvoiceNumber == nil || *header.InvoiceNumber != "INV-2041" {
		t.Errorf("InvoiceNumber = %v, want INV-2041", header.InvoiceNumber)
	}
	if header.Date == nil || *header.Date != "2025-03-15" {
		t.Errorf("Date = %v, want 2025-03-15", header.Date)
	}
	if header.Vendor.Name != "Maplewood Farms Inc." {
		t.Errorf("Vendor.Name = %q", header.Vendor.Name)
	}
	if header.Customer.Name != "Bistro Laurier" {
		t.Errorf("Customer.Name = %q", header.Customer.Name)
	}
	if len(header.Vendor.TaxIDs) != 2 {
		t.Errorf("TaxIDs = %v, want both registrations", header.Vendor.TaxIDs)
	}
	if header.PONumber != nil {
		t.Errorf("PONumber = %v, want nil for missing field", header.PONumber)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
}

func TestHeaderDateOrder(t *testing.T) {
	doc := map[string]any{"invoice_date": "03/04/2025"}

	dayFirst, _ := NewHeaderNormalizer(DateOrderDayFirst).Normalize(doc)
	if dayFirst.Date == nil || *dayFirst.Date != "2025-04-03" {
		t.Errorf("day-first Date = %v, want 2025-04-03", dayFirst.Date)
	}

	monthFirst, _ := NewHeaderNormalizer(DateOrderMonthFirst).Normalize(doc)
	if monthFirst.Date == nil || *monthFirst.Date != "2025-03-04" {
		t.Errorf("month-first Date = %v, want 2025-03-04", monthFirst.Date)
	}
}

func TestHeaderDateUnparsed(t *testing.T) {
	doc := map[string]any{"invoice_date": "sometime last week"}

	header, warnings := NewHeaderNormalizer("").Normalize(doc)
	if header.Date != nil {
		t.Errorf("Date = %v, want nil", header.Date)
	}
	if !hasWarning(warnings, "date_unparsed") {
		t.Errorf("expected date_unparsed warning, got %v", warnings)
	}
}

func TestHeaderTotalsBackfill(t *testing.T) {
	doc := map[string]any{
		"subtotal": "100.00",
		"gst":      "5.00",
		"qst":      "9.98",
	}

	header, warnings := NewHeaderNormalizer("").Normalize(doc)
	if header.Totals.Subtotal != 100 {
		t.Errorf("Subtotal = %v", header.Totals.Subtotal)
	}
	if len(header.Totals.Taxes) != 2 {
		t.Fatalf("Taxes = %v, want GST and QST lines", header.Totals.Taxes)
	}
	if header.Totals.Taxes[0].Label != "GST" || header.Totals.Taxes[0].Amount != 5 {
		t.Errorf("first tax = %+v", header.Totals.Taxes[0])
	}
	if header.Totals.Total != 114.98 {
		t.Errorf("Total = %v, want back-filled 114.98", header.Totals.Total)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
}

func TestHeaderTaxArray(t *testing.T) {
	doc := map[string]any{
		"taxes": []any{
			map[string]any{"label": "TPS", "amount": "5.00"},
			map[string]any{"name": "TVQ", "value": 9.98},
		},
	}

	header, _ := NewHeaderNormalizer("").Normalize(doc)
	if len(header.Totals.Taxes) != 2 {
		t.Fatalf("Taxes = %v", header.Totals.Taxes)
	}
	if header.Totals.Taxes[1].Label != "TVQ" || header.Totals.Taxes[1].Amount != 9.98 {
		t.Errorf("second tax = %+v", header.Totals.Taxes[1])
	}
}

func TestHeaderSubtotalMismatch(t *testing.T) {
	doc := map[string]any{
		"subtotal": 100.0,
		"gst":      5.0,
		"total":    110.0,
	}

	header, warnings := NewHeaderNormalizer("").Normalize(doc)
	if header.Totals.Total != 110 {
		t.Errorf("stated total must not be corrected, got %v", header.Totals.Total)
	}

	w := findWarning(warnings, "subtotal_mismatch")
	if w == nil {
		t.Fatalf("expected subtotal_mismatch warning, got %v", warnings)
	}
	if w.Details["calculated"] != 105 || w.Details["expected"] != 110 || w.Details["difference"] != 5 {
		t.Errorf("Details = %v", w.Details)
	}
}

func TestHeaderSubtotalWithinTolerance(t *testing.T) {
	// 0.5% drift on a $100 subtotal stays inside the 1% tolerance.
	doc := map[string]any{
		"subtotal": 100.0,
		"gst":      5.0,
		"total":    105.5,
	}

	_, warnings := NewHeaderNormalizer("").Normalize(doc)
	if hasWarning(warnings, "subtotal_mismatch") {
		t.Errorf("drift within tolerance must not warn: %v", warnings)
	}
}

func hasWarning(warnings []models.Warning, typ string) bool {
	return findWarning(warnings, typ) != nil
}

func findWarning(warnings []models.Warning, typ string) *models.Warning {
	for i := range warnings {
		if warnings[i].Type == typ {
			return &warnings[i]
		}
	}
	return nil
}
