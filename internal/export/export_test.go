package export

import (
	"bytes"
	"testing"

	"invoicecanon/pkg/models"
)

func sampleInvoice() *models.CanonicalInvoice {
	number := "INV-12"
	date := "2025-05-01"
	sku := "BF-1"
	weight := 5.0
	weightUnit := "kg"
	return &models.CanonicalInvoice{
		Header: models.CanonicalHeader{
			InvoiceNumber: &number,
			Date:          &date,
			Vendor:        models.Party{Name: "Maplewood Meats"},
		},
		LineItems: []models.CanonicalLineItem{
			{
				LineNumber: 1, Sku: &sku, Description: "Beef striploin",
				Quantity: 1, Weight: &weight, WeightUnit: &weightUnit,
				TotalPrice: 110, Category: models.CategoryFood,
				Confidence: 95,
				Derived:    map[string]float64{"pricePerKg": 22},
			},
			{
				LineNumber: 2, Description: "Bottle deposit",
				Quantity: 24, TotalPrice: 2.4, Category: models.CategoryFee,
				Confidence: 80,
			},
		},
	}
}

func TestSplitLines(t *testing.T) {
	goods, fees := SplitLines(sampleInvoice())

	if len(goods) != 1 || len(fees) != 1 {
		t.Fatalf("goods=%d fees=%d, want 1 and 1", len(goods), len(fees))
	}
	g := goods[0]
	if g.InvoiceNumber != "INV-12" || g.VendorName != "Maplewood Meats" {
		t.Errorf("row header fields = %+v", g)
	}
	if g.Weight != "5 kg" {
		t.Errorf("Weight = %q", g.Weight)
	}
	if g.PricePerKg != "22.0000" {
		t.Errorf("PricePerKg = %q", g.PricePerKg)
	}
	if fees[0].Description != "Bottle deposit" {
		t.Errorf("fee row = %+v", fees[0])
	}
}

func TestSplitLinesNil(t *testing.T) {
	goods, fees := SplitLines(nil)
	if goods != nil || fees != nil {
		t.Errorf("nil invoice: goods=%v fees=%v", goods, fees)
	}
}

func TestXLSXWriterProducesWorkbook(t *testing.T) {
	data, err := NewXLSXWriter().Write([]*models.CanonicalInvoice{sampleInvoice()})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	// XLSX files are ZIP archives.
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Errorf("output does not look like an XLSX workbook")
	}
}
