package contract

import (
	"testing"

	"invoicecanon/pkg/models"
)

func validInvoice() *models.CanonicalInvoice {
	date := "2025-04-10"
	return &models.CanonicalInvoice{
		Header: models.CanonicalHeader{
			Date:   &date,
			Vendor: models.Party{Name: "Maplewood Meats"},
		},
		LineItems: []models.CanonicalLineItem{
			{
				LineNumber: 1, Description: "Beef striploin",
				Quantity: 2, UnitPrice: 45.5, TotalPrice: 91,
				MatchStatus: models.MatchStatusUnmatched,
				Category:    models.CategoryFood, Confidence: 90,
				PricingBasis: "unit",
			},
		},
		Detection: models.DetectionResult{
			Type:       models.TypeFoodSupply,
			Confidence: 85,
			Source:     models.DetectionSourceDetection,
		},
	}
}

func TestValidateAcceptsCanonicalInvoice(t *testing.T) {
	if err := Validate(validInvoice()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsBadShape(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing detection", `{"header":{},"lineItems":[]}`},
		{"invalid detection type", `{"header":{},"lineItems":[],"detection":{"type":"mystery","confidence":50,"source":"detection"}}`},
		{"confidence out of range", `{"header":{},"lineItems":[],"detection":{"type":"generic","confidence":140,"source":"detection"}}`},
		{"date not ISO", `{"header":{"date":"04/10/2025"},"lineItems":[],"detection":{"type":"generic","confidence":50,"source":"detection"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateJSON([]byte(tt.data)); err == nil {
				t.Errorf("ValidateJSON accepted %s", tt.data)
			}
		})
	}
}
