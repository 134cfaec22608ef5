package normalize

import (
	"reflect"
	"testing"

	"invoicecanon/pkg/models"
)

func TestLineItemNormalizeBasic(t *testing.T) {
	raw := map[string]any{
		"product_code": "BF-1042",
		"description":  "Beef striploin AAA",
		"quantity":     float64(2),
		"unit":         "CS",
		"unit_price":   "45.50",
		"line_total":   "91.00",
	}

	item, unknown, warnings := NewLineItemNormalizer(nil).Normalize(raw, 1)

	if item.Sku == nil || *item.Sku != "BF-1042" {
		t.Errorf("Sku = %v", item.Sku)
	}
	if item.Description != "Beef striploin AAA" {
		t.Errorf("Description = %q", item.Description)
	}
	if item.Quantity != 2 || item.Unit != "cs" {
		t.Errorf("Quantity/Unit = %v %q", item.Quantity, item.Unit)
	}
	if item.UnitPrice != 45.5 || item.TotalPrice != 91 {
		t.Errorf("prices = %v %v", item.UnitPrice, item.TotalPrice)
	}
	if item.IsWeightBasedPricing {
		t.Error("case-priced line must not be weight based")
	}
	if len(unknown) != 0 || len(warnings) != 0 {
		t.Errorf("unknown=%v warnings=%v", unknown, warnings)
	}
	if item.Provenance["sku"] != "product_code" {
		t.Errorf("provenance = %v", item.Provenance)
	}
}

func TestLineItemEmbeddedWeight(t *testing.T) {
	raw := map[string]any{
		"description": "Pork shoulder",
		"quantity":    "5.89 kg",
		"unit_price":  12.5,
	}

	item, _, warnings := NewLineItemNormalizer(nil).Normalize(raw, 3)

	if item.Quantity != 1 {
		t.Errorf("Quantity = %v, want 1 billed item", item.Quantity)
	}
	if item.Weight == nil || *item.Weight != 5.89 {
		t.Errorf("Weight = %v, want 5.89", item.Weight)
	}
	if item.WeightUnit == nil || *item.WeightUnit != "kg" {
		t.Errorf("WeightUnit = %v", item.WeightUnit)
	}
	if !item.IsWeightBasedPricing {
		t.Error("embedded weight must mark the line weight based")
	}
	if item.PricePerWeight == nil || *item.PricePerWeight != 12.5 {
		t.Errorf("PricePerWeight = %v, want unit price reclassified", item.PricePerWeight)
	}
	if item.UnitPrice != 0 {
		t.Errorf("UnitPrice = %v, want 0 after reclassification", item.UnitPrice)
	}
	if item.Provenance["weight"] != "quantity" {
		t.Errorf("weight provenance = %q", item.Provenance["weight"])
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestLineItemQuantityParseFailure(t *testing.T) {
	raw := map[string]any{
		"description": "Mystery line",
		"quantity":    "a few",
	}

	item, _, warnings := NewLineItemNormalizer(nil).Normalize(raw, 2)

	if item.Quantity != 0 {
		t.Errorf("Quantity = %v, want 0", item.Quantity)
	}
	if !hasWarning(warnings, "quantity_parse_failure") {
		t.Errorf("expected quantity_parse_failure, got %v", warnings)
	}
}

func TestDetectMultiplierFormat(t *testing.T) {
	tests := []struct {
		input string
		want  *models.MultiplierFormat
	}{
		{"4X40G", &models.MultiplierFormat{Total: 160, Multiplier: 4, PerUnitValue: 40, Unit: "g"}},
		{"Juice 6 x 1.5 L", &models.MultiplierFormat{Total: 9, Multiplier: 6, PerUnitValue: 1.5, Unit: "l"}},
		{"24×500ml", &models.MultiplierFormat{Total: 12000, Multiplier: 24, PerUnitValue: 500, Unit: "ml"}},
		{"12x6", &models.MultiplierFormat{Total: 72, Multiplier: 12, PerUnitValue: 6}},
		{"plain description", nil},
		// Slash notation is pack size, not a multiplier.
		{"2/5LB", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := DetectMultiplierFormat(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DetectMultiplierFormat(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLineItemUnknownFields(t *testing.T) {
	raw := map[string]any{
		"description":     "Napkins",
		"quantity":        float64(10),
		"warehouse_zone":  "B4",
		"internal_rating": "A",
	}

	item, unknown, warnings := NewLineItemNormalizer(nil).Normalize(raw, 1)

	want := []string{"internal_rating", "warehouse_zone"}
	if !reflect.DeepEqual(unknown, want) {
		t.Errorf("unknown = %v, want sorted %v", unknown, want)
	}
	w := findWarning(warnings, "unknown_fields")
	if w == nil {
		t.Fatalf("expected unknown_fields warning, got %v", warnings)
	}
	if !reflect.DeepEqual(w.AffectedFields, want) {
		t.Errorf("AffectedFields = %v", w.AffectedFields)
	}
	if item.Description != "Napkins" {
		t.Errorf("Description = %q", item.Description)
	}
}
