package normalize

import (
	"testing"

	"invoicecanon/pkg/models"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func TestPipelineUnitBasisClean(t *testing.T) {
	item := models.CanonicalLineItem{
		LineNumber: 1, Sku: strPtr("BF-1"), Description: "Beef striploin",
		Quantity: 2, Unit: "cs", UnitPrice: 45.5, TotalPrice: 91,
	}

	got, warnings := NewLinePipeline().Process(item, nil, models.TypeFoodSupply)

	if got.PricingBasis != "unit" {
		t.Errorf("PricingBasis = %q", got.PricingBasis)
	}
	if got.Confidence != 100 {
		t.Errorf("Confidence = %d, want 100 for a complete consistent line", got.Confidence)
	}
	if len(got.ValidationFlags) != 0 {
		t.Errorf("flags = %v", got.ValidationFlags)
	}
	if got.Category != models.CategoryFood {
		t.Errorf("Category = %q", got.Category)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestPipelineWeightBasis(t *testing.T) {
	item := models.CanonicalLineItem{
		LineNumber: 2, Sku: strPtr("PK-7"), Description: "Pork shoulder",
		Quantity: 1, Weight: floatPtr(5), WeightUnit: strPtr("kg"),
		PricePerWeight: floatPtr(10), TotalPrice: 50,
	}

	got, warnings := NewLinePipeline().Process(item, nil, models.TypeFoodSupply)

	if got.PricingBasis != "weight" || !got.IsWeightBasedPricing {
		t.Errorf("basis = %q weightBased=%v", got.PricingBasis, got.IsWeightBasedPricing)
	}
	if got.Confidence != 100 {
		t.Errorf("Confidence = %d, want 100", got.Confidence)
	}
	if got.Derived["pricePerKg"] != 10 {
		t.Errorf("pricePerKg = %v", got.Derived["pricePerKg"])
	}
	if got.Derived["pricePerGram"] != 0.01 {
		t.Errorf("pricePerGram = %v", got.Derived["pricePerGram"])
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v", warnings)
	}
}

func TestPipelineMathMismatch(t *testing.T) {
	item := models.CanonicalLineItem{
		LineNumber: 3, Sku: strPtr("X"), Description: "Widget",
		Quantity: 2, Unit: "un", UnitPrice: 10, TotalPrice: 25,
	}

	got, warnings := NewLinePipeline().Process(item, nil, models.TypeGeneric)

	if !hasFlag(got.ValidationFlags, "math_mismatch") {
		t.Fatalf("flags = %v, want math_mismatch", got.ValidationFlags)
	}
	if got.TotalPrice != 25 {
		t.Errorf("stated total must survive, got %v", got.TotalPrice)
	}
	w := findWarning(warnings, "math_mismatch")
	if w == nil {
		t.Fatalf("expected math_mismatch warning, got %v", warnings)
	}
	if w.Details["calculated"] != 20 || w.Details["expected"] != 25 || w.Details["difference"] != 5 {
		t.Errorf("Details = %v", w.Details)
	}
	if got.Confidence != 90 {
		t.Errorf("Confidence = %d, want 90", got.Confidence)
	}
}

func TestPipelineDerivesMissingTotal(t *testing.T) {
	item := models.CanonicalLineItem{
		LineNumber: 4, Description: "Gloves",
		Quantity: 4, UnitPrice: 2.5,
	}

	got, _ := NewLinePipeline().Process(item, nil, models.TypeGeneric)

	if got.TotalPrice != 10 {
		t.Errorf("TotalPrice = %v, want derived 10", got.TotalPrice)
	}
	if !hasFlag(got.ValidationFlags, "missing_sku") {
		t.Errorf("flags = %v, want missing_sku", got.ValidationFlags)
	}
}

func TestPipelineImplausibleWeight(t *testing.T) {
	item := models.CanonicalLineItem{
		LineNumber: 5, Sku: strPtr("HV"), Description: "Bulk order",
		Quantity: 1, Weight: floatPtr(10000), WeightUnit: strPtr("kg"),
		PricePerWeight: floatPtr(1), TotalPrice: 10000,
	}

	got, _ := NewLinePipeline().Process(item, nil, models.TypeFoodSupply)

	if !hasFlag(got.ValidationFlags, "implausible_weight") {
		t.Errorf("flags = %v, want implausible_weight", got.ValidationFlags)
	}
}

func TestPipelineFeeRouting(t *testing.T) {
	item := models.CanonicalLineItem{
		LineNumber: 6, Description: "Bottle deposit consigne",
		Quantity: 24, UnitPrice: 0.1, TotalPrice: 2.4,
	}

	got, _ := NewLinePipeline().Process(item, nil, models.TypePackagingDistributor)

	if got.Category != models.CategoryFee {
		t.Fatalf("Category = %q, want fee routing to win over invoice type", got.Category)
	}
	if got.Derived["feeAmount"] != 2.4 {
		t.Errorf("feeAmount = %v", got.Derived["feeAmount"])
	}
}

func TestRouteCategory(t *testing.T) {
	tests := []struct {
		desc        string
		invoiceType string
		want        string
	}{
		{"Beef striploin", models.TypeFoodSupply, models.CategoryFood},
		{"Plastic containers", models.TypeFoodSupply, models.CategoryPackaging},
		{"Anything at all", models.TypePackagingDistributor, models.CategoryPackaging},
		{"Monthly maintenance", models.TypeServices, models.CategorySupply},
		{"Consumption", models.TypeUtilities, models.CategoryDivers},
		{"Fresh salmon", models.TypeGeneric, models.CategoryFood},
		{"Unmarked item", models.TypeGeneric, models.CategoryDivers},
		{"Freight surcharge", models.TypeFoodSupply, models.CategoryFee},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			item := models.CanonicalLineItem{Description: tt.desc}
			if got := routeCategory(item, tt.invoiceType); got != tt.want {
				t.Errorf("routeCategory(%q, %s) = %q, want %q", tt.desc, tt.invoiceType, got, tt.want)
			}
		})
	}
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}
