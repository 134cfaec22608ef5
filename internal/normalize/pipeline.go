package normalize

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"invoicecanon/internal/logger"
	"invoicecanon/pkg/models"
)

// PricingBasis is the one-time weight-vs-count decision for a line. It
// is fixed before any arithmetic and recorded on the line record; no
// later stage re-derives it.
type PricingBasis string

const (
	BasisUnit   PricingBasis = "unit"
	BasisWeight PricingBasis = "weight"
)

// Confidence component weights.
const (
	confWeightMath         = 0.5
	confWeightPlausibility = 0.3
	confWeightCompleteness = 0.2
)

// Weight plausibility bounds in kilograms. Outside this range the
// stated weight is suspect, not impossible; the line is flagged and
// its confidence drops.
const (
	minPlausibleKg = 0.001
	maxPlausibleKg = 5000
)

// kgFactors converts canonical weight units to kilograms.
var kgFactors = map[string]float64{
	"kg": 1, "g": 0.001, "lb": 0.45359237, "oz": 0.028349523125,
}

// candidate is one extracted value for a canonical field, tagged with
// the alias that produced it and its unit classification.
type candidate struct {
	Path  string
	Value any
	Class UnitClass
}

// LinePipeline runs the five per-line phases: candidate extraction,
// pricing-basis decision, validation, pricing calculation, and
// confidence scoring with category routing.
type LinePipeline struct {
	log zerolog.Logger
}

// NewLinePipeline creates a line pipeline.
func NewLinePipeline() *LinePipeline {
	return &LinePipeline{log: logger.WithComponent("line-pipeline")}
}

// Process runs the phases over one normalized line. invoiceType is the
// detected commodity type and drives category routing. A malformed
// line degrades to minimum confidence with flags; Process never fails.
func (p *LinePipeline) Process(item models.CanonicalLineItem, raw map[string]any, invoiceType string) (models.CanonicalLineItem, []models.Warning) {
	var warnings []models.Warning

	// Phase 1: every candidate value for every field, not just the
	// first alias match. The first match already populated the line;
	// the full candidate set feeds validation and completeness.
	candidates := extractCandidates(raw)

	// Phase 2: fix the pricing basis before any arithmetic. The
	// expected formula is decided here and never re-decided to chase a
	// better validation result.
	basis := decideBasis(item)
	item.PricingBasis = string(basis)
	item.IsWeightBasedPricing = basis == BasisWeight

	// Phase 3: three validation tiers. Failures become line flags; the
	// line always proceeds.
	mathScore, weightScore, flags, warnings := p.validate(item, basis, warnings)
	item.ValidationFlags = flags

	// Phase 4: derive the missing pricing fields using the phase 2
	// formula. Stated values are never overwritten.
	item = derivePricing(item, basis)

	// Phase 5: weighted confidence and category routing.
	completeness := extractionCompleteness(item, basis, candidates)
	confidence := confWeightMath*mathScore +
		confWeightPlausibility*weightScore +
		confWeightCompleteness*completeness
	item.Confidence = int(math.Round(confidence * 100))

	item.Category = routeCategory(item, invoiceType)
	item = formatForCategory(item)

	p.log.Debug().
		Int("line", item.LineNumber).
		Str("basis", string(basis)).
		Str("category", item.Category).
		Int("confidence", item.Confidence).
		Strs("flags", flags).
		Msg("Line processed")

	return item, warnings
}

// extractCandidates gathers every present alias value for the pricing
// fields, tagged with source path and unit class.
func extractCandidates(raw map[string]any) map[string][]candidate {
	if raw == nil {
		return nil
	}
	fields := []string{"quantity", "unit", "unitPrice", "totalPrice", "weight", "pricePerWeight"}
	out := make(map[string][]candidate, len(fields))
	for _, field := range fields {
		for _, path := range lineAliases[field] {
			value, ok := walkPath(raw, path)
			if !ok {
				continue
			}
			c := candidate{Path: path, Value: value, Class: UnitClassUnknown}
			if s, ok := value.(string); ok {
				if _, unit, parsed := ParseQuantityWithUnit(s); parsed && unit != "" {
					c.Class = ClassifyUnit(unit)
				}
			}
			if field == "unit" {
				if s, ok := coerceString(value); ok {
					c.Class = ClassifyUnit(s)
				}
			}
			out[field] = append(out[field], c)
		}
	}
	return out
}

// decideBasis picks the pricing basis from the unit classification and
// the presence of an explicit weight value.
func decideBasis(item models.CanonicalLineItem) PricingBasis {
	if ClassifyUnit(item.Unit) == UnitClassWeight {
		return BasisWeight
	}
	if item.Weight != nil && item.PricePerWeight != nil {
		return BasisWeight
	}
	if item.IsWeightBasedPricing {
		return BasisWeight
	}
	return BasisUnit
}

// validate runs the structural, arithmetic and secondary consistency
// tiers, returning the math and weight-plausibility scores with the
// accumulated flags.
func (p *LinePipeline) validate(item models.CanonicalLineItem, basis PricingBasis, warnings []models.Warning) (float64, float64, []string, []models.Warning) {
	var flags []string

	// Tier 1: structural. The chosen basis dictates the required fields.
	if basis == BasisWeight {
		if item.Weight == nil || *item.Weight <= 0 {
			flags = append(flags, "missing_weight")
		}
		if item.PricePerWeight == nil && item.TotalPrice == 0 {
			flags = append(flags, "missing_price")
		}
	} else {
		if item.Quantity <= 0 {
			flags = append(flags, "missing_quantity")
		}
		if item.UnitPrice == 0 && item.TotalPrice == 0 {
			flags = append(flags, "missing_price")
		}
	}

	// Tier 2: arithmetic. Computed total vs stated total, within a
	// magnitude-scaled tolerance.
	mathScore := 0.5 // inconclusive when the inputs are incomplete
	computed, comparable := expectedTotal(item, basis)
	if comparable && item.TotalPrice != 0 {
		drift := math.Abs(computed - item.TotalPrice)
		if drift <= subtotalTolerance(item.TotalPrice) {
			mathScore = 1.0
		} else {
			relative := drift / math.Max(math.Abs(item.TotalPrice), 0.01)
			mathScore = clamp01(1 - relative)
			flags = append(flags, "math_mismatch")
			warnings = append(warnings, models.Warning{
				Type: "math_mismatch",
				Message: fmt.Sprintf("line %d: computed total %.2f differs from stated total %.2f",
					item.LineNumber, round2(computed), item.TotalPrice),
				LineNumbers: []int{item.LineNumber},
				Details: map[string]float64{
					"calculated": round2(computed),
					"expected":   item.TotalPrice,
					"difference": round2(drift),
				},
			})
		}
	}

	// Tier 3: secondary consistency. Weight plausibility and SKU
	// presence. Unit-priced lines get full weight credit since weight
	// is inapplicable there.
	weightScore := 1.0
	if basis == BasisWeight {
		if kg, ok := weightInKg(item); ok {
			if kg < minPlausibleKg || kg > maxPlausibleKg {
				weightScore = 0.3
				flags = append(flags, "implausible_weight")
			}
		} else {
			weightScore = 0.5
		}
	}
	if item.Sku == nil {
		flags = append(flags, "missing_sku")
	}

	return mathScore, weightScore, flags, warnings
}

// expectedTotal computes the total under the fixed formula. The second
// return value reports whether the inputs were complete enough to
// compare.
func expectedTotal(item models.CanonicalLineItem, basis PricingBasis) (float64, bool) {
	if basis == BasisWeight {
		if item.Weight != nil && item.PricePerWeight != nil && *item.Weight > 0 && *item.PricePerWeight != 0 {
			return *item.Weight * *item.PricePerWeight, true
		}
		return 0, false
	}
	if item.Quantity > 0 && item.UnitPrice != 0 {
		return item.Quantity * item.UnitPrice, true
	}
	return 0, false
}

// derivePricing fills the missing pricing fields using the phase 2
// formula. Switching formulas here to chase a better validation result
// would mask genuine source-data errors, so it never happens.
func derivePricing(item models.CanonicalLineItem, basis PricingBasis) models.CanonicalLineItem {
	if basis == BasisWeight {
		if item.Weight != nil && *item.Weight > 0 {
			if item.PricePerWeight == nil && item.TotalPrice != 0 {
				ppw := round2(item.TotalPrice / *item.Weight)
				item.PricePerWeight = &ppw
			}
			if item.TotalPrice == 0 && item.PricePerWeight != nil {
				item.TotalPrice = round2(*item.Weight * *item.PricePerWeight)
			}
		}
		if item.Quantity == 0 {
			item.Quantity = 1
		}
		return item
	}

	if item.Quantity > 0 {
		if item.UnitPrice == 0 && item.TotalPrice != 0 {
			item.UnitPrice = round2(item.TotalPrice / item.Quantity)
		}
		if item.TotalPrice == 0 && item.UnitPrice != 0 {
			item.TotalPrice = round2(item.Quantity * item.UnitPrice)
		}
	}
	return item
}

// extractionCompleteness is the fraction of basis-relevant fields the
// extraction actually produced.
func extractionCompleteness(item models.CanonicalLineItem, basis PricingBasis, candidates map[string][]candidate) float64 {
	var present, expected float64

	check := func(ok bool) {
		expected++
		if ok {
			present++
		}
	}

	check(item.Description != "")
	check(item.Sku != nil)
	check(item.TotalPrice != 0 || len(candidates["totalPrice"]) > 0)
	if basis == BasisWeight {
		check(item.Weight != nil)
		check(item.WeightUnit != nil)
		check(item.PricePerWeight != nil)
	} else {
		check(item.Quantity > 0)
		check(item.Unit != "")
		check(item.UnitPrice != 0)
	}

	return present / expected
}

// weightInKg converts the line weight to kilograms when the unit is a
// known weight unit.
func weightInKg(item models.CanonicalLineItem) (float64, bool) {
	if item.Weight == nil {
		return 0, false
	}
	unit := "kg"
	if item.WeightUnit != nil {
		unit = *item.WeightUnit
	} else if ClassifyUnit(item.Unit) == UnitClassWeight {
		unit = item.Unit
	}
	factor, ok := kgFactors[NormalizeUnit(unit)]
	if !ok {
		return 0, false
	}
	return *item.Weight * factor, true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
