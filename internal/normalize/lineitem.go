package normalize

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"invoicecanon/internal/diagnostics"
	"invoicecanon/internal/logger"
	"invoicecanon/pkg/models"
)

// LineItemNormalizer turns one raw line item into its canonical form.
// It resolves fields through the per-field alias lists, untangles the
// two patterns vendors routinely mix into quantities and descriptions
// (weight embedded in the quantity field, and N×M multiplier formats),
// and reports raw field names missing from the known-fields registry.
type LineItemNormalizer struct {
	tracker *diagnostics.Tracker
	log     zerolog.Logger
}

// NewLineItemNormalizer creates a line item normalizer. The tracker may
// be nil, in which case unknown fields are still returned but not
// reported out-of-band.
func NewLineItemNormalizer(tracker *diagnostics.Tracker) *LineItemNormalizer {
	return &LineItemNormalizer{
		tracker: tracker,
		log:     logger.WithComponent("line-normalizer"),
	}
}

// Normalize resolves one raw line. lineNumber is 1-based input order.
// The returned unknown slice holds raw field names outside the
// known-fields registry.
func (n *LineItemNormalizer) Normalize(raw map[string]any, lineNumber int) (models.CanonicalLineItem, []string, []models.Warning) {
	var warnings []models.Warning
	provenance := make(map[string]string)

	item := models.CanonicalLineItem{
		LineNumber:  lineNumber,
		MatchStatus: models.MatchStatusUnmatched,
		Category:    models.CategoryDivers,
	}

	if sku, path := ResolveString(raw, lineAliases["sku"]); sku != "" {
		item.Sku = &sku
		provenance["sku"] = path
	}
	if desc, path := ResolveString(raw, lineAliases["description"]); desc != "" {
		item.Description = desc
		provenance["description"] = path
	}
	if format, path := ResolveString(raw, lineAliases["format"]); format != "" {
		item.Format = &format
		provenance["format"] = path
	}
	if unit, path := ResolveString(raw, lineAliases["unit"]); unit != "" {
		item.Unit = NormalizeUnit(unit)
		provenance["unit"] = path
	}

	if priceRaw, path := Resolve(raw, lineAliases["unitPrice"]); path != "" {
		item.UnitPrice = ParseCurrency(priceRaw)
		provenance["unitPrice"] = path
	}
	if totalRaw, path := Resolve(raw, lineAliases["totalPrice"]); path != "" {
		item.TotalPrice = ParseCurrency(totalRaw)
		provenance["totalPrice"] = path
	}

	warnings = n.normalizeQuantity(raw, &item, provenance, warnings)
	n.normalizeWeight(raw, &item, provenance)

	if ppw, path := Resolve(raw, lineAliases["pricePerWeight"]); path != "" {
		value := ParseCurrency(ppw)
		item.PricePerWeight = &value
		provenance["pricePerWeight"] = path
	}
	if item.PricePerWeight != nil || ClassifyUnit(item.Unit) == UnitClassWeight {
		item.IsWeightBasedPricing = true
	}

	if item.Description != "" {
		if m := DetectMultiplierFormat(item.Description); m != nil {
			item.Multiplier = m
		}
	}
	if item.Multiplier == nil && item.Format != nil {
		if m := DetectMultiplierFormat(*item.Format); m != nil {
			item.Multiplier = m
		}
	}

	item.Provenance = provenance

	unknown := n.collectUnknownFields(raw)
	if len(unknown) > 0 {
		warnings = append(warnings, models.Warning{
			Type:           "unknown_fields",
			Message:        fmt.Sprintf("line %d carries unrecognized fields: %s", lineNumber, strings.Join(unknown, ", ")),
			AffectedFields: unknown,
			LineNumbers:    []int{lineNumber},
		})
		n.tracker.Observe(unknown...)
	}

	return item, unknown, warnings
}

// normalizeQuantity handles the three quantity shapes vendors produce:
// a plain number, a "<number> <unit>" string, and a weight disguised as
// a quantity ("5.89 kg"). In the disguised case the numeric value is
// the line's weight, quantity is fixed at 1, and the unit price is
// reclassified as a price per weight.
func (n *LineItemNormalizer) normalizeQuantity(raw map[string]any, item *models.CanonicalLineItem, provenance map[string]string, warnings []models.Warning) []models.Warning {
	value, path := Resolve(raw, lineAliases["quantity"])
	if path == "" {
		return warnings
	}
	provenance["quantity"] = path

	switch q := value.(type) {
	case float64:
		item.Quantity = q
		return warnings
	case string:
		qty, unit, ok := ParseQuantityWithUnit(q)
		if !ok {
			item.Quantity = 0
			return append(warnings, models.Warning{
				Type:           "quantity_parse_failure",
				Message:        fmt.Sprintf("line %d quantity %q is not numeric; defaulting to 0", item.LineNumber, q),
				AffectedFields: []string{"quantity"},
				LineNumbers:    []int{item.LineNumber},
			})
		}
		if unit != "" && ClassifyUnit(unit) == UnitClassWeight {
			// The quantity field encodes a weight. The count is one
			// billed item and the unit price is really per weight.
			item.Quantity = 1
			item.Weight = &qty
			item.WeightUnit = &unit
			item.IsWeightBasedPricing = true
			if item.UnitPrice != 0 && item.PricePerWeight == nil {
				price := item.UnitPrice
				item.PricePerWeight = &price
				item.UnitPrice = 0
			}
			provenance["weight"] = path
			n.log.Debug().
				Int("line", item.LineNumber).
				Float64("weight", qty).
				Str("unit", unit).
				Msg("Quantity field carries an embedded weight")
			return warnings
		}
		item.Quantity = qty
		if unit != "" && item.Unit == "" {
			item.Unit = unit
		}
		return warnings
	default:
		item.Quantity = ParseCurrency(value)
		return warnings
	}
}

func (n *LineItemNormalizer) normalizeWeight(raw map[string]any, item *models.CanonicalLineItem, provenance map[string]string) {
	value, path := Resolve(raw, lineAliases["weight"])
	if path == "" || item.Weight != nil {
		return
	}

	var weight float64
	var unit string
	switch w := value.(type) {
	case float64:
		weight = w
	case string:
		parsed, u, ok := ParseQuantityWithUnit(w)
		if !ok {
			return
		}
		weight, unit = parsed, u
	default:
		return
	}
	if weight <= 0 {
		return
	}

	item.Weight = &weight
	provenance["weight"] = path
	if unit == "" {
		if u, p := ResolveString(raw, lineAliases["weightUnit"]); u != "" {
			unit = NormalizeUnit(u)
			provenance["weightUnit"] = p
		}
	}
	if unit != "" {
		item.WeightUnit = &unit
	}
}

// multiplierPattern matches descriptions like "4X40G" or "6 x 1.5 L":
// N sub-units of size M, optionally with a unit token.
var multiplierPattern = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*[x×]\s*(\d+(?:[.,]\d+)?)\s*([\p{L}]+)?`)

// DetectMultiplierFormat parses an N×M packaging descriptor out of free
// text. The total (N×M) is what inventory consumes; the multiplier and
// per-unit value are retained separately.
func DetectMultiplierFormat(text string) *models.MultiplierFormat {
	m := multiplierPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	multiplier, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
	if err != nil {
		return nil
	}
	perUnit, err := strconv.ParseFloat(strings.Replace(m[2], ",", ".", 1), 64)
	if err != nil {
		return nil
	}

	format := &models.MultiplierFormat{
		Total:        multiplier * perUnit,
		Multiplier:   multiplier,
		PerUnitValue: perUnit,
	}
	if m[3] != "" {
		format.Unit = NormalizeUnit(m[3])
	}
	return format
}

func (n *LineItemNormalizer) collectUnknownFields(raw map[string]any) []string {
	var unknown []string
	for name := range raw {
		if !IsKnownLineField(name) {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	return unknown
}
