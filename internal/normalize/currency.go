package normalize

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// UnitClass groups canonical units for the pricing-basis decision.
type UnitClass string

const (
	UnitClassWeight    UnitClass = "WEIGHT"
	UnitClassCount     UnitClass = "COUNT"
	UnitClassContainer UnitClass = "CONTAINER"
	UnitClassVolume    UnitClass = "VOLUME"
	UnitClassUnknown   UnitClass = "UNKNOWN"
)

// unitSynonyms maps lower-cased unit tokens to the canonical vocabulary.
// Unknown tokens pass through lower-cased so new vendor units survive
// the pipeline instead of being dropped.
var unitSynonyms = map[string]string{
	// weight
	"kg": "kg", "kgs": "kg", "kilo": "kg", "kilos": "kg",
	"kilogram": "kg", "kilograms": "kg", "kilogramme": "kg", "kilogrammes": "kg",
	"g": "g", "gr": "g", "gram": "g", "grams": "g", "gramme": "g", "grammes": "g",
	"lb": "lb", "lbs": "lb", "lb.": "lb", "pound": "lb", "pounds": "lb",
	"livre": "lb", "livres": "lb",
	"oz": "oz", "ounce": "oz", "ounces": "oz",

	// volume
	"l": "l", "lt": "l", "ltr": "l", "liter": "l", "liters": "l",
	"litre": "l", "litres": "l",
	"ml": "ml", "milliliter": "ml", "millilitre": "ml",
	"milliliters": "ml", "millilitres": "ml", "cl": "cl",
	"gal": "gal", "gallon": "gal", "gallons": "gal",

	// count
	"un": "un", "unit": "un", "units": "un", "unite": "un", "unité": "un",
	"each": "un", "ea": "un", "pc": "un", "pcs": "un",
	"piece": "un", "pieces": "un", "item": "un", "items": "un",
	"dz": "dz", "doz": "dz", "dozen": "dz", "douzaine": "dz",

	// containers
	"cs": "cs", "case": "cs", "cases": "cs", "caisse": "cs", "caisses": "cs",
	"bx": "bx", "box": "bx", "boxes": "bx", "boite": "bx", "boîte": "bx",
	"pk": "pk", "pack": "pk", "packs": "pk", "pkg": "pk", "paquet": "pk",
	"ctn": "ctn", "carton": "ctn", "cartons": "ctn",
	"bg": "bg", "bag": "bg", "bags": "bg", "sac": "bg", "sacs": "bg",
	"bt": "bt", "btl": "bt", "bottle": "bt", "bottles": "bt",
	"bouteille": "bt", "bouteilles": "bt",
	"pl": "pl", "pallet": "pl", "pallets": "pl", "palette": "pl", "palettes": "pl",
}

// unitClasses maps canonical unit codes to their class.
var unitClasses = map[string]UnitClass{
	"kg": UnitClassWeight, "g": UnitClassWeight, "lb": UnitClassWeight, "oz": UnitClassWeight,
	"l": UnitClassVolume, "ml": UnitClassVolume, "cl": UnitClassVolume, "gal": UnitClassVolume,
	"un": UnitClassCount, "dz": UnitClassCount,
	"cs": UnitClassContainer, "bx": UnitClassContainer, "pk": UnitClassContainer,
	"ctn": UnitClassContainer, "bg": UnitClassContainer, "bt": UnitClassContainer,
	"pl": UnitClassContainer,
}

// NormalizeUnit maps a vendor unit token to the canonical vocabulary.
// Matching is case-insensitive; unknown tokens pass through lower-cased,
// unchanged, for forward compatibility. Idempotent.
func NormalizeUnit(token string) string {
	t := strings.ToLower(strings.TrimSpace(token))
	if canonical, ok := unitSynonyms[t]; ok {
		return canonical
	}
	return t
}

// ClassifyUnit returns the unit class for a token (canonical or raw).
func ClassifyUnit(token string) UnitClass {
	if class, ok := unitClasses[NormalizeUnit(token)]; ok {
		return class
	}
	return UnitClassUnknown
}

var nonAmountChars = regexp.MustCompile(`[^\d.,\-]`)

// ParseCurrency parses a locale-ambiguous currency value. It accepts a
// number or a string; symbols and currency codes are stripped. When
// both comma and period appear, the later one is the decimal separator.
// A comma followed by exactly two trailing digits is treated as a
// decimal separator, otherwise as a thousands separator. Unparsable
// input yields 0; ParseCurrency never panics.
func ParseCurrency(value any) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		return parseCurrencyString(v)
	default:
		return 0
	}
}

func parseCurrencyString(raw string) float64 {
	cleaned := nonAmountChars.ReplaceAllString(raw, "")
	if cleaned == "" {
		return 0
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastPeriod := strings.LastIndex(cleaned, ".")

	switch {
	case lastComma >= 0 && lastPeriod >= 0:
		// Both present: the later one is the decimal separator.
		if lastComma > lastPeriod {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		// Comma followed by exactly two trailing digits is a decimal
		// separator; anything else is a thousands separator.
		if len(cleaned)-lastComma-1 == 2 {
			cleaned = strings.ReplaceAll(cleaned[:lastComma], ",", "") + "." + cleaned[lastComma+1:]
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case strings.Count(cleaned, ".") > 1:
		// Multiple periods: all but the last are thousands separators.
		cleaned = strings.ReplaceAll(cleaned[:lastPeriod], ".", "") + cleaned[lastPeriod:]
	}

	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return amount
}

var quantityWithUnit = regexp.MustCompile(`^\s*(-?\d+(?:[.,]\d+)?)\s*([\p{L}]+\.?)?`)

// ParseQuantityWithUnit parses "<number>" or "<number> <unit>" forms.
// The returned unit is canonical; it is empty when the input carried no
// unit token. Non-numeric tails are ignored without error; a value that
// does not start with a number yields (0, "", false).
func ParseQuantityWithUnit(raw string) (value float64, unit string, ok bool) {
	m := quantityWithUnit.FindStringSubmatch(raw)
	if m == nil {
		return 0, "", false
	}

	num := strings.Replace(m[1], ",", ".", 1)
	value, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, "", false
	}

	if m[2] != "" {
		unit = NormalizeUnit(strings.TrimSuffix(m[2], "."))
	}
	return value, unit, true
}
