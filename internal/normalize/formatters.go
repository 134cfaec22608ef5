package normalize

import (
	"math"
	"regexp"

	"invoicecanon/pkg/models"
)

// feePattern identifies charge lines that are not goods: deposits,
// freight, fuel surcharges, environmental and admin fees. French terms
// cover the Québec supplier base.
var feePattern = regexp.MustCompile(`(?i)\b(deposit|consigne|fee|frais|freight|shipping|delivery charge|livraison|surcharge|fuel|carburant|admin|environmental|eco ?fee|pallet charge)\b`)

// packagingHintPattern spots packaging goods inside an otherwise food
// invoice (a food distributor selling trays and wrap).
var packagingHintPattern = regexp.MustCompile(`(?i)\b(container|lid|cup|tray|wrap|foil|napkin|bag|box|clamshell|cutlery|straw)(e?s)?\b`)

// foodHintPattern spots food goods on generic invoices.
var foodHintPattern = regexp.MustCompile(`(?i)\b(beef|pork|chicken|veal|lamb|fish|salmon|cheese|milk|butter|cream|bread|produce|meat|seafood|frozen|fresh)\b`)

// routeCategory assigns the formatter category for a processed line.
// Fee lines win over everything; otherwise the detected invoice type
// sets the default with keyword overrides per line.
func routeCategory(item models.CanonicalLineItem, invoiceType string) string {
	text := lineText(item)

	if feePattern.MatchString(text) {
		return models.CategoryFee
	}

	switch invoiceType {
	case models.TypeFoodSupply:
		if packagingHintPattern.MatchString(text) {
			return models.CategoryPackaging
		}
		return models.CategoryFood
	case models.TypePackagingDistributor:
		return models.CategoryPackaging
	case models.TypeServices:
		return models.CategorySupply
	case models.TypeUtilities:
		return models.CategoryDivers
	default:
		if foodHintPattern.MatchString(text) {
			return models.CategoryFood
		}
		if packagingHintPattern.MatchString(text) {
			return models.CategoryPackaging
		}
		return models.CategoryDivers
	}
}

// formatForCategory applies the category-specific formatter. Every
// formatter returns a structurally identical record; only the derived
// fields differ.
func formatForCategory(item models.CanonicalLineItem) models.CanonicalLineItem {
	switch item.Category {
	case models.CategoryFood:
		return formatFoodLine(item)
	case models.CategoryPackaging:
		return formatPackagingLine(item)
	case models.CategorySupply:
		return formatSupplyLine(item)
	case models.CategoryFee:
		return formatFeeLine(item)
	default:
		return formatDiversLine(item)
	}
}

// formatFoodLine derives per-weight prices. Downstream recipe costing
// works in grams, so a price per gram is attached whenever the weight
// converts.
func formatFoodLine(item models.CanonicalLineItem) models.CanonicalLineItem {
	derived := map[string]float64{}
	if kg, ok := weightInKg(item); ok && kg > 0 && item.TotalPrice != 0 {
		derived["pricePerKg"] = round4(item.TotalPrice / kg)
		derived["pricePerGram"] = round4(item.TotalPrice / (kg * 1000))
	}
	if item.Multiplier != nil && item.Multiplier.Total > 0 && item.TotalPrice != 0 {
		derived["pricePerSubUnit"] = round4(item.TotalPrice / item.Multiplier.Total)
	}
	if len(derived) > 0 {
		item.Derived = derived
	}
	return item
}

// formatPackagingLine derives a per-piece price; case counts and
// multiplier formats give the piece count.
func formatPackagingLine(item models.CanonicalLineItem) models.CanonicalLineItem {
	derived := map[string]float64{}
	if item.Multiplier != nil && item.Multiplier.Total > 0 && item.TotalPrice != 0 {
		derived["pricePerPiece"] = round4(item.TotalPrice / item.Multiplier.Total)
	} else if item.Quantity > 0 && item.TotalPrice != 0 {
		derived["pricePerPiece"] = round4(item.TotalPrice / item.Quantity)
	}
	if len(derived) > 0 {
		item.Derived = derived
	}
	return item
}

func formatSupplyLine(item models.CanonicalLineItem) models.CanonicalLineItem {
	if item.Quantity > 0 && item.TotalPrice != 0 {
		item.Derived = map[string]float64{
			"pricePerUnit": round4(item.TotalPrice / item.Quantity),
		}
	}
	return item
}

// formatFeeLine keeps the fee amount alone; fees never contribute unit
// economics.
func formatFeeLine(item models.CanonicalLineItem) models.CanonicalLineItem {
	item.Derived = map[string]float64{"feeAmount": item.TotalPrice}
	return item
}

func formatDiversLine(item models.CanonicalLineItem) models.CanonicalLineItem {
	if item.Quantity > 0 && item.TotalPrice != 0 {
		item.Derived = map[string]float64{
			"pricePerUnit": round4(item.TotalPrice / item.Quantity),
		}
	}
	return item
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
