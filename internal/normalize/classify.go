package normalize

import (
	"math"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"invoicecanon/internal/logger"
	"invoicecanon/pkg/models"
)

// Rule scopes. Line rules run against each line's description+format
// text, format rules against the packaging descriptor only, header
// rules once against the header text, and structural rules against the
// shape of the invoice rather than its text.
type ruleScope string

const (
	scopeLine       ruleScope = "line"
	scopeFormat     ruleScope = "format"
	scopeHeader     ruleScope = "header"
	scopeStructural ruleScope = "structural"
)

// Signal weights per match kind.
const (
	scoreStrong     = 25
	scoreMedium     = 15
	scoreWeak       = 8
	scoreStructural = 20
	scoreHeader     = 15

	// utilityFewLineBonus: a bill with few lines is structurally more
	// likely a utility statement than a product invoice.
	utilityFewLineBonus = 25
	utilityFewLineMax   = 5

	// winThreshold is the minimum winning score; below it the invoice
	// stays generic.
	winThreshold = 30
)

// structuralCheck inspects invoice shape instead of text.
type structuralCheck func(header models.CanonicalHeader, items []models.CanonicalLineItem) bool

// patternRule is one independently testable classification signal.
type patternRule struct {
	pattern    *regexp.Regexp
	weight     int
	scope      ruleScope
	structural structuralCheck
}

// familyOrder fixes evaluation and tie-break order.
var familyOrder = []string{
	models.TypeFoodSupply,
	models.TypePackagingDistributor,
	models.TypeUtilities,
	models.TypeServices,
}

var patternFamilies = map[string][]patternRule{
	models.TypeFoodSupply: {
		{pattern: regexp.MustCompile(`(?i)\b(beef|pork|veal|lamb|chicken|poultry|turkey|duck|salmon|tuna|shrimp|halibut|cod|bacon|ham|sausage|striploin|tenderloin|ribeye|brisket|sirloin)\b`), weight: scoreStrong, scope: scopeLine},
		{pattern: regexp.MustCompile(`(?i)\b(AAA|AA|angus|prime|wagyu|choice)\b`), weight: scoreStrong, scope: scopeLine},
		{pattern: regexp.MustCompile(`(?i)\d+\s*/\s*\d+\s*(lbs?|kg|g|oz)\b`), weight: scoreStrong, scope: scopeFormat},
		{pattern: regexp.MustCompile(`(?i)\b(fresh|frozen|organic|produce|meat|seafood|dairy|cheese|butter|cream|milk|bakery|bread)\b`), weight: scoreMedium, scope: scopeLine},
		{pattern: regexp.MustCompile(`(?i)\b(diced|sliced|portion|trimmed|boneless)\b`), weight: scoreWeak, scope: scopeLine},
		{pattern: regexp.MustCompile(`(?i)\b(foods?|meats?|produce|farms?|seafood|viandes?|aliments?)\b`), weight: scoreHeader, scope: scopeHeader},
		{weight: scoreStructural, scope: scopeStructural, structural: anyWeightBasedLine},
	},
	models.TypePackagingDistributor: {
		{pattern: regexp.MustCompile(`(?i)\b\d+\s*(ml|cl|oz)\b`), weight: scoreStrong, scope: scopeLine},
		{pattern: regexp.MustCompile(`(?i)\d+\s*/\s*(case|cs|caisse|box|bx)\b`), weight: scoreStrong, scope: scopeLine},
		{pattern: regexp.MustCompile(`(?i)\b(container|lid|cup|tray|wrap|foil|napkin|clamshell|cutlery|straw|sleeve|deli)s?\b`), weight: scoreStrong, scope: scopeLine},
		{pattern: regexp.MustCompile(`(?i)\b(paper|plastic|foam|compostable|biodegradable|kraft)\b`), weight: scoreMedium, scope: scopeLine},
		{pattern: regexp.MustCompile(`(?i)\b(white|black|clear)\b`), weight: scoreWeak, scope: scopeLine},
		{pattern: regexp.MustCompile(`(?i)\b(packaging|emballages?|distribution|papers?|plastics?)\b`), weight: scoreHeader, scope: scopeHeader},
		{weight: scoreStructural, scope: scopeStructural, structural: anyMultiplierLine},
	},
	models.TypeUtilities: {
		{pattern: regexp.MustCompile(`(?i)\b\d+(?:[.,]\d+)?\s*kwh\b`), weight: scoreStrong, scope: scopeLine},
		{pattern: regexp.MustCompile(`(?i)\b(electricity|électricité|electricite|hydro|natural gas|kilowatt|cubic met(er|re))\b`), weight: scoreStrong, scope: scopeLine},
		{pattern: regexp.MustCompile(`(?i)\b(meter|billing period|consumption|usage|supply charge|delivery charge)\b`), weight: scoreMedium, scope: scopeLine},
		{pattern: regexp.MustCompile(`(?i)\b(hydro|energy|utility|utilities|telecom|gaz|power)\b`), weight: scoreHeader, scope: scopeHeader},
	},
	models.TypeServices: {
		{pattern: regexp.MustCompile(`(?i)\b(consulting|service fee|labou?r|maintenance|repair|installation|cleaning|subscription|license|support)\b`), weight: scoreStrong, scope: scopeLine},
		{pattern: regexp.MustCompile(`(?i)\b(hourly|per hour|monthly|annual|retainer)\b`), weight: scoreMedium, scope: scopeLine},
		{pattern: regexp.MustCompile(`(?i)\b(visit|call-?out|trip charge)\b`), weight: scoreWeak, scope: scopeLine},
		{pattern: regexp.MustCompile(`(?i)\b(services?|consulting|solutions)\b`), weight: scoreHeader, scope: scopeHeader},
		{weight: scoreStructural, scope: scopeStructural, structural: noLineHasSku},
	},
}

func anyWeightBasedLine(_ models.CanonicalHeader, items []models.CanonicalLineItem) bool {
	for _, item := range items {
		if item.Weight != nil || item.IsWeightBasedPricing {
			return true
		}
	}
	return false
}

func anyMultiplierLine(_ models.CanonicalHeader, items []models.CanonicalLineItem) bool {
	for _, item := range items {
		if item.Multiplier != nil {
			return true
		}
	}
	return false
}

func noLineHasSku(_ models.CanonicalHeader, items []models.CanonicalLineItem) bool {
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		if item.Sku != nil {
			return false
		}
	}
	return true
}

// ClassifierConfig exposes the confidence gap boosts as tunable
// configuration; the defaults are inherited heuristics, not calibrated
// constants.
type ClassifierConfig struct {
	WideGap     int
	WideBoost   int
	NarrowGap   int
	NarrowBoost int
}

// DefaultClassifierConfig preserves the historical boost behavior.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{WideGap: 50, WideBoost: 15, NarrowGap: 30, NarrowBoost: 10}
}

// Classifier scores the invoice against the pattern families and picks
// a commodity type. It is pure and stateless: identical inputs always
// yield an identical DetectionResult.
type Classifier struct {
	cfg ClassifierConfig
	log zerolog.Logger
}

// NewClassifier creates a classifier. Zero-valued config fields fall
// back to the defaults.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	def := DefaultClassifierConfig()
	if cfg.WideGap == 0 {
		cfg.WideGap = def.WideGap
	}
	if cfg.WideBoost == 0 {
		cfg.WideBoost = def.WideBoost
	}
	if cfg.NarrowGap == 0 {
		cfg.NarrowGap = def.NarrowGap
	}
	if cfg.NarrowBoost == 0 {
		cfg.NarrowBoost = def.NarrowBoost
	}
	return &Classifier{cfg: cfg, log: logger.WithComponent("type-classifier")}
}

// Classify returns the detected invoice type. A matched vendor with a
// known type overrides detection entirely: manual configuration wins
// and scoring is skipped.
func (c *Classifier) Classify(header models.CanonicalHeader, items []models.CanonicalLineItem, vendor *models.VendorMatch) models.DetectionResult {
	if vendor != nil && vendor.KnownInvoiceType != "" {
		return models.DetectionResult{
			Type:       vendor.KnownInvoiceType,
			Confidence: 100,
			Source:     models.DetectionSourceVendorProfile,
		}
	}

	scores := c.score(header, items)

	var total int
	for _, family := range familyOrder {
		total += scores[family]
	}

	winner, runnerUp := "", ""
	for _, family := range familyOrder {
		if winner == "" || scores[family] > scores[winner] {
			runnerUp = winner
			winner = family
		} else if runnerUp == "" || scores[family] > scores[runnerUp] {
			runnerUp = family
		}
	}

	result := models.DetectionResult{
		Source:  models.DetectionSourceDetection,
		Signals: scores,
	}
	if runnerUp != "" {
		result.AlternativeType = runnerUp
		result.AlternativeScore = scores[runnerUp]
	}

	if winner == "" || scores[winner] < winThreshold {
		// Accumulated signal argues against "generic": the more the
		// families matched, the less confident the fallback is.
		result.Type = models.TypeGeneric
		result.Confidence = maxInt(0, 100-total)
		return result
	}

	result.Type = winner
	confidence := int(math.Round(float64(scores[winner]) / float64(total) * 100))
	gap := scores[winner] - scores[runnerUp]
	if gap > c.cfg.WideGap {
		confidence += c.cfg.WideBoost
	} else if gap > c.cfg.NarrowGap {
		confidence += c.cfg.NarrowBoost
	}
	if confidence > 100 {
		confidence = 100
	}
	result.Confidence = confidence

	c.log.Debug().
		Str("type", result.Type).
		Int("confidence", result.Confidence).
		Interface("signals", scores).
		Msg("Invoice type detected")

	return result
}

func (c *Classifier) score(header models.CanonicalHeader, items []models.CanonicalLineItem) map[string]int {
	headerText := strings.TrimSpace(header.Vendor.Name + " " + header.Customer.Name)

	scores := make(map[string]int, len(familyOrder))
	for _, family := range familyOrder {
		var score int
		for _, rule := range patternFamilies[family] {
			switch rule.scope {
			case scopeHeader:
				if headerText != "" && rule.pattern.MatchString(headerText) {
					score += rule.weight
				}
			case scopeStructural:
				if rule.structural != nil && rule.structural(header, items) {
					score += rule.weight
				}
			case scopeFormat:
				for _, item := range items {
					if item.Format != nil && rule.pattern.MatchString(*item.Format) {
						score += rule.weight
					}
				}
			default:
				for _, item := range items {
					if rule.pattern.MatchString(lineText(item)) {
						score += rule.weight
					}
				}
			}
		}
		scores[family] = score
	}

	if len(items) <= utilityFewLineMax {
		scores[models.TypeUtilities] += utilityFewLineBonus
	}

	return scores
}

func lineText(item models.CanonicalLineItem) string {
	if item.Format != nil {
		return item.Description + " " + *item.Format
	}
	return item.Description
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
