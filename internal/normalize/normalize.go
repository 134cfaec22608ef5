// Package normalize turns heterogeneous vendor invoice documents into
// canonical invoice records. The input is the untyped JSON tree an
// upstream document reader produced; the output is a stable canonical
// shape with warnings for everything that went wrong along the way.
// The only fatal input error is a document that is not a JSON object.
package normalize

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"invoicecanon/internal/diagnostics"
	"invoicecanon/internal/logger"
	"invoicecanon/internal/vendor"
	"invoicecanon/pkg/models"
)

// Options configures a Normalizer. The zero value is usable: day-first
// dates, default classifier boosts, no vendor matching, no diagnostics
// sink.
type Options struct {
	DateOrder  DateOrder
	Classifier ClassifierConfig
	Matcher    *vendor.Matcher
	Tracker    *diagnostics.Tracker
}

// Normalizer is the document-level orchestrator. It is safe for
// concurrent use; all per-invoice state lives on the stack.
type Normalizer struct {
	header     *HeaderNormalizer
	line       *LineItemNormalizer
	classifier *Classifier
	pipeline   *LinePipeline
	matcher    *vendor.Matcher
	log        zerolog.Logger
}

// NewNormalizer wires the pipeline stages together.
func NewNormalizer(opts Options) *Normalizer {
	return &Normalizer{
		header:     NewHeaderNormalizer(opts.DateOrder),
		line:       NewLineItemNormalizer(opts.Tracker),
		classifier: NewClassifier(opts.Classifier),
		pipeline:   NewLinePipeline(),
		matcher:    opts.Matcher,
		log:        logger.WithComponent("normalizer"),
	}
}

// Normalize converts one raw document into a canonical invoice. raw
// must be a decoded JSON object; any other shape is the single fatal
// error. Every recoverable problem, from an unparsable date to a
// failed vendor lookup, lands in Warnings instead. The result is
// deterministic: the same input always produces the byte-identical
// invoice.
func (n *Normalizer) Normalize(ctx context.Context, raw any) (*models.CanonicalInvoice, error) {
	if raw == nil {
		return nil, WrapProcessingError("normalize", ErrEmptyDocument, "")
	}
	doc, ok := raw.(map[string]any)
	if !ok {
		return nil, WrapProcessingError("normalize", ErrNotAnObject,
			fmt.Sprintf("got %T", raw))
	}

	header, warnings := n.header.Normalize(doc)

	var vendorMatch *models.VendorMatch
	if n.matcher != nil {
		match, warning := n.matcher.Match(ctx, header.Vendor.TaxIDs, header.Vendor.Name)
		vendorMatch = match
		if warning != nil {
			warnings = append(warnings, *warning)
		}
	}

	items, unknown, lineWarnings := n.normalizeLines(doc)
	warnings = append(warnings, lineWarnings...)

	detection := n.classifier.Classify(header, items, vendorMatch)

	for i := range items {
		processed, lineWarnings := n.pipeline.Process(items[i], lineSource(doc, i), detection.Type)
		items[i] = processed
		warnings = append(warnings, lineWarnings...)
	}

	warnings = n.checkLineSum(header, items, warnings)

	// Empty collections serialize as [] rather than null; consumers
	// should never need nil checks on the wire shape.
	if warnings == nil {
		warnings = []models.Warning{}
	}
	if unknown == nil {
		unknown = []string{}
	}

	invoice := &models.CanonicalInvoice{
		Header:        header,
		LineItems:     items,
		Vendor:        vendorMatch,
		Detection:     detection,
		Warnings:      warnings,
		UnknownFields: unknown,
	}

	n.log.Info().
		Str("type", detection.Type).
		Int("detection_confidence", detection.Confidence).
		Int("lines", len(items)).
		Int("warnings", len(warnings)).
		Bool("vendor_matched", vendorMatch != nil).
		Msg("Invoice normalized")

	return invoice, nil
}

// normalizeLines resolves the line item array and normalizes each
// entry. A malformed entry becomes a zero-confidence placeholder line
// with a warning; it never aborts the invoice.
func (n *Normalizer) normalizeLines(doc map[string]any) ([]models.CanonicalLineItem, []string, []models.Warning) {
	var warnings []models.Warning
	unknownSet := make(map[string]struct{})

	entries := resolveLineEntries(doc)
	items := make([]models.CanonicalLineItem, 0, len(entries))
	for i, entry := range entries {
		lineNumber := i + 1
		rawLine, ok := entry.(map[string]any)
		if !ok {
			items = append(items, models.CanonicalLineItem{
				LineNumber:  lineNumber,
				MatchStatus: models.MatchStatusUnmatched,
				Category:    models.CategoryDivers,
			})
			warnings = append(warnings, models.Warning{
				Type:        "malformed_line",
				Message:     fmt.Sprintf("line %d is not an object; emitted as an empty placeholder", lineNumber),
				LineNumbers: []int{lineNumber},
			})
			continue
		}

		item, unknown, lineWarnings := n.line.Normalize(rawLine, lineNumber)
		items = append(items, item)
		warnings = append(warnings, lineWarnings...)
		for _, f := range unknown {
			unknownSet[f] = struct{}{}
		}
	}

	var unknownFields []string
	if len(unknownSet) > 0 {
		unknownFields = make([]string, 0, len(unknownSet))
		for f := range unknownSet {
			unknownFields = append(unknownFields, f)
		}
		sort.Strings(unknownFields)
	}

	return items, unknownFields, warnings
}

// checkLineSum compares the sum of line totals against the stated
// subtotal. Drift beyond the magnitude-scaled tolerance raises a
// warning; the stated amounts are never corrected.
func (n *Normalizer) checkLineSum(header models.CanonicalHeader, items []models.CanonicalLineItem, warnings []models.Warning) []models.Warning {
	if header.Totals.Subtotal == 0 || len(items) == 0 {
		return warnings
	}

	var sum float64
	for _, item := range items {
		sum += item.TotalPrice
	}
	sum = round2(sum)

	drift := math.Abs(sum - header.Totals.Subtotal)
	if drift <= subtotalTolerance(header.Totals.Subtotal) {
		return warnings
	}

	return append(warnings, models.Warning{
		Type: "subtotal_mismatch",
		Message: fmt.Sprintf("line totals sum to %.2f but the stated subtotal is %.2f",
			sum, header.Totals.Subtotal),
		AffectedFields: []string{"totals.subtotal", "lineItems"},
		Details: map[string]float64{
			"calculated": sum,
			"expected":   header.Totals.Subtotal,
			"difference": round2(drift),
		},
	})
}

// resolveLineEntries finds the line item array under any of its known
// locations. The first matching array wins.
func resolveLineEntries(doc map[string]any) []any {
	for _, path := range lineItemsAliases {
		value, ok := walkPath(doc, path)
		if !ok {
			continue
		}
		if entries, ok := value.([]any); ok {
			return entries
		}
	}
	return nil
}

// lineSource re-resolves the raw map for line i so the pipeline can
// inspect every candidate value, not just the first alias match.
func lineSource(doc map[string]any, i int) map[string]any {
	entries := resolveLineEntries(doc)
	if i < 0 || i >= len(entries) {
		return nil
	}
	if raw, ok := entries[i].(map[string]any); ok {
		return raw
	}
	return nil
}
