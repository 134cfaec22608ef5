// Package contract pins the canonical invoice output shape. The schema
// is the contract consumers integrate against; Validate catches shape
// drift before an invoice leaves the process.
package contract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"invoicecanon/pkg/models"
)

// BuildInvoiceJSONSchema returns the canonical invoice schema (draft
// 2020-12 subset) as a generic map.
func BuildInvoiceJSONSchema() map[string]any {
	amount := map[string]any{"type": "number"}
	optionalString := map[string]any{"type": []any{"string", "null"}}

	party := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":    map[string]any{"type": "string"},
			"address": map[string]any{"type": "string"},
			"phone":   map[string]any{"type": "string"},
			"taxIds":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
	}

	lineItem := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"lineNumber":  map[string]any{"type": "integer", "minimum": 1},
			"sku":         optionalString,
			"description": map[string]any{"type": "string"},
			"quantity":    amount,
			"unit":        map[string]any{"type": "string"},
			"unitPrice":   amount,
			"totalPrice":  amount,
			"weight":      map[string]any{"type": []any{"number", "null"}},
			"weightUnit":  optionalString,
			"pricePerWeight": map[string]any{
				"type": []any{"number", "null"},
			},
			"format": optionalString,
			"multiplierFormat": map[string]any{
				"type": []any{"object", "null"},
				"properties": map[string]any{
					"total":        amount,
					"multiplier":   amount,
					"perUnitValue": amount,
					"unit":         map[string]any{"type": "string"},
				},
				"required": []any{"total", "multiplier", "perUnitValue"},
			},
			"isWeightBasedPricing": map[string]any{"type": "boolean"},
			"matchStatus": map[string]any{
				"type": "string",
				"enum": []any{models.MatchStatusMatched, models.MatchStatusUnmatched},
			},
			"category": map[string]any{
				"type": "string",
				"enum": []any{
					models.CategoryFood, models.CategoryPackaging,
					models.CategorySupply, models.CategoryFee, models.CategoryDivers,
				},
			},
			"confidence":   map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
			"pricingBasis": map[string]any{"type": "string", "enum": []any{"unit", "weight"}},
		},
		"required": []any{"lineNumber", "description", "category", "confidence"},
	}

	warning := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"type":    map[string]any{"type": "string", "minLength": 1},
			"message": map[string]any{"type": "string"},
		},
		"required": []any{"type", "message"},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"header": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"invoiceNumber": optionalString,
					"date":          map[string]any{"type": []any{"string", "null"}, "pattern": `^\d{4}-\d{2}-\d{2}$`},
					"paymentTerms":  optionalString,
					"poNumber":      optionalString,
					"vendor":        party,
					"customer":      party,
					"totals": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"subtotal": amount,
							"total":    amount,
							"taxes": map[string]any{
								"type": "array",
								"items": map[string]any{
									"type": "object",
									"properties": map[string]any{
										"label":  map[string]any{"type": "string"},
										"amount": amount,
									},
								},
							},
						},
					},
				},
			},
			"lineItems": map[string]any{"type": "array", "items": lineItem},
			"vendor": map[string]any{
				"type": []any{"object", "null"},
				"properties": map[string]any{
					"id":   map[string]any{"type": "string"},
					"name": map[string]any{"type": "string"},
				},
				"required": []any{"id", "name"},
			},
			"detection": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"type": map[string]any{
						"type": "string",
						"enum": []any{
							models.TypeFoodSupply, models.TypePackagingDistributor,
							models.TypeUtilities, models.TypeServices, models.TypeGeneric,
						},
					},
					"confidence": map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
					"source": map[string]any{
						"type": "string",
						"enum": []any{models.DetectionSourceVendorProfile, models.DetectionSourceDetection},
					},
				},
				"required": []any{"type", "confidence", "source"},
			},
			"warnings":      map[string]any{"type": []any{"array", "null"}, "items": warning},
			"unknownFields": map[string]any{"type": []any{"array", "null"}, "items": map[string]any{"type": "string"}},
		},
		"required": []any{"header", "lineItems", "detection"},
	}
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// compiledSchema compiles the invoice schema once.
func compiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		b, err := json.Marshal(BuildInvoiceJSONSchema())
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("invoice.json", bytes.NewReader(b)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiled, compileErr = compiler.Compile("invoice.json")
	})
	return compiled, compileErr
}

// Validate checks a canonical invoice against the output schema.
func Validate(invoice *models.CanonicalInvoice) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	b, err := json.Marshal(invoice)
	if err != nil {
		return fmt.Errorf("marshal invoice: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("unmarshal invoice: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("invoice does not match contract: %w", err)
	}
	return nil
}

// ValidateJSON checks raw canonical invoice JSON against the schema.
func ValidateJSON(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match contract: %w", err)
	}
	return nil
}
