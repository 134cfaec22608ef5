// Package models defines the canonical invoice record produced by the
// normalization pipeline. The CanonicalInvoice shape is the contract
// consumed by the accounting-export boundary; fields are JSON-tagged so
// the same structs serve both the Go API and the wire shape.
package models

// Invoice type constants produced by detection.
const (
	TypeFoodSupply           = "foodSupply"
	TypePackagingDistributor = "packagingDistributor"
	TypeUtilities            = "utilities"
	TypeServices             = "services"
	TypeGeneric              = "generic"
)

// Line item categories used for formatter routing.
const (
	CategoryFood      = "FOOD"
	CategoryPackaging = "PACKAGING"
	CategorySupply    = "SUPPLY"
	CategoryFee       = "FEE"
	CategoryDivers    = "DIVERS"
)

// Match status values for line items.
const (
	MatchStatusUnmatched = "unmatched"
	MatchStatusMatched   = "matched"
)

// Detection sources.
const (
	DetectionSourceVendorProfile = "vendor_profile"
	DetectionSourceDetection     = "detection"
)

// Party identifies one side of the invoice (vendor or customer).
type Party struct {
	Name    string   `json:"name"`
	Address string   `json:"address,omitempty"`
	Phone   string   `json:"phone,omitempty"`
	TaxIDs  []string `json:"taxIds,omitempty"`
}

// TaxLine is a single tax entry on the invoice totals.
type TaxLine struct {
	Label  string  `json:"label,omitempty"`
	Amount float64 `json:"amount"`
}

// Totals carries the stated header amounts. Total is back-filled from
// Subtotal + taxes when the source omitted it; stated values are never
// overwritten.
type Totals struct {
	Subtotal float64   `json:"subtotal"`
	Taxes    []TaxLine `json:"taxes,omitempty"`
	Total    float64   `json:"total"`
}

// CanonicalHeader is the normalized invoice header.
type CanonicalHeader struct {
	InvoiceNumber *string `json:"invoiceNumber"`
	Date          *string `json:"date"` // ISO-8601 (YYYY-MM-DD) or null
	PaymentTerms  *string `json:"paymentTerms"`
	PONumber      *string `json:"poNumber"`
	Vendor        Party   `json:"vendor"`
	Customer      Party   `json:"customer"`
	Totals        Totals  `json:"totals"`
}

// MultiplierFormat captures descriptions like "4X40G": N sub-units of
// size M. Inventory systems need the total, not the per-pack amount, so
// both are retained.
type MultiplierFormat struct {
	Total        float64 `json:"total"`
	Multiplier   float64 `json:"multiplier"`
	PerUnitValue float64 `json:"perUnitValue"`
	Unit         string  `json:"unit"`
}

// CanonicalLineItem is one normalized invoice line. LineNumber is
// 1-based and always reflects original input order.
type CanonicalLineItem struct {
	LineNumber           int                `json:"lineNumber"`
	Sku                  *string            `json:"sku"`
	Description          string             `json:"description"`
	Quantity             float64            `json:"quantity"`
	Unit                 string             `json:"unit"`
	UnitPrice            float64            `json:"unitPrice"`
	TotalPrice           float64            `json:"totalPrice"`
	Weight               *float64           `json:"weight,omitempty"`
	WeightUnit           *string            `json:"weightUnit,omitempty"`
	PricePerWeight       *float64           `json:"pricePerWeight,omitempty"`
	Format               *string            `json:"format,omitempty"`
	Multiplier           *MultiplierFormat  `json:"multiplierFormat,omitempty"`
	IsWeightBasedPricing bool               `json:"isWeightBasedPricing"`
	MatchStatus          string             `json:"matchStatus"`
	Category             string             `json:"category"`
	Confidence           int                `json:"confidence"`
	PricingBasis         string             `json:"pricingBasis,omitempty"`
	ValidationFlags      []string           `json:"validationFlags,omitempty"`
	Derived              map[string]float64 `json:"derived,omitempty"`
	Provenance           map[string]string  `json:"provenance,omitempty"` // source alias per field, audit only
}

// VendorMatch is a weak reference to an external vendor record. The
// invoice never owns the vendor; KnownInvoiceType, when set, overrides
// detection entirely.
type VendorMatch struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	KnownInvoiceType string `json:"knownInvoiceType,omitempty"`
}

// DetectionResult is the outcome of invoice type classification.
// Signals is nil when Source is "vendor_profile" (scoring was skipped).
type DetectionResult struct {
	Type             string         `json:"type"`
	Confidence       int            `json:"confidence"`
	Source           string         `json:"source"`
	Signals          map[string]int `json:"signals,omitempty"`
	AlternativeType  string         `json:"alternativeType,omitempty"`
	AlternativeScore int            `json:"alternativeScore,omitempty"`
}

// Warning is a structured, non-fatal data-quality issue. Warnings are
// append-only and never abort the pipeline.
type Warning struct {
	Type           string             `json:"type"`
	Message        string             `json:"message"`
	AffectedFields []string           `json:"affectedFields,omitempty"`
	LineNumbers    []int              `json:"lineNumbers,omitempty"`
	Details        map[string]float64 `json:"details,omitempty"`
}

// CanonicalInvoice is the pipeline output: the normalized header, the
// normalized and processed line items, the optional vendor reference,
// every accumulated warning, and the raw field names that were not in
// the known-fields registry.
type CanonicalInvoice struct {
	Header        CanonicalHeader     `json:"header"`
	LineItems     []CanonicalLineItem `json:"lineItems"`
	Vendor        *VendorMatch        `json:"vendor"`
	Detection     DetectionResult     `json:"detection"`
	Warnings      []Warning           `json:"warnings"`
	UnknownFields []string            `json:"unknownFields"`
}
