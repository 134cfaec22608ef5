package normalize

import "testing"

func TestResolve(t *testing.T) {
	doc := map[string]any{
		"invoice_number": "INV-100",
		"vendor":         map[string]any{"name": "Maplewood Farms"},
		"items":          []any{map[string]any{"sku": "A1"}},
	}

	tests := []struct {
		name     string
		paths    []string
		want     any
		wantPath string
	}{
		{"first match wins", []string{"invoiceNumber", "invoice_number"}, "INV-100", "invoice_number"},
		{"nested path", []string{"vendor.name"}, "Maplewood Farms", "vendor.name"},
		{"array index", []string{"items.0.sku"}, "A1", "items.0.sku"},
		{"no match", []string{"missing", "also.missing"}, nil, ""},
		{"out of range index", []string{"items.5.sku"}, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, path := Resolve(doc, tt.paths)
			if got != tt.want || path != tt.wantPath {
				t.Errorf("Resolve(%v) = (%v, %q), want (%v, %q)", tt.paths, got, path, tt.want, tt.wantPath)
			}
		})
	}
}

func TestResolvePriorityOrder(t *testing.T) {
	doc := map[string]any{
		"quantity":          float64(3),
		"quantity_invoiced": float64(2),
		"quantity_ordered":  float64(5),
	}

	got, path := Resolve(doc, lineAliases["quantity"])
	if path != "quantity_invoiced" {
		t.Fatalf("expected invoiced quantity to win, got path %q", path)
	}
	if got != float64(2) {
		t.Errorf("got %v, want 2", got)
	}
}

func TestResolveString(t *testing.T) {
	doc := map[string]any{
		"terms":  map[string]any{"text": "Net 30"},
		"number": float64(42),
		"addr": map[string]any{
			"city":   "Montreal",
			"street": "100 Main St",
		},
		"big": map[string]any{"a": "1", "b": "2", "c": "3", "d": "4"},
	}

	tests := []struct {
		name     string
		paths    []string
		want     string
		wantPath string
	}{
		{"object text member", []string{"terms"}, "Net 30", "terms"},
		{"number formats", []string{"number"}, "42", "number"},
		{"small object joins in key order", []string{"addr"}, "Montreal 100 Main St", "addr"},
		{"large object yields nothing", []string{"big"}, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, path := ResolveString(doc, tt.paths)
			if got != tt.want || path != tt.wantPath {
				t.Errorf("ResolveString(%v) = (%q, %q), want (%q, %q)", tt.paths, got, path, tt.want, tt.wantPath)
			}
		})
	}
}
