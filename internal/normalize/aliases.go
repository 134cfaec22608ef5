package normalize

// Canonical-field → prioritized path-list tables. These are the only
// place vendor-shape knowledge lives: adding support for a new reader
// or vendor layout means appending paths here, nothing else. Order is
// priority; the resolver takes the first present value.

// headerAliases covers every canonical header field.
var headerAliases = map[string][]string{
	"invoiceNumber": {
		"invoiceNumber", "invoice_number", "invoiceId", "invoice_id",
		"documentNumber", "document_number", "number", "invoiceNo",
		"header.invoiceNumber", "header.invoice_number",
	},
	"date": {
		"invoiceDate", "invoice_date", "date", "issueDate", "issue_date",
		"documentDate", "document_date", "header.invoiceDate", "header.date",
	},
	"paymentTerms": {
		"paymentTerms", "payment_terms", "terms", "termsOfPayment",
		"terms_of_payment", "header.paymentTerms",
	},
	"poNumber": {
		"poNumber", "po_number", "purchaseOrder", "purchase_order",
		"purchaseOrderNumber", "purchase_order_number", "orderNumber",
		"order_number", "reference", "referenceNumber",
	},
	"vendorName": {
		"vendor.name", "vendorName", "vendor_name", "supplier.name",
		"supplierName", "supplier_name", "vendor", "supplier",
		"remitTo.name", "remit_to.name",
	},
	"vendorAddress": {
		"vendor.address", "vendorAddress", "vendor_address",
		"supplier.address", "supplierAddress", "supplier_address",
		"remitTo.address",
	},
	"vendorPhone": {
		"vendor.phone", "vendorPhone", "vendor_phone", "supplier.phone",
		"supplierPhone", "supplier_phone", "phone",
	},
	"customerName": {
		"customer.name", "customerName", "customer_name", "buyer.name",
		"buyerName", "buyer_name", "billTo.name", "bill_to.name",
		"shipTo.name", "customer", "receiver", "receiver_name",
	},
	"customerAddress": {
		"customer.address", "customerAddress", "customer_address",
		"buyer.address", "billTo.address", "bill_to.address",
		"shipTo.address",
	},
	"subtotal": {
		"subtotal", "subTotal", "sub_total", "netAmount", "net_amount",
		"totals.subtotal", "amounts.subtotal", "totalBeforeTax",
		"total_before_tax",
	},
	"total": {
		"total", "totalAmount", "total_amount", "grandTotal", "grand_total",
		"grossAmount", "gross_amount", "amountDue", "amount_due",
		"totals.total", "amounts.total", "invoiceTotal", "invoice_total",
	},
}

// vendorTaxIDAliases lists every place a vendor tax registration might
// hide. All matching paths are collected, not just the first.
var vendorTaxIDAliases = []string{
	"vendor.taxId", "vendor.tax_id", "vendorTaxId", "vendor_tax_id",
	"supplier.taxId", "supplier.tax_id", "supplierTaxId", "supplier_tax_id",
	"taxId", "tax_id", "gstNumber", "gst_number", "tvqNumber", "tvq_number",
	"vatNumber", "vat_number", "businessNumber", "business_number",
}

// taxArrayAliases lists paths that hold an array of tax entries.
var taxArrayAliases = []string{
	"taxes", "taxLines", "tax_lines", "totals.taxes", "amounts.taxes",
}

// taxScalarAliases lists single-amount tax fields with their canonical
// labels. Regional registrations (GST/TPS, QST/TVQ, PST, HST, VAT) can
// coexist on one invoice, so every present path contributes a tax line.
var taxScalarAliases = []struct {
	Label string
	Paths []string
}{
	{"TAX", []string{"tax", "taxAmount", "tax_amount", "totalTax", "total_tax", "total_tax_amount", "totals.tax"}},
	{"GST", []string{"gst", "tps", "gstAmount", "gst_amount"}},
	{"QST", []string{"qst", "tvq", "qstAmount", "qst_amount"}},
	{"PST", []string{"pst", "pstAmount", "pst_amount"}},
	{"HST", []string{"hst", "hstAmount", "hst_amount"}},
	{"VAT", []string{"vat", "vatAmount", "vat_amount"}},
}

// lineItemsAliases lists paths that hold the line item array.
var lineItemsAliases = []string{
	"lineItems", "line_items", "items", "lines", "details", "products",
	"invoiceLines", "invoice_lines", "table.rows",
}

// lineAliases covers every canonical line item field. Quantity priority
// matters: an explicitly invoiced quantity outranks ordered or shipped.
var lineAliases = map[string][]string{
	"sku": {
		"sku", "productCode", "product_code", "itemCode", "item_code",
		"itemNumber", "item_number", "code", "productId", "product_id",
		"reference", "ref",
	},
	"description": {
		"description", "desc", "productName", "product_name", "item",
		"itemDescription", "item_description", "label", "designation",
		"name", "text",
	},
	"quantity": {
		"quantityInvoiced", "quantity_invoiced", "invoicedQuantity",
		"invoiced_quantity", "quantity", "qty", "quantityOrdered",
		"quantity_ordered", "orderedQuantity", "quantityShipped",
		"quantity_shipped", "shippedQuantity", "count",
	},
	"unit": {
		"unit", "uom", "unitOfMeasure", "unit_of_measure", "um",
		"saleUnit", "sale_unit", "unitType", "unit_type",
	},
	"unitPrice": {
		"unitPrice", "unit_price", "pricePerUnit", "price_per_unit",
		"price", "rate", "unitCost", "unit_cost",
	},
	"totalPrice": {
		"totalPrice", "total_price", "lineTotal", "line_total", "amount",
		"extendedPrice", "extended_price", "extendedAmount", "total",
		"lineAmount", "line_amount",
	},
	"weight": {
		"weight", "netWeight", "net_weight", "weightValue", "weight_value",
		"poids", "weightKg", "weight_kg", "weightLb", "weight_lb",
	},
	"weightUnit": {
		"weightUnit", "weight_unit", "weightUom", "weight_uom",
	},
	"pricePerWeight": {
		"pricePerWeight", "price_per_weight", "pricePerKg", "price_per_kg",
		"pricePerLb", "price_per_lb", "weightPrice", "weight_price",
	},
	"format": {
		"format", "packSize", "pack_size", "packaging", "packagingFormat",
		"conditionnement", "size", "packFormat", "pack_format",
	},
}

// knownLineFields is the registry of raw field names the line item
// normalizer understands. Any raw field outside this set is reported
// through the diagnostics tracker so vendor-format drift surfaces
// without flooding the sink.
var knownLineFields = buildKnownLineFields()

func buildKnownLineFields() map[string]struct{} {
	known := map[string]struct{}{
		// bookkeeping fields some readers attach to each row
		"lineNumber": {}, "line_number": {}, "index": {}, "row": {},
		"confidence": {}, "page": {}, "boundingBox": {}, "bounding_box": {},
		"currency": {}, "taxRate": {}, "tax_rate": {}, "tax": {},
		"discount": {}, "discountAmount": {}, "discount_amount": {},
	}
	for _, paths := range lineAliases {
		for _, path := range paths {
			// Only bare field names participate in unknown-field
			// detection; nested paths describe other shapes.
			if !containsDot(path) {
				known[path] = struct{}{}
			}
		}
	}
	return known
}

func containsDot(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return true
		}
	}
	return false
}

// IsKnownLineField reports whether a raw line field name is in the
// known-fields registry.
func IsKnownLineField(name string) bool {
	_, ok := knownLineFields[name]
	return ok
}
