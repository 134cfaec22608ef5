// Package export renders canonical invoices for downstream consumers:
// a pure row transform for anything tabular, and an XLSX workbook for
// the purchasing team.
package export

import (
	"fmt"
	"strings"

	"invoicecanon/pkg/models"
)

// Row is one flattened line for tabular export. Goods and fee lines
// share the shape; SplitLines separates them.
type Row struct {
	InvoiceNumber string
	InvoiceDate   string
	VendorName    string
	LineNumber    int
	Sku           string
	Description   string
	Category      string
	Quantity      float64
	Unit          string
	UnitPrice     float64
	TotalPrice    float64
	Weight        string
	PricePerKg    string
	Confidence    int
	Flags         string
}

// SplitLines flattens an invoice into goods rows and fee rows. Fee
// lines (deposits, freight, surcharges) are kept apart so they never
// pollute unit-economics reports.
func SplitLines(invoice *models.CanonicalInvoice) (goods, fees []Row) {
	if invoice == nil {
		return nil, nil
	}
	for _, item := range invoice.LineItems {
		row := toRow(invoice, item)
		if item.Category == models.CategoryFee {
			fees = append(fees, row)
			continue
		}
		goods = append(goods, row)
	}
	return goods, fees
}

func toRow(invoice *models.CanonicalInvoice, item models.CanonicalLineItem) Row {
	row := Row{
		VendorName:  invoice.Header.Vendor.Name,
		LineNumber:  item.LineNumber,
		Description: item.Description,
		Category:    item.Category,
		Quantity:    item.Quantity,
		Unit:        item.Unit,
		UnitPrice:   item.UnitPrice,
		TotalPrice:  item.TotalPrice,
		Confidence:  item.Confidence,
		Flags:       strings.Join(item.ValidationFlags, ","),
	}
	if invoice.Header.InvoiceNumber != nil {
		row.InvoiceNumber = *invoice.Header.InvoiceNumber
	}
	if invoice.Header.Date != nil {
		row.InvoiceDate = *invoice.Header.Date
	}
	if item.Sku != nil {
		row.Sku = *item.Sku
	}
	if item.Weight != nil {
		unit := ""
		if item.WeightUnit != nil {
			unit = *item.WeightUnit
		}
		row.Weight = strings.TrimSpace(fmt.Sprintf("%g %s", *item.Weight, unit))
	}
	if ppk, ok := item.Derived["pricePerKg"]; ok {
		row.PricePerKg = fmt.Sprintf("%.4f", ppk)
	}
	return row
}
