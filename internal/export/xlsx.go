package export

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"invoicecanon/internal/logger"
	"invoicecanon/pkg/models"
)

const (
	goodsSheet = "Lines"
	feesSheet  = "Fees"
)

var columnHeaders = []string{
	"Invoice", "Date", "Vendor", "Line", "SKU", "Description", "Category",
	"Qty", "Unit", "Unit Price", "Total", "Weight", "Price/kg",
	"Confidence", "Flags",
}

// XLSXWriter renders canonical invoices as an XLSX workbook with goods
// and fee lines on separate sheets.
type XLSXWriter struct {
	log zerolog.Logger
}

// NewXLSXWriter creates an XLSX writer.
func NewXLSXWriter() *XLSXWriter {
	return &XLSXWriter{log: logger.WithComponent("xlsx-export")}
}

// Write renders the invoices into workbook bytes.
func (w *XLSXWriter) Write(invoices []*models.CanonicalInvoice) ([]byte, error) {
	f := excelize.NewFile()

	var goods, fees []Row
	for _, invoice := range invoices {
		g, fe := SplitLines(invoice)
		goods = append(goods, g...)
		fees = append(fees, fe...)
	}

	if err := w.writeSheet(f, goodsSheet, goods); err != nil {
		return nil, err
	}
	if err := w.writeSheet(f, feesSheet, fees); err != nil {
		return nil, err
	}

	// Drop the default sheet and activate the goods sheet.
	if index, _ := f.GetSheetIndex("Sheet1"); index != -1 {
		_ = f.DeleteSheet("Sheet1")
	}
	if index, _ := f.GetSheetIndex(goodsSheet); index != -1 {
		f.SetActiveSheet(index)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	w.log.Info().
		Int("invoices", len(invoices)).
		Int("goods_rows", len(goods)).
		Int("fee_rows", len(fees)).
		Msg("Workbook rendered")

	return buf.Bytes(), nil
}

func (w *XLSXWriter) writeSheet(f *excelize.File, sheet string, rows []Row) error {
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
	}

	for i, h := range columnHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, r := range rows {
		values := []any{
			r.InvoiceNumber, r.InvoiceDate, r.VendorName, r.LineNumber,
			r.Sku, r.Description, r.Category, r.Quantity, r.Unit,
			r.UnitPrice, r.TotalPrice, r.Weight, r.PricePerKg,
			r.Confidence, r.Flags,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}

	_ = f.SetColWidth(sheet, "A", "B", 14)
	_ = f.SetColWidth(sheet, "C", "C", 26)
	_ = f.SetColWidth(sheet, "F", "F", 42)
	_ = f.SetColWidth(sheet, "J", "K", 12)
	_ = f.SetColWidth(sheet, "O", "O", 30)

	return nil
}
