// Package export renders one extracted invoice as an XLSX workbook.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/invoicepilot/invoice-extractor/internal/llm"
)

const sheet = "Invoice"

// InvoiceXLSX returns a workbook with the header fields on top and one row
// per line item below.
func InvoiceXLSX(fields llm.InvoiceFields) ([]byte, error) {
	f := excelize.NewFile()
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	write := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	header := [][2]string{
		{"Invoice Number", fields.InvoiceNumber},
		{"Invoice Date", fields.InvoiceDate},
		{"Vendor", fields.VendorName},
		{"Total Amount", fields.TotalAmount},
	}
	for i, kv := range header {
		write(1, i+1, kv[0])
		write(2, i+1, kv[1])
	}

	row := len(header) + 2
	for i, h := range []string{"Description", "Quantity", "Unit Price", "Line Total"} {
		write(i+1, row, h)
	}
	row++
	for _, p := range fields.Products {
		write(1, row, p.Description)
		write(2, row, p.Quantity)
		write(3, row, p.UnitPrice)
		write(4, row, p.LineTotal)
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 36)
	_ = f.SetColWidth(sheet, "B", "D", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
