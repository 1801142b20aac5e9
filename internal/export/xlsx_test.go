package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/invoicepilot/invoice-extractor/internal/llm"
)

func TestInvoiceXLSX(t *testing.T) {
	data, err := InvoiceXLSX(llm.InvoiceFields{
		InvoiceNumber: "123",
		InvoiceDate:   "2024-06-01",
		VendorName:    "Acme Corp",
		TotalAmount:   "$45.00",
		Products: []llm.Product{
			{Description: "Widget", Quantity: "2", UnitPrice: "10.00", LineTotal: "20.00"},
			{Description: "Gadget", Quantity: "1", UnitPrice: "25.00", LineTotal: "25.00"},
		},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	get := func(cell string) string {
		v, err := f.GetCellValue("Invoice", cell)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "Invoice Number", get("A1"))
	assert.Equal(t, "123", get("B1"))
	assert.Equal(t, "Acme Corp", get("B3"))
	assert.Equal(t, "$45.00", get("B4"))
	assert.Equal(t, "Description", get("A6"))
	assert.Equal(t, "Widget", get("A7"))
	assert.Equal(t, "25.00", get("D8"))
}

func TestInvoiceXLSXNoProducts(t *testing.T) {
	data, err := InvoiceXLSX(llm.EmptyInvoiceFields())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	v, err := f.GetCellValue("Invoice", "A7")
	require.NoError(t, err)
	assert.Empty(t, v)
}
