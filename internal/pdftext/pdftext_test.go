package pdftext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoicepilot/invoice-extractor/internal/testutil"
)

func TestExtractTextNativePDF(t *testing.T) {
	data := testutil.TextPDF("Invoice #123, Total: $45.00")

	text, pages, err := ExtractText(data)
	require.NoError(t, err)
	assert.Equal(t, 1, pages)
	assert.Contains(t, text, "Invoice #123, Total: $45.00")
}

func TestExtractTextBlankPDF(t *testing.T) {
	text, pages, err := ExtractText(testutil.BlankPDF())
	require.NoError(t, err)
	assert.Equal(t, 1, pages)
	assert.Empty(t, text)
}

func TestExtractTextMalformed(t *testing.T) {
	_, _, err := ExtractText([]byte("this is not a pdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestExtractTextEmptyPayload(t *testing.T) {
	_, _, err := ExtractText(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestPageCount(t *testing.T) {
	n, err := PageCount(testutil.TextPDF("hello"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
