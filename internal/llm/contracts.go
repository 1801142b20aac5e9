package llm

import (
	"context"
	"errors"
)

// ErrMalformedReply marks model responses that are not the JSON shape we
// asked for (non-JSON content, schema violations, missing choices).
// Transport and auth failures are returned as plain errors.
var ErrMalformedReply = errors.New("malformed model reply")

// Product is one invoice line item. Every field is optionally empty.
type Product struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	LineTotal   string `json:"line_total"`
}

// InvoiceFields is the normalized shape we want from the LLM: exactly these
// five keys, empty string/array when a field is missing.
type InvoiceFields struct {
	InvoiceNumber string    `json:"invoice_number"`
	InvoiceDate   string    `json:"invoice_date"` // YYYY-MM-DD expected, not enforced
	VendorName    string    `json:"vendor_name"`
	TotalAmount   string    `json:"total_amount"`
	Products      []Product `json:"products"`
}

// EmptyInvoiceFields is the "nothing found" value: all strings empty and an
// empty (non-nil) products array, so it serializes as [] rather than null.
func EmptyInvoiceFields() InvoiceFields {
	return InvoiceFields{Products: []Product{}}
}

// ExtractRequest carries the raw text into the field extraction stage.
type ExtractRequest struct {
	Text         string
	FilenameHint string
}

// FieldExtractor is the interface the pipeline depends on.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, req ExtractRequest) (InvoiceFields, []byte /*rawJSON*/, error)
}
