// Package pipeline chains text acquisition and LLM field extraction for one
// uploaded document. Strictly one-directional: bytes -> text -> fields.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/invoicepilot/invoice-extractor/internal/extract"
	"github.com/invoicepilot/invoice-extractor/internal/llm"
	"github.com/invoicepilot/invoice-extractor/internal/ocr"
	"github.com/invoicepilot/invoice-extractor/internal/pdftext"
)

// Result is everything one run produces. Request-scoped; nothing survives
// past the response.
type Result struct {
	RequestID string
	Fields    llm.InvoiceFields
	RawJSON   []byte
	Text      extract.TextResult
}

// Pipeline coordinates text extraction then field extraction. Stateless;
// one instance serves concurrent requests.
type Pipeline struct {
	Text   extract.TextExtractor
	Fields llm.FieldExtractor
	Logger *slog.Logger
}

func New(text extract.TextExtractor, fields llm.FieldExtractor, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{Text: text, Fields: fields, Logger: logger}
}

// Run executes the full pipeline for one document. Any stage failure aborts
// the run with a *StageError; there is no caching, no partial result, no
// compensation.
func (p *Pipeline) Run(ctx context.Context, doc extract.Document) (Result, error) {
	rid := uuid.New().String()
	start := time.Now()

	p.Logger.Info("pipeline.start", "req_id", rid, "name", doc.Name, "bytes", len(doc.Data))

	textRes, err := p.Text.Extract(ctx, doc)
	if err != nil {
		p.Logger.Error("pipeline.text_extract.failed", "req_id", rid, "error", err)
		return Result{RequestID: rid}, &StageError{Kind: classifyExtractErr(err), Err: err}
	}
	p.Logger.Info("pipeline.text_extract.ok",
		"req_id", rid,
		"method", textRes.Method,
		"pages", textRes.Pages,
		"text_len", len(textRes.Text),
		"confidence", textRes.Confidence,
	)

	// Empty text short-circuits before the LLM: a prompt with zero content
	// buys nothing, and the all-empty object is the defined "nothing found"
	// shape.
	if strings.TrimSpace(textRes.Text) == "" {
		p.Logger.Warn("pipeline.empty_text", "req_id", rid, "name", doc.Name)
		fields := llm.EmptyInvoiceFields()
		raw, _ := json.Marshal(fields)
		return Result{RequestID: rid, Fields: fields, RawJSON: raw, Text: textRes}, nil
	}

	fields, raw, err := p.Fields.ExtractFields(ctx, llm.ExtractRequest{
		Text:         textRes.Text,
		FilenameHint: doc.Name,
	})
	if err != nil {
		kind := KindLLMRequest
		if errors.Is(err, llm.ErrMalformedReply) {
			kind = KindLLMParse
		}
		p.Logger.Error("pipeline.field_extract.failed", "req_id", rid, "kind", kind, "error", err)
		return Result{RequestID: rid, Text: textRes}, &StageError{Kind: kind, Err: err}
	}

	p.Logger.Info("pipeline.ok",
		"req_id", rid,
		"invoice_number", fields.InvoiceNumber,
		"vendor", fields.VendorName,
		"total", fields.TotalAmount,
		"products", len(fields.Products),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Result{RequestID: rid, Fields: fields, RawJSON: raw, Text: textRes}, nil
}

func classifyExtractErr(err error) ErrorKind {
	switch {
	case errors.Is(err, extract.ErrUnsupportedFormat),
		errors.Is(err, pdftext.ErrMalformed),
		errors.Is(err, ocr.ErrDecode):
		return KindDecode
	default:
		return KindOCR
	}
}
