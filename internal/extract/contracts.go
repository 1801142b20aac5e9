package extract

import (
	"context"
	"errors"
	"time"

	"github.com/invoicepilot/invoice-extractor/constants"
)

// ErrUnsupportedFormat marks uploads whose extension is outside the accepted
// set. Rejected here, before any OCR or LLM work.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Document is one uploaded artifact: a name (used only for type sniffing)
// and its byte payload. Request-scoped; never persisted.
type Document struct {
	Name string
	Data []byte
}

// TextResult is Stage 1 output: the raw text assembled from the text layer
// or from OCR passes, one page per newline-separated unit, in page order.
type TextResult struct {
	Text       string
	Pages      int
	SourceType constants.FileFormat
	Method     string // "pdf-text" | "pdf-ocr" | "image-ocr"
	Confidence float32
	Duration   time.Duration
}

// TextExtractor is Stage 1: document bytes -> text.
type TextExtractor interface {
	Extract(ctx context.Context, doc Document) (TextResult, error)
}
