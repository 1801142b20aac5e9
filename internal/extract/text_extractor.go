// Package extract routes an uploaded document to the right text acquisition
// path: native PDF text layer, OCR fallback for scanned PDFs, or straight
// OCR for images.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/invoicepilot/invoice-extractor/constants"
	"github.com/invoicepilot/invoice-extractor/internal/ocr"
	"github.com/invoicepilot/invoice-extractor/internal/pdftext"
)

type Extractor struct {
	engine *ocr.Engine
	logger *slog.Logger
}

func NewExtractor(engine *ocr.Engine, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{engine: engine, logger: logger}
}

// Extract picks a strategy based on the filename suffix.
func (e *Extractor) Extract(ctx context.Context, doc Document) (TextResult, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(doc.Name))

	e.logger.Debug("extract.start", "name", doc.Name, "ext", ext, "bytes", len(doc.Data))

	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		res, err := e.extractPDF(ctx, doc)
		res.Duration = time.Since(start)
		return res, err
	case constants.IMAGE:
		res, err := e.extractImage(ctx, doc)
		res.Duration = time.Since(start)
		return res, err
	default:
		e.logger.Warn("extract.unsupported_extension", "name", doc.Name, "ext", ext)
		return TextResult{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Preview renders the upload as PNG pages for display: PDFs are rasterized
// at the configured DPI, images are decode-checked and re-encoded as a single
// page. Never touches the recognition engine.
func (e *Extractor) Preview(ctx context.Context, doc Document) ([][]byte, error) {
	ext := constants.NormalizeExt(filepath.Ext(doc.Name))
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		return e.engine.RenderPDF(ctx, doc.Data)
	case constants.IMAGE:
		img, err := ocr.DecodeImage(doc.Data)
		if err != nil {
			return nil, err
		}
		page, err := ocr.EncodePNG(img)
		if err != nil {
			return nil, err
		}
		return [][]byte{page}, nil
	default:
		e.logger.Warn("extract.unsupported_extension", "name", doc.Name, "ext", ext)
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// extractPDF tries the text layer first; a PDF whose stripped text is empty
// is treated as scanned and rasterized for OCR.
func (e *Extractor) extractPDF(ctx context.Context, doc Document) (TextResult, error) {
	text, pages, err := pdftext.ExtractText(doc.Data)
	if err != nil {
		return TextResult{SourceType: constants.PDF}, err
	}
	if strings.TrimSpace(text) != "" {
		return TextResult{
			Text:       text,
			Pages:      pages,
			SourceType: constants.PDF,
			Method:     "pdf-text",
			Confidence: 1.0,
		}, nil
	}

	e.logger.Info("extract.pdf_no_text_layer", "name", doc.Name, "pages", pages)
	ocrText, ocrPages, err := e.engine.PDFText(ctx, doc.Data)
	if err != nil {
		return TextResult{SourceType: constants.PDF, Method: "pdf-ocr"}, err
	}
	return TextResult{
		Text:       ocrText,
		Pages:      ocrPages,
		SourceType: constants.PDF,
		Method:     "pdf-ocr",
		Confidence: ocr.Confidence(ocrText),
	}, nil
}

func (e *Extractor) extractImage(ctx context.Context, doc Document) (TextResult, error) {
	text, err := e.engine.ImageText(ctx, doc.Data)
	if err != nil {
		return TextResult{SourceType: constants.IMAGE, Method: "image-ocr"}, err
	}
	return TextResult{
		Text:       text,
		Pages:      1,
		SourceType: constants.IMAGE,
		Method:     "image-ocr",
		Confidence: ocr.Confidence(text),
	}, nil
}
