package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/invoicepilot/invoice-extractor/constants"
	"github.com/invoicepilot/invoice-extractor/internal/export"
	"github.com/invoicepilot/invoice-extractor/internal/extract"
	"github.com/invoicepilot/invoice-extractor/internal/ocr"
	"github.com/invoicepilot/invoice-extractor/internal/pipeline"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// multipartOverhead is the slack allowed on top of the upload cap for
// multipart boundaries and headers.
const multipartOverhead = 10 << 10

// Extractor is the pipeline surface the handler depends on.
type Extractor interface {
	Run(ctx context.Context, doc extract.Document) (pipeline.Result, error)
}

// Previewer renders an upload as PNG pages for display.
type Previewer interface {
	Preview(ctx context.Context, doc extract.Document) ([][]byte, error)
}

type ExtractHandler struct {
	pipe      Extractor
	preview   Previewer
	maxUpload int64
	logger    *slog.Logger
}

func NewExtractHandler(pipe Extractor, preview Previewer, maxUpload int64, logger *slog.Logger) *ExtractHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUpload <= 0 {
		maxUpload = 20 << 20
	}
	return &ExtractHandler{pipe: pipe, preview: preview, maxUpload: maxUpload, logger: logger}
}

// readUpload pulls the multipart "file" out of the request, enforcing the
// size cap and the accepted extension set. On failure it writes the error
// response and returns ok=false.
func (h *ExtractHandler) readUpload(c *gin.Context) (extract.Document, bool) {
	// bound what the multipart parser will read before it runs
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+multipartOverhead)

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			Error(c, http.StatusBadRequest, CodeBadRequest,
				fmt.Sprintf("file too large (max %d bytes)", h.maxUpload))
			return extract.Document{}, false
		}
		Error(c, http.StatusBadRequest, CodeBadRequest, "missing file")
		return extract.Document{}, false
	}
	if file.Size > h.maxUpload {
		Error(c, http.StatusBadRequest, CodeBadRequest,
			fmt.Sprintf("file too large (max %d bytes)", h.maxUpload))
		return extract.Document{}, false
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if _, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]; !ok {
		Error(c, http.StatusBadRequest, CodeBadRequest,
			"unsupported file type: accepted extensions are .pdf, .png, .jpg, .jpeg")
		return extract.Document{}, false
	}

	f, err := file.Open()
	if err != nil {
		Error(c, http.StatusInternalServerError, CodeInternalServer, "failed to read file")
		return extract.Document{}, false
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		Error(c, http.StatusInternalServerError, CodeInternalServer, "failed to read file")
		return extract.Document{}, false
	}
	return extract.Document{Name: file.Filename, Data: data}, true
}

// Extract accepts a multipart form with "file", runs the pipeline, and
// replies with the extracted fields. `?format=json` and `?format=xlsx`
// return the result as a download instead of the envelope.
func (h *ExtractHandler) Extract(c *gin.Context) {
	doc, ok := h.readUpload(c)
	if !ok {
		return
	}

	res, err := h.pipe.Run(c.Request.Context(), doc)
	if err != nil {
		h.respondPipelineError(c, err)
		return
	}

	switch c.Query("format") {
	case "json":
		pretty, err := json.MarshalIndent(res.Fields, "", "  ")
		if err != nil {
			Error(c, http.StatusInternalServerError, CodeInternalServer, "encode result")
			return
		}
		c.Header("Content-Disposition", `attachment; filename="invoice_fields.json"`)
		c.Data(http.StatusOK, "application/json", pretty)
	case "xlsx":
		book, err := export.InvoiceXLSX(res.Fields)
		if err != nil {
			Error(c, http.StatusInternalServerError, CodeInternalServer, "build workbook")
			return
		}
		c.Header("Content-Disposition", `attachment; filename="invoice_fields.xlsx"`)
		c.Data(http.StatusOK, xlsxContentType, book)
	default:
		OK(c, res.Fields)
	}
}

type previewResponse struct {
	Pages [][]byte `json:"pages"` // base64-encoded PNG per page
}

// Preview renders the upload as PNG pages so the browser can show the
// document next to the extracted fields.
func (h *ExtractHandler) Preview(c *gin.Context) {
	doc, ok := h.readUpload(c)
	if !ok {
		return
	}

	pages, err := h.preview.Preview(c.Request.Context(), doc)
	if err != nil {
		h.logger.Error("preview.request_failed", "name", doc.Name, "error", err)
		if errors.Is(err, extract.ErrUnsupportedFormat) || errors.Is(err, ocr.ErrDecode) {
			Error(c, http.StatusBadRequest, CodeBadRequest, "could not decode the uploaded file")
			return
		}
		Error(c, http.StatusUnprocessableEntity, CodeUnprocessable, "could not render a preview")
		return
	}
	OK(c, previewResponse{Pages: pages})
}

func (h *ExtractHandler) respondPipelineError(c *gin.Context, err error) {
	kind := pipeline.KindOf(err)
	h.logger.Error("extract.request_failed", "kind", kind, "error", err)
	switch kind {
	case pipeline.KindDecode:
		Error(c, http.StatusBadRequest, CodeBadRequest, "could not decode the uploaded file")
	case pipeline.KindOCR:
		Error(c, http.StatusUnprocessableEntity, CodeUnprocessable, "text recognition failed")
	case pipeline.KindLLMRequest:
		Error(c, http.StatusBadGateway, CodeUpstreamFailed, "field extraction service unavailable")
	case pipeline.KindLLMParse:
		Error(c, http.StatusBadGateway, CodeUpstreamFailed, "field extraction returned an unusable reply")
	default:
		Error(c, http.StatusInternalServerError, CodeInternalServer, "extraction failed")
	}
}
