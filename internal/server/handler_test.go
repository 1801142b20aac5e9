package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invoicepilot/invoice-extractor/internal/extract"
	"github.com/invoicepilot/invoice-extractor/internal/llm"
	"github.com/invoicepilot/invoice-extractor/internal/ocr"
	"github.com/invoicepilot/invoice-extractor/internal/pipeline"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubPipe struct {
	res  pipeline.Result
	err  error
	seen extract.Document
}

func (s *stubPipe) Run(_ context.Context, doc extract.Document) (pipeline.Result, error) {
	s.seen = doc
	return s.res, s.err
}

type stubPreview struct {
	pages [][]byte
	err   error
}

func (s *stubPreview) Preview(context.Context, extract.Document) ([][]byte, error) {
	return s.pages, s.err
}

func newTestRouter(pipe Extractor, maxUpload int64) *gin.Engine {
	return NewRouter(NewExtractHandler(pipe, &stubPreview{}, maxUpload, nil), "", nil)
}

func newPreviewRouter(preview Previewer) *gin.Engine {
	return NewRouter(NewExtractHandler(&stubPipe{}, preview, 0, nil), "", nil)
}

func upload(t *testing.T, router *gin.Engine, url, filename string, payload []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func sampleResult() pipeline.Result {
	return pipeline.Result{
		RequestID: "rid-1",
		Fields: llm.InvoiceFields{
			InvoiceNumber: "123",
			InvoiceDate:   "2024-06-01",
			VendorName:    "Acme Corp",
			TotalAmount:   "$45.00",
			Products:      []llm.Product{},
		},
	}
}

func TestExtractEnvelope(t *testing.T) {
	pipe := &stubPipe{res: sampleResult()}
	w := upload(t, newTestRouter(pipe, 0), "/api/v1/extract", "invoice.pdf", []byte("%PDF-1.4"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "invoice.pdf", pipe.seen.Name)
	assert.Equal(t, []byte("%PDF-1.4"), pipe.seen.Data)
	assert.JSONEq(t, `{
		"code": 0,
		"message": "ok",
		"data": {
			"invoice_number": "123",
			"invoice_date": "2024-06-01",
			"vendor_name": "Acme Corp",
			"total_amount": "$45.00",
			"products": []
		}
	}`, w.Body.String())
}

func TestExtractJSONDownload(t *testing.T) {
	pipe := &stubPipe{res: sampleResult()}
	w := upload(t, newTestRouter(pipe, 0), "/api/v1/extract?format=json", "invoice.png", []byte("png"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="invoice_fields.json"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "\n  \"invoice_number\": \"123\"", "payload should be two-space indented")
}

func TestExtractXLSXDownload(t *testing.T) {
	pipe := &stubPipe{res: sampleResult()}
	w := upload(t, newTestRouter(pipe, 0), "/api/v1/extract?format=xlsx", "invoice.jpg", []byte("jpg"))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="invoice_fields.xlsx"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")), "xlsx payload should be a zip archive")
}

func TestExtractRejectsMissingFile(t *testing.T) {
	router := newTestRouter(&stubPipe{}, 0)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "missing file")
}

func TestExtractRejectsUnsupportedExtension(t *testing.T) {
	w := upload(t, newTestRouter(&stubPipe{}, 0), "/api/v1/extract", "invoice.docx", []byte("x"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unsupported file type")
}

func TestExtractRejectsOversizedUpload(t *testing.T) {
	w := upload(t, newTestRouter(&stubPipe{}, 8), "/api/v1/extract", "invoice.pdf", bytes.Repeat([]byte("a"), 64))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "file too large")
}

func TestExtractBoundsBodyBeforeParsing(t *testing.T) {
	// payload far past cap+overhead trips the body reader inside the
	// multipart parser, before any size-field check
	pipe := &stubPipe{res: sampleResult()}
	w := upload(t, newTestRouter(pipe, 8), "/api/v1/extract", "invoice.pdf", bytes.Repeat([]byte("a"), 64<<10))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "file too large")
	assert.Empty(t, pipe.seen.Name, "pipeline must not run")
}

func TestExtractErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   int
	}{
		{"decode", &pipeline.StageError{Kind: pipeline.KindDecode, Err: errors.New("bad pdf")}, http.StatusBadRequest, CodeBadRequest},
		{"ocr", &pipeline.StageError{Kind: pipeline.KindOCR, Err: errors.New("tesseract failed")}, http.StatusUnprocessableEntity, CodeUnprocessable},
		{"llm request", &pipeline.StageError{Kind: pipeline.KindLLMRequest, Err: errors.New("status 500")}, http.StatusBadGateway, CodeUpstreamFailed},
		{"llm parse", &pipeline.StageError{Kind: pipeline.KindLLMParse, Err: llm.ErrMalformedReply}, http.StatusBadGateway, CodeUpstreamFailed},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, CodeInternalServer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := upload(t, newTestRouter(&stubPipe{err: tc.err}, 0), "/api/v1/extract", "invoice.pdf", []byte("%PDF"))
			require.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), fmt.Sprintf(`"code":%d`, tc.code))
		})
	}
}

func TestPreviewReturnsPages(t *testing.T) {
	pages := [][]byte{[]byte("png-one"), []byte("png-two")}
	w := upload(t, newPreviewRouter(&stubPreview{pages: pages}), "/api/v1/preview", "scan.pdf", []byte("%PDF"))

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Code int `json:"code"`
		Data struct {
			Pages [][]byte `json:"pages"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, CodeOK, resp.Code)
	assert.Equal(t, pages, resp.Data.Pages)
}

func TestPreviewDecodeError(t *testing.T) {
	w := upload(t, newPreviewRouter(&stubPreview{err: fmt.Errorf("%w: bad header", ocr.ErrDecode)}),
		"/api/v1/preview", "broken.png", []byte("x"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "could not decode")
}

func TestPreviewRenderFailure(t *testing.T) {
	w := upload(t, newPreviewRouter(&stubPreview{err: errors.New("pdftoppm: exit status 1")}),
		"/api/v1/preview", "scan.pdf", []byte("%PDF"))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "preview")
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(&stubPipe{}, 0)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
