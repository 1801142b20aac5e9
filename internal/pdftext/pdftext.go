// Package pdftext reads the embedded text layer of native PDFs.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrMalformed marks payloads that cannot be parsed as a PDF.
var ErrMalformed = errors.New("malformed pdf")

// PageCount parses the cross-reference table and returns the page count.
// Doubles as a structural sanity check before any extraction work.
func PageCount(data []byte) (int, error) {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	n, err := api.PageCount(bytes.NewReader(data), cfg)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return n, nil
}

// ExtractText concatenates the text layer of every page in document order,
// one page per newline-separated unit. The result may be empty for scanned
// PDFs; callers decide whether to fall back to OCR.
func ExtractText(data []byte) (string, int, error) {
	if len(data) == 0 {
		return "", 0, fmt.Errorf("%w: empty payload", ErrMalformed)
	}
	pages, err := PageCount(data)
	if err != nil {
		return "", 0, err
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		txt, err := p.GetPlainText(nil)
		if err != nil {
			return "", 0, fmt.Errorf("%w: page %d: %v", ErrMalformed, i, err)
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(txt)
	}
	return b.String(), pages, nil
}
