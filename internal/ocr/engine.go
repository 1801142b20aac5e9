// Package ocr runs text recognition over page bitmaps by shelling out to
// tesseract, with pdftoppm rasterization for scanned PDFs.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	DPI           int    // rasterization DPI for scanned PDFs, default 150
	MaxPages      int    // 0 = no limit

	Runner Runner // stubbed in tests; nil -> exec
}

// Engine converts page bitmaps into plain text.
type Engine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 150
	}
	runner := cfg.Runner
	if runner == nil {
		runner = execRunner{}
	}
	return &Engine{cfg: cfg, runner: runner, logger: logger}
}

// ImageText recognizes text in a single uploaded bitmap: decode, flatten to
// grayscale, then run tesseract on the preprocessed page.
func (e *Engine) ImageText(ctx context.Context, data []byte) (string, error) {
	img, err := DecodeImage(data)
	if err != nil {
		return "", err
	}
	gray := Preprocess(img)
	enc, err := EncodePNG(gray)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp("", "inv-ocr-*.png")
	if err != nil {
		return "", err
	}
	defer func() {
		if rmErr := os.Remove(tmp.Name()); rmErr != nil {
			e.logger.Warn("ocr.tmp.remove_failed", "path", tmp.Name(), "error", rmErr)
		}
	}()
	if _, err := tmp.Write(enc); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	txt, err := e.tesseract(ctx, tmp.Name())
	if err != nil {
		return "", err
	}
	return Normalize(txt), nil
}

// PDFText rasterizes every page of a scanned PDF at the configured DPI and
// recognizes them sequentially, in page order. Page results are joined with
// newline separators. Returns the number of pages rendered.
func (e *Engine) PDFText(ctx context.Context, data []byte) (string, int, error) {
	tmpDir, err := os.MkdirTemp("", "inv-pp-*")
	if err != nil {
		return "", 0, err
	}
	defer e.removeTmp(tmpDir)

	matches, err := e.rasterize(ctx, data, tmpDir)
	if err != nil {
		return "", 0, err
	}

	texts := make([]string, 0, len(matches))
	for _, page := range matches {
		raw, err := os.ReadFile(page)
		if err != nil {
			return "", 0, err
		}
		txt, err := e.ImageText(ctx, raw)
		if err != nil {
			return "", 0, fmt.Errorf("page %s: %w", filepath.Base(page), err)
		}
		texts = append(texts, txt)
	}
	return strings.Join(texts, "\n"), len(matches), nil
}

// RenderPDF rasterizes every page at the configured DPI and returns the
// encoded PNGs in page order. Backs the browser's document preview.
func (e *Engine) RenderPDF(ctx context.Context, data []byte) ([][]byte, error) {
	tmpDir, err := os.MkdirTemp("", "inv-pp-*")
	if err != nil {
		return nil, err
	}
	defer e.removeTmp(tmpDir)

	matches, err := e.rasterize(ctx, data, tmpDir)
	if err != nil {
		return nil, err
	}

	pages := make([][]byte, 0, len(matches))
	for _, page := range matches {
		raw, err := os.ReadFile(page)
		if err != nil {
			return nil, err
		}
		pages = append(pages, raw)
	}
	return pages, nil
}

// rasterize writes the PDF into dir, renders it with pdftoppm, and returns
// the generated page image paths sorted in page order, capped at MaxPages.
func (e *Engine) rasterize(ctx context.Context, data []byte, dir string) ([]string, error) {
	in := filepath.Join(dir, "in.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, err
	}

	prefix := filepath.Join(dir, "page")
	// pdftoppm -r <dpi> -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", strconv.Itoa(e.cfg.DPI), "-png", in, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 512))
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no page images")
	}
	return matches, nil
}

func (e *Engine) removeTmp(path string) {
	if err := os.RemoveAll(path); err != nil {
		e.logger.Warn("ocr.tmp.remove_failed", "path", path, "error", err)
	}
}

func (e *Engine) tesseract(ctx context.Context, path string) (string, error) {
	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, path, "stdout", "-l", e.cfg.TesseractLang)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return reBoxNoise.ReplaceAllString(string(out), ""), nil
}
