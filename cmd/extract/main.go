package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/invoicepilot/invoice-extractor/internal/config"
	"github.com/invoicepilot/invoice-extractor/internal/extract"
	"github.com/invoicepilot/invoice-extractor/internal/llm/openai"
	"github.com/invoicepilot/invoice-extractor/internal/ocr"
	"github.com/invoicepilot/invoice-extractor/internal/pipeline"
)

// One-shot extraction: reads a PDF or image from disk and prints the
// extracted fields as indented JSON.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "extract <invoice.pdf|png|jpg>")
		os.Exit(2)
	}
	path := os.Args[1]

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read file", "path", path, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	engine := ocr.NewEngine(ocr.Config{
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		DPI:           cfg.OCR.DPI,
		MaxPages:      cfg.OCR.MaxPages,
	}, logger)
	client := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	pipe := pipeline.New(extract.NewExtractor(engine, logger), client, logger)

	res, err := pipe.Run(ctx, extract.Document{Name: filepath.Base(path), Data: data})
	if err != nil {
		logger.Error("extraction failed", "kind", pipeline.KindOf(err), "error", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(res.Fields, "", "  ")
	if err != nil {
		logger.Error("encode result", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
