package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, int64(20<<20), cfg.HTTP.MaxUploadBytes)
	assert.Equal(t, "pdftoppm", cfg.OCR.Pdftoppm)
	assert.Equal(t, "tesseract", cfg.OCR.Tesseract)
	assert.Equal(t, "eng", cfg.OCR.TesseractLang)
	assert.Equal(t, 150, cfg.OCR.DPI)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, float32(0), cfg.LLM.Temperature)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("OCR_DPI", "300")
	t.Setenv("OPENAI_TIMEOUT", "10s")
	t.Setenv("OPENAI_TEMPERATURE", "0.2")

	cfg := Load()
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, 300, cfg.OCR.DPI)
	assert.Equal(t, 10*time.Second, cfg.LLM.Timeout)
	assert.InDelta(t, 0.2, cfg.LLM.Temperature, 0.001)
}

func TestValidate(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg := Load()
	require.Error(t, cfg.Validate())

	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg = Load()
	require.NoError(t, cfg.Validate())
}
