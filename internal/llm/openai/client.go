package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/invoicepilot/invoice-extractor/internal/llm"
)

// ExtractFields implements llm.FieldExtractor with one synchronous
// chat/completions call: no retry, no fallback model, no streaming.
func (c *Client) ExtractFields(ctx context.Context, req llm.ExtractRequest) (llm.InvoiceFields, []byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("llm.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"text_len", len(req.Text),
	)

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{"role": "system", "content": llm.BuildSystemPrompt()},
			{"role": "user", "content": llm.BuildUserPrompt(req)},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := c.post(ctx, endpoint, body)
	if err != nil {
		c.log.Error("llm.extract.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return llm.InvoiceFields{}, nil, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.extract.decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw))
		return llm.InvoiceFields{}, raw, fmt.Errorf("%w: decode response: %v", llm.ErrMalformedReply, err)
	}
	if len(cc.Choices) == 0 {
		c.log.Error("llm.extract.no_choices", "req_id", rid, "raw_bytes", len(raw))
		return llm.InvoiceFields{}, raw, fmt.Errorf("%w: no choices in response", llm.ErrMalformedReply)
	}
	content := strings.TrimSpace(cc.Choices[0].Message.Content)

	// Coerce to the contract first, then validate strictly.
	cleaned, _, err := llm.NormalizeFields([]byte(content), c.log)
	if err != nil {
		c.log.Error("llm.extract.sanitize_failed", "req_id", rid, "error", err, "content_len", len(content))
		return llm.InvoiceFields{}, []byte(content), fmt.Errorf("%w: %v", llm.ErrMalformedReply, err)
	}
	schema := llm.BuildInvoiceJSONSchema()
	if err := llm.ValidateJSONAgainstSchema(schema, cleaned); err != nil {
		c.log.Error("llm.extract.schema_validation_failed", "req_id", rid, "error", err)
		return llm.InvoiceFields{}, cleaned, fmt.Errorf("%w: %v", llm.ErrMalformedReply, err)
	}

	var out llm.InvoiceFields
	if err := json.Unmarshal(cleaned, &out); err != nil {
		c.log.Error("llm.extract.unmarshal_failed", "req_id", rid, "error", err)
		return llm.InvoiceFields{}, cleaned, fmt.Errorf("%w: unmarshal fields: %v", llm.ErrMalformedReply, err)
	}

	c.log.Info("llm.extract.ok",
		"req_id", rid,
		"invoice_number", out.InvoiceNumber,
		"invoice_date", out.InvoiceDate,
		"vendor", out.VendorName,
		"total", out.TotalAmount,
		"products", len(out.Products),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, cleaned, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai http error: %w", err)
	}
	defer func(body io.ReadCloser) {
		if cerr := body.Close(); cerr != nil {
			c.log.Warn("openai response body close error", "error", cerr)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai status %d: %s", resp.StatusCode, raw)
	}
	return raw, nil
}
