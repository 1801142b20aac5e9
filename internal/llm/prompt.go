package llm

import (
	"strings"
	"unicode/utf8"
)

// MaxPromptChars caps how much raw text goes into the prompt so oversized
// documents don't blow past the model's context window.
const MaxPromptChars = 16000

// BuildSystemPrompt is the fixed instruction: five keys, missing field ->
// empty string/array, no extra keys.
func BuildSystemPrompt() string {
	return strings.Join([]string{
		"You are an invoice-processing assistant.",
		"Extract exactly the following into a JSON object:",
		"invoice_number (string), invoice_date (string, YYYY-MM-DD),",
		"vendor_name (string), total_amount (string, numeric with currency),",
		"products (array of objects, each with description, quantity, unit_price, line_total).",
		"If any field is missing, use an empty string or empty array.",
		"Do not return any extra keys. Respond only with the JSON object.",
	}, " ")
}

// BuildUserPrompt embeds the raw invoice text verbatim, truncated to
// MaxPromptChars.
func BuildUserPrompt(req ExtractRequest) string {
	var b strings.Builder
	if name := strings.TrimSpace(req.FilenameHint); name != "" {
		b.WriteString("Filename: ")
		b.WriteString(name)
		b.WriteString("\n\n")
	}
	b.WriteString("Here is the raw invoice text:\n```\n")
	text := req.Text
	if len(text) > MaxPromptChars {
		// back up to a rune boundary so the cut never splits a multi-byte
		// character
		cut := MaxPromptChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		b.WriteString(text[:cut])
		b.WriteString("\n…(truncated)")
	} else {
		b.WriteString(text)
	}
	b.WriteString("\n```")
	return b.String()
}

// BuildInvoiceJSONSchema returns a JSON-Schema (draft 2020-12 subset) for the
// reply, as a generic map. Used locally to validate the model's output.
// Field formats are deliberately loose: the contract is shape, not content.
func BuildInvoiceJSONSchema() map[string]any {
	productProps := map[string]any{
		"description": map[string]any{"type": "string"},
		"quantity":    map[string]any{"type": "string"},
		"unit_price":  map[string]any{"type": "string"},
		"line_total":  map[string]any{"type": "string"},
	}
	props := map[string]any{
		"invoice_number": map[string]any{"type": "string"},
		"invoice_date":   map[string]any{"type": "string"},
		"vendor_name":    map[string]any{"type": "string"},
		"total_amount":   map[string]any{"type": "string"},
		"products": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties":           productProps,
				"required":             []string{"description", "quantity", "unit_price", "line_total"},
			},
		},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             []string{"invoice_number", "invoice_date", "vendor_name", "total_amount", "products"},
	}
}
