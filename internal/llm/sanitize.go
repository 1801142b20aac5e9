package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"strings"
)

var stringKeys = []string{"invoice_number", "invoice_date", "vendor_name", "total_amount"}

var productKeys = []string{"description", "quantity", "unit_price", "line_total"}

// NormalizeFields coerces the model's reply into the documented contract:
// missing keys get their defaults ("" / []), numeric values become strings,
// unknown keys are dropped. Returns the cleaned JSON plus a list of the
// adjustments made, for logging.
func NormalizeFields(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var adjusted []string

	for _, k := range stringKeys {
		v, ok := m[k]
		if !ok || v == nil {
			m[k] = ""
			adjusted = append(adjusted, k+"(defaulted)")
			continue
		}
		switch t := v.(type) {
		case string:
			m[k] = strings.TrimSpace(t)
		case float64:
			m[k] = strconv.FormatFloat(t, 'f', -1, 64)
			adjusted = append(adjusted, k+"(coerced)")
		default:
			m[k] = ""
			adjusted = append(adjusted, k+"(type)")
		}
	}

	products, notes := normalizeProducts(m["products"])
	m["products"] = products
	adjusted = append(adjusted, notes...)

	allowed := map[string]struct{}{
		"invoice_number": {}, "invoice_date": {}, "vendor_name": {},
		"total_amount": {}, "products": {},
	}
	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			adjusted = append(adjusted, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, adjusted, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(adjusted) > 0 {
		logger.Warn("llm.extract.normalized", "adjusted", adjusted)
	}
	return out, adjusted, nil
}

func normalizeProducts(v any) ([]map[string]any, []string) {
	var notes []string
	items, ok := v.([]any)
	if !ok {
		if v != nil {
			notes = append(notes, "products(type)")
		} else {
			notes = append(notes, "products(defaulted)")
		}
		return []map[string]any{}, notes
	}

	out := make([]map[string]any, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			notes = append(notes, fmt.Sprintf("products[%d](dropped)", i))
			continue
		}
		clean := make(map[string]any, len(productKeys))
		for _, k := range productKeys {
			pv, ok := obj[k]
			if !ok || pv == nil {
				clean[k] = ""
				continue
			}
			s, changed := coerceString(pv)
			if changed {
				notes = append(notes, fmt.Sprintf("products[%d].%s(coerced)", i, k))
			}
			clean[k] = strings.TrimSpace(s)
		}
		for k := range obj {
			known := false
			for _, pk := range productKeys {
				if k == pk {
					known = true
					break
				}
			}
			if !known {
				notes = append(notes, fmt.Sprintf("products[%d].%s(unknown)", i, k))
			}
		}
		out = append(out, clean)
	}
	return out, notes
}

// coerceString renders JSON scalars as strings. The second return reports
// whether a non-string type was converted.
func coerceString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, false
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}
