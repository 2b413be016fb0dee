package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StripMarkdownFences removes ``` fence lines from a model reply. Providers
// still occasionally wrap JSON in a code fence even when asked not to.
func StripMarkdownFences(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		cleaned = append(cleaned, line)
	}
	return strings.Join(cleaned, "\n")
}

// NormalizeExtractionJSON cleans a decoded extraction payload before schema
// validation:
//   - trims string fields
//   - drops null / empty optionals
//   - coerces numeric test_result values to strings
//
// Returns the cleaned JSON plus the list of adjustments for logging.
func NormalizeExtractionJSON(raw []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var dropped []string

	if v, ok := m["test_date"].(string); ok {
		if s := strings.TrimSpace(v); s != "" {
			m["test_date"] = s
		} else {
			delete(m, "test_date")
			dropped = append(dropped, "test_date(empty)")
		}
	}

	items, _ := m["results"].([]any)
	for i, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			continue
		}
		// coerce numeric values to the string form the schema requires
		if f, ok := obj["test_result"].(float64); ok {
			obj["test_result"] = trimFloat(f)
			dropped = append(dropped, fmt.Sprintf("results[%d].test_result(number)", i))
		}
		for _, k := range []string{"test_name", "test_result", "test_uom", "ref_range", "classification", "reason", "recommendation", "test_date"} {
			switch t := obj[k].(type) {
			case nil:
				if _, present := obj[k]; present {
					delete(obj, k)
					dropped = append(dropped, fmt.Sprintf("results[%d].%s(null)", i, k))
				}
			case string:
				s := strings.TrimSpace(t)
				if s == "" && k != "test_name" && k != "test_result" {
					delete(obj, k)
					dropped = append(dropped, fmt.Sprintf("results[%d].%s(empty)", i, k))
				} else {
					obj[k] = s
				}
			}
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	return out, dropped, nil
}

func trimFloat(f float64) string {
	return fmt.Sprintf("%g", f)
}
