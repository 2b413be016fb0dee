package llm

// BuildExtractionJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. We pass this to the provider as a structured output constraint
// and also use it locally to validate the response.
func BuildExtractionJSONSchema(classifications []string) map[string]any {
	resultProps := map[string]any{
		"test_name":      map[string]any{"type": "string", "minLength": 1},
		"test_result":    map[string]any{"type": "string", "minLength": 1},
		"test_uom":       map[string]any{"type": "string"},
		"ref_range":      map[string]any{"type": "string"},
		"classification": map[string]any{"type": "string"},
		"reason":         map[string]any{"type": "string"},
		"recommendation": map[string]any{"type": "string"},
		"test_date":      map[string]any{"type": "string"},
	}
	if len(classifications) > 0 {
		resultProps["classification"] = map[string]any{
			"type": "string",
			"enum": classifications,
		}
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"test_date": map[string]any{"type": "string"},
			"results": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties":           resultProps,
					"required":             []string{"test_name", "test_result"},
				},
			},
		},
		"required": []string{"results"},
	}
}

// BuildCorrectionsJSONSchema constrains the grouping response to a sequence
// of records each with exactly two string fields. Any other shape fails
// validation.
func BuildCorrectionsJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"corrections": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties": map[string]any{
						"raw_name":       map[string]any{"type": "string", "minLength": 1},
						"canonical_name": map[string]any{"type": "string", "minLength": 1},
					},
					"required": []string{"raw_name", "canonical_name"},
				},
			},
		},
		"required": []string{"corrections"},
	}
}
