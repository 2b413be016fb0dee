package common

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Prompts holds the reasoning-service prompt templates. They ship with
// compiled-in defaults and can be overridden from a YAML file so prompt tuning
// does not require a rebuild.
type Prompts struct {
	ExtractionSystem  string `yaml:"extraction_system"`
	StandardizeSystem string `yaml:"standardize_system"`
}

// DefaultPrompts returns the built-in prompt templates.
func DefaultPrompts() Prompts {
	return Prompts{
		ExtractionSystem: "You are a medical lab report parser. " +
			"Return ONLY JSON that matches the provided JSON Schema. " +
			"Extract every individual test measurement from the report. " +
			"Report values exactly as printed, including non-numeric results such as 'positive'. " +
			"Classify each result as normal, high, or low against the printed reference range when one is present. " +
			"Give a short reason for each classification, and a recommendation only when the result is abnormal. " +
			"Never output null. If a field is not present, omit it.",
		StandardizeSystem: "You are a lab test name standardization assistant. " +
			"You are given previously established mappings from raw test names to common names, and a list of new raw test names. " +
			"Group the new raw names with their clinical equivalents and assign each one a common name. " +
			"Reuse the established common names verbatim whenever a new raw name belongs to an existing group; never rename an established group. " +
			"Return ONLY JSON that matches the provided JSON Schema.",
	}
}

// LoadPrompts reads prompt overrides from a YAML file, falling back to the
// defaults for any template the file omits. An empty path returns defaults.
func LoadPrompts(path string) (Prompts, error) {
	p := DefaultPrompts()
	if path == "" {
		return p, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read prompts file: %w", err)
	}
	var overrides Prompts
	if err := yaml.Unmarshal(b, &overrides); err != nil {
		return p, fmt.Errorf("parse prompts file: %w", err)
	}
	if overrides.ExtractionSystem != "" {
		p.ExtractionSystem = overrides.ExtractionSystem
	}
	if overrides.StandardizeSystem != "" {
		p.StandardizeSystem = overrides.StandardizeSystem
	}
	return p, nil
}
