package constants

import "strings"

// Classification is the canonical normal/high/low label for a lab result.
type Classification string

// Stable values (store these exact strings in DB).
const (
	ClassificationNormal Classification = "normal"
	ClassificationHigh   Classification = "high"
	ClassificationLow    Classification = "low"
)

var allClassifications = []Classification{
	ClassificationNormal,
	ClassificationHigh,
	ClassificationLow,
}

// ClassificationStrings returns the allowed classification values for prompt enums.
func ClassificationStrings() []string {
	result := make([]string, len(allClassifications))
	for i, c := range allClassifications {
		result[i] = string(c)
	}
	return result
}

// ParseClassification canonicalizes free-text classification labels from the
// reasoning service. LLMs are loose with casing and synonyms.
func ParseClassification(input string) (Classification, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return "", false
	}

	synonyms := map[string]Classification{
		"within range":    ClassificationNormal,
		"within limits":   ClassificationNormal,
		"ok":              ClassificationNormal,
		"elevated":        ClassificationHigh,
		"above range":     ClassificationHigh,
		"abnormally high": ClassificationHigh,
		"below range":     ClassificationLow,
		"decreased":       ClassificationLow,
		"abnormally low":  ClassificationLow,
	}
	if c, ok := synonyms[normalized]; ok {
		return c, true
	}

	for _, c := range allClassifications {
		if normalized == string(c) {
			return c, true
		}
	}
	return "", false
}

// IsAbnormal reports whether the classification warrants a recommendation.
func (c Classification) IsAbnormal() bool {
	return c == ClassificationHigh || c == ClassificationLow
}
