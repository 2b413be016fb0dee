package ocr

import (
	"regexp"
	"strings"
)

var (
	reDate     = regexp.MustCompile(`\b\d{1,2}\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+20\d{2}\b|\b20\d{2}-\d{2}-\d{2}\b`)
	reUnit     = regexp.MustCompile(`\b(mg/dl|g/dl|mmol/l|umol/l|iu/l|u/l|ng/ml|pg/ml|miu/l|x10\^?\d|fl|pg|%)\b`)
	reRefRange = regexp.MustCompile(`\d+(\.\d+)?\s*[-–]\s*\d+(\.\d+)?`)
)

func hasDatePattern(s string) bool     { return reDate.MatchString(s) }
func hasUnitPattern(s string) bool     { return reUnit.MatchString(s) }
func hasRefRangePattern(s string) bool { return reRefRange.MatchString(s) }

// naive heuristic confidence based on decoded text characteristics
func heuristicConfidence(txt string) float32 {
	// very simple: boost if we see common lab report artifacts
	// (date-ish, unit-ish, reference-range-ish). Each adds a bit.
	txtL := strings.ToLower(txt)
	score := float32(0.2) // base
	if hasDatePattern(txtL) {
		score += 0.2
	}
	if hasUnitPattern(txtL) {
		score += 0.2
	}
	if hasRefRangePattern(txtL) {
		score += 0.15
	}
	if len(txt) > 200 {
		score += 0.1
	} // enough content
	if score > 1.0 {
		score = 1.0
	}
	return score
}
