package ocr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicConfidenceRecognizesReportArtifacts(t *testing.T) {
	report := strings.Repeat("x", 200) + `
		Collected: 11 Jan 2025
		HBA1C 5.4 %
		Creatinine 78 umol/L ref 60 - 110`

	blank := "short scan noise"

	rich := heuristicConfidence(report)
	poor := heuristicConfidence(blank)

	assert.Greater(t, rich, poor)
	assert.GreaterOrEqual(t, rich, float32(0.8))
	assert.Equal(t, float32(0.2), poor, "no artifacts leaves only the base score")
}

func TestHeuristicConfidenceCapsAtOne(t *testing.T) {
	txt := strings.Repeat("2025-01-11 HBA1C 5.4 mg/dl 4.0 - 6.0 ", 20)
	assert.LessOrEqual(t, heuristicConfidence(txt), float32(1.0))
}

func TestPatternMatchers(t *testing.T) {
	assert.True(t, hasDatePattern("collected 11 jan 2025"))
	assert.True(t, hasDatePattern("2025-01-11"))
	assert.False(t, hasDatePattern("january without day or year"))

	assert.True(t, hasUnitPattern("creatinine 78 umol/l"))
	assert.False(t, hasUnitPattern("no units here"))

	assert.True(t, hasRefRangePattern("4.0 - 6.0"))
	assert.True(t, hasRefRangePattern("60 – 110"))
	assert.False(t, hasRefRangePattern("negative"))
}
