package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkResult(date, rawName, canonical string) *LabResult {
	d, _ := time.Parse("2006-01-02", date)
	r := &LabResult{TestDate: d, RawName: rawName, Value: "5.0"}
	if canonical != "" {
		r.CanonicalName = &canonical
	}
	return r
}

func TestKnownMappingsDeduplicatesAndSorts(t *testing.T) {
	c := NewCollection()
	c.Append(
		mkResult("2024-01-01", "CREAT", "Creatinine"),
		mkResult("2024-02-01", "CREAT", "Creatinine"),
		mkResult("2024-01-01", "ALB", "Albumin"),
		mkResult("2024-01-01", "TSH RFX", ""),
	)

	got := c.KnownMappings()
	assert.Equal(t, []Mapping{
		{CanonicalName: "Albumin", RawName: "ALB"},
		{CanonicalName: "Creatinine", RawName: "CREAT"},
	}, got)
}

func TestUnmappedNamesPreservesFirstAppearanceOrder(t *testing.T) {
	c := NewCollection()
	c.Append(
		mkResult("2024-01-01", "TSH RFX", ""),
		mkResult("2024-01-01", "ALB", "Albumin"),
		mkResult("2024-01-01", "HBA1C", ""),
		mkResult("2024-02-01", "TSH RFX", ""),
		mkResult("2024-02-01", "", ""), // invalid record, ignored
	)

	assert.Equal(t, []string{"TSH RFX", "HBA1C"}, c.UnmappedNames())
}

func TestApplyCorrectionsSkipsMappedRecords(t *testing.T) {
	c := NewCollection()
	c.Append(
		mkResult("2024-01-01", "CREAT", "Creatinine"),
		mkResult("2024-01-01", "HBA1C", ""),
	)

	updated := c.ApplyCorrections(map[string]string{
		"CREAT": "Serum Creatinine", // must not displace the existing mapping
		"HBA1C": "Hemoglobin A1c",
	})

	assert.Equal(t, 1, updated)
	assert.Equal(t, "Creatinine", *c.Records[0].CanonicalName)
	assert.Equal(t, "Hemoglobin A1c", *c.Records[1].CanonicalName)
}

func TestApplyCorrectionsNormalizesForMatching(t *testing.T) {
	c := NewCollection()
	c.Append(mkResult("2024-01-01", " Albumin, U (NHGD)", ""))

	updated := c.ApplyCorrections(map[string]string{"ALBUMIN, U (NHGD) ": "Albumin, Urine"})

	assert.Equal(t, 1, updated)
	assert.Equal(t, "Albumin, Urine", *c.Records[0].CanonicalName)
}

func TestCloneIsIndependent(t *testing.T) {
	c := NewCollection()
	c.Append(mkResult("2024-01-01", "HBA1C", "Hemoglobin A1c"))

	clone := c.Clone()
	require.Equal(t, c, clone)

	*clone.Records[0].CanonicalName = "changed"
	clone.Records[0].Value = "9.9"

	assert.Equal(t, "Hemoglobin A1c", *c.Records[0].CanonicalName)
	assert.Equal(t, "5.0", c.Records[0].Value)
}

func TestParseTestDate(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"11 Jan 2025, 08:04 AM", "2025-01-11", true},
		{"3 Feb 2024, 1:30 PM", "2024-02-03", true},
		{"2024-06-15", "2024-06-15", true},
		{"15/06/2024", "2024-06-15", true},
		{"not a date", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParseTestDate(tc.in)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got.Format("2006-01-02"))
				// identity is the calendar date; no time component survives
				assert.Equal(t, 0, got.Hour())
			}
		})
	}
}

func TestValidRequiresBothNaturalKeyHalves(t *testing.T) {
	assert.True(t, mkResult("2024-01-01", "HBA1C", "").Valid())
	assert.False(t, mkResult("2024-01-01", "  ", "").Valid())
	assert.False(t, (&LabResult{RawName: "HBA1C", Value: "5.4"}).Valid(), "a zero test date leaves the record unidentifiable")
}

func TestNormalizeTestName(t *testing.T) {
	assert.Equal(t, "albumin, u (nhgd)", NormalizeTestName("  ALBUMIN, U (NHGD) "))
	assert.Equal(t, "", NormalizeTestName("   "))
}
