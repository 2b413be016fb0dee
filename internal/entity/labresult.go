package entity

import (
	"strings"
	"time"

	"github.com/joseph-ayodele/labresults-tracker/constants"
)

// LabResult represents a single lab test measurement extracted from a report.
// (TestDate, RawName) is the natural key; duplicates for the same key are
// dropped on persist, never overwritten.
type LabResult struct {
	ID         uint      `json:"-" gorm:"primaryKey"`
	SourceFile string    `json:"source_file"`
	TestDate   time.Time `json:"test_date" gorm:"type:date;uniqueIndex:uniq_date_raw_name"`
	// CanonicalName is nil until the standardization engine resolves it.
	CanonicalName  *string                   `json:"canonical_name,omitempty"`
	RawName        string                    `json:"raw_name" gorm:"uniqueIndex:uniq_date_raw_name"`
	Value          string                    `json:"value"`
	Unit           *string                   `json:"unit,omitempty"`
	Classification *constants.Classification `json:"classification,omitempty"`
	Reason         *string                   `json:"reason,omitempty"`
	Recommendation *string                   `json:"recommendation,omitempty"`
	CreatedAt      time.Time                 `json:"created_at"`
}

// Mapped reports whether the record has been assigned a canonical name.
func (r *LabResult) Mapped() bool {
	return r.CanonicalName != nil && *r.CanonicalName != ""
}

// Valid reports whether the record carries both halves of its natural key.
// A record without a test date cannot be identified and must never reach the
// store; zero dates from unrelated documents would collide on the same key.
func (r *LabResult) Valid() bool {
	return strings.TrimSpace(r.RawName) != "" && !r.TestDate.IsZero()
}

// NormalizeTestName is the matching policy for correction lookups: trim plus
// case-fold. Raw names are stored untouched; only matching normalizes.
func NormalizeTestName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// DateOnly truncates t to a calendar date in UTC. Test dates carry no time
// component for identity purposes.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// testDateLayouts covers the timestamp shapes lab reports have shown so far.
// The first is the "11 Jan 2025, 08:04 AM" style most reports print.
var testDateLayouts = []string{
	"2 Jan 2006, 3:04 PM",
	"02 Jan 2006, 03:04 PM",
	"2006-01-02",
	time.RFC3339,
	"02/01/2006",
}

// ParseTestDate parses a free-text report timestamp into a calendar date.
// The ok result is false when no known layout matches; callers must observe
// and log the failure rather than let it pass silently.
func ParseTestDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range testDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOnly(t), true
		}
	}
	return time.Time{}, false
}
