package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/labresults-tracker/internal/entity"
)

// csvHeaders is the flat export column order, matching the record fields.
var csvHeaders = []string{
	"source_file",
	"test_date",
	"canonical_name",
	"raw_name",
	"value",
	"unit",
	"classification",
	"reason",
	"recommendation",
}

// WriteCSV renders the collection as UTF-8 CSV, one row per record,
// newline-terminated. Free-text fields that a spreadsheet application could
// misread as a formula are escaped as literal text.
func WriteCSV(collection *entity.Collection) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeaders); err != nil {
		return nil, fmt.Errorf("csv write header: %w", err)
	}
	for _, r := range collection.Records {
		row := []string{
			r.SourceFile,
			formatDate(r),
			deref(r.CanonicalName),
			escapeSpreadsheetText(r.RawName),
			escapeSpreadsheetText(r.Value),
			deref(r.Unit),
			classificationString(r),
			escapeSpreadsheetText(deref(r.Reason)),
			escapeSpreadsheetText(deref(r.Recommendation)),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("csv write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv flush: %w", err)
	}
	return buf.Bytes(), nil
}

// escapeSpreadsheetText neutralizes cell content that Excel/Sheets would
// interpret as a formula ("=", "+", "-", "@" prefixes, e.g. a reference range
// like "-2.5 - 2.5").
func escapeSpreadsheetText(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@':
		return "'" + s
	}
	return s
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func formatDate(r *entity.LabResult) string {
	if r.TestDate.IsZero() {
		return ""
	}
	return r.TestDate.Format("2006-01-02")
}

func classificationString(r *entity.LabResult) string {
	if r.Classification == nil {
		return ""
	}
	return strings.ToLower(string(*r.Classification))
}
