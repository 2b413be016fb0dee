// Package extract turns raw document content into unmapped lab result records
// via the reasoning service. Extraction is all-or-nothing per document: a
// malformed service response fails the document, never a partial record set.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/labresults-tracker/constants"
	"github.com/joseph-ayodele/labresults-tracker/internal/common"
	"github.com/joseph-ayodele/labresults-tracker/internal/entity"
	"github.com/joseph-ayodele/labresults-tracker/internal/llm"
	"github.com/joseph-ayodele/labresults-tracker/internal/ocr"
)

// TextExtractor is what the adapter needs from the text-preparation stage.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (ocr.ExtractionResult, error)
}

// Adapter wires text preparation and LLM field extraction for one document.
type Adapter struct {
	ocr       TextExtractor
	extractor llm.ResultExtractor
	logger    *slog.Logger
}

func NewAdapter(textExtractor TextExtractor, fieldExtractor llm.ResultExtractor, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{ocr: textExtractor, extractor: fieldExtractor, logger: logger}
}

// ExtractDocument produces the unmapped records for a single report file.
// Failures wrap common.ErrExtraction so the caller can skip the document and
// continue the batch.
func (a *Adapter) ExtractDocument(ctx context.Context, path string) (*entity.Collection, error) {
	start := time.Now()
	base := filepath.Base(path)

	prep, err := a.ocr.Extract(ctx, path)
	if err != nil {
		return nil, common.NewAppError("EXTRACTION_ERROR", "text extraction failed for "+base, wrapExtraction(err))
	}
	a.logger.Info("extract.prep.ok",
		"file", base,
		"method", prep.Method,
		"pages", prep.Pages,
		"confidence", prep.Confidence,
	)

	resp, _, err := a.extractor.ExtractResults(ctx, llm.ExtractRequest{
		Text:         prep.Text,
		FilenameHint: base,
		PrepMethod:   prep.Method,
		Confidence:   prep.Confidence,
	})
	if err != nil {
		return nil, common.NewAppError("EXTRACTION_ERROR", "field extraction failed for "+base, wrapExtraction(err))
	}
	if len(resp.Results) == 0 {
		return nil, common.NewAppError("EXTRACTION_ERROR", "no results extracted from "+base, common.ErrExtraction)
	}

	reportDate, reportDateOK := entity.ParseTestDate(resp.TestDate)
	if resp.TestDate != "" && !reportDateOK {
		a.logger.Warn("extract.date_parse_failed", "file", base, "test_date", resp.TestDate)
	}

	out := entity.NewCollection()
	for _, f := range resp.Results {
		record := a.toRecord(base, f, reportDate, reportDateOK)
		if strings.TrimSpace(record.RawName) == "" {
			return nil, common.NewAppError("EXTRACTION_ERROR", "record missing test name in "+base, common.ErrExtraction)
		}
		if record.TestDate.IsZero() {
			// No per-result date and no report date: the record has no
			// natural key, so the whole document fails.
			return nil, common.NewAppError("EXTRACTION_ERROR", "no test date resolved for "+base, common.ErrExtraction)
		}
		out.Append(record)
	}

	a.logger.Info("extract.document.ok",
		"file", base,
		"records", out.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// toRecord maps one set of LLM fields onto an unmapped lab result. A
// per-result date overrides the report-level one when it parses.
func (a *Adapter) toRecord(source string, f llm.ResultFields, reportDate time.Time, reportDateOK bool) *entity.LabResult {
	record := &entity.LabResult{
		SourceFile: source,
		RawName:    f.RawName,
		Value:      f.Value,
	}

	switch {
	case f.TestDate != "":
		if d, ok := entity.ParseTestDate(f.TestDate); ok {
			record.TestDate = d
		} else {
			a.logger.Warn("extract.date_parse_failed", "file", source, "test_date", f.TestDate)
			if reportDateOK {
				record.TestDate = reportDate
			}
		}
	case reportDateOK:
		record.TestDate = reportDate
	}

	if f.Unit != "" {
		unit := f.Unit
		record.Unit = &unit
	}
	if c, ok := constants.ParseClassification(f.Classification); ok {
		record.Classification = &c
	} else if f.Classification != "" {
		a.logger.Warn("extract.classification_unrecognized", "file", source, "classification", f.Classification)
	}
	if f.Reason != "" {
		reason := f.Reason
		record.Reason = &reason
	}
	if f.Recommendation != "" && record.Classification != nil && record.Classification.IsAbnormal() {
		rec := f.Recommendation
		record.Recommendation = &rec
	}
	return record
}

func wrapExtraction(err error) error {
	return fmt.Errorf("%w: %w", common.ErrExtraction, err)
}
