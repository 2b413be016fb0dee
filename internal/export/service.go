package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/labresults-tracker/internal/entity"
	"github.com/joseph-ayodele/labresults-tracker/internal/repository"
)

// Service is a tiny façade over the repository that produces flat-file
// exports of the result collection.
type Service struct {
	repo   repository.LabResultRepository
	logger *slog.Logger
}

func NewService(repo repository.LabResultRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ExportCSV returns the collection for the given date window as CSV bytes.
// If only from is provided -> from..today (inclusive).
// If neither is provided   -> all records.
func (s *Service) ExportCSV(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()
	collection, err := s.listWindow(ctx, from, to)
	if err != nil {
		return nil, err
	}
	out, err := WriteCSV(collection)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.csv.ok",
		"rows", collection.Len(),
		"bytes", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// ExportXLSX returns an XLSX workbook (as bytes) for the given date window.
func (s *Service) ExportXLSX(ctx context.Context, from, to *time.Time) ([]byte, error) {
	start := time.Now()
	collection, err := s.listWindow(ctx, from, to)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	const sheet = "Lab Results"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Test Date",
		"Test Name",
		"Raw Name",
		"Result",
		"Unit",
		"Classification",
		"Reason",
		"Recommendation",
		"Source File",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range collection.Records {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		name := deref(r.CanonicalName)
		if name == "" {
			name = r.RawName
		}

		write(1, formatDate(r))
		write(2, name)
		write(3, r.RawName)
		write(4, r.Value)
		write(5, deref(r.Unit))
		write(6, classificationString(r))
		write(7, truncate(deref(r.Reason), 140))
		write(8, truncate(deref(r.Recommendation), 140))
		write(9, r.SourceFile)
		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 12) // date
	_ = f.SetColWidth(sheet, "B", "C", 28) // names
	_ = f.SetColWidth(sheet, "D", "E", 12) // result/unit
	_ = f.SetColWidth(sheet, "F", "F", 14) // classification
	_ = f.SetColWidth(sheet, "G", "H", 48) // notes
	_ = f.SetColWidth(sheet, "I", "I", 36) // source

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", collection.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (s *Service) listWindow(ctx context.Context, from, to *time.Time) (*entity.Collection, error) {
	// Normalize dates (date-only, UTC)
	var fromDate, toDate *time.Time
	if from != nil {
		f := entity.DateOnly(*from)
		fromDate = &f
	}
	if to != nil {
		t := entity.DateOnly(*to)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		t := entity.DateOnly(time.Now().UTC())
		toDate = &t
	}
	collection, err := s.repo.ListBetween(ctx, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("query lab results: %w", err)
	}
	return collection, nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
