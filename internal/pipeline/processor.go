// Package pipeline coordinates the batch flow: load prior results, extract
// new documents one at a time, reconcile names, save. Processing is
// single-threaded by design; the standardization engine must hold exclusive
// access to the collection it updates.
package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joseph-ayodele/labresults-tracker/constants"
	"github.com/joseph-ayodele/labresults-tracker/internal/common"
	"github.com/joseph-ayodele/labresults-tracker/internal/entity"
	"github.com/joseph-ayodele/labresults-tracker/internal/repository"
	"github.com/joseph-ayodele/labresults-tracker/internal/standardize"
)

// Stats aggregates one batch run.
type Stats struct {
	Scanned      int
	Matched      int
	Extracted    int
	Skipped      int
	NewRecords   int
	Inserted     int
	Standardized bool
}

// DocumentExtractor is what the processor needs from the extraction adapter.
type DocumentExtractor interface {
	ExtractDocument(ctx context.Context, path string) (*entity.Collection, error)
}

// Processor runs extract -> append -> reconcile -> save for a directory of
// lab reports.
type Processor struct {
	adapter DocumentExtractor
	engine  *standardize.Engine
	repo    repository.LabResultRepository
	logger  *slog.Logger
}

func NewProcessor(adapter DocumentExtractor, engine *standardize.Engine, repo repository.LabResultRepository, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{adapter: adapter, engine: engine, repo: repo, logger: logger}
}

// ProcessDirectory walks root for report files and runs the whole pipeline
// over them. A document that fails extraction is skipped, not the batch. A
// failed reconcile leaves the new records unmapped; they persist and a future
// run will group them.
func (p *Processor) ProcessDirectory(ctx context.Context, root string) (Stats, error) {
	start := time.Now()
	var stats Stats

	files, scanned, err := findReportFiles(root)
	stats.Scanned = scanned
	stats.Matched = len(files)
	if err != nil {
		return stats, common.NewAppError("PIPELINE_ERROR", "scan directory "+root, err)
	}
	p.logger.Info("pipeline.scan.ok", "root", root, "scanned", scanned, "matched", len(files))

	collection, err := p.repo.Load(ctx)
	if err != nil {
		return stats, err
	}
	p.logger.Info("pipeline.load.ok", "prior_records", collection.Len())

	// One document at a time; extraction failures skip the document only.
	for _, path := range files {
		docRecords, err := p.adapter.ExtractDocument(ctx, path)
		if err != nil {
			if errors.Is(err, common.ErrExtraction) {
				p.logger.Warn("pipeline.document.skipped", "file", filepath.Base(path), "error", err)
				stats.Skipped++
				continue
			}
			return stats, err
		}
		stats.Extracted++
		stats.NewRecords += docRecords.Len()
		collection.Extend(docRecords)
	}

	// Reconcile names across the whole collection in one pass. A failed
	// reconcile is degraded but safe: records stay unmapped.
	if err := p.engine.Reconcile(ctx, collection); err != nil {
		p.logger.Warn("pipeline.standardize.failed", "error", err)
	} else {
		stats.Standardized = true
	}

	inserted, err := p.repo.UpsertAll(ctx, collection)
	if err != nil {
		return stats, err
	}
	stats.Inserted = inserted

	p.logger.Info("pipeline.batch.ok",
		"extracted", stats.Extracted,
		"skipped", stats.Skipped,
		"new_records", stats.NewRecords,
		"inserted", inserted,
		"standardized", stats.Standardized,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return stats, nil
}

// ReconcileStored runs the standardization engine over the persisted
// collection without extracting anything new. Useful after a degraded run
// left records unmapped.
func (p *Processor) ReconcileStored(ctx context.Context) (*entity.Collection, error) {
	collection, err := p.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.engine.Reconcile(ctx, collection); err != nil {
		return nil, err
	}
	if _, err := p.repo.UpsertAll(ctx, collection); err != nil {
		return nil, err
	}
	return collection, nil
}

// findReportFiles walks root, filters by the allowed extensions, and skips
// hidden files and directories.
func findReportFiles(root string) ([]string, int, error) {
	var files []string
	scanned := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		scanned++
		if isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := constants.NormalizeExt(filepath.Ext(path))
		if _, ok := constants.AllowedExtensions[ext]; !ok {
			return nil
		}
		files = append(files, path)
		return nil
	})
	sort.Strings(files)
	return files, scanned, err
}

func isHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
