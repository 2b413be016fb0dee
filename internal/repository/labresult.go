package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/joseph-ayodele/labresults-tracker/internal/common"
	"github.com/joseph-ayodele/labresults-tracker/internal/entity"
)

// LabResultRepository is the persistence adapter for result collections.
// Load never fails for "no prior state"; it returns an empty collection.
// UpsertAll is keyed by (test_date, raw_name): re-saving the same record is a
// no-op, first write wins.
type LabResultRepository interface {
	Load(ctx context.Context) (*entity.Collection, error)
	UpsertAll(ctx context.Context, collection *entity.Collection) (inserted int, err error)
	ListBetween(ctx context.Context, from, to *time.Time) (*entity.Collection, error)
}

type labResultRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewLabResultRepository(db *gorm.DB, logger *slog.Logger) LabResultRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &labResultRepository{db: db, logger: logger}
}

func (r *labResultRepository) Load(ctx context.Context) (*entity.Collection, error) {
	var records []*entity.LabResult
	err := r.db.WithContext(ctx).
		Order("test_date, id").
		Find(&records).Error
	if err != nil {
		r.logger.Error("failed to load lab results", "error", err)
		return nil, fmt.Errorf("%w: load: %w", common.ErrPersistence, err)
	}
	return &entity.Collection{Records: records}, nil
}

func (r *labResultRepository) ListBetween(ctx context.Context, from, to *time.Time) (*entity.Collection, error) {
	q := r.db.WithContext(ctx).Order("test_date, id")
	if from != nil {
		q = q.Where("test_date >= ?", entity.DateOnly(*from))
	}
	if to != nil {
		q = q.Where("test_date <= ?", entity.DateOnly(*to))
	}
	var records []*entity.LabResult
	if err := q.Find(&records).Error; err != nil {
		r.logger.Error("failed to list lab results", "error", err)
		return nil, fmt.Errorf("%w: list: %w", common.ErrPersistence, err)
	}
	return &entity.Collection{Records: records}, nil
}

// UpsertAll writes the collection back wholesale. Conflicting inserts on the
// (test_date, raw_name) natural key are ignored, except that a newly resolved
// canonical name does update an existing unmapped row.
func (r *labResultRepository) UpsertAll(ctx context.Context, collection *entity.Collection) (int, error) {
	if collection == nil || collection.Len() == 0 {
		return 0, nil
	}
	start := time.Now()
	inserted := 0

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, record := range collection.Records {
			if !record.Valid() {
				continue
			}
			// Records loaded from the store already carry an ID; only new
			// ones are inserted.
			if record.ID == 0 {
				res := tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "test_date"}, {Name: "raw_name"}},
					DoNothing: true,
				}).Create(record)
				if res.Error != nil {
					return res.Error
				}
				inserted += int(res.RowsAffected)
			}

			if record.Mapped() {
				// Backfill the canonical name on rows that predate this
				// reconcile run; all other fields keep their first write.
				res := tx.Model(&entity.LabResult{}).
					Where("test_date = ? AND raw_name = ? AND (canonical_name IS NULL OR canonical_name = '')",
						record.TestDate, record.RawName).
					Update("canonical_name", *record.CanonicalName)
				if res.Error != nil {
					return res.Error
				}
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("failed to upsert lab results", "error", err)
		return 0, fmt.Errorf("%w: upsert: %w", common.ErrPersistence, err)
	}

	r.logger.Info("repository.upsert.ok",
		"records", collection.Len(),
		"inserted", inserted,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return inserted, nil
}
