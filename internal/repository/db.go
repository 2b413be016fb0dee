package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/joseph-ayodele/labresults-tracker/internal/common"
	"github.com/joseph-ayodele/labresults-tracker/internal/entity"
)

type Config struct {
	DSN         string
	DialTimeout time.Duration
}

// Open connects to the store and runs auto-migration. The dialect is picked
// from the DSN: postgres:// URLs go to Postgres, everything else is treated
// as a SQLite path (":memory:" included).
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*gorm.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to database", "dsn", cfg.DSN)

	var dialector gorm.Dialector
	if strings.HasPrefix(cfg.DSN, "postgres://") || strings.HasPrefix(cfg.DSN, "postgresql://") {
		dialector = postgres.Open(cfg.DSN)
	} else {
		dialector = sqlite.Open(cfg.DSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, fmt.Errorf("%w: open store: %w", common.ErrPersistence, err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&entity.LabResult{}); err != nil {
		logger.Error("failed to migrate schema", "error", err)
		return nil, fmt.Errorf("%w: migrate: %w", common.ErrPersistence, err)
	}

	logger.Info("successfully connected to database")
	return db, nil
}

// Close closes the underlying connection gracefully.
func Close(db *gorm.DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("failed to get sql.DB for close", "error", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
		return
	}
	logger.Info("database connection closed")
}

// HealthCheck pings the store to catch DSN issues early.
func HealthCheck(ctx context.Context, db *gorm.DB, timeout time.Duration, logger *slog.Logger) error {
	logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrPersistence, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", common.ErrPersistence, err)
	}
	logger.Debug("database ping successful")
	return nil
}
