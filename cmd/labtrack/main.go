package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/labresults-tracker/internal/common"
	"github.com/joseph-ayodele/labresults-tracker/internal/export"
	"github.com/joseph-ayodele/labresults-tracker/internal/extract"
	"github.com/joseph-ayodele/labresults-tracker/internal/llm/openai"
	"github.com/joseph-ayodele/labresults-tracker/internal/ocr"
	"github.com/joseph-ayodele/labresults-tracker/internal/pipeline"
	repo "github.com/joseph-ayodele/labresults-tracker/internal/repository"
	"github.com/joseph-ayodele/labresults-tracker/internal/standardize"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	root := rootCommand(logger)
	if err := root.Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func rootCommand(logger *slog.Logger) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "labtrack",
		Short:         "Lab report extraction and standardization pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		processCommand(logger),
		exportCommand(logger),
		reconcileCommand(logger),
		dbhealthCommand(logger),
	)
	return rootCmd
}

// processCommand runs the full pipeline over a directory of reports, then
// writes the flat exports.
func processCommand(logger *slog.Logger) *cobra.Command {
	var (
		dir string
		out string
	)
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Extract, standardize, and persist lab reports from a directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := common.LoadConfig()
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()

			db, err := repo.Open(ctx, repo.Config{DSN: cfg.Database.DSN, DialTimeout: cfg.Database.DialTimeout}, logger)
			if err != nil {
				return err
			}
			defer repo.Close(db, logger)

			resultsRepo := repo.NewLabResultRepository(db, logger)
			client := openai.FromConfig(cfg.LLM, logger)
			textExtractor := ocr.NewExtractor(ocr.Config{
				Pdftotext: cfg.OCR.Pdftotext,
				Pdftoppm:  cfg.OCR.Pdftoppm,
				Tesseract: cfg.OCR.Tesseract,
				DPI:       cfg.OCR.DPI,
				MaxPages:  cfg.OCR.MaxPages,
			}, logger)
			adapter := extract.NewAdapter(textExtractor, client, logger)
			engine := standardize.NewEngine(client, logger)
			processor := pipeline.NewProcessor(adapter, engine, resultsRepo, logger)

			stats, err := processor.ProcessDirectory(ctx, dir)
			if err != nil {
				return err
			}

			csvPath := out
			if csvPath == "" {
				csvPath = cfg.Export.CSVPath
			}
			svc := export.NewService(resultsRepo, logger)
			if err := writeCSV(ctx, svc, csvPath); err != nil {
				return err
			}
			if cfg.Export.XLSXPath != "" {
				if err := writeXLSX(ctx, svc, cfg.Export.XLSXPath); err != nil {
					return err
				}
			}

			fmt.Printf("Batch processing complete!\n")
			fmt.Printf("- Documents extracted: %d\n", stats.Extracted)
			fmt.Printf("- Documents skipped: %d\n", stats.Skipped)
			fmt.Printf("- New records: %d (inserted %d)\n", stats.NewRecords, stats.Inserted)
			fmt.Printf("- Output: %s\n", csvPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory to process lab reports from (required)")
	cmd.Flags().StringVar(&out, "out", "", "output CSV file path (defaults to EXPORT_CSV_PATH)")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

// exportCommand re-exports the stored collection without touching the LLM.
func exportCommand(logger *slog.Logger) *cobra.Command {
	var (
		out     string
		format  string
		fromStr string
		toStr   string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored lab results to CSV or XLSX",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := common.LoadConfig()
			ctx := cmd.Context()

			if format != "csv" && format != "xlsx" {
				return fmt.Errorf("invalid --format %q, must be csv or xlsx", format)
			}

			from, err := parseDateFlag(fromStr)
			if err != nil {
				return fmt.Errorf("invalid --from date, use YYYY-MM-DD: %w", err)
			}
			to, err := parseDateFlag(toStr)
			if err != nil {
				return fmt.Errorf("invalid --to date, use YYYY-MM-DD: %w", err)
			}

			db, err := repo.Open(ctx, repo.Config{DSN: cfg.Database.DSN, DialTimeout: cfg.Database.DialTimeout}, logger)
			if err != nil {
				return err
			}
			defer repo.Close(db, logger)

			svc := export.NewService(repo.NewLabResultRepository(db, logger), logger)

			var data []byte
			if format == "xlsx" {
				data, err = svc.ExportXLSX(ctx, from, to)
			} else {
				data, err = svc.ExportCSV(ctx, from, to)
			}
			if err != nil {
				return err
			}
			if out == "" {
				out = "lab_results." + format
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write output file: %w", err)
			}
			fmt.Printf("Exported to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file path")
	cmd.Flags().StringVar(&format, "format", "csv", "export format: csv or xlsx")
	cmd.Flags().StringVar(&fromStr, "from", "", "from date YYYY-MM-DD")
	cmd.Flags().StringVar(&toStr, "to", "", "to date YYYY-MM-DD")
	return cmd
}

// reconcileCommand reruns name standardization over the stored collection,
// for runs where a degraded reconcile left records unmapped.
func reconcileCommand(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Re-run name standardization over stored results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := common.LoadConfig()
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()

			db, err := repo.Open(ctx, repo.Config{DSN: cfg.Database.DSN, DialTimeout: cfg.Database.DialTimeout}, logger)
			if err != nil {
				return err
			}
			defer repo.Close(db, logger)

			resultsRepo := repo.NewLabResultRepository(db, logger)
			client := openai.FromConfig(cfg.LLM, logger)
			engine := standardize.NewEngine(client, logger)
			processor := pipeline.NewProcessor(nil, engine, resultsRepo, logger)

			collection, err := processor.ReconcileStored(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Reconciled %d records, %d still unmapped\n",
				collection.Len(), len(collection.UnmappedNames()))
			return nil
		},
	}
}

// dbhealthCommand pings the configured store.
func dbhealthCommand(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "dbhealth",
		Short: "Check database connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := common.LoadConfig()
			ctx := cmd.Context()

			db, err := repo.Open(ctx, repo.Config{DSN: cfg.Database.DSN, DialTimeout: cfg.Database.DialTimeout}, logger)
			if err != nil {
				return err
			}
			defer repo.Close(db, logger)

			if err := repo.HealthCheck(ctx, db, 5*time.Second, logger); err != nil {
				return err
			}
			fmt.Println("database OK")
			return nil
		},
	}
}

func writeCSV(ctx context.Context, svc *export.Service, path string) error {
	data, err := svc.ExportCSV(ctx, nil, nil)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func writeXLSX(ctx context.Context, svc *export.Service, path string) error {
	data, err := svc.ExportXLSX(ctx, nil, nil)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func parseDateFlag(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
