package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/blobcast/internal/pipeline"
	"github.com/ajitpratap0/blobcast/pkg/config"
	"github.com/ajitpratap0/blobcast/pkg/export"
	"github.com/ajitpratap0/blobcast/pkg/logger"
	"github.com/ajitpratap0/blobcast/pkg/publish/azure"
	"github.com/ajitpratap0/blobcast/pkg/source/postgres"
	staging "github.com/ajitpratap0/blobcast/pkg/staging/mongo"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	root := &cobra.Command{
		Use:   "blobcast",
		Short: "blobcast - relational to blob export job",
		Long: `blobcast runs a scheduled batch export: it reads a bounded slice of rows
from PostgreSQL, stages them through a MongoDB collection, and publishes a
CSV artifact to Azure Blob Storage under a fixed, stable name.`,
	}

	// Version command
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("blobcast v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	// Main run command
	var rowLimit int
	var timeout time.Duration
	var logLevel string

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run one export",
		Long: `Run one full export: extract, stage, re-extract, serialize, publish.
Connection settings come from the environment (or a .env file); flags
override individual values.

Example:
  blobcast run --limit 100 --timeout 10m`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(rowLimit, timeout, logLevel)
		},
	}

	runCmd.Flags().IntVar(&rowLimit, "limit", 0, "Maximum rows to extract per run (overrides PG_ROW_LIMIT)")
	runCmd.Flags().DurationVar(&timeout, "timeout", 0, "Run timeout (default 10m)")
	runCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runExport loads configuration, wires the stages and drives one run.
func runExport(rowLimit int, timeout time.Duration, logLevel string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if rowLimit > 0 {
		cfg.Postgres.Limit = rowLimit
	}
	if timeout > 0 {
		cfg.Timeouts.Run = timeout
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:    cfg.Log.Level,
		Encoding: cfg.Log.Encoding,
	}); err != nil {
		return fmt.Errorf("logger error: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	log := logger.With(zap.String("component", "blobcast-cli"))
	log.Info("starting export",
		zap.String("table", cfg.Postgres.Table),
		zap.Int("limit", cfg.Postgres.Limit),
		zap.String("container", cfg.Azure.Container),
		zap.String("blob", cfg.Export.BlobName))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Run)
	defer cancel()

	job := pipeline.New(cfg,
		postgres.NewExtractor(cfg, logger.Get()),
		staging.NewStager(cfg, logger.Get()),
		export.NewWriter(cfg.Export.BlobName, logger.Get()),
		azure.NewPublisher(cfg, logger.Get()),
		logger.Get(),
	)

	result, err := job.Run(ctx)
	if err != nil {
		if result != nil && result.Skipped {
			log.Warn("export skipped, no data",
				zap.String("run_id", result.RunID),
				zap.Duration("duration", result.Duration))
			return fmt.Errorf("export skipped: %w", err)
		}
		return fmt.Errorf("export failed: %w", err)
	}

	log.Info("export completed",
		zap.String("run_id", result.RunID),
		zap.Int("rows", result.Exported),
		zap.String("blob_url", result.BlobURL),
		zap.Duration("duration", result.Duration))

	return nil
}
