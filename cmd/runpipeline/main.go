package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/sitevoice/fieldreport/internal/common"
	"github.com/sitevoice/fieldreport/internal/llm"
	"github.com/sitevoice/fieldreport/internal/pipeline"
	"github.com/sitevoice/fieldreport/internal/repository"
	"github.com/sitevoice/fieldreport/internal/storage"
	"github.com/sitevoice/fieldreport/internal/transcribe"
)

// runpipeline processes a single report synchronously. With -transcript-file
// the audio retrieval and transcription stages are skipped, which makes runs
// reproducible without touching the object store.
func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		reportArg      = flag.String("report", "", "report id (UUID, required)")
		transcriptFile = flag.String("transcript-file", "", "path to a transcript override (optional)")
		printSummary   = flag.Bool("print-summary", false, "print the rendered summary on success")
	)
	flag.Parse()

	if *reportArg == "" {
		logger.Error("usage", "cmd", "runpipeline -report <uuid> [-transcript-file path] [-print-summary]")
		os.Exit(2)
	}
	reportID, err := uuid.Parse(*reportArg)
	if err != nil {
		logger.Error("invalid report id (must be UUID)", "arg", *reportArg, "error", err)
		os.Exit(2)
	}

	var override string
	if *transcriptFile != "" {
		override, err = loadOverride(*transcriptFile)
		if err != nil {
			logger.Error("read transcript file", "path", *transcriptFile, "error", err)
			os.Exit(2)
		}
	}

	cfg := common.LoadConfig()
	if cfg.Database.DSN == "" {
		logger.Error("DB_URL required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	var reports repository.ReportRepository
	switch cfg.Database.Driver {
	case "sqlite":
		db, err := repository.OpenSQLite(ctx, cfg.Database.DSN)
		if err != nil {
			logger.Error("open sqlite", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		reports = repository.NewSQLiteRepository(db, logger)
	default:
		pool, err := repository.NewPool(ctx, repository.PoolConfig{
			DSN:             cfg.Database.DSN,
			MaxConns:        5,
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     cfg.Database.DialTimeout,
		})
		if err != nil {
			logger.Error("open db", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		reports = repository.NewPostgresRepository(pool, logger)
	}

	// The object store is only constructed when no transcript override is
	// given, so a blank override must be rejected up front rather than fall
	// through to the retrieval path.
	var fetcher storage.AudioFetcher
	if override == "" {
		store, err := storage.NewGCSStore(ctx, storage.GCSConfig{
			Bucket:          cfg.Storage.Bucket,
			CredentialsJSON: cfg.Storage.CredentialsJSON,
		}, logger)
		if err != nil {
			logger.Error("open object store", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		fetcher = store
	}

	transcriber := transcribe.NewClient(transcribe.Config{
		APIKey:  cfg.STT.APIKey,
		BaseURL: cfg.STT.BaseURL,
		Model:   cfg.STT.Model,
		Timeout: cfg.STT.Timeout,
	}, logger)
	extractor := llm.NewClient(llm.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	proc := pipeline.NewProcessor(logger, reports, fetcher, transcriber, extractor)

	start := time.Now()
	if err := proc.ProcessReport(ctx, reportID, override); err != nil {
		logger.Error("pipeline failed", "report_id", reportID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}
	logger.Info("pipeline done", "report_id", reportID, "elapsed_ms", time.Since(start).Milliseconds())

	if *printSummary {
		rep, err := reports.GetByID(ctx, reportID)
		if err != nil {
			logger.Error("load report", "error", err)
			os.Exit(1)
		}
		fmt.Println(rep.SummaryText)
	}
}

// loadOverride reads a transcript override file. A file that is empty after
// trimming is an error: an empty override would silently switch the run back
// to the retrieval path.
func loadOverride(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("transcript file %s is empty", path)
	}
	return string(data), nil
}
