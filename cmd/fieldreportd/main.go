package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/sitevoice/fieldreport/internal/async"
	"github.com/sitevoice/fieldreport/internal/common"
	"github.com/sitevoice/fieldreport/internal/export"
	"github.com/sitevoice/fieldreport/internal/llm"
	"github.com/sitevoice/fieldreport/internal/pipeline"
	"github.com/sitevoice/fieldreport/internal/repository"
	"github.com/sitevoice/fieldreport/internal/server"
	"github.com/sitevoice/fieldreport/internal/storage"
	"github.com/sitevoice/fieldreport/internal/transcribe"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reports, cleanup, err := openRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("open report store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	store, err := storage.NewGCSStore(ctx, storage.GCSConfig{
		Bucket:          cfg.Storage.Bucket,
		CredentialsJSON: cfg.Storage.CredentialsJSON,
		UploadURLTTL:    cfg.Storage.UploadURLTTL,
	}, logger)
	if err != nil {
		logger.Error("open object store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Warn("close object store", "error", cerr)
		}
	}()

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

	proc := pipeline.NewProcessor(logger, reports, store, transcriber, extractor)
	queue := async.NewProcessorQueue(proc, logger,
		async.WithWorkers(cfg.Pipeline.Workers),
		async.WithQueueSize(cfg.Pipeline.QueueSize),
		async.WithProcessTimeout(cfg.Pipeline.ProcessTimeout),
	)

	exporter := export.NewService(reports, logger)
	svc := server.NewService(reports, store, queue, exporter, logger)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	svc.Routes(engine)

	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	go func() {
		logger.Info("http serving", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	logger.Info("stopped")
}

// openRepository builds the configured store backend and returns its cleanup.
func openRepository(ctx context.Context, cfg *common.Config, logger *slog.Logger) (repository.ReportRepository, func(), error) {
	switch cfg.Database.Driver {
	case "sqlite":
		db, err := repository.OpenSQLite(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewSQLiteRepository(db, logger), func() {
			if cerr := db.Close(); cerr != nil {
				logger.Warn("close sqlite", "error", cerr)
			}
		}, nil
	default:
		pool, err := repository.NewPool(ctx, repository.PoolConfig{
			DSN:             cfg.Database.DSN,
			MaxConns:        cfg.Database.MaxConns,
			MinConns:        cfg.Database.MinConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
			DialTimeout:     cfg.Database.DialTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return repository.NewPostgresRepository(pool, logger), pool.Close, nil
	}
}
