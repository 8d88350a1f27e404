package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/clipsmith/cut-engine/internal/api"
	"github.com/clipsmith/cut-engine/internal/assemble"
	"github.com/clipsmith/cut-engine/internal/config"
	"github.com/clipsmith/cut-engine/internal/database"
	"github.com/clipsmith/cut-engine/internal/media"
	"github.com/clipsmith/cut-engine/internal/metrics"
	"github.com/clipsmith/cut-engine/internal/pipeline"
	"github.com/clipsmith/cut-engine/internal/storage"
	"github.com/clipsmith/cut-engine/internal/transcribe"
)

var version = "dev"

func main() {
	startTime := time.Now()

	// CLI flags override env vars
	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env-file", "", "path to .env file")
	flag.StringVar(&overrides.HTTPAddr, "addr", "", "HTTP listen address")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level (trace..error)")
	flag.StringVar(&overrides.DatabaseURL, "database-url", "", "postgres connection string")
	flag.StringVar(&overrides.UploadDir, "upload-dir", "", "directory for per-job source media")
	flag.StringVar(&overrides.OutputDir, "output-dir", "", "directory for assembled outputs")
	flag.StringVar(&overrides.WhisperURL, "whisper-url", "", "transcription endpoint URL")
	flag.Parse()

	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("cut-engine starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.UploadDir).Msg("failed to create upload dir")
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.OutputDir).Msg("failed to create output dir")
	}

	// Database
	dbLog := log.With().Str("component", "database").Logger()
	db, err := database.Connect(ctx, cfg.DatabaseURL, dbLog)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.InitSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize schema")
	}
	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Artifact storage (local, S3, or tiered)
	store, services, err := storage.New(cfg.S3, cfg.OutputDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize artifact storage")
	}
	for _, svc := range services {
		svc.Start()
		defer svc.Stop()
	}
	log.Info().Str("type", store.Type()).Msg("artifact storage ready")

	// Transcription provider
	provider, err := transcribe.NewProvider(transcribe.ProviderConfig{
		Provider: cfg.TranscribeProvider,
		URL:      cfg.WhisperURL,
		APIKey:   cfg.WhisperAPIKey,
		Model:    cfg.WhisperModel,
		Timeout:  cfg.TranscribeTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create transcription provider")
	}

	// ffmpeg transcoder and assembler
	ffmpeg := media.NewFFmpeg(
		media.WithFFmpegPath(cfg.FFmpegPath),
		media.WithFFprobePath(cfg.FFprobePath),
	)
	assembler := assemble.New(ffmpeg, assemble.Options{
		WorkRoot:    cfg.WorkDir,
		Parallelism: cfg.ExtractParallel,
		Log:         log.With().Str("component", "assemble").Logger(),
	})

	// Pipeline
	bus := pipeline.NewEventBus(256)
	svc := pipeline.New(db, provider, ffmpeg, assembler, store, bus, pipeline.Options{
		UploadDir:         cfg.UploadDir,
		TranscribeTimeout: cfg.TranscribeTimeout,
		AssembleTimeout:   cfg.AssembleTimeout,
		MaxConcurrent:     cfg.Workers,
		Log:               log,
	})

	prometheus.MustRegister(metrics.NewCollector(db.Pool, svc))

	// HTTP server
	httpLog := log.With().Str("component", "http").Logger()
	srv := api.NewServer(cfg, api.Deps{
		DB:      db,
		Service: svc,
		Store:   store,
		Events:  bus,
		Version: version,
		Started: startTime,
	}, httpLog)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	// Graceful shutdown with 10s timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}

	log.Info().Msg("cut-engine stopped")
}
