package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/aicell-lab/24agents.science/internal/api"
	"github.com/aicell-lab/24agents.science/internal/audit"
	"github.com/aicell-lab/24agents.science/internal/config"
	"github.com/aicell-lab/24agents.science/internal/monitor"
	"github.com/aicell-lab/24agents.science/internal/sandbox"
	"github.com/aicell-lab/24agents.science/internal/service"
	"github.com/aicell-lab/24agents.science/internal/storage"
	"github.com/aicell-lab/24agents.science/internal/telemetry"
)

func main() {
	// Structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	var cfg *config.Config
	var err error

	if _, statErr := os.Stat(configPath); statErr == nil {
		cfg, err = config.Load(configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", configPath).Msg("failed to load config")
		}
	} else {
		log.Info().Msg("no config file found, using defaults and environment")
		cfg = config.DefaultConfig()
		cfg.ApplyEnv()
		if err := cfg.Validate(); err != nil {
			log.Fatal().Err(err).Msg("invalid configuration")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize metrics
	metrics := monitor.NewMetrics()

	// Initialize database (optional — runs without it for development)
	var db *storage.DB
	if cfg.Database.DSN != "" {
		db, err = storage.New(ctx, cfg.Database.DSN)
		if err != nil {
			log.Warn().Err(err).Msg("database unavailable, audit persistence disabled")
		} else {
			defer db.Close()
			if err := db.EnsureSchema(ctx); err != nil {
				log.Fatal().Err(err).Msg("failed to prepare audit schema")
			}
		}
	}

	// Remote audit sinks, fanned out by a detached forwarder
	var sinks []audit.Sink
	if cfg.Telemetry.Endpoint != "" {
		sinks = append(sinks, telemetry.NewClient(cfg.Telemetry.Endpoint, cfg.Telemetry.Timeout))
	}
	if db != nil {
		sinks = append(sinks, db)
	}

	var forwarder *audit.Forwarder
	if len(sinks) > 0 {
		forwarder = audit.NewForwarder(sinks, cfg.Telemetry.BufferSize)
		forwarder.SetHooks(metrics.RecordAuditDrop, metrics.RecordAuditFailure)
		forwarder.Start()
		defer forwarder.Flush(10 * time.Second)
	}

	auditLogger := audit.NewLogger(
		cfg.Dataset.Alias(),
		cfg.Dataset.ArtifactID,
		cfg.Dataset.Name,
		forwarder,
	)

	// One namespace for the service lifetime; bindings persist across calls.
	namespace := sandbox.NewNamespace()
	svc := service.New(namespace, sandbox.NewInterpreter(), auditLogger, cfg.Dataset, metrics)

	// Create and start HTTP server
	server := api.NewServer(cfg, svc, db, metrics)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		log.Info().Str("signal", sig.String()).Msg("shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		}

		cancel()
	}()

	log.Info().
		Str("addr", cfg.Address()).
		Str("service_id", cfg.Dataset.ServiceID).
		Str("dataset", cfg.Dataset.Name).
		Bool("db_enabled", db != nil).
		Bool("telemetry_enabled", cfg.Telemetry.Endpoint != "").
		Msg("server starting")

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}

	log.Info().Msg("server stopped")
}
