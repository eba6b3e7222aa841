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

	"github.com/BotBlake/jellybench/internal/config"
	"github.com/BotBlake/jellybench/internal/hub"
	"github.com/BotBlake/jellybench/internal/logging"
	"github.com/BotBlake/jellybench/internal/metrics"
)

func main() {
	// Load configuration; HUB_CONFIG may point at a config file, the rest
	// comes from environment variables and defaults
	cfg, err := config.LoadHub(os.Getenv("HUB_CONFIG"))
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize logging
	logger := logging.Setup(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	logger.Info("starting jellybench hub",
		slog.String("version", "0.1.0"),
		slog.Int("port", cfg.Server.Port))

	// Initialize database
	db, err := hub.OpenDB(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to initialize database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store := hub.NewStore(db)

	// Load the platform and test-data catalog
	seed, err := hub.LoadSeed(cfg.Seed.TestDataPath)
	if err != nil {
		logger.Error("failed to load seed data", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.Seed.TestDataPath == "" {
		logger.Warn("no seed file configured, serving an empty platform catalog")
	} else {
		logger.Info("seed data loaded",
			slog.String("path", cfg.Seed.TestDataPath),
			slog.Int("platforms", len(seed.Platforms)))
	}

	// Initialize API server (not ready yet)
	server := hub.New(store, seed,
		hub.WithLogger(logger),
		hub.WithHost(cfg.Server.Host),
		hub.WithPort(cfg.Server.Port))

	// Seed the stored-submissions gauge from the database
	count, err := store.Count(ctx)
	if err != nil {
		logger.Error("failed to count submissions", slog.String("error", err.Error()))
		os.Exit(1)
	}
	metrics.InitializeSubmissionMetrics(count)

	// Mark server as ready
	server.SetReady(true)

	// Handle shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down...")

		// Mark server as not ready to stop accepting new requests
		server.SetReady(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", slog.String("error", err.Error()))
		}
	}()

	// Start server
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
