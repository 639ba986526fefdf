package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/voicemon/voicemon/internal/api"
	"github.com/voicemon/voicemon/internal/config"
	"github.com/voicemon/voicemon/internal/logging"
	"github.com/voicemon/voicemon/internal/service/alert"
	"github.com/voicemon/voicemon/internal/service/engine"
	"github.com/voicemon/voicemon/internal/service/monitor"
	"github.com/voicemon/voicemon/internal/service/snapshot"
	"github.com/voicemon/voicemon/internal/storage"
)

func main() {
	// Load configuration; VOICEMON_CONFIG points at an optional config file
	var cfg *config.Config
	var err error
	if path := os.Getenv("VOICEMON_CONFIG"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFromEnv()
	}
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

	logger.Info("starting voicemon server",
		slog.String("version", "0.1.0"),
		slog.Int("port", cfg.Server.Port))

	// Initialize database
	db, err := storage.New(cfg.Database.Path)
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

	// Initialize stores
	eventStore := storage.NewEventStore(db)
	scoreStore := storage.NewScoreStore(db)

	// Initialize aggregation services
	loader := snapshot.New(eventStore, scoreStore, snapshot.WithLogger(logger))

	alerts := alert.New(
		alert.WithBudgetThreshold(cfg.Alerts.BudgetThreshold),
		alert.WithApproachRatio(cfg.Alerts.ApproachRatio),
		alert.WithQualityThreshold(cfg.Alerts.QualityThreshold))

	eng := engine.New(loader,
		engine.WithLogger(logger),
		engine.WithAlertGenerator(alerts),
		engine.WithConversationLookup(snapshot.NewLookup(eventStore, scoreStore)),
		engine.WithDefaultWindowDays(cfg.Analytics.WindowDays),
		engine.WithDefaultTopN(cfg.Analytics.TopN))

	var mon *monitor.Monitor
	if cfg.Monitor.Interval > 0 {
		mon = monitor.New(eng,
			monitor.WithLogger(logger),
			monitor.WithInterval(cfg.Monitor.Interval))
	}

	// Initialize API server
	server := api.New(eng,
		api.WithMonitor(mon),
		api.WithLogger(logger),
		api.WithHost(cfg.Server.Host),
		api.WithPort(cfg.Server.Port),
		api.WithRequestTimeout(cfg.Server.RequestTimeout),
		api.WithRateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst))

	// Fail fast if the stores cannot produce a snapshot
	if n, err := eventStore.Count(ctx); err != nil {
		logger.Error("failed to read usage events", slog.String("error", err.Error()))
		os.Exit(1)
	} else {
		logger.Info("usage event store ready", slog.Int("events", n))
	}

	// Mark server as ready
	server.SetReady(true)

	// Start background services
	if mon != nil {
		if err := mon.Start(ctx); err != nil {
			logger.Error("failed to start alert monitor", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Handle shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		logger.Info("shutting down...")
		logging.Audit(ctx, "server_shutdown", slog.String("signal", sig.String()))

		// Mark server as not ready to stop accepting new requests
		server.SetReady(false)

		// Stop background services
		if mon != nil {
			mon.Stop()
			stats := mon.GetStats()
			logging.Audit(ctx, "monitor_stopped",
				slog.Int64("evaluations", stats.Evaluations),
				slog.Int64("failures", stats.Failures),
				slog.Int64("alerts_raised", stats.AlertsRaised))
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
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
