// ms-info - qBittorrent Transfer Ledger and Release Notifier
// Copyright 2026 Yaser AlMasri (yasalmasri)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yasalmasri/ms-info

// Package main is the entry point for the ms-info server.
//
// ms-info samples cumulative transfer counters from a qBittorrent
// instance, folds them into a per-day ledger stored in an embedded
// DuckDB file, and serves the ledger plus live totals over a small
// REST API. An optional notifier posts the day's Radarr digital
// releases to a Telegram chat.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: environment variables over optional YAML file
//     over defaults (Koanf v2); missing qBittorrent credentials are
//     fatal at startup
//  2. Database: DuckDB ledger, schema created on first run
//  3. qBittorrent client: session cookie auth behind a circuit breaker
//  4. Reconciliation engine: the shared snapshot entry point
//  5. Supervisor tree: daily snapshot schedule, optional release
//     announcer, HTTP server
//
// # Scheduling
//
// The snapshot job fires daily at SCHED_DAILY_AT (default 00:01),
// optionally pinned to SCHED_TZ, with one warm-up run at startup. Job
// failures are logged and swallowed; they never crash the process.
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests (10s timeout), the schedules stop, and the
// database is closed.
//
// # Example Usage
//
//	export QB_URL=http://localhost:8080
//	export QB_USERNAME=admin
//	export QB_PASSWORD=secret
//	export SCHED_DAILY_AT=00:01
//	export SCHED_TZ=Europe/Berlin
//	./ms-info
//
// With the release notifier:
//
//	export RADARR_ENABLED=true
//	export RADARR_URL=http://localhost:7878
//	export RADARR_API_KEY=your-api-key
//	export TELEGRAM_BOT=123456:bot-token
//	export TELEGRAM_CHAT=-1001234567890
//	./ms-info
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yasalmasri/ms-info/internal/api"
	"github.com/yasalmasri/ms-info/internal/config"
	"github.com/yasalmasri/ms-info/internal/database"
	"github.com/yasalmasri/ms-info/internal/logging"
	"github.com/yasalmasri/ms-info/internal/notify"
	"github.com/yasalmasri/ms-info/internal/qbittorrent"
	"github.com/yasalmasri/ms-info/internal/radarr"
	"github.com/yasalmasri/ms-info/internal/scheduler"
	"github.com/yasalmasri/ms-info/internal/snapshot"
	"github.com/yasalmasri/ms-info/internal/supervisor"
	"github.com/yasalmasri/ms-info/internal/supervisor/services"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("qbittorrent_url", cfg.QBittorrent.URL).
		Str("db_path", cfg.Database.Path).
		Str("daily_at", cfg.Schedule.DailyAt).
		Bool("radarr_enabled", cfg.Radarr.Enabled).
		Msg("Configuration loaded")

	// Validate guarantees the schedule parses and the zone resolves.
	dailyAt, err := scheduler.ParseDailyTime(cfg.Schedule.DailyAt)
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid daily schedule")
	}
	loc, err := cfg.Schedule.Location()
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid schedule timezone")
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	client := qbittorrent.NewCircuitBreakerClient(&cfg.QBittorrent)
	if err := client.Ping(context.Background()); err != nil {
		logging.Warn().Err(err).Msg("Failed to connect to qBittorrent (will retry)")
	} else {
		logging.Info().Msg("Connected to qBittorrent successfully")
	}

	engine := snapshot.NewEngine(client, db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	// Jobs layer: the daily snapshot schedule, plus the release
	// announcer when the notifier is enabled. Both warm up once at
	// startup so a fresh process has current data immediately.
	tree.AddJob(scheduler.NewDaily(
		snapshot.NewDailyJob(engine, loc),
		dailyAt, loc,
		scheduler.WithJobTimeout(cfg.Server.Timeout),
	))

	if cfg.Radarr.Enabled {
		announceAt, err := scheduler.ParseDailyTime(cfg.Radarr.AnnounceAt)
		if err != nil {
			logging.Fatal().Err(err).Msg("Invalid announce schedule")
		}
		announcer := radarr.NewAnnouncer(
			radarr.NewClient(&cfg.Radarr),
			notify.NewTelegramNotifier(&cfg.Telegram),
			loc,
		)
		tree.AddJob(scheduler.NewDaily(announcer, announceAt, loc,
			scheduler.WithJobTimeout(cfg.Server.Timeout)))
		logging.Info().Str("announce_at", cfg.Radarr.AnnounceAt).Msg("Release announcer enabled")
	}

	// API layer.
	handler := api.NewHandler(client, db, engine, &cfg.API, loc, version)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handler, &cfg.API),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor finishes shutting down.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Application stopped gracefully")
}
