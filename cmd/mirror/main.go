// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/olegiv/ocms-mirror/internal/cache"
	"github.com/olegiv/ocms-mirror/internal/config"
	"github.com/olegiv/ocms-mirror/internal/executor"
	"github.com/olegiv/ocms-mirror/internal/fieldtree"
	"github.com/olegiv/ocms-mirror/internal/handler"
	"github.com/olegiv/ocms-mirror/internal/langmap"
	"github.com/olegiv/ocms-mirror/internal/listing"
	"github.com/olegiv/ocms-mirror/internal/logging"
	"github.com/olegiv/ocms-mirror/internal/pipeline"
	"github.com/olegiv/ocms-mirror/internal/registry"
	"github.com/olegiv/ocms-mirror/internal/resolver"
	"github.com/olegiv/ocms-mirror/internal/scheduler"
	"github.com/olegiv/ocms-mirror/internal/service"
	"github.com/olegiv/ocms-mirror/internal/store"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "oCMS Mirror - Multilingual content mirror service\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MIRROR_DB_PATH           SQLite database path (default: ./data/mirror.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MIRROR_SERVER_PORT       Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MIRROR_ENV               Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MIRROR_OPENAI_API_KEY    API key for the translation provider\n")
		_, _ = fmt.Fprintf(os.Stderr, "  MIRROR_REDIS_URL         Redis URL for distributed caching (optional)\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}
	if *showVersion {
		_, _ = fmt.Printf("mirror %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Ensure data directory exists
	dbDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	// Initialize database
	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	// Run migrations
	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the events table
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	// Initialize cache
	cacheBackend, err := cache.New(cache.Config{
		RedisURL:        cfg.RedisURL,
		Prefix:          cfg.CachePrefix,
		DefaultTTL:      time.Duration(cfg.CacheTTL) * time.Second,
		CleanupInterval: time.Minute,
	})
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer func() {
		if err := cacheBackend.Close(); err != nil {
			slog.Error("error closing cache", "error", err)
		}
	}()
	slog.Info("cache initialized", "redis", cfg.UseRedisCache())

	// Core services
	queries := store.New(db)
	languageRegistry := registry.New(queries)
	translationMap := langmap.New(queries, cacheBackend)
	eventService := service.NewEventService(db)
	langResolver := resolver.New(languageRegistry)
	listingFilter := listing.New(queries, translationMap)
	treeTranslator := fieldtree.New(queries, translationMap)

	jobPipeline := pipeline.New(db, languageRegistry, translationMap, eventService, logger)
	debouncer := pipeline.NewDebouncer(jobPipeline, cfg.DebounceInterval(), logger)
	defer debouncer.Stop()

	// Translation worker
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	if cfg.OpenAIAPIKey != "" {
		provider := executor.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
		translationService := executor.New(queries, provider, cfg.ChatModel)
		worker := pipeline.NewWorker(jobPipeline, translationService,
			cfg.WorkerPollInterval(), cfg.WorkerMaxPerSecond, logger)
		go worker.Run(workerCtx)
	} else {
		slog.Warn("no translation provider configured, queue jobs will not be processed")
	}

	// Scheduler for the stale-job sweep and optional backfill
	sched := scheduler.New(jobPipeline, eventService, cfg.BackfillCron, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	// Router
	r := handler.NewRouter(handler.RouterDeps{
		Resolver:  langResolver,
		Health:    handler.NewHealthHandler(db),
		Languages: handler.NewLanguageHandler(languageRegistry, queries, eventService, logger),
		Jobs:      handler.NewJobHandler(jobPipeline, logger),
		Notify:    handler.NewNotifyHandler(queries, debouncer, logger),
		Content:   handler.NewContentHandler(queries, translationMap, listingFilter, treeTranslator, logger),
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
