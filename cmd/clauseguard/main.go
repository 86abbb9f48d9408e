// ClauseGuard - Contract compliance and risk scoring for UK SMEs.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/opensource-finance/clauseguard/internal/api"
	"github.com/opensource-finance/clauseguard/internal/assess"
	"github.com/opensource-finance/clauseguard/internal/bus"
	"github.com/opensource-finance/clauseguard/internal/cache"
	"github.com/opensource-finance/clauseguard/internal/config"
	"github.com/opensource-finance/clauseguard/internal/decision"
	"github.com/opensource-finance/clauseguard/internal/domain"
	"github.com/opensource-finance/clauseguard/internal/metrics"
	"github.com/opensource-finance/clauseguard/internal/ratelimit"
	"github.com/opensource-finance/clauseguard/internal/repository"
	"github.com/opensource-finance/clauseguard/internal/rules"
	"github.com/opensource-finance/clauseguard/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (overrides "+config.FileEnv+")")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	slog.Info("starting clauseguard",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace)
		if cb, ok := busImpl.(*bus.ChannelBus); ok {
			m.WatchBusDrops(cb.Dropped)
		}
	}

	catalog, err := rules.DefaultCatalog()
	if err != nil {
		slog.Error("failed to build rule catalog", "error", err)
		os.Exit(1)
	}
	registry := rules.NewRegistry(catalog, repo)
	slog.Info("rule catalog initialized", "rules_count", catalog.Len())

	service := assess.New(catalog, assess.WithLogger(logger))

	recorder := decision.NewRecorder(decision.NewProcessor(), repo, cacheImpl, busImpl,
		decision.WithCacheTTL(cfg.Cache.AssessmentTTL),
		decision.WithMetrics(m),
		decision.WithLogger(logger),
	)

	var asyncWorker *worker.Worker
	if cfg.Worker.Enabled {
		asyncWorker = worker.NewWorker(busImpl, service, registry, recorder,
			worker.WithMetrics(m),
			worker.WithLogger(logger),
		)
		if err := asyncWorker.Start(worker.Config{TenantIDs: cfg.Worker.Tenants}); err != nil {
			slog.Error("failed to start async worker", "error", err)
			asyncWorker = nil
		} else {
			slog.Info("async worker started", "tenants", strings.Join(cfg.Worker.Tenants, ","))
		}
	}

	srv := api.NewServer(cfg.Server, api.Dependencies{
		Repo:     repo,
		Cache:    cacheImpl,
		Bus:      busImpl,
		Service:  service,
		Registry: registry,
		Recorder: recorder,
		Limiter:  ratelimit.New(cacheImpl, cfg.RateLimit),
		Metrics:  m,
		Worker:   asyncWorker,
		Version:  Version,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("clauseguard is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("clauseguard shutdown complete")
}

func newLogger(cfg domain.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  +-------------------------------------------+")
	fmt.Println("  |               CLAUSEGUARD                 |")
	fmt.Println("  |   Contract Compliance & Risk Scoring      |")
	fmt.Println("  |      Read the small print first.          |")
	fmt.Println("  +-------------------------------------------+")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST   /validate           - Compliance check")
	fmt.Println("    POST   /assess             - Compliance and risk assessment")
	fmt.Println("    POST   /contracts          - Queue a contract for async assessment")
	fmt.Println("    GET    /assessments        - List recent assessments")
	fmt.Println("    GET    /assessments/{id}   - Get assessment by ID")
	fmt.Println("    GET    /rules              - List rules (filterable)")
	fmt.Println("    POST   /rules              - Create a tenant rule")
	fmt.Println("    DELETE /rules/{id}         - Remove a tenant rule")
	fmt.Println("    POST   /rules/reload       - Reload tenant rules")
	fmt.Println("    GET    /health             - Health check")
	fmt.Println("    GET    /metrics            - Prometheus metrics")
	fmt.Println()
}
