package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"pipeline_board_backend/internal/events"
	apphttp "pipeline_board_backend/internal/http"
	"pipeline_board_backend/internal/http/router"
	"pipeline_board_backend/internal/pipelines"
	"pipeline_board_backend/internal/pipelines/cache"
	"pipeline_board_backend/internal/scheduler"
	"pipeline_board_backend/platform/config"
	"pipeline_board_backend/platform/db"
	"pipeline_board_backend/platform/logger"
	"pipeline_board_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules; the audit trail
	// logs every board mutation published on it.
	eventBus := events.NewInMemoryBus(log)
	events.RegisterAuditTrail(eventBus, log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	pipelinesModule := pipelines.NewModule(pool, eventBus, val, log)

	// Both Redis-backed collaborators are optional: without REDIS_URL the API
	// still serves moves and summaries, just without async history or caching.
	if cfg.RedisURL != "" {
		transferClient, err := scheduler.NewClient(cfg, log)
		if err != nil {
			log.Error("failed to initialize transfer scheduler", "error", err)
		} else {
			defer transferClient.Close()
			pipelinesModule.SetTransferScheduler(transferClient)
			log.Info("transfer scheduler initialized", "queue", cfg.AsynqQueueName)
		}

		summaryCache, err := cache.New(cfg, log)
		if err != nil {
			log.Error("failed to initialize summary cache", "error", err)
		} else {
			defer summaryCache.Close()
			pipelinesModule.SetSummaryCache(summaryCache)
			log.Info("summary cache initialized", "ttl", cfg.SummaryCacheTTL)
		}
	} else {
		log.Warn("REDIS_URL not configured; transfer history and summary cache disabled")
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:    cfg,
		Logger:    log,
		Health:    db.NewPoolAdapter(pool),
		EventBus:  eventBus,
		RateLimit: cfg.RateLimitRPS,
		RateBurst: cfg.RateLimitBurst,
		Modules: []apphttp.Module{
			pipelinesModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
