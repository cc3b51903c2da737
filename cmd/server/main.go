// Package main is the entrypoint for the FinSight API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/finsight/finsight/internal/analysis"
	"github.com/finsight/finsight/internal/api"
	"github.com/finsight/finsight/internal/api/handler"
	mw "github.com/finsight/finsight/internal/api/middleware"
	"github.com/finsight/finsight/internal/api/response"
	"github.com/finsight/finsight/internal/cache"
	"github.com/finsight/finsight/internal/config"
	"github.com/finsight/finsight/internal/documents"
	"github.com/finsight/finsight/internal/queue"
	"github.com/finsight/finsight/internal/results"
	"github.com/finsight/finsight/internal/store"
	"github.com/finsight/finsight/internal/users"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "analysis_engine", cfg.Analysis.Engine, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	if err := store.RunMigrations(cfg.Database.URL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	engine, err := analysis.NewEngine(cfg.Analysis)
	if err != nil {
		return fmt.Errorf("create analysis engine: %w", err)
	}
	slog.Info("analysis engine initialized", "engine", engine.Name())

	pgStore := store.NewPostgresStore(pool)
	resolver := documents.NewLocalResolver(cfg.Documents.Dir)
	resultStore := results.NewDatabaseStore(pgStore)
	directory := users.NewStoreDirectory(pgStore)

	// The broker being down is fine: submissions degrade to in-process
	// execution. Only a malformed Redis URL fails startup.
	broker, err := queue.NewAsynqBroker(cfg.Redis.URL, cfg.Queue.ProbeTimeout, cfg.Queue.TaskTimeout, cfg.Queue.Concurrency)
	if err != nil {
		return fmt.Errorf("create broker: %w", err)
	}
	defer broker.Shutdown()

	worker := queue.NewWorker(pgStore, resolver, engine, resultStore, cfg.Analysis.Timeout)
	manager := queue.NewManager(pgStore, broker, worker, directory, resolver, redisCache,
		cfg.Queue.StatusTTL)

	deps := api.Dependencies{
		RateLimit: mw.NewRateLimit(redisCache, 60),

		HealthHandler:     healthHandler(pgStore, redisCache, broker),
		SubmitHandler:     handler.NewSubmitHandler(manager),
		JobStatusHandler:  handler.NewJobStatusHandler(manager),
		QueueStatsHandler: handler.NewQueueStatsHandler(manager),
		GetResultHandler:  handler.NewGetResultHandler(resultStore),
		ListOwnerResults:  handler.NewListOwnerResultsHandler(resultStore),
	}

	router := api.NewRouter(deps)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // immediate-mode submissions run the analysis inline
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks database, cache, and broker connectivity. The broker
// being unreachable degrades the queue to fallback mode but does not make the
// service unhealthy.
func healthHandler(s store.Store, c cache.Cache, b queue.Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}
		queueMode := "broker"

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}
		if err := b.Probe(r.Context()); err != nil {
			queueMode = "fallback"
		}
		checks["queue"] = queueMode

		if checks["database"] != "ok" {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
