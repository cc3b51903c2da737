// Package main is the entrypoint for the FinSight analysis worker. It consumes
// jobs dispatched by the API server and runs them to completion. Multiple
// worker processes can run side by side; the jobs table's conditional status
// update guarantees each job is executed once.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/finsight/finsight/internal/analysis"
	"github.com/finsight/finsight/internal/config"
	"github.com/finsight/finsight/internal/documents"
	"github.com/finsight/finsight/internal/queue"
	"github.com/finsight/finsight/internal/results"
	"github.com/finsight/finsight/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	engine, err := analysis.NewEngine(cfg.Analysis)
	if err != nil {
		return fmt.Errorf("create analysis engine: %w", err)
	}
	slog.Info("analysis engine initialized", "engine", engine.Name())

	pgStore := store.NewPostgresStore(pool)
	resolver := documents.NewLocalResolver(cfg.Documents.Dir)
	resultStore := results.NewDatabaseStore(pgStore)

	broker, err := queue.NewAsynqBroker(cfg.Redis.URL, cfg.Queue.ProbeTimeout, cfg.Queue.TaskTimeout, cfg.Queue.Concurrency)
	if err != nil {
		return fmt.Errorf("create broker: %w", err)
	}

	worker := queue.NewWorker(pgStore, resolver, engine, resultStore, cfg.Analysis.Timeout)

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, stopping consume loop...")
		broker.Shutdown()
	}()

	if err := broker.Serve(worker.Execute); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	slog.Info("worker stopped gracefully")
	return nil
}
