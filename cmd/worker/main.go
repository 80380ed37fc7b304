package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go-catalog-search/internal/config"
	"go-catalog-search/internal/database"
	"go-catalog-search/internal/logging"
	"go-catalog-search/internal/queue"
	"go-catalog-search/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "component", "worker", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		slog.Error("logger init failed", "component", "worker", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	// ── Infrastructure ─────────────────────────────────────────────────────────

	db, err := database.Connect(cfg.PostgresDSN)
	if err != nil {
		slog.Error("postgres connect failed", "component", "worker", "error", err)
		os.Exit(1)
	}

	if err := db.Migrate(context.Background()); err != nil {
		slog.Error("postgres migrate failed", "component", "worker", "error", err)
		os.Exit(1)
	}

	consumer, err := queue.NewConsumer(cfg.RabbitMQURL)
	if err != nil {
		slog.Error("rabbitmq connect failed", "component", "worker", "error", err)
		os.Exit(1)
	}

	// ── Run ────────────────────────────────────────────────────────────────────
	//
	// ctx is cancelled on SIGINT/SIGTERM, which makes worker.Run finish the
	// current in-flight message and return before connections are closed.

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := worker.New(db, consumer)
	if err := w.Run(ctx); err != nil {
		slog.Error("worker error", "component", "worker", "error", err)
	}

	// ── Graceful shutdown ──────────────────────────────────────────────────────

	consumer.Close()
	db.Conn.Close()

	slog.Info("worker stopped", "component", "worker")
}
