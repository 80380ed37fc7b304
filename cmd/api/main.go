package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-catalog-search/internal/api"
	"go-catalog-search/internal/cache"
	"go-catalog-search/internal/catalog"
	"go-catalog-search/internal/config"
	"go-catalog-search/internal/database"
	"go-catalog-search/internal/logging"
	"go-catalog-search/internal/queue"
	"go-catalog-search/internal/search"
	"go-catalog-search/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		slog.Error("logger init failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	// ── Infrastructure ─────────────────────────────────────────────────────────

	searchClient, err := search.New(search.Config{
		URL:      cfg.ElasticsearchURL,
		Username: cfg.ElasticsearchUsername,
		Password: cfg.ElasticsearchPassword,
		Index:    cfg.ElasticsearchIndex,
		Debug:    cfg.ElasticsearchDebug,
	})
	if err != nil {
		slog.Error("elasticsearch init failed", "error", err)
		os.Exit(1)
	}

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = searchClient.EnsureIndex(bootCtx)
	bootCancel()
	if err != nil {
		slog.Error("elasticsearch index bootstrap failed", "index", searchClient.Index(), "error", err)
		os.Exit(1)
	}

	cacheTTL, _ := cfg.CacheTTL() // validated by config.Load
	redisClient, err := cache.New(cfg.RedisAddr, cacheTTL)
	if err != nil {
		slog.Error("redis connect failed", "error", err)
		os.Exit(1)
	}

	publisher, err := queue.NewPublisher(cfg.RabbitMQURL)
	if err != nil {
		slog.Error("rabbitmq connect failed", "error", err)
		os.Exit(1)
	}

	db, err := database.Connect(cfg.PostgresDSN)
	if err != nil {
		slog.Error("postgres connect failed", "error", err)
		os.Exit(1)
	}

	// ── Background cron ────────────────────────────────────────────────────────

	cronScheduler, err := worker.StartCronJobs(db, cfg.StockReportSchedule)
	if err != nil {
		slog.Error("invalid cron schedule", "schedule", cfg.StockReportSchedule, "error", err)
		os.Exit(1)
	}

	// ── HTTP server ────────────────────────────────────────────────────────────

	h := &api.Handler{
		Catalog:   catalog.New(searchClient, searchClient),
		Cache:     redisClient,
		Publisher: publisher,
		Reports:   db,
		Health:    searchClient,
	}

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("api started", "component", "api", "port", cfg.APIPort, "index", searchClient.Index())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "component", "api", "error", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ──────────────────────────────────────────────────────
	//
	// Shutdown order:
	//  1. Stop accepting new HTTP requests; in-flight requests finish.
	//  2. Stop the cron scheduler, waiting for a running refresh to complete
	//     so db.Conn.Close() does not cut it off mid-query.
	//  3. Close infrastructure clients in reverse init order.

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutdown signal received", "component", "api")

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := srv.Shutdown(httpCtx); err != nil {
		slog.Error("http shutdown error", "component", "api", "error", err)
	}

	<-cronScheduler.Stop().Done()
	slog.Info("cron stopped", "component", "api")

	db.Conn.Close()
	publisher.Close()
	redisClient.Close()

	slog.Info("shutdown complete", "component", "api")
}
