package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/maltedev/flipkart-scraper/internal/api"
	"github.com/maltedev/flipkart-scraper/internal/app"
	"github.com/maltedev/flipkart-scraper/internal/config"
	"github.com/maltedev/flipkart-scraper/internal/jobs"
	"github.com/maltedev/flipkart-scraper/internal/queue"
)

const maxPendingJobs = 100

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logger := app.NewLogger(cfg.Logging)

	ctx, cancel := app.SignalContext(context.Background(), logger)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize scraper", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	// Start job worker
	jobManager := jobs.NewManager(a.Orchestrator, queue.NewInMemoryQueue(maxPendingJobs), logger)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		jobManager.StartWorker(ctx)
	}()

	handlers := api.NewHandlers(jobManager, a.Store, cfg.Scraper.MaxPages, logger)
	router := api.NewRouter(handlers, api.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		RequestTimeout: cfg.Server.WriteTimeout,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		logger.Info("shutting down server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("server starting", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		cancel()
	}

	// The worker finishes the run in progress; its session is released
	// before storage is closed.
	<-workerDone
	logger.Info("server stopped")
}
