// Package app assembles the scraper from configuration. Both binaries build
// their dependencies through New so the CLI and the API run the same pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/maltedev/flipkart-scraper/internal/browser"
	"github.com/maltedev/flipkart-scraper/internal/config"
	"github.com/maltedev/flipkart-scraper/internal/events"
	"github.com/maltedev/flipkart-scraper/internal/parser"
	"github.com/maltedev/flipkart-scraper/internal/ratelimit"
	"github.com/maltedev/flipkart-scraper/internal/scraper"
	"github.com/maltedev/flipkart-scraper/internal/storage"
	"github.com/maltedev/flipkart-scraper/pkg/logger"
)

const redisPingTimeout = 5 * time.Second

type App struct {
	Config       *config.Config
	Logger       *slog.Logger
	Store        storage.Store
	Publisher    events.Publisher
	Orchestrator *scraper.Orchestrator
}

// NewLogger builds the process logger from the logging section.
func NewLogger(cfg config.LoggingConfig) *slog.Logger {
	var opts []logger.Option
	if cfg.File != "" {
		opts = append(opts, logger.WithRotatingFile(cfg.File, cfg.MaxSizeMB, cfg.MaxAgeDays))
	}
	return logger.New(cfg.Level, cfg.Format, opts...)
}

// New opens storage, connects the event stream when enabled and wires the
// orchestrator. The browser is not started here; each run acquires its own
// session.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	launcher, err := browser.LauncherFor(browser.Driver(cfg.Browser.Driver))
	if err != nil {
		return nil, err
	}

	tables, err := loadTables(cfg.Scraper.SelectorsFile)
	if err != nil {
		return nil, err
	}
	log.Info("selector tables loaded", "version", tables.Version)

	store, err := storage.Open(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	publisher, err := newPublisher(ctx, cfg.Redis, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	fetcher := scraper.NewFetcher(scraper.FetchOptions{
		NavigationTimeout:  cfg.Scraper.NavigationTimeout,
		ReadinessTimeout:   cfg.Scraper.ReadinessTimeout,
		ReadinessSelectors: tables.Readiness.Selectors,
	}, ratelimit.NewFixedDelay(cfg.Scraper.DelayBetweenRequests), log)

	orchestrator := scraper.NewOrchestrator(cfg.Scraper, scraper.Dependencies{
		Launcher:       launcher,
		BrowserOptions: BrowserOptions(cfg.Browser),
		Fetcher:        fetcher,
		Parser:         parser.NewLayoutParser(tables, log),
		Store:          store,
		Publisher:      publisher,
		Logger:         log,
	})

	return &App{
		Config:       cfg,
		Logger:       log,
		Store:        store,
		Publisher:    publisher,
		Orchestrator: orchestrator,
	}, nil
}

// BrowserOptions maps the browser section onto session options.
func BrowserOptions(cfg config.BrowserConfig) *browser.Options {
	opts := browser.DefaultOptions()
	if cfg.Driver != "" {
		opts.Driver = browser.Driver(cfg.Driver)
	}
	opts.Headless = cfg.Headless
	opts.DisableSandbox = cfg.DisableSandbox
	opts.BinaryPath = cfg.BinaryPath
	if cfg.Timeout > 0 {
		opts.Timeout = cfg.Timeout
	}
	if cfg.UserAgent != "" {
		opts.UserAgent = cfg.UserAgent
	}
	if cfg.ViewportWidth > 0 && cfg.ViewportHeight > 0 {
		opts.ViewportWidth = cfg.ViewportWidth
		opts.ViewportHeight = cfg.ViewportHeight
	}
	return opts
}

func loadTables(path string) (parser.Tables, error) {
	if path == "" {
		return parser.DefaultTables(), nil
	}
	tables, err := parser.LoadTables(path)
	if err != nil {
		return parser.Tables{}, fmt.Errorf("failed to load selectors: %w", err)
	}
	return tables, nil
}

func newPublisher(ctx context.Context, cfg config.RedisConfig, log *slog.Logger) (events.Publisher, error) {
	if !cfg.Enabled {
		return events.NopPublisher{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("publishing run events", "addr", cfg.Addr, "stream", cfg.Stream)
	return events.NewRedisPublisher(client, cfg.Stream, log), nil
}

func (a *App) Close() error {
	return errors.Join(a.Publisher.Close(), a.Store.Close())
}
