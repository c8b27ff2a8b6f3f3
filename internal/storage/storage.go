package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maltedev/flipkart-scraper/internal/config"
	"github.com/maltedev/flipkart-scraper/internal/database"
	"github.com/maltedev/flipkart-scraper/internal/models"
	"github.com/maltedev/flipkart-scraper/internal/storage/sqlite"
)

var ErrUnknownDriver = errors.New("unknown storage driver")

// Store persists product records. InsertBatch is all-or-nothing: on failure
// nothing from the batch is kept.
type Store interface {
	InsertBatch(ctx context.Context, records []models.ProductRecord) (int, error)
	InsertOne(ctx context.Context, record models.ProductRecord) (bool, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) (bool, error)
	// List returns stored products in insertion order. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]models.StoredProduct, error)
	Close() error
}

// Open connects to the backend named by cfg.Driver and makes sure the
// product table exists.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (Store, error) {
	logger = logger.With("component", "storage", "driver", cfg.Driver)

	switch cfg.Driver {
	case "sqlite", "":
		store, err := sqlite.Open(ctx, cfg.Name)
		if err != nil {
			return nil, err
		}
		logger.Info("using sqlite storage", "path", cfg.Name)
		return store, nil

	case "postgres":
		db, err := database.New(ctx, database.Config{
			Host:     cfg.Host,
			Port:     cfg.Port,
			User:     cfg.User,
			Password: cfg.Password,
			Database: cfg.Name,
			SSLMode:  cfg.SSLMode,
			MaxConns: cfg.MaxConns,
		})
		if err != nil {
			return nil, err
		}
		repo := database.NewProductRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("using postgres storage", "host", cfg.Host, "database", cfg.Name)
		return repo, nil

	case "file":
		store, err := NewFileStore(cfg.FilePath)
		if err != nil {
			return nil, err
		}
		logger.Info("using file storage", "path", cfg.FilePath)
		return store, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
