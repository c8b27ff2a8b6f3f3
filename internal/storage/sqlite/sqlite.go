// Package sqlite stores products in a local SQLite file through the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/maltedev/flipkart-scraper/internal/models"
)

//go:embed schema.sql
var schema string

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema. path may be ":memory:".
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// one connection keeps :memory: databases and write locking simple
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) InsertBatch(ctx context.Context, records []models.ProductRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO product_info (title, image_url, price, created_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec.Title, rec.ImageURL, rec.Price, now); err != nil {
			return 0, fmt.Errorf("failed to insert batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit batch: %w", err)
	}

	return len(records), nil
}

func (s *Store) InsertOne(ctx context.Context, record models.ProductRecord) (bool, error) {
	n, err := s.InsertBatch(ctx, []models.ProductRecord{record})
	return n == 1, err
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM product_info`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

func (s *Store) Clear(ctx context.Context) (bool, error) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM product_info`); err != nil {
		return false, fmt.Errorf("failed to clear products: %w", err)
	}
	return true, nil
}

func (s *Store) List(ctx context.Context, limit int) ([]models.StoredProduct, error) {
	query := `SELECT id, title, COALESCE(image_url, ''), COALESCE(price, ''), created_at FROM product_info ORDER BY id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []models.StoredProduct
	for rows.Next() {
		var (
			p       models.StoredProduct
			created string
		)
		if err := rows.Scan(&p.ID, &p.Title, &p.ImageURL, &p.Price, &created); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			p.CreatedAt = t
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
