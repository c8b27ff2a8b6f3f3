package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/maltedev/flipkart-scraper/internal/models"
)

const productSchema = `
	CREATE TABLE IF NOT EXISTS product_info (
		id BIGSERIAL PRIMARY KEY,
		title VARCHAR(500) NOT NULL,
		image_url TEXT,
		price VARCHAR(100),
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

// ProductRepository stores scraped products in the product_info table.
type ProductRepository struct {
	db *DB
}

func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, productSchema); err != nil {
		return fmt.Errorf("failed to create product_info table: %w", err)
	}
	return nil
}

// InsertBatch copies all records in one transaction. Either every record is
// stored or none is.
func (r *ProductRepository) InsertBatch(ctx context.Context, records []models.ProductRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []any{rec.Title, rec.ImageURL, rec.Price})
	}

	var copied int64
	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		copied, err = tx.CopyFrom(ctx,
			pgx.Identifier{"product_info"},
			[]string{"title", "image_url", "price"},
			pgx.CopyFromRows(rows),
		)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert batch: %w", err)
	}

	return int(copied), nil
}

func (r *ProductRepository) InsertOne(ctx context.Context, record models.ProductRecord) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO product_info (title, image_url, price) VALUES ($1, $2, $3)`,
		record.Title, record.ImageURL, record.Price)
	if err != nil {
		return false, fmt.Errorf("failed to insert product: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM product_info`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

func (r *ProductRepository) Clear(ctx context.Context) (bool, error) {
	if _, err := r.db.Exec(ctx, `DELETE FROM product_info`); err != nil {
		return false, fmt.Errorf("failed to clear products: %w", err)
	}
	return true, nil
}

func (r *ProductRepository) List(ctx context.Context, limit int) ([]models.StoredProduct, error) {
	query := `
		SELECT id, title, COALESCE(image_url, ''), COALESCE(price, ''), created_at
		FROM product_info
		ORDER BY id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []models.StoredProduct
	for rows.Next() {
		var p models.StoredProduct
		if err := rows.Scan(&p.ID, &p.Title, &p.ImageURL, &p.Price, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

func (r *ProductRepository) Close() error {
	r.db.Close()
	return nil
}
