package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/maltedev/flipkart-scraper/internal/models"
)

// FileStore keeps products in a single JSON file. Every write rewrites the
// file through a temp file and rename, so a crash never leaves it half
// written.
type FileStore struct {
	mu       sync.RWMutex
	products []models.StoredProduct
	nextID   int64
	filename string
}

func NewFileStore(filename string) (*FileStore, error) {
	fs := &FileStore{
		filename: filename,
		nextID:   1,
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	if err := fs.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load %s: %w", filename, err)
	}

	return fs, nil
}

func (fs *FileStore) InsertBatch(ctx context.Context, records []models.ProductRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	prevLen, prevID := len(fs.products), fs.nextID
	now := time.Now().UTC()
	for _, rec := range records {
		fs.products = append(fs.products, models.StoredProduct{
			ID:            fs.nextID,
			ProductRecord: rec,
			CreatedAt:     now,
		})
		fs.nextID++
	}

	if err := fs.save(); err != nil {
		fs.products, fs.nextID = fs.products[:prevLen], prevID
		return 0, fmt.Errorf("failed to insert batch: %w", err)
	}

	return len(records), nil
}

func (fs *FileStore) InsertOne(ctx context.Context, record models.ProductRecord) (bool, error) {
	n, err := fs.InsertBatch(ctx, []models.ProductRecord{record})
	return n == 1, err
}

func (fs *FileStore) Count(ctx context.Context) (int, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return len(fs.products), nil
}

func (fs *FileStore) Clear(ctx context.Context) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	prev := fs.products
	fs.products = nil
	if err := fs.save(); err != nil {
		fs.products = prev
		return false, fmt.Errorf("failed to clear products: %w", err)
	}
	return true, nil
}

func (fs *FileStore) List(ctx context.Context, limit int) ([]models.StoredProduct, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	n := len(fs.products)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]models.StoredProduct, n)
	copy(out, fs.products[:n])
	return out, nil
}

func (fs *FileStore) Close() error {
	return nil
}

func (fs *FileStore) save() error {
	data, err := json.MarshalIndent(fs.products, "", "  ")
	if err != nil {
		return err
	}

	tmpFile := fs.filename + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tmpFile, fs.filename)
}

func (fs *FileStore) load() error {
	data, err := os.ReadFile(fs.filename)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, &fs.products); err != nil {
		return err
	}

	for _, p := range fs.products {
		if p.ID >= fs.nextID {
			fs.nextID = p.ID + 1
		}
	}
	return nil
}
