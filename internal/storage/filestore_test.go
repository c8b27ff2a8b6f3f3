package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/flipkart-scraper/internal/models"
)

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "products.json")

	store, err := NewFileStore(path)
	require.NoError(t, err)

	n, err := store.InsertBatch(ctx, []models.ProductRecord{
		{Title: "Phone A", Price: "₹9,999", ImageURL: "https://img/a.jpg"},
		{Title: "Phone B", Price: models.PriceUnavailable},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ok, err := store.InsertOne(ctx, models.ProductRecord{Title: "Phone C", Price: "₹1"})
	require.NoError(t, err)
	assert.True(t, ok)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// reopen from disk
	reopened, err := NewFileStore(path)
	require.NoError(t, err)

	all, err := reopened.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Phone A", all[0].Title)
	assert.Equal(t, int64(1), all[0].ID)
	assert.Equal(t, int64(3), all[2].ID)
	assert.False(t, all[0].CreatedAt.IsZero())

	limited, err := reopened.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	// ids keep increasing after reload
	_, err = reopened.InsertOne(ctx, models.ProductRecord{Title: "Phone D", Price: "₹2"})
	require.NoError(t, err)
	all, _ = reopened.List(ctx, 0)
	assert.Equal(t, int64(4), all[3].ID)
}

func TestFileStoreClear(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "products.json"))
	require.NoError(t, err)

	_, err = store.InsertBatch(ctx, []models.ProductRecord{{Title: "x", Price: "N/A"}})
	require.NoError(t, err)

	ok, err := store.Clear(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	count, _ := store.Count(ctx)
	assert.Zero(t, count)
}

func TestFileStoreEmptyBatch(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "products.json"))
	require.NoError(t, err)

	n, err := store.InsertBatch(context.Background(), nil)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path)
	assert.Error(t, err)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), configWithDriver("mysql"), discardLogger())
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestOpenFileAndSQLite(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cfg := configWithDriver("file")
	cfg.FilePath = filepath.Join(dir, "products.json")
	store, err := Open(ctx, cfg, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)
	require.NoError(t, store.Close())

	cfg = configWithDriver("sqlite")
	cfg.Name = filepath.Join(dir, "products.db")
	store, err = Open(ctx, cfg, discardLogger())
	require.NoError(t, err)
	defer store.Close()

	n, err := store.InsertBatch(ctx, []models.ProductRecord{{Title: "Phone A", Price: "₹9,999"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
