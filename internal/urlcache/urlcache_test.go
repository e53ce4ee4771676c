package urlcache

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()

	store, err := Open(path, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestStore_RoundTrip(t *testing.T) {
	store := openTestStore(t, ":memory:")
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "storage-url", "https://store.example/v1/acct"))

	value, ok, err := store.Get(ctx, "storage-url")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://store.example/v1/acct", value)
}

func TestStore_Miss(t *testing.T) {
	store := openTestStore(t, ":memory:")

	value, ok, err := store.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, value)
}

func TestStore_Overwrite(t *testing.T) {
	store := openTestStore(t, ":memory:")
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "storage-url", "https://old.example/v1"))
	require.NoError(t, store.Set(ctx, "storage-url", "https://new.example/v1"))

	value, ok, err := store.Get(ctx, "storage-url")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://new.example/v1", value)
}

func TestStore_Delete(t *testing.T) {
	store := openTestStore(t, ":memory:")
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "storage-url", "https://store.example/v1"))
	require.NoError(t, store.Delete(ctx, "storage-url"))

	_, ok, err := store.Get(ctx, "storage-url")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting a missing key is a no-op.
	require.NoError(t, store.Delete(ctx, "storage-url"))
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "endpoints.db")
	ctx := context.Background()

	first, err := Open(path, slog.Default())
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "storage-url", "https://store.example/v1/acct"))
	require.NoError(t, first.Close())

	second := openTestStore(t, path)

	value, ok, err := second.Get(ctx, "storage-url")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://store.example/v1/acct", value)
}
