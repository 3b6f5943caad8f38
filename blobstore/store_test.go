package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("PutGet", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "patterns/a.json", []byte("alpha")))

		data, err := store.Get(ctx, "patterns/a.json")
		require.NoError(t, err)
		assert.Equal(t, []byte("alpha"), data)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "patterns/a.json", []byte("beta")))

		data, err := store.Get(ctx, "patterns/a.json")
		require.NoError(t, err)
		assert.Equal(t, []byte("beta"), data)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := store.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ListSorted", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "inbox/002", []byte("2")))
		require.NoError(t, store.Put(ctx, "inbox/001", []byte("1")))
		require.NoError(t, store.Put(ctx, "inbox/010", []byte("10")))

		names, err := store.List(ctx, "inbox/")
		require.NoError(t, err)
		assert.Equal(t, []string{"inbox/001", "inbox/002", "inbox/010"}, names)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "inbox/001"))
		require.NoError(t, store.Delete(ctx, "inbox/001"), "deleting twice is fine")

		_, err := store.Get(ctx, "inbox/001")
		assert.ErrorIs(t, err, ErrNotFound)

		names, err := store.List(ctx, "inbox/")
		require.NoError(t, err)
		assert.Equal(t, []string{"inbox/002", "inbox/010"}, names)
	})

	t.Run("Canceled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, store.Put(cctx, "x", nil), context.Canceled)
	})
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	testStore(t, store)
	assert.Equal(t, 3, store.Len())

	t.Run("CopiesData", func(t *testing.T) {
		ctx := context.Background()
		data := []byte("mutable")
		require.NoError(t, store.Put(ctx, "m", data))
		data[0] = 'X'

		got, err := store.Get(ctx, "m")
		require.NoError(t, err)
		assert.Equal(t, "mutable", string(got))
	})
}

func TestLocalStore(t *testing.T) {
	root := t.TempDir()
	testStore(t, NewLocalStore(root))

	_, err := os.Stat(filepath.Join(root, "patterns", "a.json"))
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(root, "patterns"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestLocalStore_ListMissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "absent"))

	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}
