package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_PutOpen(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir())

	require.NoError(t, store.Put(ctx, "models/a.bin", strings.NewReader("hello"), 5))

	r, err := store.Open(ctx, "models/a.bin")
	require.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestLocalStore_OpenMissing(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir())

	_, err := store.Open(ctx, "missing.bin")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_PutLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewLocalStore(dir)

	require.NoError(t, store.Put(ctx, "a.bin", strings.NewReader("x"), 1))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.bin", entries[0].Name())
}

func TestLocalStore_PutOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir())

	require.NoError(t, store.Put(ctx, "a.bin", strings.NewReader("one"), 3))
	require.NoError(t, store.Put(ctx, "a.bin", strings.NewReader("two"), 3))

	r, err := store.Open(ctx, "a.bin")
	require.NoError(t, err)
	defer r.Close()
	data, _ := io.ReadAll(r)
	assert.Equal(t, "two", string(data))
}

func TestLocalStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir())

	require.NoError(t, store.Put(ctx, "a.bin", strings.NewReader("x"), 1))
	require.NoError(t, store.Delete(ctx, "a.bin"))
	require.NoError(t, store.Delete(ctx, "a.bin")) // idempotent

	_, err := store.Open(ctx, "a.bin")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_List(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewLocalStore(dir)

	require.NoError(t, store.Put(ctx, "models/b.bin", strings.NewReader("x"), 1))
	require.NoError(t, store.Put(ctx, "models/a.bin", strings.NewReader("x"), 1))
	require.NoError(t, store.Put(ctx, "other.txt", strings.NewReader("x"), 1))

	names, err := store.List(ctx, "models/")
	require.NoError(t, err)
	assert.Equal(t, []string{"models/a.bin", "models/b.bin"}, names)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLocalStore_ListMissingRoot(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(filepath.Join(t.TempDir(), "nope"))

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, names)
}
