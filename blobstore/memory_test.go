package blobstore

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PutOpen(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Put(ctx, "a.bin", strings.NewReader("hello"), 5))

	r, err := store.Open(ctx, "a.bin")
	require.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestMemoryStore_OpenMissing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Open(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_DeleteAndList(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Put(ctx, "models/b", strings.NewReader("x"), 1))
	require.NoError(t, store.Put(ctx, "models/a", strings.NewReader("x"), 1))
	require.NoError(t, store.Put(ctx, "other", strings.NewReader("x"), 1))

	names, err := store.List(ctx, "models/")
	require.NoError(t, err)
	assert.Equal(t, []string{"models/a", "models/b"}, names)

	require.NoError(t, store.Delete(ctx, "models/a"))
	require.NoError(t, store.Delete(ctx, "models/a")) // idempotent

	names, err = store.List(ctx, "models/")
	require.NoError(t, err)
	assert.Equal(t, []string{"models/b"}, names)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, "shared", strings.NewReader("data"), 4))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := store.Open(ctx, "shared")
			assert.NoError(t, err)
			if err == nil {
				_, _ = io.ReadAll(r)
				_ = r.Close()
			}
			_ = store.Put(ctx, "shared", strings.NewReader("data"), 4)
		}()
	}
	wg.Wait()
}
