package kv

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStoreFromClient(client)
}

func TestPutGetDelete(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, store.Put(ctx, "a/b/c", []byte(`{"id":"c"}`)))

	val, err := store.Get(ctx, "a/b/c")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"id":"c"}`), val)

	// Overwrite is silent.
	require.NoError(t, store.Put(ctx, "a/b/c", []byte(`{"id":"c2"}`)))
	val, err = store.Get(ctx, "a/b/c")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"id":"c2"}`), val)

	require.NoError(t, store.Delete(ctx, "a/b/c"))
	_, err = store.Get(ctx, "a/b/c")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// Deleting an absent key is not an error.
	require.NoError(t, store.Delete(ctx, "a/b/c"))
}

func TestListPrefix(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		require.NoError(t, store.Put(ctx, fmt.Sprintf("idx/public/by-visibility/public/m%02d", i), []byte("1")))
	}
	require.NoError(t, store.Put(ctx, "idx/public/by-slug/super-pack", []byte("m00")))

	keys, err := ListAll(ctx, store, "idx/public/by-visibility/public/")
	require.NoError(t, err)
	assert.Len(t, keys, 25)
	for _, k := range keys {
		assert.Contains(t, k, "by-visibility/public/m")
	}

	// Unmatched prefix yields nothing.
	keys, err = ListAll(ctx, store, "idx/public/by-visibility/private/")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestListPagination(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		require.NoError(t, store.Put(ctx, fmt.Sprintf("ent/public/mod/m%03d", i), []byte("{}")))
	}

	// Walk pages manually with a small page size; the scan must terminate
	// and cover every key.
	seen := make(map[string]struct{})
	cursor := ""
	for {
		page, next, err := store.List(ctx, "ent/public/mod/", cursor, 10)
		require.NoError(t, err)
		for _, k := range page {
			seen[k] = struct{}{}
		}
		if next == "" {
			break
		}
		cursor = next
	}
	assert.Len(t, seen, 100)
}

func TestListInvalidCursor(t *testing.T) {
	store := setupStore(t)

	_, _, err := store.List(context.Background(), "ent/", "not-a-cursor", 10)
	assert.Error(t, err)
}
