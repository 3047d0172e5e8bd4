package kv

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by Get when the key does not exist.
var ErrKeyNotFound = errors.New("kv: key not found")

// Store is the key-value backend the entity and index stores are built on.
//
// The backend offers durability for single-key writes only: there is no
// multi-key atomicity, no transactions and no cross-key ordering. Callers
// must sequence multi-step operations so that a crash between steps leaves
// a recoverable state.
type Store interface {
	// Get returns the value stored at key, or ErrKeyNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores value at key, overwriting any previous value.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns up to limit keys matching prefix, starting from cursor.
	// An empty cursor starts a scan; a returned empty next cursor ends it.
	// No ordering is guaranteed across pages.
	List(ctx context.Context, prefix, cursor string, limit int) (keys []string, next string, err error)
	// Close releases the backend connection.
	Close() error
}

// ListAll drains a paginated List into a de-duplicated key slice.
// Intended for bounded sets such as index members, not whole-store scans.
func ListAll(ctx context.Context, store Store, prefix string) ([]string, error) {
	seen := make(map[string]struct{})
	var keys []string
	cursor := ""
	for {
		page, next, err := store.List(ctx, prefix, cursor, 1000)
		if err != nil {
			return nil, err
		}
		for _, k := range page {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
		if next == "" {
			return keys, nil
		}
		cursor = next
	}
}
