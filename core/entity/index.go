package entity

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"mod-registry/core/apperr"
	"mod-registry/core/kv"
)

// Index maintains secondary indexes on top of the entity store: set-valued
// (one backing key per member, listed by prefix), and single-valued (one
// backing key holding the value). Adjacency lists (children of an entity)
// use the set-valued form with child ids as members.
//
// Index updates are not transactional with the entity writes they
// accompany. The convention throughout the service: write the entity
// before adding it to an index, and remove it from indexes before deleting
// it, so a half-completed operation never leaves an index entry pointing
// at a missing entity.
type Index struct {
	kv kv.Store
}

// NewIndex creates an index store over the given key-value backend.
func NewIndex(backend kv.Store) *Index {
	return &Index{kv: backend}
}

func memberKey(p Partition, name, key, member string) string {
	return fmt.Sprintf("idx/%s/%s/%s/%s", p, name, key, member)
}

func singleKey(p Partition, name, key string) string {
	return fmt.Sprintf("uniq/%s/%s/%s", p, name, key)
}

// Add inserts member into the set index[name][key]. Idempotent.
func (ix *Index) Add(ctx context.Context, p Partition, name, key, member string) error {
	return ix.kv.Put(ctx, memberKey(p, name, key, member), []byte("1"))
}

// Remove deletes member from the set. Removing an absent member is not an error.
func (ix *Index) Remove(ctx context.Context, p Partition, name, key, member string) error {
	return ix.kv.Delete(ctx, memberKey(p, name, key, member))
}

// Members returns every member of the set, sorted for determinism.
func (ix *Index) Members(ctx context.Context, p Partition, name, key string) ([]string, error) {
	prefix := memberKey(p, name, key, "")
	keys, err := kv.ListAll(ctx, ix.kv, prefix)
	if err != nil {
		return nil, err
	}
	members := make([]string, 0, len(keys))
	for _, k := range keys {
		members = append(members, k[len(prefix):])
	}
	sort.Strings(members)
	return members, nil
}

// SetSingle stores a single-valued entry. With overwrite false it fails
// with a Conflict when the key already holds a different value; re-setting
// the same value is idempotent.
func (ix *Index) SetSingle(ctx context.Context, p Partition, name, key, value string, overwrite bool) error {
	k := singleKey(p, name, key)
	if !overwrite {
		existing, err := ix.kv.Get(ctx, k)
		if err != nil && !errors.Is(err, kv.ErrKeyNotFound) {
			return err
		}
		if err == nil && string(existing) != value {
			return apperr.New(apperr.KindConflict, "index %s key %q already taken", name, key)
		}
	}
	return ix.kv.Put(ctx, k, []byte(value))
}

// GetSingle returns the value of a single-valued entry, or NotFound.
func (ix *Index) GetSingle(ctx context.Context, p Partition, name, key string) (string, error) {
	raw, err := ix.kv.Get(ctx, singleKey(p, name, key))
	if errors.Is(err, kv.ErrKeyNotFound) {
		return "", apperr.New(apperr.KindNotFound, "index %s has no entry for %q", name, key)
	}
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// EntriesSingle returns every entry of a single-valued index as key -> value.
// Entries deleted mid-scan are skipped. Intended for reconciliation sweeps,
// not request paths.
func (ix *Index) EntriesSingle(ctx context.Context, p Partition, name string) (map[string]string, error) {
	prefix := singleKey(p, name, "")
	keys, err := kv.ListAll(ctx, ix.kv, prefix)
	if err != nil {
		return nil, err
	}
	entries := make(map[string]string, len(keys))
	for _, k := range keys {
		raw, err := ix.kv.Get(ctx, k)
		if errors.Is(err, kv.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		entries[k[len(prefix):]] = string(raw)
	}
	return entries, nil
}

// DeleteSingle removes a single-valued entry. Absent entries are not an error.
func (ix *Index) DeleteSingle(ctx context.Context, p Partition, name, key string) error {
	return ix.kv.Delete(ctx, singleKey(p, name, key))
}
