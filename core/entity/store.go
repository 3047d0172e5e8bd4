package entity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"mod-registry/core/apperr"
	"mod-registry/core/kv"
)

// Partition identifies one of the two storage scopes: the global public
// mirror, or a tenant's private partition.
type Partition string

// Public is the globally readable mirror partition.
const Public Partition = "public"

// Registry holds cross-tenant pointer indexes (e.g. mod id -> owner id)
// so lookups by id never have to scan tenant partitions. It contains no
// entity records.
const Registry Partition = "registry"

// Private returns the private partition of the given tenant.
func Private(tenantID string) Partition {
	return Partition("tenant:" + tenantID)
}

// Type is the entity type segment of a storage key.
type Type string

const (
	TypeMod     Type = "mod"
	TypeVersion Type = "version"
	TypeVariant Type = "variant"
)

// Store performs typed get/put/delete of JSON-serialized records keyed by
// (partition, type, id). Entities are opaque to the store; it does no
// validation of their shape. Every put and delete is a single key-value
// write with no multi-key atomicity.
type Store struct {
	kv kv.Store
}

// NewStore creates an entity store over the given key-value backend.
func NewStore(backend kv.Store) *Store {
	return &Store{kv: backend}
}

// Key returns the backing-store key for an entity.
func Key(p Partition, typ Type, id string) string {
	return fmt.Sprintf("ent/%s/%s/%s", p, typ, id)
}

// Get loads the entity into out, which must be a pointer.
func (s *Store) Get(ctx context.Context, p Partition, typ Type, id string, out any) error {
	raw, err := s.kv.Get(ctx, Key(p, typ, id))
	if errors.Is(err, kv.ErrKeyNotFound) {
		return apperr.New(apperr.KindNotFound, "%s %s not found", typ, id)
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", typ, id, err)
	}
	return nil
}

// Exists reports whether the entity is present in the partition.
func (s *Store) Exists(ctx context.Context, p Partition, typ Type, id string) (bool, error) {
	_, err := s.kv.Get(ctx, Key(p, typ, id))
	if errors.Is(err, kv.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Put stores the entity, overwriting any previous record.
func (s *Store) Put(ctx context.Context, p Partition, typ Type, id string, in any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", typ, id, err)
	}
	return s.kv.Put(ctx, Key(p, typ, id), raw)
}

// Delete removes the entity. Deleting an absent entity is not an error.
func (s *Store) Delete(ctx context.Context, p Partition, typ Type, id string) error {
	return s.kv.Delete(ctx, Key(p, typ, id))
}

// ListIDs pages through the ids of all entities of a type in a partition.
func (s *Store) ListIDs(ctx context.Context, p Partition, typ Type, cursor string, limit int) ([]string, string, error) {
	prefix := Key(p, typ, "")
	keys, next, err := s.kv.List(ctx, prefix, cursor, limit)
	if err != nil {
		return nil, "", err
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, k[len(prefix):])
	}
	return ids, next, nil
}

// GetExisting batch-fetches entities by id, silently skipping missing ones.
func GetExisting[T any](ctx context.Context, s *Store, p Partition, typ Type, ids []string) ([]T, error) {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		var item T
		err := s.Get(ctx, p, typ, id, &item)
		if apperr.IsKind(err, apperr.KindNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}
