package reconcile

import (
	"context"
	"time"
)

// EntityRef identifies the entity a blob key is expected to belong to,
// with the attributes duplicate scoring needs.
type EntityRef struct {
	// Type is the entity type (mod, version, variant).
	Type string `json:"type"`

	// ID is the entity id the blob key embeds.
	ID string `json:"id"`

	// ModID is the root mod the entity belongs to.
	ModID string `json:"mod_id"`

	// TenantID is the owning tenant.
	TenantID string `json:"tenant_id"`

	// Status is the root mod's review status.
	Status string `json:"status"`

	// Downloads is the root mod's download counter.
	Downloads int64 `json:"downloads"`

	// UpdatedAt is the root mod's last update time.
	UpdatedAt time.Time `json:"updated_at"`
}

// BlobInfo describes one stored blob.
type BlobInfo struct {
	// Key is the blob's storage key.
	Key string `json:"key"`

	// Size is the blob's byte size.
	Size int64 `json:"size"`

	// LastModified is the blob's storage timestamp.
	LastModified time.Time `json:"last_modified"`

	// MarkedForDeletion reports whether the blob carries the soft-delete marker.
	MarkedForDeletion bool `json:"marked_for_deletion"`
}

// Adapter provides the two indices a scan cross-references. Implementations
// define how expected keys are derived from the entity graph and how the
// blob store is enumerated.
type Adapter interface {
	// Name identifies the adapter; part of the cache key.
	Name() string

	// LoadExpectedIndex builds the map of every blob key the entity graph
	// accounts for. Keys whose extension is not recorded (thumbnails) must
	// appear once per plausible extension.
	LoadExpectedIndex(ctx context.Context) (map[string]EntityRef, error)

	// LoadBlobIndex enumerates every blob actually in storage.
	LoadBlobIndex(ctx context.Context) (map[string]BlobInfo, error)
}

// Spec defines the configuration for a scan.
type Spec struct {
	// Adapter provides the data sources.
	Adapter Adapter

	// CacheTTL is the time-to-live for cached indices.
	// If zero, caching is disabled.
	CacheTTL time.Duration
}

// CacheKey returns a unique key for caching based on spec parameters.
func (s *Spec) CacheKey() string {
	return s.Adapter.Name()
}

// DuplicateMember is one blob inside a same-size group, with its score.
type DuplicateMember struct {
	Key          string    `json:"key"`
	Score        int64     `json:"score"`
	Orphan       bool      `json:"orphan"`
	Status       string    `json:"status,omitempty"`
	Downloads    int64     `json:"downloads"`
	LastModified time.Time `json:"last_modified"`
}

// DuplicateGroup is a set of blobs sharing a byte size. Same size is a
// cheap proxy for content identity, not proof: the group is a list of
// candidates to review, never safe to bulk-delete.
type DuplicateGroup struct {
	// Size is the shared byte size.
	Size int64 `json:"size"`

	// Members are the group's blobs, highest score first.
	Members []DuplicateMember `json:"members"`

	// Keep is the key of the highest-scoring member, the recommended survivor.
	Keep string `json:"keep"`
}

// Report is the output of a scan.
type Report struct {
	// Orphans are blob keys no entity accounts for.
	Orphans []string `json:"orphans"`

	// Duplicates are the same-size candidate groups.
	Duplicates []DuplicateGroup `json:"duplicates"`

	// Summary provides aggregate counts.
	Summary Summary `json:"summary"`
}

// Summary provides aggregate statistics for a scan.
type Summary struct {
	// TotalBlobs is the number of blobs enumerated.
	TotalBlobs int `json:"total_blobs"`

	// ExpectedKeys is the number of entity-derived expected keys.
	ExpectedKeys int `json:"expected_keys"`

	// Orphans counts blobs with no owning entity.
	Orphans int `json:"orphans"`

	// DuplicateGroups counts same-size groups with more than one member.
	DuplicateGroups int `json:"duplicate_groups"`
}
