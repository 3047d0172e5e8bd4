// Package reconcile cross-references the blob store against the entity
// graph to surface storage drift.
//
// A scan loads two indices through an Adapter: the expected index, the
// set of blob keys the entity graph accounts for, and the blob index,
// the set of blobs actually in storage. Blobs absent from the expected
// index are reported as orphans. Remaining blobs are grouped by byte
// size into duplicate candidate groups; same size is a cheap proxy for
// content identity, so groups are advisory and never bulk-deleted.
//
// Each group member is scored so callers know which blob to keep: owned
// blobs outrank orphans, live review statuses outrank drafts, and
// download counts break remaining ties. The highest scorer is the
// recommended survivor.
//
// Indices are cached per adapter with a configurable TTL; singleflight
// collapses concurrent rebuilds of the same cache.
package reconcile
