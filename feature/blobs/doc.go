// Package blobs manages the stored-file lifecycle behind the registry.
//
// Blobs are never deleted in one step. An admin (or the scanner) marks a
// blob by stamping soft-delete user metadata onto it; a later sweep
// removes marked blobs once their grace period has expired. Until then
// the marker can be cleared to rescue the blob. Blobs whose key still
// resolves to an existing entity, thumbnails of live mods included, are
// protected and refuse the marker.
//
// The package also hosts the scan adapter that feeds core/reconcile:
// expected keys are derived from the owner-of pointer index and each
// mod's adjacency lists, never by scanning tenant partitions.
package blobs
