// Package kv provides the key-value backend abstraction the entity and
// index stores sit on.
//
// The Store interface deliberately exposes only single-key operations plus
// a cursor-paginated prefix scan. The backing store (redis) offers no
// multi-key atomicity, and nothing in this package pretends otherwise:
// higher layers sequence their writes so a crash mid-operation leaves a
// recoverable state (see core/entity).
//
// # Backends
//
//   - NewRedisStore: the production backend, go-redis with per-operation
//     timeouts. List maps onto SCAN, so page ordering is not guaranteed
//     and a key may occasionally appear on two pages; ListAll de-dupes.
//   - NewRedisStoreFromClient: wraps a caller-supplied client, used by
//     tests running against an in-process miniredis.
package kv
