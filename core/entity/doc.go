// Package entity implements the partitioned entity and index stores.
//
// Records are keyed by (partition, type, id). A partition is either a
// tenant's private scope or the single global public mirror; an entity's
// authoritative copy always lives in its owner's private partition, and a
// public copy is a mirror maintained by the replication engine, never a
// second owner.
//
// # Key layout
//
//	ent/<partition>/<type>/<id>       entity records (JSON)
//	idx/<partition>/<name>/<key>/<m>  set-valued index members
//	uniq/<partition>/<name>/<key>     single-valued index entries
//
// # Consistency
//
// The backing store has no multi-key atomicity. The store and index expose
// single-key operations only; callers order them so a crash between steps
// leaves no index entry pointing at a missing entity (write before index,
// unindex before delete). A dangling entity that is absent from its
// indexes is tolerable and self-heals on the next reconciliation pass.
package entity
