// Package replicate implements the scope-replication engine.
//
// On every status or visibility change it evaluates the publication
// invariant (a mod and everything reachable from it belongs in the public
// partition iff visibility is public and status is approved or published)
// and drives the entity and index stores to converge the two partitions.
//
// # Why the caller supplies prior state
//
// The engine compares desired against prior publication state to pick
// mirror, retract or refresh. The prior state must come from the caller's
// in-hand copy of the mod: reading it back from the partitions is
// forbidden, since a previous partial failure may have left them
// inconsistent, and a decision based on that reading would compound the
// damage.
//
// # Failure model
//
// The backing store has no multi-key transactions, so a run is a sequence
// of single-key writes ordered for safe partial failure: entity before
// index when adding, index before entity when removing. Step failures are
// accumulated and reported as a PartialReplication error after the
// authoritative private write lands; nothing is rolled back, and the
// reconciliation pass repairs the mirror on its next run. The invariant
// holds after every completed run, not mid-run.
package replicate
