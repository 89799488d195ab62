// Package lockmgr implements the distributed recalculation lock: a single
// key ("lock:recalc") guarded by SET-IF-NOT-EXISTS semantics with a TTL, so
// that at most one process runs a recalculation cycle at a time even when
// the service is deployed with more than one replica.
//
// Core functionality:
//   - Lock acquisition with ownership verification
//   - Automatic expiration through a configurable timeout
//   - Safe release that only ever deletes a lock this caller owns
//
// Locks are implemented on top of the atomic conditional operations of a
// backing KV store:
//
//   - Acquisition: SetIfUnset creates the key with a randomly generated
//     owner ID as its value. Only one caller can win this race.
//   - Verification: after SetIfUnset, a Get confirms that the stored value
//     is this caller's own owner ID, not someone else's.
//   - Release: a Get confirms ownership before the Delete.
//
// The manager holds no state beyond the KV it was constructed with, so a
// fresh Manager may be created per call; it is the backing store, not this
// package, that provides any cross-process guarantees.
package lockmgr
