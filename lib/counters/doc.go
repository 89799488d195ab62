// Package counters defines the durable exposure/conversion counter store
// (C1) and the distributed recalculation lock built on top of it.
//
// A counter record is identified by the triple (datafile path, feature key,
// variant value) and lives at the key "stats:{datafile}:{feature}:{variant}"
// as a hash of exposures, conversions, weight and last_updated. Two
// implementations are provided:
//
//   - redisstore: the production backend, backed by Redis HINCRBY for
//     lock-free concurrent increments and SCAN for prefix enumeration.
//   - memstore: an in-process backend used by tests and by deployments
//     that don't need cross-process durability; built on a concurrent map
//     plus an optional TTL heap, in the spirit of the sharded in-memory
//     engine this codebase uses elsewhere.
//
// Both satisfy Store, and both additionally satisfy lockmgr.KV so the same
// backend can host the "lock:recalc" distributed lock without a second
// dependency.
package counters
