// Package scheduler implements the recalculation scheduler (C5): a single
// background task that, on every tick, enumerates all known experiment
// groups, invokes the Sampler for every group that clears the eligibility
// threshold, and persists the resulting weights.
//
// The periodic job is a dedicated long-lived goroutine driven by a
// time.Ticker with an explicit shutdown channel, not a hidden pool — the
// same coroutine-like background-job shape this codebase uses for its own
// per-shard GC loops. A process-local busy flag coalesces overlapping
// cycles; an optional distributed lock (lockmgr) does the same across
// processes when the deployment has more than one.
package scheduler
