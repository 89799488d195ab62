package scheduler

import (
	"context"
	"math/rand/v2"
	"sort"
	"sync/atomic"
	"time"

	"github.com/weightgate/weightgate/internal/logx"
	"github.com/weightgate/weightgate/internal/metrics"
	"github.com/weightgate/weightgate/lib/counters"
	"github.com/weightgate/weightgate/lib/datafiles"
	"github.com/weightgate/weightgate/lib/lockmgr"
	"github.com/weightgate/weightgate/lib/sampler"
)

var log = logx.GetLogger("scheduler")

// baseCycleEstimate is the assumed duration of one recalculation cycle,
// used only to size the distributed lock's default TTL (expected cycle
// duration x4, per the concurrency model's lock contract).
const baseCycleEstimate = 30 * time.Second

// Config configures a Scheduler.
type Config struct {
	// Interval between the start of one cycle and the next.
	Interval time.Duration
	// MinExposuresForUpdate is the eligibility threshold: every variant in
	// a group must have at least this many exposures before a cycle
	// touches it.
	MinExposuresForUpdate uint64
	// Trials is the number of joint posterior draws per group. Zero uses
	// sampler.DefaultTrials.
	Trials int
	// LockTTL is the distributed lock's expiry. Zero uses 4x
	// baseCycleEstimate.
	LockTTL time.Duration
	// VariantsKey is forwarded to datafiles.GroupVariants.
	VariantsKey string
	// NewRand constructs the random source for one cycle. Tests supply a
	// fixed-seed source for reproducibility; production leaves this nil to
	// get a fresh, unseeded source per cycle.
	NewRand func() *rand.Rand
}

func (c Config) lockTTL() time.Duration {
	if c.LockTTL > 0 {
		return c.LockTTL
	}
	return 4 * baseCycleEstimate
}

func (c Config) trials() int {
	if c.Trials > 0 {
		return c.Trials
	}
	return sampler.DefaultTrials
}

func (c Config) newRand() *rand.Rand {
	if c.NewRand != nil {
		return c.NewRand()
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// GroupOutcome records what happened to one experiment group during a
// cycle.
type GroupOutcome struct {
	Datafile string
	Feature  string
	Status   string // "updated", "skipped", "errored"
	Reason   string
}

// Summary is the result of one complete cycle, returned by both the
// background scheduler's own logging and the manual /recalculate trigger.
type Summary struct {
	StartedAt        time.Time
	Duration         time.Duration
	GroupsConsidered int
	GroupsUpdated    int
	GroupsSkipped    int
	GroupsErrored    int
	Outcomes         []GroupOutcome
	// Aborted is non-empty if the cycle didn't run at all (e.g. another
	// cycle was already in progress, or the distributed lock wasn't
	// acquired). All counts above are zero in that case.
	Aborted string
}

// Scheduler runs the periodic recalculation job.
type Scheduler struct {
	store     counters.Store
	datafiles *datafiles.Repository
	lockMgr   lockmgr.Manager // nil disables the distributed lock
	cfg       Config
	busy      atomic.Bool
	started   atomic.Bool
	stop      chan struct{}
	loopDone  chan struct{}
}

// New constructs a Scheduler. lockMgr may be nil to rely on the in-process
// busy flag alone (sufficient for a single-process deployment).
func New(store counters.Store, repo *datafiles.Repository, lockMgr lockmgr.Manager, cfg Config) *Scheduler {
	return &Scheduler{
		store:     store,
		datafiles: repo,
		lockMgr:   lockMgr,
		cfg:       cfg,
		stop:      make(chan struct{}),
		loopDone:  make(chan struct{}),
	}
}

// Start runs the ticker loop until ctx is canceled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.started.Store(true)
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.loopDone)
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			summary, err := s.RunCycle(ctx)
			if err != nil {
				log.Errorf("cycle failed: %v", err)
				continue
			}
			if summary.Aborted != "" {
				log.Debugf("cycle skipped: %s", summary.Aborted)
				continue
			}
			log.Infof("cycle complete: %d considered, %d updated, %d skipped, %d errored in %s",
				summary.GroupsConsidered, summary.GroupsUpdated, summary.GroupsSkipped, summary.GroupsErrored, summary.Duration)
		}
	}
}

// Stop signals the background loop to exit and waits for it to do so. It
// is a no-op if Start was never called.
func (s *Scheduler) Stop() {
	if !s.started.Load() {
		return
	}
	close(s.stop)
	<-s.loopDone
}

// RunCycle runs exactly one recalculation cycle synchronously. It is safe
// to call concurrently with the background loop: at most one cycle ever
// runs at a time, process-wide, and cluster-wide when a lockMgr is
// configured. A cycle that can't start at all (busy, or lock not acquired)
// returns a Summary with Aborted set and no error.
func (s *Scheduler) RunCycle(ctx context.Context) (Summary, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return Summary{Aborted: "a recalculation cycle is already running"}, nil
	}
	defer s.busy.Store(false)

	if s.lockMgr != nil {
		ok, ownerID, err := s.lockMgr.AcquireLock(ctx, counters.LockKey, uint64(s.cfg.lockTTL().Seconds()))
		if err != nil {
			return Summary{}, err
		}
		if !ok {
			return Summary{Aborted: "distributed recalculation lock held elsewhere"}, nil
		}
		defer func() { _, _ = s.lockMgr.ReleaseLock(ctx, counters.LockKey, ownerID) }()
	}

	start := time.Now()
	summary := Summary{StartedAt: start}

	groups, err := s.discoverGroups(ctx)
	if err != nil {
		return Summary{}, err
	}

	rng := s.cfg.newRand()
	now := time.Now().Unix()

	for _, key := range sortedGroupKeys(groups) {
		outcome := s.processGroup(ctx, key.Datafile, key.Feature, groups[key], rng, now)
		summary.Outcomes = append(summary.Outcomes, outcome)
		summary.GroupsConsidered++
		switch outcome.Status {
		case "updated":
			summary.GroupsUpdated++
			metrics.RecalcGroupsUpdated.Inc()
		case "skipped":
			summary.GroupsSkipped++
			metrics.RecalcGroupsSkipped.Inc()
		case "errored":
			summary.GroupsErrored++
			metrics.RecalcGroupsErrored.Inc()
		}
	}

	summary.Duration = time.Since(start)
	metrics.RecalcCyclesRun.Inc()
	metrics.RecalcCycleDuration.Update(summary.Duration.Seconds())
	return summary, nil
}

type groupKey struct {
	Datafile string
	Feature  string
}

// discoverGroups enumerates every (datafile, feature) group with at least
// one counter key, by scanning the store's "stats:" prefix and parsing
// each key. Failure on the scan aborts the whole cycle (surfaced to the
// caller); a key that doesn't parse is logged and skipped.
func (s *Scheduler) discoverGroups(ctx context.Context) (map[groupKey][]string, error) {
	keys, err := s.store.ListKeys(ctx, counters.StatsPrefix)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(keys)) // dedupe scan duplicates
	groups := make(map[groupKey][]string)
	for _, raw := range keys {
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}

		k, ok := counters.ParseKey(raw)
		if !ok {
			log.Warnf("ignoring unparsable counter key %q", raw)
			continue
		}
		gk := groupKey{Datafile: k.Datafile, Feature: k.Feature}
		groups[gk] = append(groups[gk], k.Variant)
	}
	return groups, nil
}

// sortedGroupKeys gives a cycle's group processing order a deterministic
// sequence, independent of Go's randomized map iteration.
func sortedGroupKeys(groups map[groupKey][]string) []groupKey {
	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Datafile != keys[j].Datafile {
			return keys[i].Datafile < keys[j].Datafile
		}
		return keys[i].Feature < keys[j].Feature
	})
	return keys
}

// processGroup evaluates eligibility for one group, runs the Sampler if
// eligible, and persists the result. Failure here only affects this group
// — it never aborts the rest of the cycle.
func (s *Scheduler) processGroup(ctx context.Context, df, feature string, variantValues []string, rng *rand.Rand, now int64) GroupOutcome {
	outcome := GroupOutcome{Datafile: df, Feature: feature}

	tree, err := s.datafiles.Get(df)
	if err != nil {
		outcome.Status = "skipped"
		outcome.Reason = "datafile no longer present (orphaned counters)"
		return outcome
	}

	declared, ok := datafiles.GroupVariants(tree, s.cfg.VariantsKey, feature)
	if !ok {
		outcome.Status = "skipped"
		outcome.Reason = "feature no longer present in datafile"
		return outcome
	}

	originalWeight := make(map[string]float64, len(declared))
	order := make([]string, 0, len(declared))
	for _, v := range declared {
		originalWeight[v.Value] = v.Weight
		order = append(order, v.Value)
	}

	group := sampler.Group{}
	for _, value := range order {
		rec, found, err := s.store.GetCounters(ctx, df, feature, value)
		if err != nil {
			outcome.Status = "errored"
			outcome.Reason = err.Error()
			return outcome
		}
		if !found || rec.Exposures < s.cfg.MinExposuresForUpdate {
			outcome.Status = "skipped"
			outcome.Reason = "insufficient exposures"
			return outcome
		}
		group.Values = append(group.Values, value)
		group.Posteriors = append(group.Posteriors, sampler.NewPosterior(rec.Conversions, rec.Exposures))
		group.OriginalWeights = append(group.OriginalWeights, originalWeight[value])
	}

	result, err := sampler.Recalculate(rng, group, s.cfg.trials())
	if err != nil {
		outcome.Status = "errored"
		outcome.Reason = err.Error()
		return outcome
	}

	for i, value := range group.Values {
		if err := s.store.SetWeight(ctx, df, feature, value, result.Weights[i], now); err != nil {
			outcome.Status = "errored"
			outcome.Reason = err.Error()
			return outcome
		}
	}

	outcome.Status = "updated"
	return outcome
}
