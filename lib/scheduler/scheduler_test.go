package scheduler

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/weightgate/weightgate/lib/counters/memstore"
	"github.com/weightgate/weightgate/lib/datafiles"
)

func newRepo(t *testing.T, fixture string) *datafiles.Repository {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "d.json"), []byte(fixture), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	repo := datafiles.NewRepository(dir, "variations")
	if err := repo.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	return repo
}

const groupFixture = `{
  "features": {
    "f": {
      "variations": [
        {"value": "A", "weight": 50},
        {"value": "B", "weight": 50}
      ]
    }
  }
}`

func fixedRandFactory(seed uint64) func() *rand.Rand {
	return func() *rand.Rand { return rand.New(rand.NewPCG(seed, seed^1)) }
}

func TestRunCycle_SkipsBelowEligibilityThreshold(t *testing.T) {
	repo := newRepo(t, groupFixture)
	store := memstore.New(0)
	defer store.Close()
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		_ = store.IncrExposure(ctx, "d.json", "f", "A")
	}
	for i := 0; i < 99; i++ {
		_ = store.IncrExposure(ctx, "d.json", "f", "B")
	}

	s := New(store, repo, nil, Config{MinExposuresForUpdate: 100, VariantsKey: "variations", NewRand: fixedRandFactory(1)})
	summary, err := s.RunCycle(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.GroupsUpdated != 0 || summary.GroupsSkipped != 1 {
		t.Errorf("expected group skipped, got updated=%d skipped=%d outcomes=%+v", summary.GroupsUpdated, summary.GroupsSkipped, summary.Outcomes)
	}

	rec, found, _ := store.GetCounters(ctx, "d.json", "f", "A")
	if !found || rec.HasWeight {
		t.Error("expected weight to remain unset for skipped group")
	}
}

func TestRunCycle_UpdatesEligibleGroupAndStampsTimestamp(t *testing.T) {
	repo := newRepo(t, groupFixture)
	store := memstore.New(0)
	defer store.Close()
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		_ = store.IncrExposure(ctx, "d.json", "f", "A")
	}
	for i := 0; i < 1000; i++ {
		_ = store.IncrExposure(ctx, "d.json", "f", "B")
	}
	for i := 0; i < 50; i++ {
		_ = store.IncrConversion(ctx, "d.json", "f", "A")
	}
	for i := 0; i < 200; i++ {
		_ = store.IncrConversion(ctx, "d.json", "f", "B")
	}

	s := New(store, repo, nil, Config{MinExposuresForUpdate: 100, VariantsKey: "variations", NewRand: fixedRandFactory(42)})
	summary, err := s.RunCycle(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.GroupsUpdated != 1 {
		t.Fatalf("expected 1 group updated, got %d (outcomes=%+v)", summary.GroupsUpdated, summary.Outcomes)
	}

	recA, _, _ := store.GetCounters(ctx, "d.json", "f", "A")
	recB, _, _ := store.GetCounters(ctx, "d.json", "f", "B")
	if !recA.HasWeight || !recB.HasWeight {
		t.Fatal("expected both variants to have a stored weight")
	}
	if recA.LastUpdated != recB.LastUpdated {
		t.Errorf("expected matching cycle timestamp, got %d vs %d", recA.LastUpdated, recB.LastUpdated)
	}
	if recA.Exposures != 1000 || recB.Exposures != 1000 {
		t.Error("expected exposure counts untouched by recalculation")
	}
}

func TestRunCycle_CoalescesOverlappingCalls(t *testing.T) {
	repo := newRepo(t, groupFixture)
	store := memstore.New(0)
	defer store.Close()

	s := New(store, repo, nil, Config{MinExposuresForUpdate: 100, VariantsKey: "variations", NewRand: fixedRandFactory(1)})
	s.busy.Store(true)

	summary, err := s.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Aborted == "" {
		t.Error("expected cycle to report aborted when busy")
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{}
	if cfg.lockTTL() != 4*baseCycleEstimate {
		t.Errorf("expected default lock TTL, got %v", cfg.lockTTL())
	}
	if cfg.trials() <= 0 {
		t.Error("expected a positive default trial count")
	}
	if cfg.newRand() == nil {
		t.Error("expected a non-nil default rand source")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	repo := newRepo(t, groupFixture)
	store := memstore.New(0)
	defer store.Close()

	s := New(store, repo, nil, Config{Interval: time.Hour, MinExposuresForUpdate: 100, VariantsKey: "variations"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	s.Stop()
}
