package memstore

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestIncrExposure_ConcurrentCallsAllCount(t *testing.T) {
	store := New(0)
	defer store.Close()
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.IncrExposure(ctx, "df", "f", "A")
		}()
	}
	wg.Wait()

	rec, found, err := store.GetCounters(ctx, "df", "f", "A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatal("expected record to exist")
	}
	if rec.Exposures != workers {
		t.Errorf("expected %d exposures, got %d", workers, rec.Exposures)
	}
}

func TestSetWeight_LeavesCountersUntouched(t *testing.T) {
	store := New(0)
	defer store.Close()
	ctx := context.Background()

	_ = store.IncrExposure(ctx, "df", "f", "A")
	_ = store.IncrExposure(ctx, "df", "f", "A")
	_ = store.IncrConversion(ctx, "df", "f", "A")

	if err := store.SetWeight(ctx, "df", "f", "A", 42.5, 1000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, found, err := store.GetCounters(ctx, "df", "f", "A")
	if err != nil || !found {
		t.Fatalf("unexpected error=%v found=%v", err, found)
	}
	if rec.Exposures != 2 || rec.Conversions != 1 {
		t.Errorf("expected counts untouched, got exposures=%d conversions=%d", rec.Exposures, rec.Conversions)
	}
	if !rec.HasWeight || rec.Weight != 42.5 || rec.LastUpdated != 1000 {
		t.Errorf("expected weight write to apply, got %+v", rec)
	}
}

func TestGetCounters_NotFound(t *testing.T) {
	store := New(0)
	defer store.Close()

	_, found, err := store.GetCounters(context.Background(), "df", "f", "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatal("expected not found")
	}
}

func TestListKeys_FiltersByPrefix(t *testing.T) {
	store := New(0)
	defer store.Close()
	ctx := context.Background()

	_ = store.IncrExposure(ctx, "df1", "f", "A")
	_ = store.IncrExposure(ctx, "df2", "f", "A")

	keys, err := store.ListKeys(ctx, "stats:df1:")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected 1 key, got %d: %v", len(keys), keys)
	}
}

func TestLockKV_SetIfUnsetRespectsExisting(t *testing.T) {
	store := New(0)
	defer store.Close()
	ctx := context.Background()

	if err := store.SetIfUnset(ctx, "lock:recalc", []byte("owner-1"), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.SetIfUnset(ctx, "lock:recalc", []byte("owner-2"), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	value, found, err := store.Get(ctx, "lock:recalc")
	if err != nil || !found {
		t.Fatalf("unexpected error=%v found=%v", err, found)
	}
	if string(value) != "owner-1" {
		t.Errorf("expected first writer to win, got %q", value)
	}
}

func TestLockKV_ExpiresByTTL(t *testing.T) {
	store := New(0)
	defer store.Close()
	ctx := context.Background()

	if err := store.SetIfUnset(ctx, "lock:recalc", []byte("owner-1"), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)

	_, found, err := store.Get(ctx, "lock:recalc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatal("expected expired lock to be gone")
	}
}

func TestCounterTTL_SweepsExpiredRecords(t *testing.T) {
	store := New(500 * time.Millisecond)
	defer store.Close()
	ctx := context.Background()

	_ = store.IncrExposure(ctx, "df", "f", "A")
	time.Sleep(2 * time.Second)

	_, found, err := store.GetCounters(ctx, "df", "f", "A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatal("expected record to be swept after TTL expiry")
	}
}
