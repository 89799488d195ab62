// Package memstore is an in-process implementation of counters.Store and
// lockmgr.KV, used by tests and by single-process deployments that don't
// need a separate Redis instance. It adapts the concurrent-map-plus-atomic-
// counters shape this codebase's in-memory store uses, minus the swappable
// storage-engine abstraction that service doesn't need here.
package memstore

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/weightgate/weightgate/lib/counters"
)

type record struct {
	exposures   atomic.Uint64
	conversions atomic.Uint64

	mu          sync.Mutex
	weight      float64
	hasWeight   bool
	lastUpdated int64
}

// Store is a counters.Store and lockmgr.KV backed entirely by in-process
// concurrent maps.
type Store struct {
	records *xsync.MapOf[string, *record]
	kv      *xsync.MapOf[string, *kvEntry]

	ttl time.Duration

	heapMu sync.Mutex
	heap   *ttlHeap

	stop chan struct{}
	done chan struct{}
}

type kvEntry struct {
	value    []byte
	deadline int64 // unix seconds, 0 = no expiry
}

// New constructs a Store. If ttl is non-zero, every counter write refreshes
// a per-key deadline and a background sweeper deletes keys past it,
// matching the orphan-counter TTL-on-write decision.
func New(ttl time.Duration) *Store {
	s := &Store{
		records: xsync.NewMapOf[string, *record](),
		kv:      xsync.NewMapOf[string, *kvEntry](),
		ttl:     ttl,
		heap:    newTTLHeap(),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if ttl > 0 {
		go s.sweepLoop()
	} else {
		close(s.done)
	}
	return s
}

func (s *Store) sweepLoop() {
	defer close(s.done)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.sweep(now.Unix())
		}
	}
}

func (s *Store) sweep(now int64) {
	s.heapMu.Lock()
	expired := s.heap.PopExpired(now)
	s.heapMu.Unlock()
	if len(expired) == 0 {
		return
	}
	want := make(map[uint64]struct{}, len(expired))
	for _, h := range expired {
		want[h] = struct{}{}
	}
	s.records.Range(func(key string, _ *record) bool {
		if _, ok := want[hashString(key)]; ok {
			s.records.Delete(key)
		}
		return true
	})
}

func (s *Store) touchTTL(key string) {
	if s.ttl <= 0 {
		return
	}
	s.heapMu.Lock()
	s.heap.Set(hashString(key), time.Now().Add(s.ttl).Unix())
	s.heapMu.Unlock()
}

func (s *Store) key(df, feature, variant string) string {
	return counters.Key{Datafile: df, Feature: feature, Variant: variant}.String()
}

func (s *Store) load(key string) *record {
	r, _ := s.records.LoadOrCompute(key, func() *record { return &record{} })
	return r
}

func (s *Store) IncrExposure(_ context.Context, df, feature, variant string) error {
	key := s.key(df, feature, variant)
	s.load(key).exposures.Add(1)
	s.touchTTL(key)
	return nil
}

func (s *Store) IncrConversion(_ context.Context, df, feature, variant string) error {
	key := s.key(df, feature, variant)
	s.load(key).conversions.Add(1)
	s.touchTTL(key)
	return nil
}

func (s *Store) GetCounters(_ context.Context, df, feature, variant string) (counters.Record, bool, error) {
	key := s.key(df, feature, variant)
	r, found := s.records.Load(key)
	if !found {
		return counters.Record{}, false, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return counters.Record{
		Exposures:   r.exposures.Load(),
		Conversions: r.conversions.Load(),
		Weight:      r.weight,
		HasWeight:   r.hasWeight,
		LastUpdated: r.lastUpdated,
	}, true, nil
}

func (s *Store) SetWeight(_ context.Context, df, feature, variant string, weight float64, updatedAtUnix int64) error {
	key := s.key(df, feature, variant)
	r := s.load(key)
	r.mu.Lock()
	r.weight = weight
	r.hasWeight = true
	r.lastUpdated = updatedAtUnix
	r.mu.Unlock()
	s.touchTTL(key)
	return nil
}

func (s *Store) ListKeys(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	s.records.Range(func(key string, _ *record) bool {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return true
	})
	return keys, nil
}

func (s *Store) Close() error {
	if s.ttl > 0 {
		close(s.stop)
		<-s.done
	}
	return nil
}

// --------------------------------------------------------------------------
// lockmgr.KV
// --------------------------------------------------------------------------

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, found := s.kv.Load(key)
	if !found {
		return nil, false, nil
	}
	if e.deadline > 0 && e.deadline <= time.Now().Unix() {
		s.kv.Delete(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (s *Store) SetIfUnset(_ context.Context, key string, value []byte, ttlSeconds uint64) error {
	var deadline int64
	if ttlSeconds > 0 {
		deadline = time.Now().Add(time.Duration(ttlSeconds) * time.Second).Unix()
	}
	s.kv.Compute(key, func(old *kvEntry, loaded bool) (*kvEntry, bool) {
		if loaded && !(old.deadline > 0 && old.deadline <= time.Now().Unix()) {
			return old, false
		}
		return &kvEntry{value: value, deadline: deadline}, false
	})
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.kv.Delete(key)
	return nil
}
