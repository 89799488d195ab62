package lockmgr

import (
	"context"
	"testing"
)

type fakeKV struct {
	values map[string][]byte
}

func newFakeKV() *fakeKV { return &fakeKV{values: make(map[string][]byte)} }

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeKV) SetIfUnset(_ context.Context, key string, value []byte, _ uint64) error {
	if _, exists := f.values[key]; exists {
		return nil
	}
	f.values[key] = value
	return nil
}

func (f *fakeKV) Delete(_ context.Context, key string) error {
	delete(f.values, key)
	return nil
}

func TestAcquireLock_SecondCallerBlocked(t *testing.T) {
	kv := newFakeKV()
	mgr := NewManager(kv)
	ctx := context.Background()

	ok1, owner1, err := mgr.AcquireLock(ctx, "lock:recalc", 60)
	if err != nil || !ok1 {
		t.Fatalf("expected first acquire to succeed, got ok=%v err=%v", ok1, err)
	}

	ok2, _, err := mgr.AcquireLock(ctx, "lock:recalc", 60)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok2 {
		t.Fatal("expected second acquire to be blocked")
	}

	released, err := mgr.ReleaseLock(ctx, "lock:recalc", owner1)
	if err != nil || !released {
		t.Fatalf("expected release to succeed, got released=%v err=%v", released, err)
	}

	ok3, _, err := mgr.AcquireLock(ctx, "lock:recalc", 60)
	if err != nil || !ok3 {
		t.Fatalf("expected acquire after release to succeed, got ok=%v err=%v", ok3, err)
	}
}

func TestReleaseLock_WrongOwnerRejected(t *testing.T) {
	kv := newFakeKV()
	mgr := NewManager(kv)
	ctx := context.Background()

	ok, _, err := mgr.AcquireLock(ctx, "lock:recalc", 60)
	if err != nil || !ok {
		t.Fatalf("expected acquire to succeed, got ok=%v err=%v", ok, err)
	}

	released, err := mgr.ReleaseLock(ctx, "lock:recalc", []byte("not-the-owner"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if released {
		t.Fatal("expected release by wrong owner to fail")
	}
}

func TestReleaseLock_MissingKeyIsOk(t *testing.T) {
	kv := newFakeKV()
	mgr := NewManager(kv)

	released, err := mgr.ReleaseLock(context.Background(), "lock:recalc", []byte("anyone"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !released {
		t.Fatal("expected release of a never-acquired lock to report ok")
	}
}
