package lockmgr

import (
	"bytes"
	"context"
)

type manager struct {
	kv KV
}

// NewManager creates a lock Manager backed by kv. It holds no state of its
// own, so it is safe to construct a fresh one per call as long as the same
// kv is used every time.
func NewManager(kv KV) Manager {
	return &manager{kv: kv}
}

func (m *manager) AcquireLock(ctx context.Context, key string, timeoutSeconds uint64) (bool, []byte, error) {
	ownerID, err := generateOwnerID()
	if err != nil {
		return false, nil, err
	}

	if err := m.kv.SetIfUnset(ctx, key, ownerID, timeoutSeconds); err != nil {
		return false, nil, err
	}

	value, found, err := m.kv.Get(ctx, key)
	if err != nil {
		return false, nil, err
	}

	// The SetIfUnset above may have lost a race to another owner; only a
	// value matching what we just tried to write means we hold the lock.
	if found && bytes.Equal(value, ownerID) {
		return true, ownerID, nil
	}
	return false, nil, nil
}

func (m *manager) ReleaseLock(ctx context.Context, key string, ownerID []byte) (bool, error) {
	value, found, err := m.kv.Get(ctx, key)
	if err != nil || !found {
		return err == nil, err
	}

	if !bytes.Equal(ownerID, value) {
		return false, nil
	}

	if err := m.kv.Delete(ctx, key); err != nil {
		return false, err
	}
	return true, nil
}
