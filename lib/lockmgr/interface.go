package lockmgr

import "context"

// KV is the minimal key-value surface the lock manager needs from a
// backing store: a conditional create, a read, and a delete.
// Both counter store backends (redisstore, memstore) implement it directly,
// so the recalculation lock needs no dependency of its own.
type KV interface {
	// Get returns the current value for key. found is false if the key
	// doesn't exist.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// SetIfUnset creates key=value only if key does not already exist,
	// with the key expiring after ttlSeconds (0 means no expiry). It must
	// not report an error if the key already exists.
	SetIfUnset(ctx context.Context, key string, value []byte, ttlSeconds uint64) error
	// Delete removes key. It must not error if the key doesn't exist.
	Delete(ctx context.Context, key string) error
}

// Manager coordinates exclusive access to a named resource across
// processes via a backing KV store.
type Manager interface {
	// AcquireLock attempts to acquire the lock for key, which expires
	// automatically after timeoutSeconds if never released. ok is false if
	// someone else currently holds the lock.
	AcquireLock(ctx context.Context, key string, timeoutSeconds uint64) (ok bool, ownerID []byte, err error)
	// ReleaseLock releases a lock previously acquired with ownerID. ok is
	// true if the lock didn't exist or was released by its owner; false if
	// it's held by someone else.
	ReleaseLock(ctx context.Context, key string, ownerID []byte) (ok bool, err error)
}
