package counters

import (
	"context"
	"errors"
	"fmt"
)

// Store is the generic interface for the durable exposure/conversion
// counter store (C1). Implementations must make IncrExposure/IncrConversion
// safe under arbitrary concurrency and must treat SetWeight as a single
// atomic write of the weight and last_updated fields that never disturbs
// the exposure/conversion counts.
type Store interface {
	// IncrExposure atomically increments the exposures field by one,
	// lazily creating the record if it doesn't exist yet.
	IncrExposure(ctx context.Context, df, feature, variant string) error
	// IncrConversion is the symmetric operation for conversions.
	IncrConversion(ctx context.Context, df, feature, variant string) error
	// GetCounters returns a snapshot of one variant's counters. found is
	// false if no record exists for the key: it was never written, or it
	// expired under the counter TTL.
	GetCounters(ctx context.Context, df, feature, variant string) (rec Record, found bool, err error)
	// SetWeight atomically writes weight and last_updated, leaving the
	// exposure/conversion counts untouched.
	SetWeight(ctx context.Context, df, feature, variant string, weight float64, updatedAtUnix int64) error
	// ListKeys returns every stored key under the given prefix. The result
	// may contain duplicates or miss keys written concurrently with the
	// scan; callers are expected to deduplicate.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	// Close releases any underlying connection/resources.
	Close() error
}

// RetCode classifies a Store failure so callers can branch on failure class
// without string-matching error messages, mirroring how the rest of this
// codebase separates client, not-found and transient-store errors.
type RetCode int

const (
	RetCSuccess RetCode = iota
	RetCNotFound
	RetCStoreUnavailable
	RetCInternalError
)

// Error wraps a RetCode with a human-readable message and an optional
// underlying cause.
type Error struct {
	Code  RetCode
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("counters: %s: %v", e.Msg, e.Cause)
	}
	return fmt.Sprintf("counters: %s", e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError constructs an *Error with the given classification.
func NewError(code RetCode, msg string, cause error) *Error {
	return &Error{Code: code, Msg: msg, Cause: cause}
}

// IsUnavailable reports whether err is a store-transient failure, the class
// the HTTP layer maps to 503.
func IsUnavailable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == RetCStoreUnavailable
	}
	return false
}
