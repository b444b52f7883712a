package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrStoreUnavailable reports that the counter store could not be reached or
// updated in time. It is never folded into a Decision: the caller decides
// whether a degraded store fails open or closed.
var ErrStoreUnavailable = errors.New("counter store unavailable")

// CounterRecord is the persisted state for one rate limit key. An absent
// record behaves like the zero record: no requests counted, window already
// expired.
type CounterRecord struct {
	Count           int
	WindowStart     time.Time
	WindowExpiresAt time.Time
}

// Expired reports whether the record's window has passed at the given time.
func (r CounterRecord) Expired(now time.Time) bool {
	return !now.Before(r.WindowExpiresAt)
}

// CounterStore holds one CounterRecord per key. The engine is the only
// writer; implementations must make CompareAndSwap atomic so concurrent
// checks for the same key cannot both observe the same count and both
// increment past the limit.
type CounterStore interface {
	// Get returns the record for key. ok is false when no record exists.
	Get(ctx context.Context, key string) (rec CounterRecord, ok bool, err error)

	// CompareAndSwap replaces the stored record with next if the stored
	// record still equals prev. A missing record matches the zero
	// CounterRecord. Returns false without error when the record changed
	// under the caller.
	CompareAndSwap(ctx context.Context, key string, prev, next CounterRecord) (bool, error)

	// Delete removes the record for key, if any.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the store.
	Close() error
}
