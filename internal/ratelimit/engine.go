package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Config bounds one counter: at most MaxRequests admissions per
// WindowSeconds-second fixed window.
type Config struct {
	MaxRequests   int
	WindowSeconds int
}

// Validate rejects configs that would silently disable limiting.
func (c Config) Validate() error {
	if c.MaxRequests < 1 {
		return fmt.Errorf("%w: max requests must be >= 1, got %d", ErrInvalidConfig, c.MaxRequests)
	}
	if c.WindowSeconds < 1 {
		return fmt.Errorf("%w: window seconds must be >= 1, got %d", ErrInvalidConfig, c.WindowSeconds)
	}
	return nil
}

func (c Config) window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// Decision is the outcome of one admission check. RetryAfterSeconds is only
// meaningful when Allowed is false; it is rounded up so callers are never
// told to retry before the window has actually reset.
type Decision struct {
	Allowed           bool
	Remaining         int
	RetryAfterSeconds int
	ResetAt           time.Time
}

// casAttempts bounds the read-decide-swap retry loop. Losing a swap means
// another request for the same key advanced the counter; the loop re-reads
// and re-decides against the fresh record.
const casAttempts = 8

// Engine evaluates the fixed window counting algorithm against a
// CounterStore. The engine never picks a policy for a degraded store: store
// failures surface as ErrStoreUnavailable and the integrator decides whether
// to fail open or closed.
type Engine struct {
	store CounterStore
	clock Clock
}

func NewEngine(store CounterStore, clock Clock) *Engine {
	if clock == nil {
		clock = SystemClock()
	}
	return &Engine{store: store, clock: clock}
}

// Check answers whether key is allowed one more unit of work under cfg, and
// charges the counter when it is. Rejected checks never charge: they must
// not consume the next window's budget nor extend the current one.
func (e *Engine) Check(ctx context.Context, key string, cfg Config) (Decision, error) {
	if err := cfg.Validate(); err != nil {
		return Decision{}, err
	}
	for attempt := 0; attempt < casAttempts; attempt++ {
		rec, ok, err := e.store.Get(ctx, key)
		if err != nil {
			return Decision{}, storeFailure(err)
		}
		now := e.clock.Now()

		if !ok || rec.Expired(now) {
			prev := rec
			if !ok {
				prev = CounterRecord{}
			}
			next := CounterRecord{
				Count:           1,
				WindowStart:     now,
				WindowExpiresAt: now.Add(cfg.window()),
			}
			swapped, err := e.store.CompareAndSwap(ctx, key, prev, next)
			if err != nil {
				return Decision{}, storeFailure(err)
			}
			if !swapped {
				continue
			}
			return Decision{
				Allowed:   true,
				Remaining: cfg.MaxRequests - 1,
				ResetAt:   next.WindowExpiresAt,
			}, nil
		}

		if rec.Count >= cfg.MaxRequests {
			return Decision{
				Allowed:           false,
				Remaining:         0,
				RetryAfterSeconds: ceilSeconds(rec.WindowExpiresAt.Sub(now)),
				ResetAt:           rec.WindowExpiresAt,
			}, nil
		}

		next := rec
		next.Count++
		swapped, err := e.store.CompareAndSwap(ctx, key, rec, next)
		if err != nil {
			return Decision{}, storeFailure(err)
		}
		if !swapped {
			continue
		}
		remaining := cfg.MaxRequests - next.Count
		if remaining < 0 {
			remaining = 0
		}
		return Decision{
			Allowed:   true,
			Remaining: remaining,
			ResetAt:   rec.WindowExpiresAt,
		}, nil
	}
	return Decision{}, fmt.Errorf("%w: key %q contended beyond %d swap attempts", ErrStoreUnavailable, key, casAttempts)
}

func storeFailure(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// ceilSeconds rounds d up to whole seconds, never below 1 for positive d.
func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}
