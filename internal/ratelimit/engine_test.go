package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestEngine(t *testing.T) (*Engine, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	return NewEngine(NewMemoryStore(), clock), clock
}

func TestCheckAdmitsUpToLimitThenRejects(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	cfg := Config{MaxRequests: 3, WindowSeconds: 60}

	for i, wantRemaining := range []int{2, 1, 0} {
		d, err := engine.Check(ctx, "ip1:login", cfg)
		require.NoError(t, err, "call %d", i+1)
		assert.True(t, d.Allowed, "call %d", i+1)
		assert.Equal(t, wantRemaining, d.Remaining, "call %d", i+1)
	}

	d, err := engine.Check(ctx, "ip1:login", cfg)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Greater(t, d.RetryAfterSeconds, 0)
	assert.LessOrEqual(t, d.RetryAfterSeconds, 60)
}

func TestCheckRejectionNeverCharges(t *testing.T) {
	engine, clock := newTestEngine(t)
	ctx := context.Background()
	cfg := Config{MaxRequests: 2, WindowSeconds: 60}

	_, err := engine.Check(ctx, "k", cfg)
	require.NoError(t, err)
	first, err := engine.Check(ctx, "k", cfg)
	require.NoError(t, err)
	require.True(t, first.Allowed)

	rejected, err := engine.Check(ctx, "k", cfg)
	require.NoError(t, err)
	require.False(t, rejected.Allowed)

	// Hammering a rejected key must not move the window. ResetAt stays
	// fixed and RetryAfter only shrinks with the passage of time.
	for i := 0; i < 5; i++ {
		clock.Advance(time.Second)
		again, err := engine.Check(ctx, "k", cfg)
		require.NoError(t, err)
		assert.False(t, again.Allowed)
		assert.Equal(t, rejected.ResetAt, again.ResetAt)
		assert.Equal(t, rejected.RetryAfterSeconds-(i+1), again.RetryAfterSeconds)
	}
}

func TestCheckWindowResets(t *testing.T) {
	engine, clock := newTestEngine(t)
	ctx := context.Background()
	cfg := Config{MaxRequests: 2, WindowSeconds: 60}

	for i := 0; i < 2; i++ {
		d, err := engine.Check(ctx, "ip2:login", cfg)
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
	d, err := engine.Check(ctx, "ip2:login", cfg)
	require.NoError(t, err)
	require.False(t, d.Allowed)

	clock.Advance(61 * time.Second)

	d, err = engine.Check(ctx, "ip2:login", cfg)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
}

func TestCheckKeysAreIsolated(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	cfg := Config{MaxRequests: 3, WindowSeconds: 60}

	for i := 0; i < 3; i++ {
		d, err := engine.Check(ctx, "ipA:route", cfg)
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
	d, err := engine.Check(ctx, "ipA:route", cfg)
	require.NoError(t, err)
	require.False(t, d.Allowed)

	d, err = engine.Check(ctx, "ipB:route", cfg)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 2, d.Remaining)
}

func TestCheckRemainingDecreasesByOne(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	cfg := Config{MaxRequests: 5, WindowSeconds: 60}

	prev := cfg.MaxRequests
	for i := 0; i < 5; i++ {
		d, err := engine.Check(ctx, "mono", cfg)
		require.NoError(t, err)
		require.True(t, d.Allowed)
		assert.Equal(t, prev-1, d.Remaining)
		prev = d.Remaining
	}
}

func TestCheckRetryAfterRoundsUp(t *testing.T) {
	engine, clock := newTestEngine(t)
	ctx := context.Background()
	cfg := Config{MaxRequests: 1, WindowSeconds: 60}

	_, err := engine.Check(ctx, "ceil", cfg)
	require.NoError(t, err)

	// 59.2s left in the window must report 60, not 59: callers may never
	// be told to retry before the reset.
	clock.Advance(800 * time.Millisecond)
	d, err := engine.Check(ctx, "ceil", cfg)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	assert.Equal(t, 60, d.RetryAfterSeconds)
}

func TestCheckRejectsInvalidConfig(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	for _, cfg := range []Config{
		{MaxRequests: 0, WindowSeconds: 60},
		{MaxRequests: 5, WindowSeconds: 0},
		{MaxRequests: -1, WindowSeconds: -1},
	} {
		_, err := engine.Check(ctx, "bad", cfg)
		assert.ErrorIs(t, err, ErrInvalidConfig, "config %+v", cfg)
	}
}

type failingStore struct{ err error }

func (s failingStore) Get(context.Context, string) (CounterRecord, bool, error) {
	return CounterRecord{}, false, s.err
}

func (s failingStore) CompareAndSwap(context.Context, string, CounterRecord, CounterRecord) (bool, error) {
	return false, s.err
}

func (s failingStore) Delete(context.Context, string) error { return s.err }
func (s failingStore) Close() error                         { return nil }

func TestCheckSurfacesStoreUnavailable(t *testing.T) {
	boom := errors.New("connection refused")
	engine := NewEngine(failingStore{err: boom}, newFakeClock())

	_, err := engine.Check(context.Background(), "k", Config{MaxRequests: 1, WindowSeconds: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestCheckConcurrentSameKeyNeverOvershoots(t *testing.T) {
	engine, _ := newTestEngine(t)
	cfg := Config{MaxRequests: 50, WindowSeconds: 60}

	const callers = 200
	var wg sync.WaitGroup
	allowed := make(chan struct{}, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := engine.Check(context.Background(), "hot", cfg)
			if err == nil && d.Allowed {
				allowed <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(allowed)

	count := 0
	for range allowed {
		count++
	}
	assert.LessOrEqual(t, count, cfg.MaxRequests)
}

func TestCeilSeconds(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want int
	}{
		{0, 0},
		{-time.Second, 0},
		{time.Millisecond, 1},
		{time.Second, 1},
		{1400 * time.Millisecond, 2},
		{60 * time.Second, 60},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ceilSeconds(tt.d), "d=%s", tt.d)
	}
}
