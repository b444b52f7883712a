package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCompareAndSwap(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rec := CounterRecord{Count: 1, WindowStart: base, WindowExpiresAt: base.Add(time.Minute)}

	// Absent key matches the zero record.
	swapped, err := store.CompareAndSwap(ctx, "k", CounterRecord{}, rec)
	require.NoError(t, err)
	assert.True(t, swapped)

	got, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec, got)

	// A stale snapshot must lose.
	swapped, err = store.CompareAndSwap(ctx, "k", CounterRecord{}, rec)
	require.NoError(t, err)
	assert.False(t, swapped)

	next := rec
	next.Count = 2
	swapped, err = store.CompareAndSwap(ctx, "k", rec, next)
	require.NoError(t, err)
	assert.True(t, swapped)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.CompareAndSwap(ctx, "k", CounterRecord{}, CounterRecord{Count: 1})
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, "k"))

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting a missing key is not an error.
	assert.NoError(t, store.Delete(ctx, "missing"))
}

func TestMemoryStoreSweep(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	live := CounterRecord{Count: 1, WindowStart: base, WindowExpiresAt: base.Add(time.Minute)}
	stale := CounterRecord{Count: 3, WindowStart: base.Add(-2 * time.Minute), WindowExpiresAt: base.Add(-time.Minute)}

	_, err := store.CompareAndSwap(ctx, "live", CounterRecord{}, live)
	require.NoError(t, err)
	_, err = store.CompareAndSwap(ctx, "stale", CounterRecord{}, stale)
	require.NoError(t, err)

	removed := store.Sweep(base)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())

	_, ok, err := store.Get(ctx, "live")
	require.NoError(t, err)
	assert.True(t, ok)
}
