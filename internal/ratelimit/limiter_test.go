package ratelimit

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) (*Limiter, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	engine := NewEngine(NewMemoryStore(), clock)
	reg, err := NewRegistry(map[Profile]Config{
		ProfileAuth:          {MaxRequests: 2, WindowSeconds: 60},
		ProfilePublic:        {MaxRequests: 10, WindowSeconds: 60},
		ProfileAuthenticated: {MaxRequests: 3, WindowSeconds: 60},
	})
	require.NoError(t, err)
	metrics := NewMetricsWithRegisterer(prometheus.NewRegistry())
	return NewLimiter(engine, reg, metrics), clock
}

func TestAllowCompositeScopesAreANDed(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	// Both the user and the IP counters charge on each allowed call, so
	// a second user behind the same IP inherits the IP's spent budget.
	for i := 0; i < 3; i++ {
		d, err := limiter.Allow(ctx, "pages.write", ProfileAuthenticated,
			UserScope("u1"), IPScope("203.0.113.9"))
		require.NoError(t, err)
		require.True(t, d.Allowed, "call %d", i+1)
	}

	d, err := limiter.Allow(ctx, "pages.write", ProfileAuthenticated,
		UserScope("u2"), IPScope("203.0.113.9"))
	require.NoError(t, err)
	assert.False(t, d.Allowed, "shared IP budget must deny the second user")

	d, err = limiter.Allow(ctx, "pages.write", ProfileAuthenticated,
		UserScope("u2"), IPScope("198.51.100.7"))
	require.NoError(t, err)
	assert.True(t, d.Allowed, "fresh IP must not be affected")
}

func TestAllowDeniedScopeFailsFast(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	// Exhaust the user scope alone.
	for i := 0; i < 3; i++ {
		_, err := limiter.Allow(ctx, "pages.write", ProfileAuthenticated, UserScope("u1"))
		require.NoError(t, err)
	}

	// The user scope is evaluated before IP, so the IP counter is not
	// charged once the user is denied.
	d, err := limiter.Allow(ctx, "pages.write", ProfileAuthenticated,
		UserScope("u1"), IPScope("203.0.113.9"))
	require.NoError(t, err)
	require.False(t, d.Allowed)

	d, err = limiter.Allow(ctx, "pages.write", ProfileAuthenticated,
		UserScope("u3"), IPScope("203.0.113.9"))
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 2, d.Remaining)
}

func TestAllowUnknownProfile(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	_, err := limiter.Allow(context.Background(), "x", Profile("nope"), IPScope("1.2.3.4"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestAllowRequiresScopes(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	_, err := limiter.Allow(context.Background(), "x", ProfilePublic)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestAllowAnonymousCallersShareOneBucket(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	// Unidentifiable callers land in the same restrictive bucket rather
	// than bypassing limiting entirely.
	for i := 0; i < 2; i++ {
		d, err := limiter.Allow(ctx, "login", ProfileAuth, IPScope(""))
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
	d, err := limiter.Allow(ctx, "login", ProfileAuth, IPScope("  "))
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestAllowSurfacesStoreErrors(t *testing.T) {
	reg, err := NewRegistry(map[Profile]Config{ProfilePublic: {MaxRequests: 1, WindowSeconds: 1}})
	require.NoError(t, err)
	engine := NewEngine(failingStore{err: assert.AnError}, newFakeClock())
	limiter := NewLimiter(engine, reg, NewMetricsWithRegisterer(prometheus.NewRegistry()))

	_, err = limiter.Allow(context.Background(), "x", ProfilePublic, IPScope("1.2.3.4"))
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}
