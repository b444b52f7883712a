package ratelimit

import (
	"context"
	"fmt"
)

// Limiter composes the engine with the profile registry. One Allow call
// evaluates every applicable scope against its own counter; the request is
// admitted only when all scopes admit it.
type Limiter struct {
	engine   *Engine
	registry *Registry
	metrics  *Metrics
}

func NewLimiter(engine *Engine, registry *Registry, metrics *Metrics) *Limiter {
	return &Limiter{engine: engine, registry: registry, metrics: metrics}
}

// Allow checks action under the named profile for each scope, most specific
// scope first, and returns the first denial. All scopes share the profile's
// config but count independently: exhausting a user's budget leaves other
// users on the same IP untouched and vice versa.
func (l *Limiter) Allow(ctx context.Context, action string, profile Profile, scopes ...Scope) (Decision, error) {
	cfg, ok := l.registry.Lookup(profile)
	if !ok {
		return Decision{}, fmt.Errorf("%w: unknown profile %q", ErrInvalidConfig, profile)
	}
	if len(scopes) == 0 {
		return Decision{}, fmt.Errorf("%w: no scopes for action %q", ErrInvalidConfig, action)
	}
	var last Decision
	for _, scope := range orderScopes(scopes) {
		decision, err := l.engine.Check(ctx, ComposeKey(scope, action), cfg)
		if err != nil {
			l.metrics.ObserveStoreFailure(profile)
			return Decision{}, err
		}
		if !decision.Allowed {
			l.metrics.ObserveDecision(profile, false)
			return decision, nil
		}
		last = decision
	}
	l.metrics.ObserveDecision(profile, true)
	return last, nil
}

// Config returns the profile's config so the HTTP layer can mirror the
// limit in response headers.
func (l *Limiter) Config(profile Profile) (Config, bool) {
	return l.registry.Lookup(profile)
}
