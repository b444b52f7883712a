package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
	"github.com/robfig/cron/v3"
)

// Sweeper periodically evicts expired records from a MemoryStore on a cron
// schedule. Redis-backed deployments do not need it: key TTLs expire there.
type Sweeper struct {
	store    *MemoryStore
	clock    Clock
	schedule string
	cron     *cron.Cron
	logger   logr.Logger

	mu      sync.Mutex
	running bool
}

// NewSweeper builds a sweeper for schedule, e.g. "@every 5m" or a standard
// five-field cron expression.
func NewSweeper(store *MemoryStore, clock Clock, schedule string, logger logr.Logger) *Sweeper {
	if clock == nil {
		clock = SystemClock()
	}
	return &Sweeper{
		store:    store,
		clock:    clock,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger,
	}
}

// Start validates the schedule and begins sweeping until ctx is cancelled.
// An empty schedule disables the sweeper.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schedule == "" {
		s.logger.Info("counter sweep schedule not configured, relying on lazy eviction")
		return nil
	}
	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}
	if _, err := s.cron.AddFunc(s.schedule, s.sweep); err != nil {
		return fmt.Errorf("schedule counter sweep: %w", err)
	}
	s.cron.Start()
	s.running = true
	s.logger.Info("counter sweeper started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts scheduled sweeps. Safe to call more than once.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cron.Stop()
	s.running = false
}

func (s *Sweeper) sweep() {
	removed := s.store.Sweep(s.clock.Now())
	if removed > 0 {
		s.logger.V(1).Info("swept expired rate limit counters", "removed", removed)
	}
}
