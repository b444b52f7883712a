package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process CounterStore. Counts only cover the one
// process holding the map, so it is meant for single-instance deployments
// and tests; fleets must share a RedisStore instead.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]CounterRecord
}

var _ CounterStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]CounterRecord)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (CounterRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	return rec, ok, nil
}

func (s *MemoryStore) CompareAndSwap(_ context.Context, key string, prev, next CounterRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.records[key]
	if !ok {
		cur = CounterRecord{}
	}
	if cur != prev {
		return false, nil
	}
	s.records[key] = next
	return true, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// Sweep evicts records whose window expired before now and reports how many
// were removed. The bootstrap wires this to a cron schedule so idle keys do
// not accumulate between windows.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, rec := range s.records {
		if rec.Expired(now) {
			delete(s.records, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of live records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
