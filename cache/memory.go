package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	payload   []byte
	createdAt time.Time
	ttl       time.Duration
}

func (e memoryEntry) stale(now time.Time) bool {
	return now.Sub(e.createdAt) >= e.ttl
}

// MemoryStore is an in-process Store backed by a mutex-guarded map.
// Eviction is lazy: stale entries are dropped when read, and a full sweep
// runs opportunistically once the map exceeds sweepThreshold entries.
type MemoryStore struct {
	mu             sync.RWMutex
	entries        map[string]memoryEntry
	sweepThreshold int
	now            func() time.Time
}

// NewMemoryStore creates an in-memory store. sweepThreshold <= 0 disables
// the size-triggered sweep.
func NewMemoryStore(sweepThreshold int) *MemoryStore {
	return &MemoryStore{
		entries:        make(map[string]memoryEntry),
		sweepThreshold: sweepThreshold,
		now:            time.Now,
	}
}

// Get implements Store
func (s *MemoryStore) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}

	if entry.stale(s.now()) {
		s.mu.Lock()
		// Re-check under the write lock; a fresh write may have replaced it
		if current, ok := s.entries[key]; ok && current.stale(s.now()) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return false, nil
	}

	if err := json.Unmarshal(entry.payload, dest); err != nil {
		return false, fmt.Errorf("cache decode %q: %w", key, err)
	}
	return true, nil
}

// Set implements Store
func (s *MemoryStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %q: %w", key, err)
	}

	s.mu.Lock()
	s.entries[key] = memoryEntry{payload: payload, createdAt: s.now(), ttl: ttl}
	needSweep := s.sweepThreshold > 0 && len(s.entries) > s.sweepThreshold
	s.mu.Unlock()

	if needSweep {
		s.Sweep(ctx)
	}
	return nil
}

// Sweep implements Store
func (s *MemoryStore) Sweep(_ context.Context) int {
	now := s.now()
	evicted := 0

	s.mu.Lock()
	for key, entry := range s.entries {
		if entry.stale(now) {
			delete(s.entries, key)
			evicted++
		}
	}
	s.mu.Unlock()
	return evicted
}

// Len returns the current entry count, stale entries included
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
