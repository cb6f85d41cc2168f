package usage

import (
	"context"
	"sync"
	"time"
)

type memoryCounter struct {
	value    int64
	expireAt time.Time
}

// MemoryStore keeps counters in process memory. Expired counters read as zero.
type MemoryStore struct {
	mu       sync.Mutex
	now      func() time.Time
	counters map[string]memoryCounter
}

// NewMemoryStore returns an empty in-memory store. A nil now uses time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		now:      now,
		counters: make(map[string]memoryCounter),
	}
}

// Get returns the live counter value.
func (s *MemoryStore) Get(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || !s.now().Before(c.expireAt) {
		return 0, nil
	}
	return c.value, nil
}

// Increment adds one to the counter, resetting it first if it has expired.
func (s *MemoryStore) Increment(_ context.Context, key string, expireAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || !s.now().Before(c.expireAt) {
		c = memoryCounter{}
	}
	c.value++
	c.expireAt = expireAt
	s.counters[key] = c
	return c.value, nil
}
