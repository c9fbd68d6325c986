package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/charlesng35/leadflow/internal/cache"
)

// RateStore counts requests per key inside a fixed window.
type RateStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, ttl time.Duration, err error)
}

const memorySweepInterval = time.Minute

// MemoryRateStore keeps counters in process. Closed windows are swept at
// most once per minute while Increment is being called.
type MemoryRateStore struct {
	mu        sync.Mutex
	counters  map[string]memoryCounter
	now       func() time.Time
	nextSweep time.Time
}

type memoryCounter struct {
	count     int
	windowEnd time.Time
}

// NewMemoryRateStore constructs an in-memory rate store. now defaults to time.Now.
func NewMemoryRateStore(now ...func() time.Time) *MemoryRateStore {
	clock := time.Now
	if len(now) > 0 && now[0] != nil {
		clock = now[0]
	}
	return &MemoryRateStore{counters: make(map[string]memoryCounter), now: clock}
}

func (s *MemoryRateStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(now)

	counter, ok := s.counters[key]
	if !ok || !counter.windowEnd.After(now) {
		counter = memoryCounter{windowEnd: now.Add(window)}
	}
	counter.count++
	s.counters[key] = counter

	return counter.count, counter.windowEnd.Sub(now), nil
}

// Len reports how many keys are tracked.
func (s *MemoryRateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counters)
}

func (s *MemoryRateStore) sweepLocked(now time.Time) {
	if now.Before(s.nextSweep) {
		return
	}
	for key, counter := range s.counters {
		if !counter.windowEnd.After(now) {
			delete(s.counters, key)
		}
	}
	s.nextSweep = now.Add(memorySweepInterval)
}

// cacheRateStore keeps counters in the shared cache store (Redis or the
// database) so limits hold across instances.
type cacheRateStore struct {
	store cache.Store
}

// NewCacheRateStore wraps a cache store in a RateStore implementation.
// A nil store yields nil so callers can fall back to the memory store.
func NewCacheRateStore(store cache.Store) RateStore {
	if store == nil {
		return nil
	}
	return &cacheRateStore{store: store}
}

func (s *cacheRateStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	count, ttl, err := s.store.IncrementWithTTL(ctx, key, window)
	return int(count), ttl, err
}
