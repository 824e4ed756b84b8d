package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryWindowStore is an in-process WindowStore for tests and early development.
//
// NOTE: Budgets tracked here are per-instance; production deployments must use
// RedisWindowStore so the limit holds across workers.
type MemoryWindowStore struct {
	mu      sync.Mutex
	windows map[string]*memWindow
	clock   func() time.Time
}

type memWindow struct {
	count   int64
	resetAt time.Time
}

func NewMemoryWindowStore() *MemoryWindowStore {
	return &MemoryWindowStore{windows: make(map[string]*memWindow), clock: time.Now}
}

// WithClock overrides the store clock. Tests only.
func (s *MemoryWindowStore) WithClock(clock func() time.Time) *MemoryWindowStore {
	s.clock = clock
	return s
}

func (s *MemoryWindowStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	w, ok := s.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &memWindow{resetAt: now.Add(window)}
		s.windows[key] = w
	}
	w.count++
	return w.count, nil
}
