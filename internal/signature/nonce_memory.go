package signature

import (
	"context"
	"sync"
	"time"
)

// MemoryNonceStore is an in-process NonceStore for tests and early development.
// Expired entries are pruned lazily on access.
//
// NOTE: Not suitable for multi-instance deployments; replay detection must be
// shared across workers (use RedisNonceStore).
type MemoryNonceStore struct {
	mu    sync.Mutex
	seen  map[string]time.Time // key -> expiry
	clock func() time.Time
}

func NewMemoryNonceStore() *MemoryNonceStore {
	return &MemoryNonceStore{seen: make(map[string]time.Time), clock: time.Now}
}

// WithClock overrides the store clock. Tests only.
func (s *MemoryNonceStore) WithClock(clock func() time.Time) *MemoryNonceStore {
	s.clock = clock
	return s
}

func (s *MemoryNonceStore) Remember(ctx context.Context, networkID, nonce string, ttl time.Duration) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	for k, exp := range s.seen {
		if now.After(exp) {
			delete(s.seen, k)
		}
	}

	key := nonceKey(networkID, nonce)
	if exp, ok := s.seen[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.seen[key] = now.Add(ttl)
	return true, nil
}
