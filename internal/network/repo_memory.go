package network

import (
	"context"
	"sync"
)

// MemoryRepo is a simple in-memory repository useful for tests and early development.
//
// NOTE: This is not intended for production; replace with the Postgres implementation.
type MemoryRepo struct {
	mu       sync.RWMutex
	networks map[string]Network // by id
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{networks: make(map[string]Network)}
}

func (r *MemoryRepo) FindByAPIKey(ctx context.Context, apiKey string) (Network, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range r.networks {
		if n.APIKey == apiKey && n.IsActive() {
			return n, nil
		}
	}
	return Network{}, ErrNotFound
}

func (r *MemoryRepo) FindByID(ctx context.Context, id string) (Network, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.networks[id]
	if !ok {
		return Network{}, ErrNotFound
	}
	return n, nil
}

func (r *MemoryRepo) Create(ctx context.Context, n Network) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.networks[n.ID] = n
	return nil
}
