package tracking

import (
	"context"
	"errors"
	"sort"
	"sync"

	"affiliate-platform/internal/offers"
)

// MemoryRepo is an in-memory click ledger for tests and early development.
// It delegates counter bumps to the offers MemoryRepo so the "row insert and
// counters move together" invariant is observable in tests.
//
// NOTE: This is not intended for production; replace with the Postgres implementation.
type MemoryRepo struct {
	mu     sync.Mutex
	clicks map[string]Click
	enroll *offers.MemoryRepo
}

func NewMemoryRepo(enroll *offers.MemoryRepo) *MemoryRepo {
	return &MemoryRepo{clicks: make(map[string]Click), enroll: enroll}
}

func (r *MemoryRepo) InsertClick(ctx context.Context, c Click) error {
	e, err := r.enroll.GetEnrollment(ctx, c.EnrollmentID)
	if err != nil {
		if errors.Is(err, offers.ErrEnrollmentNotFound) {
			return ErrEnrollmentNotFound
		}
		return err
	}
	if !e.IsActive() {
		return ErrEnrollmentNotFound
	}
	if err := r.enroll.ApplyClick(c.EnrollmentID, c.ClickedAt); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.clicks[c.ID] = c
	return nil
}

func (r *MemoryRepo) GetClick(ctx context.Context, id string) (Click, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clicks[id]
	if !ok {
		return Click{}, ErrClickNotFound
	}
	return c, nil
}

func (r *MemoryRepo) ListClicksByEnrollment(ctx context.Context, enrollmentID string, limit int) ([]Click, error) {
	_ = ctx
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Click
	for _, c := range r.clicks {
		if c.EnrollmentID == enrollmentID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClickedAt.After(out[j].ClickedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
