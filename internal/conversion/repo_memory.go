package conversion

import (
	"context"
	"sort"
	"sync"
	"time"

	"affiliate-platform/internal/offers"
)

// MemoryRepo is an in-memory conversion store for tests and early
// development. It mirrors the UNIQUE (network_id, transaction_id) constraint
// and delegates counter credits to the offers memory repo so the whole
// memory stack stays consistent.
type MemoryRepo struct {
	mu     sync.Mutex
	byID   map[string]Conversion
	byTxn  map[txnKey]string
	enroll *offers.MemoryRepo
}

type txnKey struct {
	networkID     string
	transactionID string
}

func NewMemoryRepo(enroll *offers.MemoryRepo) *MemoryRepo {
	return &MemoryRepo{
		byID:   make(map[string]Conversion),
		byTxn:  make(map[txnKey]string),
		enroll: enroll,
	}
}

func (r *MemoryRepo) CreateConversion(ctx context.Context, c Conversion) (Conversion, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	key := txnKey{c.NetworkID, c.TransactionID}
	if existingID, ok := r.byTxn[key]; ok {
		return r.byID[existingID], false, nil
	}

	if c.Status == StatusApproved {
		if err := r.enroll.ApplyConversion(c.EnrollmentID, c.CommissionMinor, c.UpdatedAt); err != nil {
			return Conversion{}, false, err
		}
	}
	r.byID[c.ID] = c
	r.byTxn[key] = c.ID
	return c, true, nil
}

func (r *MemoryRepo) GetConversion(ctx context.Context, id string) (Conversion, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return Conversion{}, ErrConversionNotFound
	}
	return c, nil
}

func (r *MemoryRepo) FindByTransaction(ctx context.Context, networkID, transactionID string) (Conversion, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byTxn[txnKey{networkID, transactionID}]
	if !ok {
		return Conversion{}, ErrConversionNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryRepo) TransitionStatus(ctx context.Context, id string, to Status, at time.Time) (Conversion, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return Conversion{}, ErrConversionNotFound
	}
	if c.Status != StatusPending {
		return c, nil
	}

	if to == StatusApproved {
		if err := r.enroll.ApplyConversion(c.EnrollmentID, c.CommissionMinor, at); err != nil {
			return Conversion{}, err
		}
	}
	c.Status = to
	c.UpdatedAt = at
	r.byID[id] = c
	return c, nil
}

func (r *MemoryRepo) ListByEnrollment(ctx context.Context, enrollmentID string, limit int) ([]Conversion, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Conversion
	for _, c := range r.byID {
		if c.EnrollmentID == enrollmentID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
