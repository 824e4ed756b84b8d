package offers

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is a simple in-memory repository useful for tests and early development.
// It mirrors the UNIQUE (promoter_id, offer_id) constraint of the Postgres schema.
//
// NOTE: This is not intended for production; replace with the Postgres implementation.
type MemoryRepo struct {
	mu          sync.Mutex
	offers      map[string]Offer
	enrollments map[string]Enrollment
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		offers:      make(map[string]Offer),
		enrollments: make(map[string]Enrollment),
	}
}

func (r *MemoryRepo) GetOffer(ctx context.Context, id string) (Offer, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.offers[id]
	if !ok {
		return Offer{}, ErrOfferNotFound
	}
	return o, nil
}

func (r *MemoryRepo) CreateOffer(ctx context.Context, o Offer) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.offers[o.ID] = o
	return nil
}

func (r *MemoryRepo) GetEnrollment(ctx context.Context, id string) (Enrollment, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.enrollments[id]
	if !ok {
		return Enrollment{}, ErrEnrollmentNotFound
	}
	return e, nil
}

func (r *MemoryRepo) FindEnrollmentByToken(ctx context.Context, token string) (Enrollment, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.enrollments {
		if e.TrackingToken == token {
			return e, nil
		}
	}
	return Enrollment{}, ErrEnrollmentNotFound
}

func (r *MemoryRepo) CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.enrollments {
		if existing.PromoterID == e.PromoterID && existing.OfferID == e.OfferID {
			return existing, false, nil
		}
	}
	r.enrollments[e.ID] = e
	return e, true, nil
}

func (r *MemoryRepo) ListEnrollmentsByPromoter(ctx context.Context, promoterID string) ([]Enrollment, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Enrollment
	for _, e := range r.enrollments {
		if e.PromoterID == promoterID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *MemoryRepo) DeactivateEnrollment(ctx context.Context, id string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.enrollments[id]
	if !ok {
		return ErrEnrollmentNotFound
	}
	e.Status = EnrollmentStatusInactive
	e.UpdatedAt = time.Now().UTC()
	r.enrollments[id] = e
	return nil
}

// SeedEnrollment inserts an enrollment bypassing uniqueness checks. Tests only.
func (r *MemoryRepo) SeedEnrollment(e Enrollment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enrollments[e.ID] = e
}

// ApplyClick atomically bumps the click counters, mirroring what the click
// ledger's Postgres transaction does. Exposed for cross-package memory wiring.
func (r *MemoryRepo) ApplyClick(enrollmentID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.enrollments[enrollmentID]
	if !ok {
		return ErrEnrollmentNotFound
	}
	e.Clicks++
	e.UpdatedAt = at
	r.enrollments[enrollmentID] = e

	if o, ok := r.offers[e.OfferID]; ok {
		o.TotalClicks++
		o.UpdatedAt = at
		r.offers[e.OfferID] = o
	}
	return nil
}

// ApplyConversion atomically bumps conversion counters and earnings, mirroring
// the commission ledger's Postgres transaction. Exposed for cross-package
// memory wiring.
func (r *MemoryRepo) ApplyConversion(enrollmentID string, commissionMinor int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.enrollments[enrollmentID]
	if !ok {
		return ErrEnrollmentNotFound
	}
	e.Conversions++
	e.EarningsMinor += commissionMinor
	e.UpdatedAt = at
	r.enrollments[enrollmentID] = e

	if o, ok := r.offers[e.OfferID]; ok {
		o.TotalConversions++
		o.UpdatedAt = at
		r.offers[e.OfferID] = o
	}
	return nil
}
