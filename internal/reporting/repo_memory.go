package reporting

import (
	"context"
	"errors"
	"sync"
	"time"

	"affiliate-platform/internal/conversion"
	"affiliate-platform/internal/offers"
	"affiliate-platform/internal/tracking"
)

// MemoryRepo is a simple in-memory reporting repository for tests and early development.

type MemoryRepo struct {
	mu sync.Mutex

	Clicks      []tracking.Click
	Conversions []conversion.Conversion
	Enrollments []offers.Enrollment
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func inRange(t, from, to time.Time) bool {
	if t.IsZero() {
		return true
	}
	return !t.Before(from) && t.Before(to)
}

func (r *MemoryRepo) ListClicks(ctx context.Context, enrollmentID string, from, to time.Time) ([]tracking.Click, error) {
	if enrollmentID == "" {
		return nil, errors.New("enrollment_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]tracking.Click, 0)
	for _, c := range r.Clicks {
		if c.EnrollmentID != enrollmentID {
			continue
		}
		if !inRange(c.ClickedAt, from, to) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *MemoryRepo) ListConversions(ctx context.Context, enrollmentID string, from, to time.Time) ([]conversion.Conversion, error) {
	if enrollmentID == "" {
		return nil, errors.New("enrollment_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]conversion.Conversion, 0)
	for _, c := range r.Conversions {
		if c.EnrollmentID != enrollmentID {
			continue
		}
		if !inRange(c.CreatedAt, from, to) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *MemoryRepo) ListEnrollmentsByPromoter(ctx context.Context, promoterID string) ([]offers.Enrollment, error) {
	if promoterID == "" {
		return nil, errors.New("promoter_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]offers.Enrollment, 0)
	for _, e := range r.Enrollments {
		if e.PromoterID == promoterID {
			out = append(out, e)
		}
	}
	return out, nil
}
