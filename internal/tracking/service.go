package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"affiliate-platform/internal/offers"

	"github.com/google/uuid"
)

// Service is the click ledger. RecordClick always creates a new immutable
// click row; the enrollment and offer click counters move in the same
// storage transaction as the insert.
//
// Callers on the public redirect path swallow errors from here: tracking
// failure must never break the user-facing redirect.
type Service struct {
	repo        Repository
	enrollments EnrollmentStore
	clock       func() time.Time
}

// EnrollmentStore is the subset of the offers repository the click ledger
// needs for validation and token resolution.
type EnrollmentStore interface {
	GetEnrollment(ctx context.Context, id string) (offers.Enrollment, error)
	FindEnrollmentByToken(ctx context.Context, token string) (offers.Enrollment, error)
	GetOffer(ctx context.Context, id string) (offers.Offer, error)
}

func NewService(repo Repository, enrollments EnrollmentStore) *Service {
	return &Service{repo: repo, enrollments: enrollments, clock: time.Now}
}

// WithClock overrides the service clock. Tests only.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

var ErrInvalidArgument = errors.New("tracking: invalid argument")

// RecordClick appends a click for an active enrollment.
func (s *Service) RecordClick(ctx context.Context, enrollmentID string, meta Metadata) (Click, error) {
	if enrollmentID == "" {
		return Click{}, ErrInvalidArgument
	}

	e, err := s.enrollments.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, offers.ErrEnrollmentNotFound) {
			return Click{}, ErrEnrollmentNotFound
		}
		return Click{}, fmt.Errorf("tracking: enrollment lookup: %w", err)
	}
	if !e.IsActive() {
		return Click{}, ErrEnrollmentNotFound
	}

	device, browser, os := ClassifyUserAgent(meta.UserAgent)
	c := Click{
		ID:           uuid.NewString(),
		EnrollmentID: e.ID,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		Device:       device,
		Browser:      browser,
		OS:           os,
		Country:      meta.Country,
		Referrer:     meta.Referrer,
		SubIDs:       meta.SubIDs,
		ClickedAt:    s.clock().UTC(),
	}

	if err := s.repo.InsertClick(ctx, c); err != nil {
		return Click{}, fmt.Errorf("tracking: insert click: %w", err)
	}
	return c, nil
}

// ResolveRedirect maps a public tracking token to the enrollment and the
// offer destination URL. Used by the browser redirect: the destination is
// returned even when the enrollment is inactive, because the redirect must
// happen regardless of whether the click gets recorded.
func (s *Service) ResolveRedirect(ctx context.Context, token string) (offers.Enrollment, string, error) {
	if token == "" {
		return offers.Enrollment{}, "", ErrInvalidArgument
	}
	e, err := s.enrollments.FindEnrollmentByToken(ctx, token)
	if err != nil {
		return offers.Enrollment{}, "", err
	}
	o, err := s.enrollments.GetOffer(ctx, e.OfferID)
	if err != nil {
		return offers.Enrollment{}, "", err
	}
	return e, o.DestinationURL, nil
}
