package offers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service manages offers and promoter enrollments.
//
// Enrollment contract:
// - Joining an offer is idempotent on (promoter, offer); the second join
//   returns the original enrollment and its original tracking token.
// - Counters on Offer/Enrollment are never written here; they belong to the
//   click and commission ledgers.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// WithClock overrides the service clock. Tests only.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

var (
	ErrInvalidArgument = errors.New("offers: invalid argument")
	ErrOfferInactive   = errors.New("offers: offer is not active")
)

// Join enrolls a promoter into an offer, generating the tracking token.
// Returns created=false when the promoter was already enrolled.
func (s *Service) Join(ctx context.Context, promoterID, offerID string) (Enrollment, bool, error) {
	if promoterID == "" || offerID == "" {
		return Enrollment{}, false, ErrInvalidArgument
	}

	o, err := s.repo.GetOffer(ctx, offerID)
	if err != nil {
		return Enrollment{}, false, err
	}
	if !o.IsActive() {
		return Enrollment{}, false, ErrOfferInactive
	}

	now := s.clock().UTC()
	e := Enrollment{
		ID:            uuid.NewString(),
		PromoterID:    promoterID,
		OfferID:       offerID,
		TrackingToken: uuid.NewString(),
		Status:        EnrollmentStatusActive,
		JoinedAt:      now,
		UpdatedAt:     now,
	}

	out, created, err := s.repo.CreateEnrollment(ctx, e)
	if err != nil {
		return Enrollment{}, false, fmt.Errorf("offers: create enrollment: %w", err)
	}
	return out, created, nil
}

// ListEnrollments returns all enrollments of one promoter.
func (s *Service) ListEnrollments(ctx context.Context, promoterID string) ([]Enrollment, error) {
	if promoterID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListEnrollmentsByPromoter(ctx, promoterID)
}

// Deactivate marks an enrollment inactive. Enrollments are never deleted;
// historical clicks and conversions keep referencing them.
func (s *Service) Deactivate(ctx context.Context, enrollmentID string) error {
	if enrollmentID == "" {
		return ErrInvalidArgument
	}
	return s.repo.DeactivateEnrollment(ctx, enrollmentID)
}

// CreateOffer registers a new campaign for a network. Admin surface.
func (s *Service) CreateOffer(ctx context.Context, o Offer) (Offer, error) {
	if o.NetworkID == "" || o.Title == "" || o.DestinationURL == "" {
		return Offer{}, ErrInvalidArgument
	}
	if o.CommissionRateBps < 0 || o.CommissionRateBps > 10_000 {
		return Offer{}, ErrInvalidArgument
	}
	if o.PayoutMinor < 0 {
		return Offer{}, ErrInvalidArgument
	}

	now := s.clock().UTC()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Currency == "" {
		o.Currency = "USD"
	}
	if o.Status == "" {
		o.Status = OfferStatusActive
	}
	o.TotalClicks = 0
	o.TotalConversions = 0
	o.CreatedAt = now
	o.UpdatedAt = now

	if err := s.repo.CreateOffer(ctx, o); err != nil {
		return Offer{}, fmt.Errorf("offers: create offer: %w", err)
	}
	return o, nil
}
