package conversion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"affiliate-platform/internal/offers"
	"affiliate-platform/internal/tracking"
)

var (
	ErrInvalidArgument = errors.New("conversion: invalid argument")

	// ErrInvalidOffer covers an unknown offer or one belonging to a
	// different network than the postback credential.
	ErrInvalidOffer = errors.New("conversion: invalid offer")

	// ErrUnattributable means neither the click id nor the tracking token
	// resolved to an enrollment of the offer. The postback is rejected
	// rather than silently discarded.
	ErrUnattributable = errors.New("conversion: unattributable")

	// ErrAlreadyFinal is returned by the admin review operations when the
	// conversion already reached the opposite terminal status.
	ErrAlreadyFinal = errors.New("conversion: already in a terminal status")
)

// EnrollmentStore is the slice of the offers repository the pipeline needs.
type EnrollmentStore interface {
	GetOffer(ctx context.Context, id string) (offers.Offer, error)
	GetEnrollment(ctx context.Context, id string) (offers.Enrollment, error)
	FindEnrollmentByToken(ctx context.Context, token string) (offers.Enrollment, error)
}

// ClickStore resolves a click id for exact attribution.
type ClickStore interface {
	GetClick(ctx context.Context, id string) (tracking.Click, error)
}

type Service struct {
	repo        Repository
	enrollments EnrollmentStore
	clicks      ClickStore
	clock       func() time.Time
}

func NewService(repo Repository, enrollments EnrollmentStore, clicks ClickStore) *Service {
	return &Service{
		repo:        repo,
		enrollments: enrollments,
		clicks:      clicks,
		clock:       time.Now,
	}
}

// WithClock overrides the service clock. Tests only.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// PostbackRequest is a verified conversion postback, signature and rate
// limit already checked upstream.
type PostbackRequest struct {
	NetworkID     string
	OfferID       string
	TransactionID string

	// ClickID and TrackingToken drive attribution; at least one must
	// resolve to an enrollment of the offer.
	ClickID       string
	TrackingToken string

	AmountMinor  int64
	Currency     string
	Status       Status
	CustomParams map[string]string
}

// Result carries the conversion the caller should respond with. Duplicate
// is true when the transaction id had already been processed; the
// conversion is then the original row (possibly with a status transition
// applied), never a new one.
type Result struct {
	Conversion Conversion
	Duplicate  bool
}

// Process runs the postback pipeline: validate, match the offer to the
// network, attribute, derive the commission, and reserve-and-write in one
// transactional unit. Concurrent retries for the same transaction id are
// resolved by the storage uniqueness constraint, not by locking here.
func (s *Service) Process(ctx context.Context, req PostbackRequest) (Result, error) {
	if req.NetworkID == "" || req.OfferID == "" || req.TransactionID == "" {
		return Result{}, ErrInvalidArgument
	}
	if req.AmountMinor < 0 {
		return Result{}, ErrInvalidArgument
	}
	status := req.Status
	if status == "" {
		status = StatusPending
	}
	if !validStatus(status) {
		return Result{}, ErrInvalidArgument
	}

	offer, err := s.enrollments.GetOffer(ctx, req.OfferID)
	if err != nil {
		if errors.Is(err, offers.ErrOfferNotFound) {
			return Result{}, ErrInvalidOffer
		}
		return Result{}, fmt.Errorf("conversion: offer lookup: %w", err)
	}
	if offer.NetworkID != req.NetworkID {
		return Result{}, ErrInvalidOffer
	}

	enrollment, clickID, err := s.attribute(ctx, offer, req)
	if err != nil {
		return Result{}, err
	}

	currency := req.Currency
	if currency == "" {
		currency = offer.Currency
	}

	now := s.clock().UTC()
	c := Conversion{
		ID:              uuid.NewString(),
		NetworkID:       req.NetworkID,
		EnrollmentID:    enrollment.ID,
		ClickID:         clickID,
		TransactionID:   req.TransactionID,
		AmountMinor:     req.AmountMinor,
		CommissionMinor: offer.CommissionFor(req.AmountMinor),
		Currency:        currency,
		Status:          status,
		CustomParams:    req.CustomParams,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	stored, created, err := s.repo.CreateConversion(ctx, c)
	if err != nil {
		return Result{}, fmt.Errorf("conversion: create: %w", err)
	}
	if created {
		return Result{Conversion: stored, Duplicate: false}, nil
	}

	// Duplicate transaction. A retry with a terminal status while the
	// original row is still pending is the advertiser driving the status
	// transition; everything else is a pure replay and returns the
	// original row untouched.
	if stored.Status == StatusPending && status.Terminal() {
		updated, err := s.repo.TransitionStatus(ctx, stored.ID, status, now)
		if err != nil {
			return Result{}, fmt.Errorf("conversion: transition: %w", err)
		}
		return Result{Conversion: updated, Duplicate: true}, nil
	}
	return Result{Conversion: stored, Duplicate: true}, nil
}

// attribute resolves the enrollment to credit. Click-level attribution is
// preferred; it degrades to enrollment-level when the click id is absent or
// does not belong to the offer.
func (s *Service) attribute(ctx context.Context, offer offers.Offer, req PostbackRequest) (offers.Enrollment, string, error) {
	if req.ClickID != "" {
		click, err := s.clicks.GetClick(ctx, req.ClickID)
		if err == nil {
			e, err := s.enrollments.GetEnrollment(ctx, click.EnrollmentID)
			if err == nil && e.OfferID == offer.ID {
				return e, click.ID, nil
			}
		} else if !errors.Is(err, tracking.ErrClickNotFound) {
			return offers.Enrollment{}, "", fmt.Errorf("conversion: click lookup: %w", err)
		}
	}

	if req.TrackingToken != "" {
		e, err := s.enrollments.FindEnrollmentByToken(ctx, req.TrackingToken)
		if err == nil && e.OfferID == offer.ID {
			return e, "", nil
		}
		if err != nil && !errors.Is(err, offers.ErrEnrollmentNotFound) {
			return offers.Enrollment{}, "", fmt.Errorf("conversion: token lookup: %w", err)
		}
	}

	return offers.Enrollment{}, "", ErrUnattributable
}

// Approve moves a pending conversion to approved and credits the
// enrollment. Approving an already-approved conversion is a no-op;
// approving a rejected one fails with ErrAlreadyFinal.
func (s *Service) Approve(ctx context.Context, id string) (Conversion, error) {
	return s.review(ctx, id, StatusApproved)
}

// Reject moves a pending conversion to rejected. No counters change.
func (s *Service) Reject(ctx context.Context, id string) (Conversion, error) {
	return s.review(ctx, id, StatusRejected)
}

func (s *Service) review(ctx context.Context, id string, to Status) (Conversion, error) {
	if id == "" {
		return Conversion{}, ErrInvalidArgument
	}
	c, err := s.repo.TransitionStatus(ctx, id, to, s.clock().UTC())
	if err != nil {
		return Conversion{}, err
	}
	if c.Status != to {
		return c, ErrAlreadyFinal
	}
	return c, nil
}
