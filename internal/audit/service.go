package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only; there are no update or delete methods.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to advertisers or promoters by default.
// - Callers should treat audit logging as best-effort.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogPostbackAccepted records a postback that made it through the pipeline.
func (s *Service) LogPostbackAccepted(ctx context.Context, networkID, ip, offerID, enrollmentID, conversionID, transactionID string, duplicate bool) error {
	msg := "postback accepted"
	if duplicate {
		msg = "postback replay absorbed"
	}
	return s.Append(ctx, Event{
		Type:          EventTypePostbackAccepted,
		NetworkID:     networkID,
		IPAddress:     ip,
		OfferID:       offerID,
		EnrollmentID:  enrollmentID,
		ConversionID:  conversionID,
		TransactionID: transactionID,
		Message:       msg,
	})
}

// LogPostbackRejected records a rejected postback with its response code.
func (s *Service) LogPostbackRejected(ctx context.Context, networkID, ip, offerID, transactionID, code string) error {
	return s.Append(ctx, Event{
		Type:          EventTypePostbackRejected,
		NetworkID:     networkID,
		IPAddress:     ip,
		OfferID:       offerID,
		TransactionID: transactionID,
		Code:          code,
		Message:       "postback rejected",
	})
}

// LogAdminReview records an admin approving or rejecting a conversion.
func (s *Service) LogAdminReview(ctx context.Context, actorUserID, actorRole, ip, conversionID, decision string) error {
	return s.Append(ctx, Event{
		Type:         EventTypeAdminReview,
		ActorUserID:  actorUserID,
		ActorRole:    actorRole,
		IPAddress:    ip,
		ConversionID: conversionID,
		Message:      "conversion " + decision,
	})
}
