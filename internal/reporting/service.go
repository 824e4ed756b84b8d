package reporting

import (
	"context"
	"errors"
	"time"

	"affiliate-platform/internal/conversion"
	"affiliate-platform/internal/offers"
	"affiliate-platform/internal/tracking"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
//
// Implementations should query the immutable sources (click rows, conversion
// rows) rather than the cached counters on enrollments and offers.

type Repository interface {
	ListClicks(ctx context.Context, enrollmentID string, from, to time.Time) ([]tracking.Click, error)
	ListConversions(ctx context.Context, enrollmentID string, from, to time.Time) ([]conversion.Conversion, error)
	ListEnrollmentsByPromoter(ctx context.Context, promoterID string) ([]offers.Enrollment, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func validRange(r TimeRange) bool {
	return !r.From.IsZero() && !r.To.IsZero() && r.To.After(r.From)
}

func (s *Service) ClickBreakdown(ctx context.Context, req ClickBreakdownRequest) (ClickBreakdown, error) {
	if req.EnrollmentID == "" || !validRange(req.Range) {
		return ClickBreakdown{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return ClickBreakdown{}, errors.New("reporting: repository not configured")
	}

	rows, err := s.repo.ListClicks(ctx, req.EnrollmentID, req.Range.From, req.Range.To)
	if err != nil {
		return ClickBreakdown{}, err
	}

	out := ClickBreakdown{
		EnrollmentID: req.EnrollmentID,
		ByDevice:     map[string]int{},
		ByBrowser:    map[string]int{},
		ByOS:         map[string]int{},
		ByCountry:    map[string]int{},
	}
	for _, c := range rows {
		out.TotalClicks++
		out.ByDevice[c.Device]++
		out.ByBrowser[c.Browser]++
		out.ByOS[c.OS]++
		if c.Country != "" {
			out.ByCountry[c.Country]++
		}
	}
	return out, nil
}

func (s *Service) EarningsSummary(ctx context.Context, req EarningsSummaryRequest) (EarningsSummary, error) {
	if req.PromoterID == "" || !validRange(req.Range) {
		return EarningsSummary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return EarningsSummary{}, errors.New("reporting: repository not configured")
	}

	enrollments, err := s.repo.ListEnrollmentsByPromoter(ctx, req.PromoterID)
	if err != nil {
		return EarningsSummary{}, err
	}

	out := EarningsSummary{PromoterID: req.PromoterID, OfferID: req.OfferID}
	for _, e := range enrollments {
		if req.OfferID != "" && e.OfferID != req.OfferID {
			continue
		}
		rows, err := s.repo.ListConversions(ctx, e.ID, req.Range.From, req.Range.To)
		if err != nil {
			return EarningsSummary{}, err
		}
		for _, c := range rows {
			out.TotalConversions++
			switch c.Status {
			case conversion.StatusApproved:
				out.ApprovedConversions++
				out.ApprovedMinor += c.CommissionMinor
			case conversion.StatusPending:
				out.PendingConversions++
				out.PendingMinor += c.CommissionMinor
			case conversion.StatusRejected:
				out.RejectedConversions++
			}
		}
	}
	return out, nil
}

func (s *Service) EnrollmentMetrics(ctx context.Context, req EnrollmentMetricsRequest) (EnrollmentMetrics, error) {
	if req.EnrollmentID == "" || !validRange(req.Range) {
		return EnrollmentMetrics{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return EnrollmentMetrics{}, errors.New("reporting: repository not configured")
	}

	clicks, err := s.repo.ListClicks(ctx, req.EnrollmentID, req.Range.From, req.Range.To)
	if err != nil {
		return EnrollmentMetrics{}, err
	}
	convs, err := s.repo.ListConversions(ctx, req.EnrollmentID, req.Range.From, req.Range.To)
	if err != nil {
		return EnrollmentMetrics{}, err
	}

	out := EnrollmentMetrics{EnrollmentID: req.EnrollmentID}
	out.Clicks = len(clicks)
	for _, c := range convs {
		if c.Status != conversion.StatusRejected {
			out.Conversions++
		}
	}
	if out.Clicks > 0 {
		out.ConversionRate = float64(out.Conversions) / float64(out.Clicks)
	}
	return out, nil
}
