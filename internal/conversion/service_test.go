package conversion

import (
	"context"
	"errors"
	"testing"
	"time"

	"affiliate-platform/internal/offers"
	"affiliate-platform/internal/tracking"
)

type fixture struct {
	svc    *Service
	enroll *offers.MemoryRepo
	clicks *tracking.MemoryRepo
	repo   *MemoryRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	enroll := offers.NewMemoryRepo()
	clicks := tracking.NewMemoryRepo(enroll)
	repo := NewMemoryRepo(enroll)

	if err := enroll.CreateOffer(context.Background(), offers.Offer{
		ID:                "offer-1",
		NetworkID:         "net-1",
		Title:             "Spring Sale",
		DestinationURL:    "https://shop.example.com/spring",
		CommissionRateBps: 2000, // 20%
		Currency:          "USD",
		Status:            offers.OfferStatusActive,
	}); err != nil {
		t.Fatalf("seed offer: %v", err)
	}
	enroll.SeedEnrollment(offers.Enrollment{
		ID:            "enr-1",
		PromoterID:    "promoter-1",
		OfferID:       "offer-1",
		TrackingToken: "tok-1",
		Status:        offers.EnrollmentStatusActive,
	})

	svc := NewService(repo, enroll, clicks)
	svc.WithClock(func() time.Time { return time.Unix(1700000000, 0).UTC() })
	return &fixture{svc: svc, enroll: enroll, clicks: clicks, repo: repo}
}

func (f *fixture) seedClick(t *testing.T, id, enrollmentID string) {
	t.Helper()
	if err := f.clicks.InsertClick(context.Background(), tracking.Click{
		ID:           id,
		EnrollmentID: enrollmentID,
		ClickedAt:    time.Unix(1699999000, 0).UTC(),
	}); err != nil {
		t.Fatalf("seed click: %v", err)
	}
}

func (f *fixture) earnings(t *testing.T, enrollmentID string) (conversions, earningsMinor int64) {
	t.Helper()
	e, err := f.enroll.GetEnrollment(context.Background(), enrollmentID)
	if err != nil {
		t.Fatalf("get enrollment: %v", err)
	}
	return e.Conversions, e.EarningsMinor
}

func TestProcess_ApprovedPostbackCreditsOnce(t *testing.T) {
	f := newFixture(t)
	f.seedClick(t, "click-1", "enr-1")

	req := PostbackRequest{
		NetworkID:     "net-1",
		OfferID:       "offer-1",
		TransactionID: "T-1",
		ClickID:       "click-1",
		AmountMinor:   50,
		Status:        StatusApproved,
	}

	res, err := f.svc.Process(context.Background(), req)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Duplicate {
		t.Fatal("first postback flagged as duplicate")
	}
	if res.Conversion.CommissionMinor != 10 {
		t.Fatalf("expected commission 10 (20%% of 50), got %d", res.Conversion.CommissionMinor)
	}
	if res.Conversion.ClickID != "click-1" {
		t.Fatalf("expected click-level attribution, got click id %q", res.Conversion.ClickID)
	}
	if res.Conversion.Currency != "USD" {
		t.Fatalf("expected currency defaulted from offer, got %q", res.Conversion.Currency)
	}

	conversions, earnings := f.earnings(t, "enr-1")
	if conversions != 1 || earnings != 10 {
		t.Fatalf("expected conversions=1 earnings=10, got %d/%d", conversions, earnings)
	}

	// Identical retry: same conversion id back, no second credit.
	res2, err := f.svc.Process(context.Background(), req)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !res2.Duplicate {
		t.Fatal("replay not flagged as duplicate")
	}
	if res2.Conversion.ID != res.Conversion.ID {
		t.Fatalf("replay returned a different conversion id: %s vs %s", res2.Conversion.ID, res.Conversion.ID)
	}
	conversions, earnings = f.earnings(t, "enr-1")
	if conversions != 1 || earnings != 10 {
		t.Fatalf("replay double-credited: conversions=%d earnings=%d", conversions, earnings)
	}
}

func TestProcess_DuplicateStorm(t *testing.T) {
	f := newFixture(t)
	f.seedClick(t, "click-1", "enr-1")

	req := PostbackRequest{
		NetworkID:     "net-1",
		OfferID:       "offer-1",
		TransactionID: "T-storm",
		ClickID:       "click-1",
		AmountMinor:   100,
		Status:        StatusApproved,
	}

	var firstID string
	for i := 0; i < 20; i++ {
		res, err := f.svc.Process(context.Background(), req)
		if err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
		if firstID == "" {
			firstID = res.Conversion.ID
		} else if res.Conversion.ID != firstID {
			t.Fatalf("attempt %d returned new conversion id", i)
		}
	}

	conversions, earnings := f.earnings(t, "enr-1")
	if conversions != 1 || earnings != 20 {
		t.Fatalf("expected one credit of 20, got conversions=%d earnings=%d", conversions, earnings)
	}
}

func TestProcess_PendingThenApprovedTransition(t *testing.T) {
	f := newFixture(t)
	f.seedClick(t, "click-1", "enr-1")

	req := PostbackRequest{
		NetworkID:     "net-1",
		OfferID:       "offer-1",
		TransactionID: "T-2",
		ClickID:       "click-1",
		AmountMinor:   50,
		// Status omitted: defaults to pending, no credit yet.
	}
	res, err := f.svc.Process(context.Background(), req)
	if err != nil {
		t.Fatalf("pending postback: %v", err)
	}
	if res.Conversion.Status != StatusPending {
		t.Fatalf("expected pending, got %s", res.Conversion.Status)
	}
	if c, e := f.earnings(t, "enr-1"); c != 0 || e != 0 {
		t.Fatalf("pending conversion credited: conversions=%d earnings=%d", c, e)
	}

	// Advertiser confirms with the same transaction id.
	req.Status = StatusApproved
	res2, err := f.svc.Process(context.Background(), req)
	if err != nil {
		t.Fatalf("approve postback: %v", err)
	}
	if !res2.Duplicate || res2.Conversion.ID != res.Conversion.ID {
		t.Fatalf("transition should reuse the original row")
	}
	if res2.Conversion.Status != StatusApproved {
		t.Fatalf("expected approved, got %s", res2.Conversion.Status)
	}
	if c, e := f.earnings(t, "enr-1"); c != 1 || e != 10 {
		t.Fatalf("expected single credit after approval, got conversions=%d earnings=%d", c, e)
	}

	// Third approved replay is absorbed without a second credit.
	if _, err := f.svc.Process(context.Background(), req); err != nil {
		t.Fatalf("approved replay: %v", err)
	}
	if c, e := f.earnings(t, "enr-1"); c != 1 || e != 10 {
		t.Fatalf("approved replay double-credited: conversions=%d earnings=%d", c, e)
	}
}

func TestProcess_ClickAttributionBeatsToken(t *testing.T) {
	f := newFixture(t)
	f.enroll.SeedEnrollment(offers.Enrollment{
		ID:            "enr-2",
		PromoterID:    "promoter-2",
		OfferID:       "offer-1",
		TrackingToken: "tok-2",
		Status:        offers.EnrollmentStatusActive,
	})
	f.seedClick(t, "click-1", "enr-1")

	res, err := f.svc.Process(context.Background(), PostbackRequest{
		NetworkID:     "net-1",
		OfferID:       "offer-1",
		TransactionID: "T-3",
		ClickID:       "click-1",
		TrackingToken: "tok-2",
		AmountMinor:   50,
		Status:        StatusApproved,
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Conversion.EnrollmentID != "enr-1" {
		t.Fatalf("click attribution lost to token: credited %s", res.Conversion.EnrollmentID)
	}
	if _, e := f.earnings(t, "enr-2"); e != 0 {
		t.Fatal("token enrollment credited despite click match")
	}
}

func TestProcess_DegradesToTokenWhenClickForeign(t *testing.T) {
	f := newFixture(t)
	// Second offer with its own enrollment and click.
	if err := f.enroll.CreateOffer(context.Background(), offers.Offer{
		ID:                "offer-2",
		NetworkID:         "net-1",
		CommissionRateBps: 1000,
		Currency:          "USD",
		Status:            offers.OfferStatusActive,
	}); err != nil {
		t.Fatalf("seed offer-2: %v", err)
	}
	f.enroll.SeedEnrollment(offers.Enrollment{
		ID:            "enr-other",
		PromoterID:    "promoter-1",
		OfferID:       "offer-2",
		TrackingToken: "tok-other",
		Status:        offers.EnrollmentStatusActive,
	})
	f.seedClick(t, "click-foreign", "enr-other")

	res, err := f.svc.Process(context.Background(), PostbackRequest{
		NetworkID:     "net-1",
		OfferID:       "offer-1",
		TransactionID: "T-4",
		ClickID:       "click-foreign", // belongs to offer-2
		TrackingToken: "tok-1",
		AmountMinor:   50,
		Status:        StatusApproved,
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Conversion.EnrollmentID != "enr-1" {
		t.Fatalf("expected token fallback to enr-1, got %s", res.Conversion.EnrollmentID)
	}
	if res.Conversion.ClickID != "" {
		t.Fatalf("enrollment-level attribution must not carry a click id, got %q", res.Conversion.ClickID)
	}
}

func TestProcess_Unattributable(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Process(context.Background(), PostbackRequest{
		NetworkID:     "net-1",
		OfferID:       "offer-1",
		TransactionID: "T-5",
		ClickID:       "no-such-click",
		TrackingToken: "no-such-token",
		AmountMinor:   50,
		Status:        StatusApproved,
	})
	if !errors.Is(err, ErrUnattributable) {
		t.Fatalf("expected ErrUnattributable, got %v", err)
	}
}

func TestProcess_OfferFromAnotherNetwork(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Process(context.Background(), PostbackRequest{
		NetworkID:     "net-other",
		OfferID:       "offer-1",
		TransactionID: "T-6",
		TrackingToken: "tok-1",
		AmountMinor:   50,
		Status:        StatusApproved,
	})
	if !errors.Is(err, ErrInvalidOffer) {
		t.Fatalf("expected ErrInvalidOffer, got %v", err)
	}
}

func TestProcess_RejectsNegativeAmountAndBadStatus(t *testing.T) {
	f := newFixture(t)
	base := PostbackRequest{
		NetworkID:     "net-1",
		OfferID:       "offer-1",
		TransactionID: "T-7",
		TrackingToken: "tok-1",
	}

	neg := base
	neg.AmountMinor = -1
	if _, err := f.svc.Process(context.Background(), neg); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("negative amount: expected ErrInvalidArgument, got %v", err)
	}

	bad := base
	bad.Status = Status("chargeback")
	if _, err := f.svc.Process(context.Background(), bad); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("bad status: expected ErrInvalidArgument, got %v", err)
	}
}

func TestProcess_CommissionTruncatesTowardZero(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Process(context.Background(), PostbackRequest{
		NetworkID:     "net-1",
		OfferID:       "offer-1",
		TransactionID: "T-8",
		TrackingToken: "tok-1",
		AmountMinor:   999, // 20% of 999 = 199.8
		Status:        StatusApproved,
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Conversion.CommissionMinor != 199 {
		t.Fatalf("expected commission 199, got %d", res.Conversion.CommissionMinor)
	}
}

func TestReview_ApproveAndReject(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Process(context.Background(), PostbackRequest{
		NetworkID:     "net-1",
		OfferID:       "offer-1",
		TransactionID: "T-9",
		TrackingToken: "tok-1",
		AmountMinor:   50,
		Status:        StatusPending,
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	id := res.Conversion.ID

	approved, err := f.svc.Approve(context.Background(), id)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != StatusApproved {
		t.Fatalf("expected approved, got %s", approved.Status)
	}
	if c, e := f.earnings(t, "enr-1"); c != 1 || e != 10 {
		t.Fatalf("expected credit on approval, got conversions=%d earnings=%d", c, e)
	}

	// Re-approving is idempotent.
	if _, err := f.svc.Approve(context.Background(), id); err != nil {
		t.Fatalf("re-approve: %v", err)
	}
	if c, e := f.earnings(t, "enr-1"); c != 1 || e != 10 {
		t.Fatalf("re-approve double-credited: conversions=%d earnings=%d", c, e)
	}

	// Flipping an approved conversion to rejected is refused.
	if _, err := f.svc.Reject(context.Background(), id); !errors.Is(err, ErrAlreadyFinal) {
		t.Fatalf("expected ErrAlreadyFinal, got %v", err)
	}

	if _, err := f.svc.Approve(context.Background(), "missing"); !errors.Is(err, ErrConversionNotFound) {
		t.Fatalf("expected ErrConversionNotFound, got %v", err)
	}
}
