package offers

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedOffer(t *testing.T, repo *MemoryRepo, status OfferStatus) Offer {
	t.Helper()
	o := Offer{
		ID:                "offer-1",
		NetworkID:         "net-1",
		Title:             "Spring Sale",
		DestinationURL:    "https://shop.example.com/spring",
		PayoutMinor:       500,
		CommissionRateBps: 1000,
		Currency:          "USD",
		Status:            status,
	}
	if err := repo.CreateOffer(context.Background(), o); err != nil {
		t.Fatalf("seed offer: %v", err)
	}
	return o
}

func TestJoin_CreatesEnrollmentWithToken(t *testing.T) {
	repo := NewMemoryRepo()
	seedOffer(t, repo, OfferStatusActive)
	now := time.Unix(1700000000, 0).UTC()
	svc := NewService(repo).WithClock(func() time.Time { return now })

	e, created, err := svc.Join(context.Background(), "promoter-1", "offer-1")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if !created {
		t.Fatalf("expected created=true on first join")
	}
	if e.TrackingToken == "" {
		t.Fatalf("expected tracking token to be generated")
	}
	if e.Status != EnrollmentStatusActive {
		t.Fatalf("expected active enrollment, got %q", e.Status)
	}
	if !e.JoinedAt.Equal(now) {
		t.Fatalf("expected joined_at %v, got %v", now, e.JoinedAt)
	}
}

func TestJoin_IsIdempotentPerPromoterOffer(t *testing.T) {
	repo := NewMemoryRepo()
	seedOffer(t, repo, OfferStatusActive)
	svc := NewService(repo)

	first, _, err := svc.Join(context.Background(), "promoter-1", "offer-1")
	if err != nil {
		t.Fatalf("first join: %v", err)
	}
	second, created, err := svc.Join(context.Background(), "promoter-1", "offer-1")
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if created {
		t.Fatalf("expected created=false on repeat join")
	}
	if second.ID != first.ID || second.TrackingToken != first.TrackingToken {
		t.Fatalf("repeat join must return the original enrollment: %+v vs %+v", first, second)
	}
}

func TestJoin_RejectsInactiveOffer(t *testing.T) {
	repo := NewMemoryRepo()
	seedOffer(t, repo, OfferStatusPaused)
	svc := NewService(repo)

	if _, _, err := svc.Join(context.Background(), "promoter-1", "offer-1"); !errors.Is(err, ErrOfferInactive) {
		t.Fatalf("expected ErrOfferInactive, got %v", err)
	}
}

func TestJoin_RejectsUnknownOffer(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	if _, _, err := svc.Join(context.Background(), "promoter-1", "missing"); !errors.Is(err, ErrOfferNotFound) {
		t.Fatalf("expected ErrOfferNotFound, got %v", err)
	}
}

func TestCommissionFor_IntegerMath(t *testing.T) {
	cases := []struct {
		amount int64
		bps    int64
		want   int64
	}{
		{10000, 1000, 1000}, // $100 at 10% -> $10
		{5000, 2000, 1000},  // $50 at 20% -> $10
		{999, 1000, 99},     // truncated, never rounded up
		{0, 5000, 0},
	}
	for _, tc := range cases {
		o := Offer{CommissionRateBps: tc.bps}
		if got := o.CommissionFor(tc.amount); got != tc.want {
			t.Fatalf("CommissionFor(%d) at %dbps = %d, want %d", tc.amount, tc.bps, got, tc.want)
		}
	}
}

func TestCreateOffer_Validates(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	_, err := svc.CreateOffer(context.Background(), Offer{NetworkID: "net-1", Title: "X"})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for missing destination, got %v", err)
	}

	_, err = svc.CreateOffer(context.Background(), Offer{
		NetworkID: "net-1", Title: "X", DestinationURL: "https://x.example.com",
		CommissionRateBps: 20_000,
	})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for rate > 100%%, got %v", err)
	}

	o, err := svc.CreateOffer(context.Background(), Offer{
		NetworkID: "net-1", Title: "X", DestinationURL: "https://x.example.com",
		CommissionRateBps: 1500, PayoutMinor: 300,
	})
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	if o.ID == "" || o.Currency != "USD" || o.Status != OfferStatusActive {
		t.Fatalf("unexpected defaults: %+v", o)
	}
}

func TestDeactivate_MarksInactive(t *testing.T) {
	repo := NewMemoryRepo()
	seedOffer(t, repo, OfferStatusActive)
	svc := NewService(repo)

	e, _, err := svc.Join(context.Background(), "promoter-1", "offer-1")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := svc.Deactivate(context.Background(), e.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	got, err := repo.GetEnrollment(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("get enrollment: %v", err)
	}
	if got.IsActive() {
		t.Fatalf("expected inactive enrollment")
	}
}
