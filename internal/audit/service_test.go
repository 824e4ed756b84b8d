package audit

import (
	"context"
	"testing"
)

func TestService_AppendRequiresType(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{NetworkID: "net-1"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_AppendsImmutableEvents(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogPostbackRejected(context.Background(), "net-1", "1.2.3.4", "offer-1", "T-1", "INVALID_SIGNATURE"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	if evs[0].IPAddress != "1.2.3.4" {
		t.Fatalf("expected ip captured")
	}
	if evs[0].Type != EventTypePostbackRejected {
		t.Fatalf("expected postback_rejected")
	}
	if evs[0].Code != "INVALID_SIGNATURE" {
		t.Fatalf("expected code captured")
	}
	if evs[0].ID == "" || evs[0].CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp assigned")
	}
}

func TestService_ReplayMessage(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogPostbackAccepted(context.Background(), "net-1", "", "offer-1", "enr-1", "conv-1", "T-1", true); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	evs := repo.Events()
	if evs[0].Message != "postback replay absorbed" {
		t.Fatalf("expected replay message, got %q", evs[0].Message)
	}
}
