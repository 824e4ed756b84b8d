package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLimiter_AllowsUpToMinuteBudget(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	store := NewMemoryWindowStore().WithClock(func() time.Time { return now })
	l := NewLimiter(store, 60, 1000)

	for i := 0; i < 60; i++ {
		if err := l.Allow(context.Background(), "key-a"); err != nil {
			t.Fatalf("request %d unexpectedly throttled: %v", i+1, err)
		}
	}
	if err := l.Allow(context.Background(), "key-a"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited on 61st request, got %v", err)
	}
}

func TestLimiter_MinuteWindowResets(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	store := NewMemoryWindowStore().WithClock(func() time.Time { return now })
	l := NewLimiter(store, 2, 1000)

	for i := 0; i < 2; i++ {
		if err := l.Allow(context.Background(), "key-b"); err != nil {
			t.Fatalf("warm-up request %d: %v", i+1, err)
		}
	}
	if err := l.Allow(context.Background(), "key-b"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected throttle before rollover, got %v", err)
	}

	now = now.Add(61 * time.Second)
	if err := l.Allow(context.Background(), "key-b"); err != nil {
		t.Fatalf("expected fresh window after rollover, got %v", err)
	}
}

func TestLimiter_HourBudgetIndependentOfMinute(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	store := NewMemoryWindowStore().WithClock(func() time.Time { return now })
	l := NewLimiter(store, 100, 5)

	for i := 0; i < 5; i++ {
		if err := l.Allow(context.Background(), "key-c"); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}
	// Minute budget has room, hour budget does not.
	if err := l.Allow(context.Background(), "key-c"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected hour budget throttle, got %v", err)
	}

	// A minute rollover must not reset the hour budget.
	now = now.Add(2 * time.Minute)
	if err := l.Allow(context.Background(), "key-c"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected hour budget to persist across minute rollover, got %v", err)
	}
}

func TestLimiter_CredentialsAreIsolated(t *testing.T) {
	store := NewMemoryWindowStore()
	l := NewLimiter(store, 1, 1000)

	if err := l.Allow(context.Background(), "key-d"); err != nil {
		t.Fatalf("key-d first request: %v", err)
	}
	if err := l.Allow(context.Background(), "key-d"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected key-d throttled, got %v", err)
	}
	if err := l.Allow(context.Background(), "key-e"); err != nil {
		t.Fatalf("key-e must not share key-d budget: %v", err)
	}
}

func TestRedirectLimiter_AllowsAndRecovers(t *testing.T) {
	l := NewRedirectLimiter(1)

	// Burst of 2 allowed, then rejected.
	if !l.Allow("10.0.0.1") || !l.Allow("10.0.0.1") {
		t.Fatalf("expected burst to be allowed")
	}
	if l.Allow("10.0.0.1") {
		t.Fatalf("expected third immediate request to be rejected")
	}
	// Other IPs unaffected.
	if !l.Allow("10.0.0.2") {
		t.Fatalf("expected separate bucket per IP")
	}
	// Empty IP is always allowed (best-effort path).
	if !l.Allow("") {
		t.Fatalf("expected empty IP to pass")
	}
}
