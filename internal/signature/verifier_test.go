package signature

import (
	"context"
	"errors"
	"testing"
	"time"

	"affiliate-platform/internal/network"
)

func testNetwork() network.Network {
	return network.Network{
		ID:     "net-1",
		Name:   "Acme Ads",
		APIKey: "key-acme",
		Secret: "topsecret",
		Status: network.StatusActive,
	}
}

func newTestVerifier(t *testing.T, now time.Time) (*Verifier, network.Network) {
	t.Helper()
	repo := network.NewMemoryRepo()
	n := testNetwork()
	if err := repo.Create(context.Background(), n); err != nil {
		t.Fatalf("seed network: %v", err)
	}
	nonces := NewMemoryNonceStore().WithClock(func() time.Time { return now })
	v := NewVerifier(repo, nonces, 5*time.Minute, 8).WithClock(func() time.Time { return now })
	return v, n
}

func signedRequest(n network.Network, ts time.Time, nonce string) Request {
	millis := ts.UnixMilli()
	return Request{
		APIKey:          n.APIKey,
		NetworkID:       n.ID,
		TimestampMillis: millis,
		Nonce:           nonce,
		Signature:       Sign(n.Secret, n.APIKey, n.ID, millis, nonce),
	}
}

func TestVerify_AcceptsFreshSignedRequest(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	v, n := newTestVerifier(t, now)

	got, err := v.Verify(context.Background(), signedRequest(n, now, "nonce-0001"))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.ID != n.ID {
		t.Fatalf("expected network %q, got %q", n.ID, got.ID)
	}
}

func TestVerify_RejectsReplayedNonce(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	v, n := newTestVerifier(t, now)

	req := signedRequest(n, now, "nonce-0002")
	if _, err := v.Verify(context.Background(), req); err != nil {
		t.Fatalf("first verify: %v", err)
	}
	if _, err := v.Verify(context.Background(), req); !errors.Is(err, ErrNonceReplayed) {
		t.Fatalf("expected ErrNonceReplayed, got %v", err)
	}
}

func TestVerify_RejectsTamperedSignature(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	v, n := newTestVerifier(t, now)

	req := signedRequest(n, now, "nonce-0003")
	req.Signature = Sign("wrong-secret", n.APIKey, n.ID, req.TimestampMillis, req.Nonce)
	if _, err := v.Verify(context.Background(), req); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerify_RejectsStaleTimestamp(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	v, n := newTestVerifier(t, now)

	cases := []struct {
		name string
		at   time.Time
	}{
		{"too old", now.Add(-6 * time.Minute)},
		{"too far future", now.Add(6 * time.Minute)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := v.Verify(context.Background(), signedRequest(n, tc.at, "nonce-0004")); !errors.Is(err, ErrExpiredRequest) {
				t.Fatalf("expected ErrExpiredRequest, got %v", err)
			}
		})
	}
}

func TestVerify_AcceptsEdgeOfWindow(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	v, n := newTestVerifier(t, now)

	// 4m59s of drift is still inside the 5 minute window.
	if _, err := v.Verify(context.Background(), signedRequest(n, now.Add(-4*time.Minute-59*time.Second), "nonce-0005")); err != nil {
		t.Fatalf("expected accept inside window, got %v", err)
	}
}

func TestVerify_RejectsUnknownAPIKey(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	v, n := newTestVerifier(t, now)

	req := signedRequest(n, now, "nonce-0006")
	req.APIKey = "key-unknown"
	if _, err := v.Verify(context.Background(), req); !errors.Is(err, ErrInvalidAPIKey) {
		t.Fatalf("expected ErrInvalidAPIKey, got %v", err)
	}
}

func TestVerify_RejectsInactiveNetwork(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	repo := network.NewMemoryRepo()
	n := testNetwork()
	n.Status = network.StatusInactive
	if err := repo.Create(context.Background(), n); err != nil {
		t.Fatalf("seed network: %v", err)
	}
	v := NewVerifier(repo, NewMemoryNonceStore(), 5*time.Minute, 8).
		WithClock(func() time.Time { return now })

	if _, err := v.Verify(context.Background(), signedRequest(n, now, "nonce-0007")); !errors.Is(err, ErrInvalidAPIKey) {
		t.Fatalf("expected ErrInvalidAPIKey for inactive network, got %v", err)
	}
}

func TestVerify_RejectsNetworkIDMismatch(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	v, n := newTestVerifier(t, now)

	req := signedRequest(n, now, "nonce-0008")
	req.NetworkID = "net-9"
	if _, err := v.Verify(context.Background(), req); !errors.Is(err, ErrInvalidAPIKey) {
		t.Fatalf("expected ErrInvalidAPIKey on network mismatch, got %v", err)
	}
}

func TestVerify_RejectsShortNonce(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	v, n := newTestVerifier(t, now)

	req := signedRequest(n, now, "abc")
	if _, err := v.Verify(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for short nonce, got %v", err)
	}
}

func TestMemoryNonceStore_ExpiresAfterTTL(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	store := NewMemoryNonceStore().WithClock(func() time.Time { return now })

	ok, err := store.Remember(context.Background(), "net-1", "nonce-ttl", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first remember: ok=%v err=%v", ok, err)
	}

	now = now.Add(2 * time.Minute)
	ok, err = store.Remember(context.Background(), "net-1", "nonce-ttl", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected nonce reusable after TTL, ok=%v err=%v", ok, err)
	}
}
