package signature

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"affiliate-platform/internal/network"
)

// Verifier authenticates inbound server-to-server requests.
//
// The canonical signing string is:
//
//	apiKey|networkId|timestampMillis|nonce
//
// signed with HMAC-SHA256 keyed by the network's shared secret and hex
// encoded. Field order and the pipe separator are a wire-format contract with
// every advertiser integration; any deviation breaks them all.
//
// Verification never mutates ledger state. Its only side effect is recording
// the nonce after all other checks pass, so an identical replay inside the
// freshness window is rejected.
type Verifier struct {
	networks NetworkStore
	nonces   NonceStore

	window         time.Duration
	minNonceLength int
	clock          func() time.Time
}

// NetworkStore resolves an API key to an active network.
type NetworkStore interface {
	FindByAPIKey(ctx context.Context, apiKey string) (network.Network, error)
}

// NonceStore records nonces with atomic insert-if-absent semantics and TTL.
// Remember returns true when the nonce was unseen and is now recorded.
type NonceStore interface {
	Remember(ctx context.Context, networkID, nonce string, ttl time.Duration) (bool, error)
}

var (
	ErrInvalidAPIKey     = errors.New("signature: api key does not resolve to an active network")
	ErrExpiredRequest    = errors.New("signature: timestamp outside freshness window")
	ErrInvalidSignature  = errors.New("signature: signature mismatch")
	ErrNonceReplayed     = errors.New("signature: nonce already seen")
	ErrInvalidRequest    = errors.New("signature: missing required field")
	ErrNonceStoreFailure = errors.New("signature: nonce store unavailable")
)

func NewVerifier(networks NetworkStore, nonces NonceStore, window time.Duration, minNonceLength int) *Verifier {
	if window <= 0 {
		window = 5 * time.Minute
	}
	if minNonceLength <= 0 {
		minNonceLength = 8
	}
	return &Verifier{
		networks:       networks,
		nonces:         nonces,
		window:         window,
		minNonceLength: minNonceLength,
		clock:          time.Now,
	}
}

// WithClock overrides the verifier clock. Tests only.
func (v *Verifier) WithClock(clock func() time.Time) *Verifier {
	v.clock = clock
	return v
}

// Request carries the authentication fields of an inbound postback or
// server-side click report.
type Request struct {
	APIKey          string
	NetworkID       string
	TimestampMillis int64
	Nonce           string
	Signature       string
}

// Verify authenticates req and returns the resolved network.
//
// Check order is deliberate: cheap local validation, then the network lookup,
// then freshness, then the HMAC compare, and only then the nonce write. A
// request that fails any earlier check leaves no trace in the nonce store.
func (v *Verifier) Verify(ctx context.Context, req Request) (network.Network, error) {
	if req.APIKey == "" || req.NetworkID == "" || req.Signature == "" {
		return network.Network{}, ErrInvalidRequest
	}
	if req.TimestampMillis <= 0 || len(req.Nonce) < v.minNonceLength {
		return network.Network{}, ErrInvalidRequest
	}

	n, err := v.networks.FindByAPIKey(ctx, req.APIKey)
	if err != nil {
		if errors.Is(err, network.ErrNotFound) {
			return network.Network{}, ErrInvalidAPIKey
		}
		return network.Network{}, fmt.Errorf("signature: network lookup: %w", err)
	}
	if n.ID != req.NetworkID {
		// Key is valid but claims a different network; treat as a bad key
		// rather than hinting at the mismatch.
		return network.Network{}, ErrInvalidAPIKey
	}

	now := v.clock().UTC()
	sent := time.UnixMilli(req.TimestampMillis).UTC()
	if drift := now.Sub(sent); drift > v.window || drift < -v.window {
		return network.Network{}, ErrExpiredRequest
	}

	expected := Sign(n.Secret, req.APIKey, req.NetworkID, req.TimestampMillis, req.Nonce)
	if !hmac.Equal([]byte(expected), []byte(req.Signature)) {
		return network.Network{}, ErrInvalidSignature
	}

	fresh, err := v.nonces.Remember(ctx, n.ID, req.Nonce, v.window)
	if err != nil {
		return network.Network{}, fmt.Errorf("%w: %v", ErrNonceStoreFailure, err)
	}
	if !fresh {
		return network.Network{}, ErrNonceReplayed
	}

	return n, nil
}

// Sign computes the hex HMAC-SHA256 over the canonical signing string.
// Exported so integration clients and tests produce byte-identical signatures.
func Sign(secret, apiKey, networkID string, timestampMillis int64, nonce string) string {
	payload := fmt.Sprintf("%s|%s|%d|%s", apiKey, networkID, timestampMillis, nonce)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
