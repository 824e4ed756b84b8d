package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Limiter throttles inbound postback traffic per credential (API key) before
// any durable state is touched. Throttled requests must leave no trace in the
// nonce store or the conversion tables; callers enforce that ordering by
// running Allow first.
//
// Budgets are fixed windows: PerMinute and PerHour counters that reset on
// window expiry. Both windows are checked on every call.
type Limiter struct {
	store     WindowStore
	perMinute int
	perHour   int
}

// WindowStore counts hits within a fixed window identified by key.
// Incr returns the count including the current hit; the first hit of a
// window starts its TTL.
type WindowStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

var ErrRateLimited = errors.New("ratelimit: credential over budget")

func NewLimiter(store WindowStore, perMinute, perHour int) *Limiter {
	if perMinute <= 0 {
		perMinute = 60
	}
	if perHour <= 0 {
		perHour = 1000
	}
	return &Limiter{store: store, perMinute: perMinute, perHour: perHour}
}

// Allow charges one request against both windows for the credential.
// Returns ErrRateLimited when either budget is exhausted.
//
// The hour window is charged first: a request rejected by the minute budget
// still counts toward the hour budget, which matches how abusive traffic
// should be accounted.
func (l *Limiter) Allow(ctx context.Context, credential string) error {
	if credential == "" {
		return fmt.Errorf("ratelimit: credential is required")
	}

	hourCount, err := l.store.Incr(ctx, windowKey(credential, "1h"), time.Hour)
	if err != nil {
		return fmt.Errorf("ratelimit: hour window: %w", err)
	}
	minuteCount, err := l.store.Incr(ctx, windowKey(credential, "1m"), time.Minute)
	if err != nil {
		return fmt.Errorf("ratelimit: minute window: %w", err)
	}

	if minuteCount > int64(l.perMinute) || hourCount > int64(l.perHour) {
		return ErrRateLimited
	}
	return nil
}

func windowKey(credential, suffix string) string {
	return fmt.Sprintf("pb:rl:%s:%s", credential, suffix)
}
