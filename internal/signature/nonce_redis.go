package signature

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisNonceStore records nonces in Redis using SET NX with a TTL equal to
// the freshness window. SET NX is atomic across all API workers, which is the
// whole point: two replays racing on different instances cannot both win.
type RedisNonceStore struct {
	rdb *redis.Client
}

func NewRedisNonceStore(rdb *redis.Client) *RedisNonceStore {
	return &RedisNonceStore{rdb: rdb}
}

func (s *RedisNonceStore) Remember(ctx context.Context, networkID, nonce string, ttl time.Duration) (bool, error) {
	if s.rdb == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	if ttl <= 0 {
		return false, fmt.Errorf("ttl must be > 0")
	}
	key := nonceKey(networkID, nonce)
	ok, err := s.rdb.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func nonceKey(networkID, nonce string) string {
	return fmt.Sprintf("pb:nonce:%s:%s", networkID, nonce)
}
