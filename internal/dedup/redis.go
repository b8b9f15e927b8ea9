package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "rivensniper:seen:"

// RedisStore is a SeenStore backed by Redis, for deployments running more
// than one sniper process against the same channels. Redis expires keys
// itself, so no lazy purge is needed here.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedisStore constructs a RedisStore with the given retention window.
func NewRedisStore(client *redis.Client, retention time.Duration) *RedisStore {
	if retention <= 0 {
		panic("dedup: retention window must be positive")
	}
	return &RedisStore{client: client, retention: retention}
}

// ShouldAlert claims the key atomically via SET NX with the retention TTL.
func (s *RedisStore) ShouldAlert(ctx context.Context, key string) (bool, error) {
	claimed, err := s.client.SetNX(ctx, redisKeyPrefix+key, "1", s.retention).Result()
	if err != nil {
		return false, fmt.Errorf("claim seen key: %w", err)
	}
	return claimed, nil
}

var _ SeenStore = (*RedisStore)(nil)
