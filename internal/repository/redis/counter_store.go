package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// CounterStore keeps rate-limit counters in redis. Counters self-expire with
// their window, so no explicit cleanup is needed.
type CounterStore struct {
	client *redis.Client
}

func NewCounterStore(client *redis.Client) *CounterStore {
	return &CounterStore{client: client}
}

func (s *CounterStore) Get(ctx context.Context, key string) (int64, error) {
	count, err := s.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Increment bumps the counter and attaches the window TTL when the counter is
// freshly created. Re-creation after expiry is idempotent: the first INCR in
// a new window starts at 1 and gets a fresh TTL.
func (s *CounterStore) Increment(ctx context.Context, key string, ttl time.Duration) error {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return err
	}

	if count == 1 {
		return s.client.Expire(ctx, key, ttl).Err()
	}

	return nil
}
