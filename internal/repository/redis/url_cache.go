package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arhen/satset.io/internal/domain"
	"github.com/arhen/satset.io/pkg/validator"
	"github.com/redis/go-redis/v9"
)

// URLCache fronts the durable store with a short-lived redis entry per alias.
// Entries are hints: Get revalidates them and purges anything expired or
// malformed, so a stale entry can never be served.
type URLCache struct {
	client *redis.Client
	now    func() time.Time
}

func NewURLCache(client *redis.Client) *URLCache {
	return &URLCache{client: client, now: time.Now}
}

func cacheKey(alias string) string {
	return fmt.Sprintf("url:%s", alias)
}

// Get returns the cached entry for alias, or (nil, nil) on miss. An entry
// whose expires_at has passed, or whose URL no longer satisfies the validity
// rules, is deleted during the read that discovers it and reported as a miss.
func (r *URLCache) Get(ctx context.Context, alias string) (*domain.CacheEntry, error) {
	key := cacheKey(alias)

	data, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		r.client.Del(ctx, key)
		return nil, nil
	}

	if entry.Expired(r.now()) || !validator.IsValidURL(entry.OriginalURL) {
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return &entry, nil
}

func (r *URLCache) Set(ctx context.Context, alias string, entry *domain.CacheEntry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, cacheKey(alias), data, ttl).Err()
}

func (r *URLCache) Delete(ctx context.Context, alias string) error {
	return r.client.Del(ctx, cacheKey(alias)).Err()
}
