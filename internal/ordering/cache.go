package ordering

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ListingCache stores the resolved public listing.
type ListingCache interface {
	Get(ctx context.Context) ([]Entry, bool, error)
	Set(ctx context.Context, entries []Entry) error
	Invalidate(ctx context.Context) error
}

// DefaultListingKey is the Redis key holding the cached listing.
const DefaultListingKey = "troupe:display-order:listing"

// RedisCache is a ListingCache backed by Redis.
type RedisCache struct {
	rc  *redis.Client
	key string
	ttl time.Duration
}

// NewRedisCache creates a listing cache. A zero ttl keeps entries until the
// next invalidation.
func NewRedisCache(rc *redis.Client, key string, ttl time.Duration) *RedisCache {
	if key == "" {
		key = DefaultListingKey
	}
	return &RedisCache{rc: rc, key: key, ttl: ttl}
}

// Get returns the cached listing. The bool is false on a miss.
func (c *RedisCache) Get(ctx context.Context) ([]Entry, bool, error) {
	bs, err := c.rc.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading listing cache: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(bs, &entries); err != nil {
		return nil, false, fmt.Errorf("decoding listing cache: %w", err)
	}
	return entries, true, nil
}

// Set stores the listing.
func (c *RedisCache) Set(ctx context.Context, entries []Entry) error {
	bs, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encoding listing cache: %w", err)
	}
	if err := c.rc.Set(ctx, c.key, bs, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing listing cache: %w", err)
	}
	return nil
}

// Invalidate drops the cached listing.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	if err := c.rc.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("invalidating listing cache: %w", err)
	}
	return nil
}
