// Package cache holds the Redis-backed rate cache and request counters.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ALI7-sys/CopIt/internal/application"
)

// DefaultRateTTL bounds how stale a rate can get. Conversions price against
// the cached quote, so the window stays short.
const DefaultRateTTL = 5 * time.Minute

// RateCache stores (rate, fee) pairs in Redis keyed by currency pair.
type RateCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRateCache(client *redis.Client, ttl time.Duration) *RateCache {
	if ttl <= 0 {
		ttl = DefaultRateTTL
	}
	return &RateCache{client: client, ttl: ttl}
}

// RatePairKey builds the cache key for a currency pair.
func RatePairKey(source, target string) string {
	return fmt.Sprintf("fx:rate:%s:%s", source, target)
}

func (c *RateCache) Get(ctx context.Context, pair string) (*application.CachedRate, error) {
	val, err := c.client.Get(ctx, pair).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("rate cache get: %w", err)
	}

	var cached application.CachedRate
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		// A corrupt entry is treated as a miss; it gets overwritten on the
		// next Set.
		return nil, nil
	}

	return &cached, nil
}

func (c *RateCache) Set(ctx context.Context, pair string, rate application.CachedRate) error {
	val, err := json.Marshal(rate)
	if err != nil {
		return fmt.Errorf("rate cache marshal: %w", err)
	}

	if err := c.client.Set(ctx, pair, val, c.ttl).Err(); err != nil {
		return fmt.Errorf("rate cache set: %w", err)
	}

	return nil
}
