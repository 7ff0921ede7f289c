package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter implements fixed-window request counting for rate limiting.
// INCR and EXPIRE run in a pipeline so the window always gets a TTL even
// under concurrent first hits.
type Counter struct {
	client *redis.Client
}

func NewCounter(client *redis.Client) *Counter {
	return &Counter{client: client}
}

// Incr bumps the counter for key within the current window and returns the
// new count. The window key is derived from the period so counts reset when
// the window rolls over.
func (c *Counter) Incr(ctx context.Context, key string, period time.Duration) (int64, error) {
	window := time.Now().Unix() / int64(period.Seconds())
	windowKey := fmt.Sprintf("ratelimit:%s:%d", key, window)

	pipe := c.client.Pipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, period)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("rate limit incr: %w", err)
	}

	return incr.Val(), nil
}
