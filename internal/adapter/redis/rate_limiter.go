package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter enforces a fixed-window request limit per user and action,
// backed by Redis so the limit holds across instances.
type RateLimiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

func NewRateLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: prefix,
		limit:  int64(limit),
		window: window,
	}
}

// Allow increments the caller's window counter and reports whether the
// request fits under the limit. The first hit in a window sets its expiry.
func (l *RateLimiter) Allow(ctx context.Context, userID string) (bool, error) {
	key := fmt.Sprintf("rate-limit:%s:%s", l.prefix, userID)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("rate limiter incr for key '%s': %w", key, err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return false, fmt.Errorf("rate limiter expire for key '%s': %w", key, err)
		}
	}

	return count <= l.limit, nil
}
