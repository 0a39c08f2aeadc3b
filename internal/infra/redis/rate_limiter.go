package redis

import (
	"context"
	"fmt"
	"time"
)

// counter is the part of RedisClient the limiter needs.
type counter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, expiration time.Duration) error
}

// RateLimiter is a fixed-window counter.
type RateLimiter struct {
	client counter
}

func NewRateLimiter(client counter) *RateLimiter {
	return &RateLimiter{client: client}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		err = r.client.Expire(ctx, key, window)
		if err != nil {
			return false, err
		}
	}

	if count > int64(limit) {
		return false, nil
	}

	return true, nil
}

// SubmitKey scopes the limit to one caller, an owner id or a client address.
func SubmitKey(caller string) string {
	return fmt.Sprintf("rate_limit:submit:%s", caller)
}
