package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// 10 requests per 15 minutes per IP and purpose
	defaultLimit  = 10
	defaultWindow = 15 * time.Minute
)

// Limiter is a fixed-window request counter backed by Redis. It fails open:
// callers decide what to do when Redis is unreachable.
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{
		client: client,
		limit:  defaultLimit,
		window: defaultWindow,
	}
}

func ipKey(ip, purpose string) string {
	return fmt.Sprintf("ratelimit:ip:%s:%s", purpose, ip)
}

// CheckIPRateLimitWithPurpose reports whether the IP has exhausted its
// request budget for the given purpose.
func (l *Limiter) CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error) {
	count, err := l.client.Get(ctx, ipKey(ip, purpose)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read rate limit counter: %w", err)
	}

	return count >= l.limit, nil
}

// RecordIPRequestWithPurpose counts one request against the IP's budget. The
// window starts at the first request and is not extended by later ones.
func (l *Limiter) RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error {
	key := ipKey(ip, purpose)

	pipe := l.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, l.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record request: %w", err)
	}

	return nil
}
