// Package state holds shared volatile state backed by Redis, currently the
// per-requester submission rate limiter.
package state

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter counts submissions per requester in a fixed window. It is a
// soft guard against form abuse, not a correctness mechanism.
type RateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
}

// NewRateLimiter builds a limiter allowing limit submissions per window.
func NewRateLimiter(rdb *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{rdb: rdb, limit: limit, window: window}
}

// Allow records one attempt for key and reports whether it is within the
// limit. On Redis errors the limiter fails open: a broken cache must not
// take submissions down with it.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l == nil || l.rdb == nil || l.limit <= 0 {
		return true, nil
	}

	redisKey := fmt.Sprintf("ratelimit:submit:%s", strings.ToLower(key))

	pipe := l.rdb.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, err
	}

	return incr.Val() <= int64(l.limit), nil
}
