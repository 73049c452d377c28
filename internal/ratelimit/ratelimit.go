package ratelimit

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter bounds evaluation submissions per API key over a sliding window.
// A nil Limiter, or one built without a Redis address, allows everything:
// rate limiting is an optional deployment feature.
type Limiter struct {
	rdb    *redis.Client
	max    int
	window time.Duration
}

// New creates a Limiter backed by Redis. An empty addr disables limiting.
func New(addr, password string, max int, window time.Duration) *Limiter {
	if addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	return &Limiter{rdb: rdb, max: max, window: window}
}

// Allow reports whether another submission is permitted for apiKey and
// records it. The key is hashed so raw credentials never reach Redis.
func (l *Limiter) Allow(ctx context.Context, apiKey string) (bool, error) {
	if l == nil || l.rdb == nil {
		return true, nil
	}

	key := fmt.Sprintf("rate:submit:%x", sha256.Sum256([]byte(apiKey)))

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}

	// Set expiration if first time
	if count == 1 {
		l.rdb.Expire(ctx, key, l.window)
	}

	return count <= int64(l.max), nil
}
