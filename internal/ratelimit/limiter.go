// Package ratelimit throttles credential-guessing attempts per identity.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const counterKeyPrefix = "login_attempts:"

// Limiter counts login attempts per identity in Redis. The counter's TTL is
// reset to the full window on every recorded attempt, so the window slides
// with activity rather than being fixed to the first attempt. That matches
// the deployed behavior and is asserted as such in the tests.
type Limiter struct {
	redis       *redis.Client
	maxAttempts int
	window      time.Duration
}

// NewLimiter constructs a Limiter.
func NewLimiter(client *redis.Client, maxAttempts int, window time.Duration) *Limiter {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &Limiter{redis: client, maxAttempts: maxAttempts, window: window}
}

// CheckAndRecord reports whether the identity has exhausted its attempt
// budget. Attempts over the limit are rejected without incrementing, so
// hammering a locked identity does not extend its window.
func (l *Limiter) CheckAndRecord(ctx context.Context, identity string) (bool, error) {
	key := counterKeyPrefix + identity

	value, err := l.redis.Get(ctx, key).Result()
	attempts := 0
	switch {
	case err == redis.Nil:
	case err != nil:
		return false, fmt.Errorf("ratelimit: read counter: %w", err)
	default:
		attempts, err = strconv.Atoi(value)
		if err != nil {
			return false, fmt.Errorf("ratelimit: corrupt counter for %q: %w", identity, err)
		}
	}

	if attempts >= l.maxAttempts {
		return true, nil
	}

	if err := l.redis.Set(ctx, key, strconv.Itoa(attempts+1), l.window).Err(); err != nil {
		return false, fmt.Errorf("ratelimit: record attempt: %w", err)
	}
	return false, nil
}
