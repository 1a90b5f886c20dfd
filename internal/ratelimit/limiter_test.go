package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/helios-hr/helios/internal/ratelimit"
)

func newLimiter(t *testing.T) (*ratelimit.Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return ratelimit.NewLimiter(client, 5, 15*time.Minute), mr
}

func TestThresholdAtFiveAttempts(t *testing.T) {
	limiter, _ := newLimiter(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		exceeded, err := limiter.CheckAndRecord(ctx, "a@x.com")
		require.NoError(t, err)
		require.False(t, exceeded, "attempt %d should be allowed", i)
	}

	exceeded, err := limiter.CheckAndRecord(ctx, "a@x.com")
	require.NoError(t, err)
	require.True(t, exceeded, "sixth attempt must be rejected")
}

func TestOverLimitDoesNotExtendWindow(t *testing.T) {
	limiter, mr := newLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := limiter.CheckAndRecord(ctx, "a@x.com")
		require.NoError(t, err)
	}
	ttlBefore := mr.TTL("login_attempts:a@x.com")

	mr.FastForward(5 * time.Minute)
	exceeded, err := limiter.CheckAndRecord(ctx, "a@x.com")
	require.NoError(t, err)
	require.True(t, exceeded)

	// Rejected attempts do not write, so the TTL keeps draining.
	require.Less(t, mr.TTL("login_attempts:a@x.com"), ttlBefore)
}

func TestWindowSlidesWithEachRecordedAttempt(t *testing.T) {
	limiter, mr := newLimiter(t)
	ctx := context.Background()

	_, err := limiter.CheckAndRecord(ctx, "a@x.com")
	require.NoError(t, err)

	mr.FastForward(10 * time.Minute)
	_, err = limiter.CheckAndRecord(ctx, "a@x.com")
	require.NoError(t, err)

	// Intended behavior: every recorded attempt resets the TTL to the full
	// window, so the window slides instead of expiring 15m after the first
	// attempt.
	require.Equal(t, 15*time.Minute, mr.TTL("login_attempts:a@x.com"))
}

func TestCounterResetsAfterQuietWindow(t *testing.T) {
	limiter, mr := newLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := limiter.CheckAndRecord(ctx, "a@x.com")
		require.NoError(t, err)
	}
	exceeded, err := limiter.CheckAndRecord(ctx, "a@x.com")
	require.NoError(t, err)
	require.True(t, exceeded)

	mr.FastForward(16 * time.Minute)
	exceeded, err = limiter.CheckAndRecord(ctx, "a@x.com")
	require.NoError(t, err)
	require.False(t, exceeded, "counter must reset after the window elapses")
}

func TestIdentitiesAreIndependent(t *testing.T) {
	limiter, _ := newLimiter(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, _ = limiter.CheckAndRecord(ctx, "a@x.com")
	}
	exceeded, err := limiter.CheckAndRecord(ctx, "b@x.com")
	require.NoError(t, err)
	require.False(t, exceeded)
}

func TestStoreDownFailsHard(t *testing.T) {
	limiter, mr := newLimiter(t)
	mr.Close()

	_, err := limiter.CheckAndRecord(context.Background(), "a@x.com")
	require.Error(t, err)
}
