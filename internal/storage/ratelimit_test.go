package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryRateLimiter(t *testing.T) {
	t.Parallel()

	limiter := NewMemoryRateLimiter(1, 2)
	t.Cleanup(func() { _ = limiter.Close() })
	ctx := t.Context()

	for i := range 2 {
		res, err := limiter.Allow(ctx, "203.0.113.1")
		require.NoError(t, err)
		require.True(t, res.Allowed, "request %d", i)
	}

	res, err := limiter.Allow(ctx, "203.0.113.1")
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.Positive(t, res.RetryAfter)

	res, err = limiter.Allow(ctx, "203.0.113.2")
	require.NoError(t, err)
	require.True(t, res.Allowed, "keys are independent")
}

func TestRedisRateLimiter(t *testing.T) {
	t.Parallel()

	_, client := newMiniredis(t)
	clock := newTestClock()
	limiter := NewRedisRateLimiter(client, 2, time.Second)
	limiter.now = clock.Now
	ctx := t.Context()

	for i := range 2 {
		res, err := limiter.Allow(ctx, "203.0.113.1")
		require.NoError(t, err)
		require.True(t, res.Allowed, "request %d", i)
	}

	clock.Advance(400 * time.Millisecond)

	res, err := limiter.Allow(ctx, "203.0.113.1")
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.Equal(t, 600*time.Millisecond, res.RetryAfter, "waits for the oldest request to leave the window")

	res, err = limiter.Allow(ctx, "203.0.113.2")
	require.NoError(t, err)
	require.True(t, res.Allowed, "keys are independent")

	clock.Advance(700 * time.Millisecond)

	res, err = limiter.Allow(ctx, "203.0.113.1")
	require.NoError(t, err)
	require.True(t, res.Allowed, "window slid past earlier requests")
}
