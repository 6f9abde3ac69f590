package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates an in-memory Redis instance for testing
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisVerificationThrottle_Allow(t *testing.T) {
	mr, client := setupTestRedis(t)
	throttle := NewVerificationThrottle(client, time.Minute)
	ctx := context.Background()

	ok, err := throttle.Allow(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = throttle.Allow(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.False(t, ok, "second send inside the window should be throttled")

	ok, err = throttle.Allow(ctx, "bob@x.com")
	require.NoError(t, err)
	assert.True(t, ok, "destinations are throttled independently")

	wait, err := throttle.Wait(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Greater(t, wait, time.Duration(0))

	mr.FastForward(time.Minute + time.Second)

	ok, err = throttle.Allow(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.True(t, ok, "window elapsed")
}

func TestRedisVerificationThrottle_WaitWithoutKey(t *testing.T) {
	_, client := setupTestRedis(t)
	throttle := NewVerificationThrottle(client, time.Minute)

	wait, err := throttle.Wait(context.Background(), "nobody@x.com")
	require.NoError(t, err)
	assert.Zero(t, wait)
}

func TestRedisVerificationThrottle_DisabledWindow(t *testing.T) {
	_, client := setupTestRedis(t)
	throttle := NewVerificationThrottle(client, 0)

	for i := 0; i < 3; i++ {
		ok, err := throttle.Allow(context.Background(), "alice@x.com")
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestRedisVerificationThrottle_FailsOpen(t *testing.T) {
	mr, client := setupTestRedis(t)
	throttle := NewVerificationThrottle(client, time.Minute)
	mr.Close()

	ok, err := throttle.Allow(context.Background(), "alice@x.com")
	assert.Error(t, err)
	assert.True(t, ok)
}
