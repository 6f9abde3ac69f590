package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisVerificationThrottle implements domain.VerificationThrottle with one expiring key per destination
type RedisVerificationThrottle struct {
	client *redis.Client
	prefix string
	window time.Duration
}

// NewVerificationThrottle allows one verification re-send per destination per window
func NewVerificationThrottle(client *redis.Client, window time.Duration) *RedisVerificationThrottle {
	return &RedisVerificationThrottle{
		client: client,
		prefix: "verify:resend:",
		window: window,
	}
}

// Allow implements domain.VerificationThrottle.
// On a Redis failure it returns true with the error so delivery is not blocked by the cache.
func (r *RedisVerificationThrottle) Allow(ctx context.Context, destination string) (bool, error) {
	if r.window <= 0 {
		return true, nil
	}
	ok, err := r.client.SetNX(ctx, r.prefix+destination, time.Now().Unix(), r.window).Result()
	if err != nil {
		return true, fmt.Errorf("failed to set resend throttle: %w", err)
	}
	return ok, nil
}

// Wait reports how long until destination may be sent another verification message
func (r *RedisVerificationThrottle) Wait(ctx context.Context, destination string) (time.Duration, error) {
	ttl, err := r.client.TTL(ctx, r.prefix+destination).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to check resend TTL: %w", err)
	}
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}
