package utils

import (
	"context" // Context for Redis operations
	"errors"  // Redis nil check
	"fmt"     // Key formatting
	"strconv" // Counter parsing
	"time"    // Lockout window

	"github.com/redis/go-redis/v9" // Redis client
)

var pinFailureScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// RedisPINLimiter counts failed PIN attempts per trading account in Redis and
// reports the account as locked once maxAttempts failures fall inside window.
type RedisPINLimiter struct {
	client      redis.UniversalClient
	prefix      string
	maxAttempts int
	window      time.Duration
}

// NewRedisPINLimiter creates a limiter; a nil client disables it
func NewRedisPINLimiter(client redis.UniversalClient, maxAttempts int, window time.Duration) *RedisPINLimiter {
	return &RedisPINLimiter{
		client:      client,
		prefix:      "ledger:pin_failures",
		maxAttempts: maxAttempts,
		window:      window,
	}
}

func (l *RedisPINLimiter) key(accountID string) string {
	return fmt.Sprintf("%s:%s", l.prefix, accountID)
}

func (l *RedisPINLimiter) enabled() bool {
	return l != nil && l.client != nil && l.maxAttempts > 0 && l.window > 0
}

// Locked reports whether accountID has reached the failure limit
func (l *RedisPINLimiter) Locked(ctx context.Context, accountID string) (bool, error) {
	if !l.enabled() {
		return false, nil
	}
	val, err := l.client.Get(ctx, l.key(accountID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	count, err := strconv.Atoi(val)
	if err != nil {
		return false, fmt.Errorf("unexpected PIN failure counter %q: %w", val, err)
	}
	return count >= l.maxAttempts, nil
}

// RecordFailure increments the failure counter and returns the new count
func (l *RedisPINLimiter) RecordFailure(ctx context.Context, accountID string) (int, error) {
	if !l.enabled() {
		return 0, nil
	}
	count, err := pinFailureScript.Run(ctx, l.client, []string{l.key(accountID)}, l.window.Milliseconds()).Int()
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Reset clears the failure counter after a correct PIN or an admin reset
func (l *RedisPINLimiter) Reset(ctx context.Context, accountID string) error {
	if !l.enabled() {
		return nil
	}
	return l.client.Del(ctx, l.key(accountID)).Err()
}
