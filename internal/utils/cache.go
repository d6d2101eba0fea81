package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"errors"        // Redis nil check
	"strconv"       // Key building
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// WalletKey is the cache key of a user's wallet
func WalletKey(userID uint) string {
	return "wallet:user:" + strconv.FormatUint(uint64(userID), 10)
}

// AccountKey is the cache key of a trading account record
func AccountKey(accountID string) string {
	return "account:" + accountID
}

// TxHistoryKey is the cache key of one page of a user's transaction history
func TxHistoryKey(userID uint, page, pageSize int) string {
	return TxHistoryPrefix(userID) + "page:" + strconv.Itoa(page) + ":size:" + strconv.Itoa(pageSize)
}

// TxHistoryPrefix prefixes every cached history page of a user. The trailing
// separator keeps user 7's prefix from matching user 70's pages.
func TxHistoryPrefix(userID uint) string {
	return "txhistory:user:" + strconv.FormatUint(uint64(userID), 10) + ":"
}

// AdminAccountsPrefix prefixes every cached page of the admin account list
const AdminAccountsPrefix = "admin:accounts:"

// AdminAccountsKey is the cache key of one page of the admin account list
func AdminAccountsKey(page, pageSize int) string {
	return AdminAccountsPrefix + "page:" + strconv.Itoa(page) + ":size:" + strconv.Itoa(pageSize)
}

// GetCache retrieves a value from Redis and unmarshals it into dest.
// A nil client behaves like an empty cache.
func GetCache(ctx context.Context, rdb redis.Cmdable, key string, dest any) (bool, error) {
	if rdb == nil {
		return false, nil
	}
	val, err := rdb.Get(ctx, key).Result() // Get value from Redis
	if errors.Is(err, redis.Nil) {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// SetCache sets a value in Redis with a specified TTL
func SetCache(ctx context.Context, rdb redis.Cmdable, key string, value any, ttl time.Duration) error {
	if rdb == nil {
		return nil
	}
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// DeleteCache deletes keys from Redis
func DeleteCache(ctx context.Context, rdb redis.Cmdable, keys ...string) error {
	if rdb == nil || len(keys) == 0 {
		return nil
	}
	return rdb.Del(ctx, keys...).Err() // Delete keys from Redis
}

// DeleteCachePrefix deletes every key starting with prefix
func DeleteCachePrefix(ctx context.Context, rdb redis.Cmdable, prefix string) error {
	if rdb == nil {
		return nil
	}
	var cursor uint64
	for {
		keys, next, err := rdb.Scan(ctx, cursor, prefix+"*", 100).Result() // Walk matching keys
		if err != nil {
			return err
		}
		if err := DeleteCache(ctx, rdb, keys...); err != nil {
			return err
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
