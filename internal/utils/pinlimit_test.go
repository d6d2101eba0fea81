package utils

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPINLimiter(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	limiter := NewRedisPINLimiter(rdb, 5, 15*time.Minute)
	ctx := context.Background()
	key := "ledger:pin_failures:10000001"

	mock.ExpectGet(key).RedisNil()
	locked, err := limiter.Locked(ctx, "10000001")
	require.NoError(t, err)
	assert.False(t, locked)

	mock.ExpectEvalSha(pinFailureScript.Hash(), []string{key}, int64(15*time.Minute/time.Millisecond)).SetVal(int64(5))
	count, err := limiter.RecordFailure(ctx, "10000001")
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	mock.ExpectGet(key).SetVal("5")
	locked, err = limiter.Locked(ctx, "10000001")
	require.NoError(t, err)
	assert.True(t, locked)

	mock.ExpectDel(key).SetVal(1)
	require.NoError(t, limiter.Reset(ctx, "10000001"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisPINLimiter_Disabled(t *testing.T) {
	limiter := NewRedisPINLimiter(nil, 5, time.Minute)
	locked, err := limiter.Locked(context.Background(), "10000001")
	assert.NoError(t, err)
	assert.False(t, locked)
	count, err := limiter.RecordFailure(context.Background(), "10000001")
	assert.NoError(t, err)
	assert.Zero(t, count)
}
