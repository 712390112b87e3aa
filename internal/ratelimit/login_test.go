package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/ledgerly/ledgerly/internal/config"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilLimiterAllowsEverything(t *testing.T) {
	limiter := NewLoginLimiter(config.Config{})
	require.Nil(t, limiter)
	assert.False(t, limiter.Enabled())

	res, err := limiter.AllowAttempt(context.Background(), "203.0.113.9", "a@example.com")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestNewLoginLimiterWithAddr(t *testing.T) {
	limiter := NewLoginLimiter(config.Config{RedisAddr: "localhost:6379"})
	require.NotNil(t, limiter)
	assert.True(t, limiter.Enabled())
}

func TestRetryAfterSecondsRoundsUp(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want int
	}{
		{0, 1},
		{200 * time.Millisecond, 1},
		{time.Second, 1},
		{1100 * time.Millisecond, 2},
		{5 * time.Second, 5},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RetryAfterSeconds(tc.in), tc.in.String())
	}
}

func TestTokenBucketNilClient(t *testing.T) {
	bucket := NewTokenBucket(nil)
	require.Nil(t, bucket)

	_, err := bucket.Allow(context.Background(), "key", 1, 1)
	assert.Error(t, err)
}

func TestTokenBucketValidatesInput(t *testing.T) {
	// No connection is opened until a command runs, so bad arguments fail
	// before redis is ever reached.
	bucket := NewTokenBucket(redis.NewClient(&redis.Options{Addr: "localhost:1"}))

	_, err := bucket.Allow(context.Background(), "", 1, 1)
	assert.Error(t, err)
	_, err = bucket.Allow(context.Background(), "key", 0, 1)
	assert.Error(t, err)
	_, err = bucket.Allow(context.Background(), "key", 1, 0)
	assert.Error(t, err)
}
