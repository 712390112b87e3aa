package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/ledgerly/ledgerly/internal/config"
)

const (
	keyLoginIP      = "auth:login:ip:%s"
	keyLoginAccount = "auth:login:account:%s"

	loginIPRate       = 1.0
	loginIPBurst      = 20
	loginAccountRate  = 0.2
	loginAccountBurst = 5
)

// LoginLimiter throttles credential attempts per source IP and per account.
// A nil limiter allows everything, so the server works without redis.
type LoginLimiter struct {
	bucket *TokenBucket
}

func NewLoginLimiter(cfg config.Config) *LoginLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
	})

	return &LoginLimiter{bucket: NewTokenBucket(client)}
}

func (l *LoginLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// AllowAttempt checks both buckets; the tighter of the two wins.
func (l *LoginLimiter) AllowAttempt(ctx context.Context, ip, email string) (*Result, error) {
	if !l.Enabled() {
		return &Result{Allowed: true}, nil
	}

	res, err := l.bucket.Allow(ctx, fmt.Sprintf(keyLoginIP, strings.TrimSpace(ip)), loginIPRate, loginIPBurst)
	if err != nil {
		return nil, err
	}
	if !res.Allowed {
		return res, nil
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return res, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyLoginAccount, email), loginAccountRate, loginAccountBurst)
}

// RetryAfterSeconds rounds up for the Retry-After response header.
func RetryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
