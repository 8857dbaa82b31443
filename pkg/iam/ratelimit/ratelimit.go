// Package ratelimit provides a Redis fixed-window counter used to slow down
// credential-guessing against the login and refresh endpoints.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/flagforge/flagforge/pkg/errx"
	"github.com/flagforge/flagforge/pkg/logx"
	"github.com/redis/go-redis/v9"
)

var ErrRegistry = errx.NewRegistry("RATELIMIT")

var (
	CodeTooManyAttempts = ErrRegistry.Register("TOO_MANY_ATTEMPTS", errx.TypeAuthorization, http.StatusTooManyRequests, "Too many attempts, try again later")
)

// Limiter counts hits per key within a fixed window. On Redis outage it
// fails open: an unavailable limiter must not lock everyone out.
type Limiter struct {
	client *redis.Client
	prefix string
	max    int
	window time.Duration
}

// NewLimiter builds a limiter allowing max hits per window under the given
// key prefix.
func NewLimiter(client *redis.Client, prefix string, max int, window time.Duration) *Limiter {
	return &Limiter{
		client: client,
		prefix: prefix,
		max:    max,
		window: window,
	}
}

// Allow records a hit for key and reports whether it is within the limit.
func (l *Limiter) Allow(ctx context.Context, key string) error {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		logx.WithError(err).Warn("rate limiter unavailable, failing open")
		return nil
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			logx.WithError(err).Warn("rate limiter expire failed")
		}
	}
	if count > int64(l.max) {
		return ErrRegistry.New(CodeTooManyAttempts).WithDetail("window", l.window.String())
	}
	return nil
}

// Reset clears the window for key (successful login).
func (l *Limiter) Reset(ctx context.Context, key string) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)
	if err := l.client.Del(ctx, redisKey).Err(); err != nil {
		logx.WithError(err).Warn("rate limiter reset failed")
	}
}
