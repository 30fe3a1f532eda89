package rateLimit

import (
	"context"
	"strconv"
	"time"

	redisadapter "github.com/robertarktes/campus-events/internal/adapters/redis"
	"github.com/robertarktes/campus-events/internal/observability"
)

const keyPrefix = "campus:rl:"

type RateLimiter struct {
	redis  *redisadapter.Cache
	logger observability.Logger
	now    func() time.Time
}

type Option func(*RateLimiter)

func WithLogger(l observability.Logger) Option {
	return func(rl *RateLimiter) {
		if l != nil {
			rl.logger = l
		}
	}
}

func NewRateLimiter(redis *redisadapter.Cache, opts ...Option) *RateLimiter {
	rl := &RateLimiter{redis: redis, logger: observability.NewNopLogger(), now: time.Now}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// Allow counts requests per key in fixed windows of length period. Redis
// errors allow the request.
func (rl *RateLimiter) Allow(ctx context.Context, key string, rate int, period time.Duration) bool {
	if period <= 0 {
		period = time.Minute
	}
	window := rl.now().UnixNano() / int64(period)
	windowKey := keyPrefix + key + ":" + strconv.FormatInt(window, 10)

	pipe := rl.redis.Client().Pipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, period)
	if _, err := pipe.Exec(ctx); err != nil {
		rl.logger.WithField("key", key).WithError(err).Warn("rate limiter unavailable, allowing request")
		return true
	}

	if incr.Val() > int64(rate) {
		observability.RateLimitExceeded.Inc()
		return false
	}
	return true
}
