package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/pageza/fitcheck/backend/internal/logging"
)

// RateLimitConfig defines configuration for rate limiting
type RateLimitConfig struct {
	// Window is the time window for rate limiting
	Window time.Duration
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Key prefix for Redis keys
	KeyPrefix string
}

// RateLimiter handles rate limiting using Redis
type RateLimiter struct {
	redis  redis.Cmdable
	config RateLimitConfig
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewRateLimiter creates a new rate limiter instance
func NewRateLimiter(redisClient redis.Cmdable, config RateLimitConfig, logger logrus.FieldLogger) *RateLimiter {
	if config.Window <= 0 {
		config.Window = time.Minute
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "rate_limit:api"
	}
	return &RateLimiter{
		redis:  redisClient,
		config: config,
		log:    logging.Component(logger, "rate_limit"),
		now:    time.Now,
	}
}

// NewPerMinuteRateLimiter limits each API client to limit requests per minute
func NewPerMinuteRateLimiter(redisClient redis.Cmdable, limit int, logger logrus.FieldLogger) *RateLimiter {
	return NewRateLimiter(redisClient, RateLimitConfig{
		Window:    time.Minute,
		Limit:     limit,
		KeyPrefix: "rate_limit:api",
	}, logger)
}

// RateLimitMiddleware returns a Gin middleware that enforces rate limiting.
// It keys on the authenticated client and falls back to the remote address.
func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.config.Limit <= 0 {
			c.Next()
			return
		}

		subject := c.GetString(ClientIDKey)
		if subject == "" {
			subject = "ip:" + c.ClientIP()
		}

		allowed, remaining, resetTime, err := rl.IsAllowed(c.Request.Context(), subject)
		if err != nil {
			rl.log.WithError(err).Warn("rate limit check failed, allowing request")
			c.Header("X-RateLimit-Error", "rate limit check failed")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			retryAfter := int(resetTime.Sub(rl.now()).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: fmt.Sprintf("rate limit of %d requests per %v exceeded", rl.config.Limit, rl.config.Window),
			})
			return
		}

		c.Next()
	}
}

// IsAllowed counts a request from subject against the current window.
// Returns: allowed, remaining requests, reset time, error
func (rl *RateLimiter) IsAllowed(ctx context.Context, subject string) (bool, int, time.Time, error) {
	windowStart := rl.now().Truncate(rl.config.Window)
	key := rl.key(subject, windowStart)

	pipe := rl.redis.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, rl.config.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, err
	}

	count := int(incrCmd.Val())
	remaining := rl.config.Limit - count
	if remaining < 0 {
		remaining = 0
	}

	return count <= rl.config.Limit, remaining, windowStart.Add(rl.config.Window), nil
}

// Remaining reports the requests left for subject without counting one
func (rl *RateLimiter) Remaining(ctx context.Context, subject string) (int, time.Time, error) {
	windowStart := rl.now().Truncate(rl.config.Window)
	resetTime := windowStart.Add(rl.config.Window)

	count, err := rl.redis.Get(ctx, rl.key(subject, windowStart)).Int()
	if err == redis.Nil {
		return rl.config.Limit, resetTime, nil
	}
	if err != nil {
		return 0, time.Time{}, err
	}

	remaining := rl.config.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, resetTime, nil
}

func (rl *RateLimiter) key(subject string, windowStart time.Time) string {
	return fmt.Sprintf("%s:%s:%d", rl.config.KeyPrefix, subject, windowStart.Unix())
}
