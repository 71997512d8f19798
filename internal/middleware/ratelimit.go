package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/clipfuse/clipfuse/internal/cache"
	"github.com/clipfuse/clipfuse/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RateLimiter implements sliding window rate limiting over Redis for the
// companion API surface. On Redis failure requests are allowed (fail open).
type RateLimiter struct {
	redis  *cache.Redis
	config *config.RateLimitConfig
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redis *cache.Redis, cfg *config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{redis: redis, config: cfg}
}

// Limit returns a middleware limiting requests per client key. The key is the
// user_id query param when present, falling back to the client IP.
func (r *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r.redis == nil {
			c.Next()
			return
		}

		clientKey := c.Query("user_id")
		if clientKey == "" {
			clientKey = c.ClientIP()
		}

		allowed, retryAfter := r.check(c, clientKey)
		if !allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}

		c.Next()
	}
}

func (r *RateLimiter) check(c *gin.Context, clientKey string) (bool, time.Duration) {
	ctx := c.Request.Context()
	now := time.Now()

	windowSeconds := r.config.WindowSeconds
	if windowSeconds <= 0 {
		windowSeconds = 60
	}
	window := time.Duration(windowSeconds) * time.Second
	windowStart := now.Add(-window)

	key := fmt.Sprintf("ratelimit:sliding:%s", clientKey)

	pipe := r.redis.Client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", windowStart.UnixNano()))
	countCmd := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error().Err(err).Str("client", clientKey).Msg("Failed to check rate limit")
		return true, 0
	}

	if countCmd.Val() >= int64(r.config.RequestsPerWindow) {
		return false, window
	}

	pipe = r.redis.Client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: uuid.New().String(),
	})
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error().Err(err).Str("client", clientKey).Msg("Failed to record rate limit entry")
	}

	return true, 0
}
