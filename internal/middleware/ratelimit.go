package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/voxsplit/api/pkg/response"
)

// RateLimiter throttles the expensive endpoints with Redis counters.
// Fails open: a Redis outage never blocks requests.
type RateLimiter struct {
	redis *redis.Client
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{redis: redisClient}
}

// Limit creates a fixed-window rate limiting middleware. The counter is
// keyed per authenticated user when available, otherwise per client IP.
func (rl *RateLimiter) Limit(keyPrefix string, maxRequests int, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rl.redis == nil {
			return c.Next()
		}

		caller := GetUserID(c)
		if caller == "" {
			caller = c.IP()
		}

		key := fmt.Sprintf("ratelimit:%s:%s", keyPrefix, caller)
		ctx := context.Background()

		count, err := rl.redis.Incr(ctx, key).Result()
		if err != nil {
			return c.Next()
		}
		if count == 1 {
			rl.redis.Expire(ctx, key, window)
		}

		if count > int64(maxRequests) {
			ttl, _ := rl.redis.TTL(ctx, key).Result()
			c.Set("Retry-After", fmt.Sprintf("%d", int(ttl.Seconds())))
			return response.RateLimited(c)
		}

		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequests))
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", maxRequests-int(count)))
		return c.Next()
	}
}

// UploadLimit throttles uploads per hour.
func (rl *RateLimiter) UploadLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("upload", maxPerHour, time.Hour)
}

// AnalyzeLimit throttles analysis starts per hour.
func (rl *RateLimiter) AnalyzeLimit(maxPerHour int) fiber.Handler {
	return rl.Limit("analyze", maxPerHour, time.Hour)
}

// RenderLimit throttles preview and export renders per minute.
func (rl *RateLimiter) RenderLimit(maxPerMin int) fiber.Handler {
	return rl.Limit("render", maxPerMin, time.Minute)
}
