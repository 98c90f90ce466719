package security

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	redis *redis.Client
}

func NewRateLimiter(redisClient *redis.Client) *RateLimiter {
	return &RateLimiter{redis: redisClient}
}

// CommandRateLimit throttles state-changing requests per tenant. Limits
// live in Redis so they hold across replicas.
func (r *RateLimiter) CommandRateLimit(maxPerMinute int64) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: &redisStore{
			redis:  r.redis,
			limit:  maxPerMinute,
			window: time.Minute,
		},
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if tenant := c.Request().Header.Get("X-Tenant-ID"); tenant != "" {
				return "tenant:" + tenant, nil
			}
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(429, map[string]string{
				"error": "Rate limit exceeded. Please try again later.",
			})
		},
	})
}

// redisStore is a fixed-window counter behind echo's rate limiter
// middleware. Redis being down fails open: throttling is protection, not
// correctness.
type redisStore struct {
	redis  *redis.Client
	limit  int64
	window time.Duration
}

func (s *redisStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	key := fmt.Sprintf("ratelimit:%s:%d", identifier, time.Now().Unix()/int64(s.window.Seconds()))
	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		return true, nil
	}
	if count == 1 {
		s.redis.Expire(ctx, key, s.window)
	}
	return count <= s.limit, nil
}
