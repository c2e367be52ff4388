package middleware

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const loginRateWindow = time.Minute

// LoginRateLimit caps login attempts per email (or per client IP when the
// body carries none) within a one minute window. Without Redis, or when Redis
// fails, requests pass through.
func LoginRateLimit(cache *redis.Client, maxPerMin int, logger *slog.Logger) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		var req struct {
			Email string `json:"email"`
		}
		_ = c.BodyParser(&req)
		subject := strings.ToLower(strings.TrimSpace(req.Email))
		if subject == "" {
			subject = "ip:" + c.IP()
		}
		key := "rl:login:" + subject

		ctx := c.UserContext()
		cnt, err := cache.Incr(ctx, key).Result()
		if err != nil {
			if logger != nil {
				logger.Warn("login rate limit unavailable", slog.Any("error", err))
			}
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(ctx, key, loginRateWindow)
		}
		if cnt > int64(maxPerMin) {
			c.Set(fiber.HeaderRetryAfter, fmt.Sprint(int(loginRateWindow.Seconds())))
			return fiber.NewError(fiber.StatusTooManyRequests, "too many login attempts, try again later")
		}
		return c.Next()
	}
}
