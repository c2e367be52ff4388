package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	// IdempotencyKeyHeader lets a client retry a withdrawal safely.
	IdempotencyKeyHeader = "Idempotency-Key"

	idempotencyPrefix = "idempotency:v2:"
	inProgressMarker  = "__in_progress__"
	cacheOpTimeout    = 2 * time.Second
)

type storedResponse struct {
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        string `json:"body"`
}

// Idempotency replays the stored response when a request repeats an
// Idempotency-Key on the same path. The header is optional; requests without
// it, and every request when cache is nil, go straight to the handler. A key
// reused with a different body is rejected with 422. Only successful
// responses are stored; a failed attempt releases the key.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(IdempotencyKeyHeader)
		if cache == nil || key == "" {
			return c.Next()
		}
		if len(key) > 255 {
			return fiber.NewError(fiber.StatusBadRequest, "Idempotency-Key is too long")
		}

		cacheKey := idempotencyPrefix + c.Method() + ":" + c.Path() + ":" + key
		fingerprint := fingerprintOf(c.Body())

		ctx, cancel := context.WithTimeout(c.UserContext(), cacheOpTimeout)
		defer cancel()

		reserved, err := cache.SetNX(ctx, cacheKey, inProgressMarker, ttl).Result()
		if err != nil {
			logger.Error("idempotency reservation failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusServiceUnavailable, "idempotency store unavailable")
		}
		if !reserved {
			return replay(ctx, c, cache, cacheKey, fingerprint, logger)
		}

		if err := c.Next(); err != nil {
			release(cache, cacheKey)
			return err
		}

		status := c.Response().StatusCode()
		if status < fiber.StatusOK || status >= fiber.StatusMultipleChoices {
			release(cache, cacheKey)
			return nil
		}

		payload, err := json.Marshal(storedResponse{
			Fingerprint: fingerprint,
			Status:      status,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        string(c.Response().Body()),
		})
		if err == nil {
			persistCtx, persistCancel := context.WithTimeout(context.Background(), cacheOpTimeout)
			defer persistCancel()
			err = cache.Set(persistCtx, cacheKey, payload, ttl).Err()
		}
		if err != nil {
			// The operation already committed; the response still goes out.
			logger.Error("failed to persist idempotent response", slog.String("key", key), slog.Any("error", err))
			release(cache, cacheKey)
		}
		return nil
	}
}

func replay(ctx context.Context, c *fiber.Ctx, cache *redis.Client, cacheKey, fingerprint string, logger *slog.Logger) error {
	cached, err := cache.Get(ctx, cacheKey).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
	case err != nil:
		logger.Error("idempotency lookup failed", slog.Any("error", err))
		return fiber.NewError(fiber.StatusServiceUnavailable, "idempotency store unavailable")
	case cached == inProgressMarker:
		return fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(cached), &stored); err != nil {
		logger.Warn("failed to decode stored idempotent response", slog.Any("error", err))
		return fiber.NewError(fiber.StatusConflict, "duplicate request")
	}
	if stored.Fingerprint != fingerprint {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "Idempotency-Key reused with a different request body")
	}

	c.Set("Idempotent-Replayed", "true")
	if stored.ContentType != "" {
		c.Set(fiber.HeaderContentType, stored.ContentType)
	}
	return c.Status(stored.Status).SendString(stored.Body)
}

func release(cache *redis.Client, cacheKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
	defer cancel()
	cache.Del(ctx, cacheKey)
}

func fingerprintOf(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
