package middleware

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Audit logs one line per request. Handler errors are logged with the status
// they will be rendered with; 5xx at error level, 4xx at warn.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var ferr *fiber.Error
			if errors.As(err, &ferr) {
				status = ferr.Code
			}
		}

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.String("ip", c.IP()),
		}
		if id := GetRequestID(c); id != "" {
			attrs = append(attrs, slog.String("request_id", id))
		}
		if accountID := c.Params("accountId"); accountID != "" {
			attrs = append(attrs, slog.String("account_id", accountID))
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			if err != nil {
				attrs = append(attrs, slog.Any("error", err))
			}
			logger.Error("request completed", attrs...)
		case status >= fiber.StatusBadRequest:
			logger.Warn("request completed", attrs...)
		default:
			logger.Info("request completed", attrs...)
		}
		return err
	}
}
