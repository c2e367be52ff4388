package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/custodia/custodia/internal/identity"
)

// RegisterIdentityRoutes wires the login endpoint behind the rate limiter.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler, rateLimiter fiber.Handler) {
	r.Post("/login", rateLimiter, h.Login)
}
