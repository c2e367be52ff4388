package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/custodia/custodia/internal/wallet"
)

// RegisterWalletRoutes wires the dashboard data endpoint.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Get("/data/:accountId", h.Data)
}
