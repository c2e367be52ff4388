package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/custodia/custodia/internal/funding"
)

// RegisterFundingRoutes wires withdrawals and deposits. Only withdrawals
// change state, so only they go through the idempotency middleware.
func RegisterFundingRoutes(r fiber.Router, h *funding.Handler, idempotency fiber.Handler) {
	accounts := r.Group("/accounts/:accountId")
	accounts.Post("/withdrawals", idempotency, h.Withdraw)
	accounts.Post("/deposits", h.AddMoney)
}
