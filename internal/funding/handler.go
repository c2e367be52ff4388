package funding

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/custodia/custodia/internal/httpx"
	"github.com/custodia/custodia/internal/ledger"
)

// Handler exposes the withdrawal and deposit endpoints.
type Handler struct {
	authorizer *Authorizer
	deposits   *DepositGate
}

// NewHandler constructs a funding handler.
func NewHandler(authorizer *Authorizer, deposits *DepositGate) *Handler {
	return &Handler{authorizer: authorizer, deposits: deposits}
}

// Withdraw runs a withdrawal through the authorizer. Approved and denied
// outcomes are both 200; the body says which.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req WithdrawalRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}
	amount, err := ParseAmount(string(req.Amount))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "amount must be a positive number")
	}

	decision, err := h.authorizer.Authorize(c.UserContext(), c.Params("accountId"), amount)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		case errors.Is(err, ErrReadOnlyAccount):
			return fiber.NewError(http.StatusConflict, "this account is read-only")
		case errors.Is(err, ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, "amount must be a positive number")
		default:
			return err
		}
	}
	return c.Status(http.StatusOK).JSON(toDecisionResponse(decision))
}

// AddMoney runs a deposit through the gate, which always refuses.
func (h *Handler) AddMoney(c *fiber.Ctx) error {
	// The gate refuses whatever arrives, so an unreadable body is refused as
	// a customer request rather than rejected as malformed.
	var req DepositRequest
	if err := httpx.Bind(c, &req); err != nil {
		req = DepositRequest{}
	}
	amount, err := ParseAmount(string(req.Amount))
	if err != nil {
		amount = decimal.Zero
	}

	decision := h.deposits.Authorize(c.UserContext(), c.Params("accountId"), amount, ParseRole(req.Role))
	return c.Status(http.StatusForbidden).JSON(toDecisionResponse(decision))
}
