package wallet

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/custodia/custodia/internal/httpx"
	"github.com/custodia/custodia/internal/ledger"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type dataResponse struct {
	Wallet       httpx.WalletResponse        `json:"wallet"`
	Transactions []httpx.TransactionResponse `json:"transactions"`
}

// Data returns the wallet and transaction history of an account.
func (h *Handler) Data(c *fiber.Ctx) error {
	view, err := h.service.View(c.UserContext(), c.Params("accountId"))
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		return err
	}
	return c.Status(http.StatusOK).JSON(dataResponse{
		Wallet:       httpx.NewWalletResponse(view.Wallet),
		Transactions: httpx.NewTransactionsResponse(view.Transactions),
	})
}
