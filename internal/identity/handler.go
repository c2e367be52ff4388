package identity

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/custodia/custodia/internal/httpx"
	"github.com/custodia/custodia/internal/ledger"
)

// Handler exposes the login endpoint.
type Handler struct {
	resolver *Resolver
	logger   *slog.Logger
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(resolver *Resolver, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{resolver: resolver, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

type loginResponse struct {
	Account httpx.AccountResponse `json:"account"`
	Wallet  httpx.WalletResponse  `json:"wallet"`
}

// Login resolves the credential pair to an account and its wallet.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := httpx.Bind(c, &req); err != nil {
		return err
	}

	session, err := h.resolver.Resolve(c.UserContext(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			return fiber.NewError(http.StatusUnauthorized, "incorrect email or password")
		case errors.Is(err, ledger.ErrStoreUnavailable):
			h.logger.Error("login failed", "error", err)
			return fiber.NewError(http.StatusInternalServerError, "server error")
		default:
			return err
		}
	}

	return c.Status(http.StatusOK).JSON(loginResponse{
		Account: httpx.NewAccountResponse(session.Account),
		Wallet:  httpx.NewWalletResponse(session.Wallet),
	})
}
