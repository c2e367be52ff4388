package funding

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
)

// Role of whoever initiates a deposit.
type Role string

const (
	RoleCustomer      Role = "CUSTOMER"
	RoleAdministrator Role = "ADMINISTRATOR"
)

// ParseRole normalises a role name. Unknown or empty names are customers.
func ParseRole(raw string) Role {
	if strings.EqualFold(strings.TrimSpace(raw), string(RoleAdministrator)) {
		return RoleAdministrator
	}
	return RoleCustomer
}

// DepositGate refuses every deposit. Customers are not allowed to add money;
// administrator deposits are not implemented.
type DepositGate struct {
	logger *slog.Logger
}

// NewDepositGate builds the deposit gate.
func NewDepositGate(logger *slog.Logger) *DepositGate {
	if logger == nil {
		logger = slog.Default()
	}
	return &DepositGate{logger: logger}
}

// Authorize never touches the ledger. The amount is not inspected.
func (g *DepositGate) Authorize(_ context.Context, accountID string, amount decimal.Decimal, role Role) Decision {
	reason := ReasonPermissionDenied
	if role == RoleAdministrator {
		reason = ReasonNotImplemented
	}
	g.logger.Info("deposit rejected",
		"account_id", accountID,
		"role", string(role),
		"amount", amount.String(),
		"reason", string(reason),
	)
	return Decision{Outcome: OutcomeDenied, Reason: reason, AccountID: accountID}
}
