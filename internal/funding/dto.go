package funding

import (
	"encoding/json"

	"github.com/custodia/custodia/internal/httpx"
)

// WithdrawalRequest is the body of a withdrawal. Amount may be a JSON number
// or a decimal string.
type WithdrawalRequest struct {
	Amount json.RawMessage `json:"amount" validate:"required"`
}

// DepositRequest is the body of an add-money attempt.
type DepositRequest struct {
	Amount json.RawMessage `json:"amount"`
	Role   string          `json:"role" validate:"max=32"`
}

// DecisionResponse renders a Decision. Approved responses carry newBalance
// and the transaction; denied ones carry the reason and the checked balance.
type DecisionResponse struct {
	Outcome         string                     `json:"outcome"`
	Reason          string                     `json:"reason,omitempty"`
	Currency        string                     `json:"currency,omitempty"`
	CurrentBalance  string                     `json:"currentBalance,omitempty"`
	MinimumRequired string                     `json:"minimumRequired,omitempty"`
	NewBalance      string                     `json:"newBalance,omitempty"`
	Transaction     *httpx.TransactionResponse `json:"transaction,omitempty"`
}

func toDecisionResponse(d Decision) DecisionResponse {
	resp := DecisionResponse{Outcome: string(d.Outcome), Reason: string(d.Reason), Currency: d.Currency}
	switch {
	case d.Approved():
		resp.NewBalance = httpx.Money(d.NewBalance)
		if d.Transaction != nil {
			tx := httpx.NewTransactionResponse(*d.Transaction)
			resp.Transaction = &tx
		}
	case d.Reason == ReasonInsufficientMinimumBalance || d.Reason == ReasonAmountExceedsBalance:
		resp.CurrentBalance = httpx.Money(d.CurrentBalance)
		resp.MinimumRequired = httpx.Money(d.MinimumRequired)
	}
	return resp
}
