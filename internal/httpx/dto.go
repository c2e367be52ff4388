package httpx

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/custodia/custodia/internal/ledger"
)

// AccountResponse is the public shape of an account.
type AccountResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// WalletResponse is the public shape of a wallet. Amounts are rendered as
// fixed two-decimal strings.
type WalletResponse struct {
	Balance  string `json:"balance"`
	Currency string `json:"currency"`
}

// TransactionResponse is the public shape of a ledger transaction.
type TransactionResponse struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	Status      string    `json:"status"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
}

// Money renders an amount the way every response carries it.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func NewAccountResponse(a ledger.Account) AccountResponse {
	return AccountResponse{ID: a.ID, Email: a.Email, Name: a.Name, CreatedAt: a.CreatedAt}
}

func NewWalletResponse(w ledger.Wallet) WalletResponse {
	return WalletResponse{Balance: Money(w.Balance), Currency: w.Currency}
}

func NewTransactionResponse(t ledger.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          t.ID,
		Type:        string(t.Kind),
		Amount:      Money(t.Amount),
		Status:      string(t.Status),
		Description: t.Description,
		Date:        t.CreatedAt,
	}
}

func NewTransactionsResponse(txs []ledger.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, NewTransactionResponse(t))
	}
	return out
}
