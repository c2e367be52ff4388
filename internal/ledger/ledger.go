package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when an account, wallet or transaction does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAccountExists indicates another account already owns the email. The
	// identity resolver treats it as a lost creation race and re-reads.
	ErrAccountExists = errors.New("account already exists")

	// ErrInsufficientFunds guards the store against a debit larger than the
	// locked balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrStoreUnavailable wraps backend failures that are not domain outcomes.
	// Callers may retry; no partial state is left behind.
	ErrStoreUnavailable = errors.New("ledger store unavailable")
)

// Kind classifies a ledger transaction.
type Kind string

const (
	KindDeposit    Kind = "DEPOSIT"
	KindWithdrawal Kind = "WITHDRAWAL"
)

// Status of a committed transaction. Only completed transactions are persisted.
type Status string

const StatusCompleted Status = "COMPLETED"

// Account is the top-level record of an authenticated identity.
type Account struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
}

// Wallet holds the balance of exactly one account.
type Wallet struct {
	AccountID string
	Balance   decimal.Decimal
	Currency  string
	UpdatedAt time.Time
}

// Transaction is an immutable ledger entry.
type Transaction struct {
	ID          string
	AccountID   string
	Kind        Kind
	Amount      decimal.Decimal
	Status      Status
	Description string
	CreatedAt   time.Time
}

// Signed returns the amount with the sign it contributes to the balance.
func (t Transaction) Signed() decimal.Decimal {
	if t.Kind == KindWithdrawal {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Sum totals the signed amounts of a transaction set. For every store-backed
// account it equals the wallet balance.
func Sum(txs []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Signed())
	}
	return total
}

// Debit describes a withdrawal to be committed by Store.Debit.
type Debit struct {
	Amount      decimal.Decimal
	Description string
}

// DebitFunc inspects the freshly read balance while the account is locked and
// returns the debit to commit. Returning an error aborts without side effects
// and the error is passed back to the caller of Store.Debit unchanged.
type DebitFunc func(wallet Wallet) (Debit, error)

// DebitResult is the committed outcome of a debit.
type DebitResult struct {
	Wallet      Wallet
	Transaction Transaction
}

// Store is the durable, per-account consistent ledger backend.
type Store interface {
	FindAccountByEmail(ctx context.Context, email string) (Account, error)
	GetAccount(ctx context.Context, id string) (Account, error)
	// CreateAccount persists the account and its wallet atomically.
	CreateAccount(ctx context.Context, account Account, wallet Wallet) error
	GetWallet(ctx context.Context, accountID string) (Wallet, error)
	// ListTransactions returns the account's transactions, newest first.
	ListTransactions(ctx context.Context, accountID string) ([]Transaction, error)
	Debit(ctx context.Context, accountID string, decide DebitFunc) (DebitResult, error)
	Ping(ctx context.Context) error
}
