package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/custodia/custodia/internal/ledger"
)

// Snapshot is a fixed, never persisted account view. It authenticates
// against a bcrypt hash of its secret and never touches the ledger store.
type Snapshot struct {
	account      ledger.Account
	wallet       ledger.Wallet
	transactions []ledger.Transaction
	secretHash   []byte
}

// NewSnapshot hashes secret and returns the fixed identity.
func NewSnapshot(account ledger.Account, wallet ledger.Wallet, transactions []ledger.Transaction, secret string) (*Snapshot, error) {
	if account.ID == "" || normalizeEmail(account.Email) == "" {
		return nil, fmt.Errorf("snapshot requires an id and an email")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash snapshot secret: %w", err)
	}
	wallet.AccountID = account.ID
	txs := make([]ledger.Transaction, len(transactions))
	copy(txs, transactions)
	return &Snapshot{account: account, wallet: wallet, transactions: txs, secretHash: hash}, nil
}

// Authenticate checks the secret.
func (s *Snapshot) Authenticate(_ context.Context, _ string, password string) (Session, error) {
	if err := bcrypt.CompareHashAndPassword(s.secretHash, []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return Session{Account: s.account, Wallet: s.wallet}, nil
}

// Account returns the fixed account.
func (s *Snapshot) Account() ledger.Account { return s.account }

// Wallet returns the fixed wallet.
func (s *Snapshot) Wallet() ledger.Wallet { return s.wallet }

// Transactions returns the fixed history with every entry stamped at now, so
// the view looks live without any persistence.
func (s *Snapshot) Transactions(now time.Time) []ledger.Transaction {
	out := make([]ledger.Transaction, len(s.transactions))
	for i, tx := range s.transactions {
		tx.CreatedAt = now
		out[i] = tx
	}
	return out
}

// Directory is the lookup table of fixed identities, keyed by email and by
// account id. It is read-only after construction.
type Directory struct {
	byEmail map[string]*Snapshot
	byID    map[string]*Snapshot
}

// NewDirectory registers the given snapshots.
func NewDirectory(snapshots ...*Snapshot) *Directory {
	d := &Directory{byEmail: make(map[string]*Snapshot), byID: make(map[string]*Snapshot)}
	for _, s := range snapshots {
		d.byEmail[normalizeEmail(s.account.Email)] = s
		d.byID[s.account.ID] = s
	}
	return d
}

// ByEmail finds the fixed identity registered for email.
func (d *Directory) ByEmail(email string) (*Snapshot, bool) {
	s, ok := d.byEmail[normalizeEmail(email)]
	return s, ok
}

// ByAccountID finds the fixed identity registered for an account id.
func (d *Directory) ByAccountID(id string) (*Snapshot, bool) {
	s, ok := d.byID[id]
	return s, ok
}

// Reserved simulated identity.
const (
	ReservedAccountID = "999"
	ReservedEmail     = "daveb_hvac@msn.com"
	reservedSecret    = "Secure@2026"
	reservedName      = "ROGER DAVID B."
)

// DefaultDirectory returns the directory holding the reserved simulated
// identity: 12000.00 GBP with a single completed deposit.
func DefaultDirectory() (*Directory, error) {
	openedAt := time.Date(2025, time.July, 15, 0, 0, 0, 0, time.UTC)
	balance := decimal.RequireFromString("12000.00")

	snap, err := NewSnapshot(
		ledger.Account{ID: ReservedAccountID, Email: ReservedEmail, Name: reservedName, CreatedAt: openedAt},
		ledger.Wallet{Balance: balance, Currency: "GBP", UpdatedAt: openedAt},
		[]ledger.Transaction{{
			ID:          "1",
			AccountID:   ReservedAccountID,
			Kind:        ledger.KindDeposit,
			Amount:      balance,
			Status:      ledger.StatusCompleted,
			Description: "Deposit Received",
			CreatedAt:   openedAt,
		}},
		reservedSecret,
	)
	if err != nil {
		return nil, err
	}
	return NewDirectory(snap), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
