package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/custodia/custodia/internal/identity"
	"github.com/custodia/custodia/internal/ledger"
)

// View is what the dashboard shows for an account.
type View struct {
	Wallet       ledger.Wallet
	Transactions []ledger.Transaction
}

// Service answers wallet queries from the ledger store, or from the fixed
// snapshot for identities registered in the directory.
type Service struct {
	store     ledger.Store
	directory *identity.Directory
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds a wallet query service.
func NewService(store ledger.Store, directory *identity.Directory, logger *slog.Logger) *Service {
	if directory == nil {
		directory = identity.NewDirectory()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		directory: directory,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// View returns the balance, currency and history of an account, most recent
// transaction first. The balance is the wallet record's, not a recomputation.
func (s *Service) View(ctx context.Context, accountID string) (View, error) {
	if snap, ok := s.directory.ByAccountID(accountID); ok {
		return View{Wallet: snap.Wallet(), Transactions: snap.Transactions(s.now())}, nil
	}

	if _, err := s.store.GetAccount(ctx, accountID); err != nil {
		return View{}, fmt.Errorf("account %s: %w", accountID, err)
	}
	w, err := s.store.GetWallet(ctx, accountID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			s.logger.Error("account has no wallet", "account_id", accountID)
		}
		return View{}, fmt.Errorf("wallet for %s: %w", accountID, err)
	}
	txs, err := s.store.ListTransactions(ctx, accountID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return View{}, fmt.Errorf("transactions for %s: %w", accountID, err)
		}
		return View{}, err
	}

	if sum := ledger.Sum(txs); !sum.Equal(w.Balance) {
		s.logger.Warn("wallet balance drifted from ledger",
			"account_id", accountID,
			"balance", w.Balance.String(),
			"ledger_sum", sum.String(),
		)
	}

	return View{Wallet: w, Transactions: txs}, nil
}
