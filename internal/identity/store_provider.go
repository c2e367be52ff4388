package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/custodia/custodia/internal/ledger"
	"github.com/custodia/custodia/internal/notification"
)

// StoreProvider resolves identities against the ledger store, registering a
// zero-balance wallet the first time an email is seen.
//
// The password is accepted but not verified: accounts carry no stored
// credential.
type StoreProvider struct {
	store    ledger.Store
	currency string
	notifier notification.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewStoreProvider builds a store-backed provider. currency is used for
// wallets created on first login.
func NewStoreProvider(store ledger.Store, currency string, notifier notification.Notifier, logger *slog.Logger) *StoreProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &StoreProvider{
		store:    store,
		currency: strings.ToUpper(currency),
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Authenticate finds or creates the account for email and returns it with its wallet.
func (p *StoreProvider) Authenticate(ctx context.Context, email, _ string) (Session, error) {
	email = strings.TrimSpace(email)

	account, err := p.findOrCreate(ctx, email)
	if err != nil {
		return Session{}, err
	}

	wallet, err := p.store.GetWallet(ctx, account.ID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return Session{}, fmt.Errorf("account %s has no wallet: %w", account.ID, err)
		}
		return Session{}, err
	}
	return Session{Account: account, Wallet: wallet}, nil
}

func (p *StoreProvider) findOrCreate(ctx context.Context, email string) (ledger.Account, error) {
	account, err := p.store.FindAccountByEmail(ctx, email)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, ledger.ErrNotFound) {
		return ledger.Account{}, err
	}

	now := p.now()
	account = ledger.Account{ID: uuid.NewString(), Email: email, Name: DefaultName, CreatedAt: now}
	wallet := ledger.Wallet{AccountID: account.ID, Balance: decimal.Zero, Currency: p.currency, UpdatedAt: now}

	switch err := p.store.CreateAccount(ctx, account, wallet); {
	case err == nil:
		p.logger.Info("account registered", "account_id", account.ID, "currency", wallet.Currency)
		notification.Deliver(ctx, p.notifier, p.logger, notification.Message{
			Kind:       notification.KindAccountOpened,
			AccountID:  account.ID,
			Body:       fmt.Sprintf("Wallet opened in %s", wallet.Currency),
			OccurredAt: now,
		})
		return account, nil
	case errors.Is(err, ledger.ErrAccountExists):
		// A concurrent login registered the email first.
		p.logger.Debug("account creation conflict, re-reading", "email", email)
		return p.store.FindAccountByEmail(ctx, email)
	default:
		return ledger.Account{}, err
	}
}
