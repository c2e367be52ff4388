package funding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/custodia/custodia/internal/identity"
	"github.com/custodia/custodia/internal/ledger"
	"github.com/custodia/custodia/internal/notification"
)

// WithdrawalDescription labels committed withdrawals in the history.
const WithdrawalDescription = "PayPal Withdrawal"

// Authorizer applies the minimum-balance policy to withdrawal requests and
// commits approved debits through the ledger store.
type Authorizer struct {
	store     ledger.Store
	directory *identity.Directory
	notifier  notification.Notifier
	logger    *slog.Logger
}

// NewAuthorizer builds a withdrawal authorizer.
func NewAuthorizer(store ledger.Store, directory *identity.Directory, notifier notification.Notifier, logger *slog.Logger) *Authorizer {
	if directory == nil {
		directory = identity.NewDirectory()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authorizer{store: store, directory: directory, notifier: notifier, logger: logger}
}

// denial aborts a store debit with the decision that caused it.
type denial struct {
	decision Decision
}

func (d *denial) Error() string { return "withdrawal denied: " + string(d.decision.Reason) }

// Authorize decides a withdrawal of amount from the account. The balance is
// read and, on approval, debited under the store's per-account lock, so two
// concurrent requests cannot both spend the same funds.
func (a *Authorizer) Authorize(ctx context.Context, accountID string, amount decimal.Decimal) (Decision, error) {
	if err := checkAmount(amount); err != nil {
		return Decision{}, err
	}

	if snap, ok := a.directory.ByAccountID(accountID); ok {
		decision := evaluate(snap.Wallet(), amount)
		if decision.Outcome == OutcomeDenied {
			a.denied(ctx, decision)
			return decision, nil
		}
		return Decision{}, fmt.Errorf("withdraw from %s: %w", accountID, ErrReadOnlyAccount)
	}

	res, err := a.store.Debit(ctx, accountID, func(w ledger.Wallet) (ledger.Debit, error) {
		if d := evaluate(w, amount); d.Outcome == OutcomeDenied {
			return ledger.Debit{}, &denial{decision: d}
		}
		return ledger.Debit{Amount: amount, Description: WithdrawalDescription}, nil
	})
	if err != nil {
		var deny *denial
		if errors.As(err, &deny) {
			a.denied(ctx, deny.decision)
			return deny.decision, nil
		}
		return Decision{}, fmt.Errorf("withdraw from %s: %w", accountID, err)
	}

	tx := res.Transaction
	decision := Decision{
		Outcome:         OutcomeApproved,
		AccountID:       accountID,
		Currency:        res.Wallet.Currency,
		CurrentBalance:  res.Wallet.Balance.Add(amount),
		MinimumRequired: MinimumWithdrawalBalance,
		NewBalance:      res.Wallet.Balance,
		Transaction:     &tx,
	}
	a.logger.Info("withdrawal approved",
		"account_id", accountID,
		"transaction_id", tx.ID,
		"amount", amount.String(),
		"new_balance", res.Wallet.Balance.String(),
	)
	notification.Deliver(ctx, a.notifier, a.logger, notification.Message{
		Kind:      notification.KindWithdrawalApproved,
		AccountID: accountID,
		Body:      fmt.Sprintf("Withdrawal of %s %s approved", amount.StringFixed(2), res.Wallet.Currency),
		Attributes: map[string]string{
			"transaction_id": tx.ID,
			"amount":         amount.StringFixed(2),
			"new_balance":    res.Wallet.Balance.StringFixed(2),
		},
		OccurredAt: tx.CreatedAt,
	})
	return decision, nil
}

// evaluate applies the policy to a balance snapshot. The minimum-balance gate
// comes first; a passing gate still refuses to overdraw.
func evaluate(w ledger.Wallet, amount decimal.Decimal) Decision {
	d := Decision{
		AccountID:       w.AccountID,
		Currency:        w.Currency,
		CurrentBalance:  w.Balance,
		MinimumRequired: MinimumWithdrawalBalance,
	}
	switch {
	case w.Balance.LessThan(MinimumWithdrawalBalance):
		d.Outcome, d.Reason = OutcomeDenied, ReasonInsufficientMinimumBalance
	case amount.GreaterThan(w.Balance):
		d.Outcome, d.Reason = OutcomeDenied, ReasonAmountExceedsBalance
	default:
		d.Outcome = OutcomeApproved
	}
	return d
}

func (a *Authorizer) denied(ctx context.Context, d Decision) {
	a.logger.Info("withdrawal denied",
		"account_id", d.AccountID,
		"reason", string(d.Reason),
		"balance", d.CurrentBalance.String(),
	)
	notification.Deliver(ctx, a.notifier, a.logger, notification.Message{
		Kind:      notification.KindWithdrawalDenied,
		AccountID: d.AccountID,
		Body:      fmt.Sprintf("Withdrawal denied: %s", d.Reason),
		Attributes: map[string]string{
			"reason":           string(d.Reason),
			"current_balance":  d.CurrentBalance.StringFixed(2),
			"minimum_required": d.MinimumRequired.StringFixed(2),
		},
	})
}
