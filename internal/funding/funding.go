// Package funding decides withdrawals and deposits against an account's
// wallet.
package funding

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/custodia/custodia/internal/ledger"
)

// MinimumWithdrawalBalance is the balance, in wallet currency units, an
// account must hold before any withdrawal is allowed.
var MinimumWithdrawalBalance = decimal.NewFromInt(15_000)

var (
	// ErrInvalidAmount is returned for amounts that are not finite positive numbers.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrReadOnlyAccount is returned when a withdrawal would pass the policy on
	// an account whose wallet is a fixed snapshot.
	ErrReadOnlyAccount = errors.New("account is read-only")
)

// Outcome of an authorization.
type Outcome string

const (
	OutcomeApproved Outcome = "APPROVED"
	OutcomeDenied   Outcome = "DENIED"
)

// Reason explains a denial.
type Reason string

const (
	ReasonInsufficientMinimumBalance Reason = "InsufficientMinimumBalance"
	ReasonAmountExceedsBalance       Reason = "AmountExceedsBalance"
	ReasonPermissionDenied           Reason = "PermissionDenied"
	ReasonNotImplemented             Reason = "NotImplemented"
)

// Decision is the result of an authorization. Denials are decisions, not
// errors. Approved decisions carry the committed transaction and the new
// balance; denied ones carry the balance that was checked.
type Decision struct {
	Outcome         Outcome
	Reason          Reason
	AccountID       string
	Currency        string
	CurrentBalance  decimal.Decimal
	MinimumRequired decimal.Decimal
	NewBalance      decimal.Decimal
	Transaction     *ledger.Transaction
}

// Approved reports whether the decision committed a transaction.
func (d Decision) Approved() bool { return d.Outcome == OutcomeApproved }

// Amount bounds. Amounts carry at most two decimal places and are written
// in plain notation; the length cap keeps the magnitude bounded.
const (
	AmountScale     = 2
	maxAmountLength = 24
)

// ParseAmount reads a requested amount. It accepts a plain or JSON-quoted
// decimal and rejects anything that is not a finite number above zero with at
// most two decimal places. Trailing zeros beyond the second place are dropped.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if len(s) > maxAmountLength {
		return decimal.Decimal{}, fmt.Errorf("%w: too long", ErrInvalidAmount)
	}
	if strings.ContainsAny(s, "eE") {
		return decimal.Decimal{}, fmt.Errorf("%w: %q uses exponent notation", ErrInvalidAmount, s)
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if amount.Exponent() < -AmountScale {
		rounded := amount.Truncate(AmountScale)
		if !rounded.Equal(amount) {
			return decimal.Decimal{}, fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidAmount, s, AmountScale)
		}
		amount = rounded
	}
	if err := checkAmount(amount); err != nil {
		return decimal.Decimal{}, err
	}
	return amount, nil
}

// checkAmount is the bound every amount passes before it reaches the store.
func checkAmount(amount decimal.Decimal) error {
	if amount.Exponent() < -AmountScale {
		return fmt.Errorf("%w: more than %d decimal places", ErrInvalidAmount, AmountScale)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: %s is not positive", ErrInvalidAmount, amount)
	}
	return nil
}
