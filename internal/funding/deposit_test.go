package funding

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/custodia/custodia/internal/logging"
)

func TestDepositGateDeniesCustomers(t *testing.T) {
	gate := NewDepositGate(logging.Discard())

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-10), decimal.NewFromInt(1_000_000)} {
		d := gate.Authorize(context.Background(), "acct", amount, RoleCustomer)
		assert.Equal(t, OutcomeDenied, d.Outcome)
		assert.Equal(t, ReasonPermissionDenied, d.Reason)
		assert.Nil(t, d.Transaction)
	}
}

func TestDepositGateHasNoAdministratorPath(t *testing.T) {
	gate := NewDepositGate(logging.Discard())

	d := gate.Authorize(context.Background(), "acct", decimal.NewFromInt(10), RoleAdministrator)
	assert.Equal(t, OutcomeDenied, d.Outcome)
	assert.Equal(t, ReasonNotImplemented, d.Reason)
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleAdministrator, ParseRole(" administrator "))
	assert.Equal(t, RoleCustomer, ParseRole(""))
	assert.Equal(t, RoleCustomer, ParseRole("admin"))
	assert.Equal(t, RoleCustomer, ParseRole("CUSTOMER"))
}
