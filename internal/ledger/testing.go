package ledger

import (
	"github.com/shopspring/decimal"
)

// SeedDeposit is a test helper that credits a wallet on the in-memory store
// and records the matching DEPOSIT transaction, keeping balance and ledger in
// step. It is a no-op for other Store implementations.
func SeedDeposit(s Store, accountID string, amount decimal.Decimal) {
	mem, ok := s.(*MemoryStore)
	if !ok {
		return
	}
	lock := mem.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	mem.mu.Lock()
	defer mem.mu.Unlock()
	wallet, ok := mem.wallets[accountID]
	if !ok {
		return
	}
	now := mem.now()
	wallet.Balance = wallet.Balance.Add(amount)
	wallet.UpdatedAt = now
	mem.wallets[accountID] = wallet
	mem.transactions[accountID] = append(mem.transactions[accountID], Transaction{
		ID:          newTransactionID(),
		AccountID:   accountID,
		Kind:        KindDeposit,
		Amount:      amount,
		Status:      StatusCompleted,
		Description: "Deposit Received",
		CreatedAt:   now,
	})
}
