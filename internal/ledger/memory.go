package ledger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a concurrency-safe in-memory Store used by tests and by
// development runs without DATABASE_URL.
type MemoryStore struct {
	mu           sync.RWMutex
	accounts     map[string]Account
	emails       map[string]string
	wallets      map[string]Wallet
	transactions map[string][]Transaction

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex

	now func() time.Time
}

// NewMemoryStore creates an empty in-memory ledger store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:     make(map[string]Account),
		emails:       make(map[string]string),
		wallets:      make(map[string]Wallet),
		transactions: make(map[string][]Transaction),
		locks:        make(map[string]*sync.Mutex),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) FindAccountByEmail(_ context.Context, email string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emails[emailKey(email)]
	if !ok {
		return Account{}, ErrNotFound
	}
	return s.accounts[id], nil
}

func (s *MemoryStore) GetAccount(_ context.Context, id string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return account, nil
}

func (s *MemoryStore) CreateAccount(_ context.Context, account Account, wallet Wallet) error {
	if account.ID == "" || wallet.AccountID != account.ID {
		return fmt.Errorf("wallet must reference account %q", account.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := emailKey(account.Email)
	if _, exists := s.emails[key]; exists {
		return ErrAccountExists
	}
	if _, exists := s.accounts[account.ID]; exists {
		return ErrAccountExists
	}
	s.accounts[account.ID] = account
	s.emails[key] = account.ID
	s.wallets[account.ID] = wallet
	return nil
}

func (s *MemoryStore) GetWallet(_ context.Context, accountID string) (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wallet, ok := s.wallets[accountID]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return wallet, nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, accountID string) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.wallets[accountID]; !ok {
		return nil, ErrNotFound
	}
	out := make([]Transaction, len(s.transactions[accountID]))
	copy(out, s.transactions[accountID])
	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) Debit(ctx context.Context, accountID string, decide DebitFunc) (DebitResult, error) {
	lock := s.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	wallet, err := s.GetWallet(ctx, accountID)
	if err != nil {
		return DebitResult{}, err
	}

	debit, err := decide(wallet)
	if err != nil {
		return DebitResult{}, err
	}
	if !debit.Amount.IsPositive() {
		return DebitResult{}, fmt.Errorf("debit amount must be positive, got %s", debit.Amount)
	}
	if debit.Amount.GreaterThan(wallet.Balance) {
		return DebitResult{}, fmt.Errorf("%w: debit of %s exceeds balance %s", ErrInsufficientFunds, debit.Amount, wallet.Balance)
	}

	now := s.now()
	tx := Transaction{
		ID:          newTransactionID(),
		AccountID:   accountID,
		Kind:        KindWithdrawal,
		Amount:      debit.Amount,
		Status:      StatusCompleted,
		Description: debit.Description,
		CreatedAt:   now,
	}
	wallet.Balance = wallet.Balance.Sub(debit.Amount)
	wallet.UpdatedAt = now

	s.mu.Lock()
	s.wallets[accountID] = wallet
	s.transactions[accountID] = append(s.transactions[accountID], tx)
	s.mu.Unlock()

	return DebitResult{Wallet: wallet, Transaction: tx}, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) accountLock(accountID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock, ok := s.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[accountID] = lock
	}
	return lock
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// newTransactionID returns a time-ordered identifier so that ids sort in
// commit order.
func newTransactionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func sortNewestFirst(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].CreatedAt.Equal(txs[j].CreatedAt) {
			return txs[i].CreatedAt.After(txs[j].CreatedAt)
		}
		return txs[i].ID > txs[j].ID
	})
}
