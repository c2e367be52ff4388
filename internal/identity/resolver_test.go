package identity

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia/custodia/internal/ledger"
	"github.com/custodia/custodia/internal/logging"
	"github.com/custodia/custodia/internal/notification"
)

// countingStore records how often the store is touched.
type countingStore struct {
	*ledger.MemoryStore
	calls   atomic.Int64
	creates atomic.Int64
	// conflictOnce makes the first CreateAccount report a lost race after
	// inserting the account through another path.
	conflictOnce atomic.Bool
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: ledger.NewMemoryStore()}
}

func (s *countingStore) FindAccountByEmail(ctx context.Context, email string) (ledger.Account, error) {
	s.calls.Add(1)
	return s.MemoryStore.FindAccountByEmail(ctx, email)
}

func (s *countingStore) CreateAccount(ctx context.Context, a ledger.Account, w ledger.Wallet) error {
	s.calls.Add(1)
	if s.conflictOnce.CompareAndSwap(true, false) {
		winner := a
		winner.ID = "00000000-0000-7000-8000-000000000001"
		w.AccountID = winner.ID
		if err := s.MemoryStore.CreateAccount(ctx, winner, w); err != nil {
			return err
		}
		return ledger.ErrAccountExists
	}
	err := s.MemoryStore.CreateAccount(ctx, a, w)
	if err == nil {
		s.creates.Add(1)
	}
	return err
}

func (s *countingStore) GetWallet(ctx context.Context, id string) (ledger.Wallet, error) {
	s.calls.Add(1)
	return s.MemoryStore.GetWallet(ctx, id)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification.Message
}

func (n *recordingNotifier) Send(_ context.Context, m notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, m)
	return nil
}

func newResolver(t *testing.T, store ledger.Store, notifier notification.Notifier) *Resolver {
	t.Helper()
	dir, err := DefaultDirectory()
	require.NoError(t, err)
	return NewResolver(dir, NewStoreProvider(store, "usd", notifier, logging.Discard()))
}

func TestResolveReservedIdentity(t *testing.T) {
	store := newCountingStore()
	r := newResolver(t, store, nil)

	session, err := r.Resolve(context.Background(), "DaveB_HVAC@msn.com ", "Secure@2026")
	require.NoError(t, err)

	assert.Equal(t, ReservedAccountID, session.Account.ID)
	assert.Equal(t, "ROGER DAVID B.", session.Account.Name)
	assert.True(t, session.Wallet.Balance.Equal(decimal.NewFromInt(12_000)))
	assert.Equal(t, "GBP", session.Wallet.Currency)
	assert.Zero(t, store.calls.Load(), "reserved identity must not touch the store")
}

func TestResolveReservedIdentityWrongSecret(t *testing.T) {
	store := newCountingStore()
	r := newResolver(t, store, nil)

	for _, pw := range []string{"", "secure@2026", "Secure@2026 ", "guess"} {
		_, err := r.Resolve(context.Background(), ReservedEmail, pw)
		require.ErrorIs(t, err, ErrInvalidCredentials, "password %q", pw)
	}
	assert.Zero(t, store.calls.Load())
}

func TestResolveRegistersUnknownEmail(t *testing.T) {
	store := newCountingStore()
	notifier := &recordingNotifier{}
	r := newResolver(t, store, notifier)
	ctx := context.Background()

	first, err := r.Resolve(ctx, "new@example.com", "anything")
	require.NoError(t, err)
	assert.Equal(t, DefaultName, first.Account.Name)
	assert.True(t, first.Wallet.Balance.IsZero())
	assert.Equal(t, "USD", first.Wallet.Currency)
	assert.Equal(t, first.Account.ID, first.Wallet.AccountID)

	// Passwords of store-backed accounts are not verified.
	second, err := r.Resolve(ctx, "NEW@example.com", "something else")
	require.NoError(t, err)
	assert.Equal(t, first.Account.ID, second.Account.ID)

	assert.EqualValues(t, 1, store.creates.Load())
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, notification.KindAccountOpened, notifier.sent[0].Kind)
	assert.Equal(t, first.Account.ID, notifier.sent[0].AccountID)
}

func TestResolveConcurrentFirstLogins(t *testing.T) {
	store := newCountingStore()
	r := newResolver(t, store, nil)

	const logins = 16
	ids := make([]string, logins)
	var wg sync.WaitGroup
	for i := 0; i < logins; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			session, err := r.Resolve(context.Background(), "race@example.com", "pw")
			if err != nil {
				t.Errorf("login %d: %v", i, err)
				return
			}
			ids[i] = session.Account.ID
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, store.creates.Load())
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestResolveRecoversFromCreationConflict(t *testing.T) {
	store := newCountingStore()
	store.conflictOnce.Store(true)
	notifier := &recordingNotifier{}
	r := newResolver(t, store, notifier)

	session, err := r.Resolve(context.Background(), "late@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "00000000-0000-7000-8000-000000000001", session.Account.ID)
	assert.Empty(t, notifier.sent, "the losing login does not announce the account")
}

func TestResolveRejectsEmptyEmail(t *testing.T) {
	store := newCountingStore()
	r := newResolver(t, store, nil)

	_, err := r.Resolve(context.Background(), "   ", "pw")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Zero(t, store.calls.Load())
}

type failingStore struct {
	ledger.Store
}

func (failingStore) FindAccountByEmail(context.Context, string) (ledger.Account, error) {
	return ledger.Account{}, ledger.ErrStoreUnavailable
}

func TestResolvePropagatesStoreFailure(t *testing.T) {
	r := newResolver(t, failingStore{}, nil)

	_, err := r.Resolve(context.Background(), "someone@example.com", "pw")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ledger.ErrStoreUnavailable))
}

func TestSnapshotTransactionsAreStampedNow(t *testing.T) {
	dir, err := DefaultDirectory()
	require.NoError(t, err)
	snap, ok := dir.ByAccountID(ReservedAccountID)
	require.True(t, ok)

	now := snap.Account().CreatedAt.AddDate(1, 0, 0)
	txs := snap.Transactions(now)
	require.Len(t, txs, 1)
	assert.Equal(t, ledger.KindDeposit, txs[0].Kind)
	assert.Equal(t, ledger.StatusCompleted, txs[0].Status)
	assert.True(t, txs[0].Amount.Equal(decimal.NewFromInt(12_000)))
	assert.Equal(t, now, txs[0].CreatedAt)

	// Stamping does not mutate the stored history.
	assert.Equal(t, snap.Account().CreatedAt, snap.transactions[0].CreatedAt)
}
