package ledger

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

//go:embed schema.sql
var schema string

// PostgresStore persists accounts, wallets and transactions in PostgreSQL.
// Every operation is bounded by the configured timeout.
type PostgresStore struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool, timeout time.Duration) *PostgresStore {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PostgresStore{db: db, timeout: timeout}
}

// EnsureSchema creates the ledger tables when they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply ledger schema: %w", err)
	}
	return nil
}

// FindAccountByEmail looks an account up by case-insensitive email.
func (s *PostgresStore) FindAccountByEmail(ctx context.Context, email string) (Account, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	row := s.db.QueryRow(ctx, `SELECT id, email, name, created_at FROM accounts WHERE lower(email) = $1`, emailKey(email))
	return scanAccount(row)
}

// GetAccount fetches an account by identifier.
func (s *PostgresStore) GetAccount(ctx context.Context, id string) (Account, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return Account{}, ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	row := s.db.QueryRow(ctx, `SELECT id, email, name, created_at FROM accounts WHERE id = $1`, accountID)
	return scanAccount(row)
}

// CreateAccount inserts the account and its wallet in one transaction. A
// duplicate email yields ErrAccountExists and leaves nothing behind.
func (s *PostgresStore) CreateAccount(ctx context.Context, account Account, wallet Wallet) error {
	accountID, err := uuid.Parse(account.ID)
	if err != nil {
		return fmt.Errorf("account id: %w", err)
	}
	if wallet.AccountID != account.ID {
		return fmt.Errorf("wallet must reference account %q", account.ID)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return unavailable(err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	cmd, err := tx.Exec(ctx, `INSERT INTO accounts (id, email, name, created_at) VALUES ($1, $2, $3, $4)
        ON CONFLICT DO NOTHING`, accountID, strings.TrimSpace(account.Email), account.Name, account.CreatedAt.UTC())
	if err != nil {
		return unavailable(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountExists
	}

	if _, err := tx.Exec(ctx, `INSERT INTO wallets (account_id, balance, currency, updated_at) VALUES ($1, $2, $3, $4)`,
		accountID, wallet.Balance, wallet.Currency, wallet.UpdatedAt.UTC()); err != nil {
		return unavailable(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

// GetWallet reads the wallet record of an account.
func (s *PostgresStore) GetWallet(ctx context.Context, accountID string) (Wallet, error) {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return Wallet{}, ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	row := s.db.QueryRow(ctx, `SELECT account_id, balance, currency, updated_at FROM wallets WHERE account_id = $1`, id)
	return scanWallet(row)
}

// ListTransactions returns the account's transactions, newest first.
func (s *PostgresStore) ListTransactions(ctx context.Context, accountID string) ([]Transaction, error) {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return nil, ErrNotFound
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM wallets WHERE account_id = $1)`, id).Scan(&exists); err != nil {
		return nil, unavailable(err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	rows, err := s.db.Query(ctx, `SELECT id, account_id, kind, amount, status, description, created_at
        FROM transactions WHERE account_id = $1 ORDER BY created_at DESC, id DESC`, id)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	txs := make([]Transaction, 0)
	for rows.Next() {
		var (
			txID, owner uuid.UUID
			t           Transaction
			kind        string
			status      string
			createdAt   time.Time
		)
		if err := rows.Scan(&txID, &owner, &kind, &t.Amount, &status, &t.Description, &createdAt); err != nil {
			return nil, unavailable(err)
		}
		t.ID = txID.String()
		t.AccountID = owner.String()
		t.Kind = Kind(kind)
		t.Status = Status(status)
		t.CreatedAt = createdAt.UTC()
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return txs, nil
}

// Debit locks the wallet row, lets decide inspect the fresh balance and
// commits the balance decrement together with its WITHDRAWAL transaction.
func (s *PostgresStore) Debit(ctx context.Context, accountID string, decide DebitFunc) (DebitResult, error) {
	id, err := uuid.Parse(accountID)
	if err != nil {
		return DebitResult{}, ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return DebitResult{}, unavailable(err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	wallet, err := scanWallet(tx.QueryRow(ctx, `SELECT account_id, balance, currency, updated_at
        FROM wallets WHERE account_id = $1 FOR UPDATE`, id))
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

	now := time.Now().UTC()
	var balance decimal.Decimal
	err = tx.QueryRow(ctx, `UPDATE wallets SET balance = balance - $2, updated_at = $3
        WHERE account_id = $1 AND balance >= $2 RETURNING balance`, id, debit.Amount, now).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return DebitResult{}, fmt.Errorf("%w: debit of %s exceeds balance %s", ErrInsufficientFunds, debit.Amount, wallet.Balance)
	}
	if err != nil {
		return DebitResult{}, unavailable(err)
	}

	txID, err := uuid.NewV7()
	if err != nil {
		return DebitResult{}, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO transactions (id, account_id, kind, amount, status, description, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`, txID, id, string(KindWithdrawal), debit.Amount, string(StatusCompleted), debit.Description, now); err != nil {
		return DebitResult{}, unavailable(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return DebitResult{}, unavailable(err)
	}

	wallet.Balance = balance
	wallet.UpdatedAt = now
	return DebitResult{
		Wallet: wallet,
		Transaction: Transaction{
			ID:          txID.String(),
			AccountID:   accountID,
			Kind:        KindWithdrawal,
			Amount:      debit.Amount,
			Status:      StatusCompleted,
			Description: debit.Description,
			CreatedAt:   now,
		},
	}, nil
}

// Ping verifies database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		id        uuid.UUID
		createdAt time.Time
		account   Account
	)
	if err := row.Scan(&id, &account.Email, &account.Name, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, unavailable(err)
	}
	account.ID = id.String()
	account.CreatedAt = createdAt.UTC()
	return account, nil
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var (
		id        uuid.UUID
		updatedAt time.Time
		wallet    Wallet
	)
	if err := row.Scan(&id, &wallet.Balance, &wallet.Currency, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, unavailable(err)
	}
	wallet.AccountID = id.String()
	wallet.Currency = strings.TrimSpace(wallet.Currency)
	wallet.UpdatedAt = updatedAt.UTC()
	return wallet, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
