// Package ledger owns point balances and the append-only transaction log.
// Every balance mutation in the system goes through Debit or Credit; the
// balance column and the transaction row are written in one database
// transaction so they are never observed out of sync.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"skillswap/internal/common"
	"skillswap/internal/models"
)

// Transaction types.
const (
	TypePayment = "Payment"
	TypeAward   = "Award"
)

type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Debit removes amount points from the user and records a negative-amount
// transaction. The row lock serializes concurrent movements on the same user
// so no update is lost. Debit does not enforce a non-negative balance; that
// policy belongs to callers — this store's contract is bookkeeping fidelity.
func (s *Store) Debit(ctx context.Context, userID, amount int64, txType, description string, exchangeID *int64) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: debit amount must be positive", common.ErrInvalidArgument)
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin debit: %w", err)
	}
	defer tx.Rollback()

	var balance int64
	err = tx.QueryRowxContext(ctx,
		`SELECT points_balance FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", userID, common.ErrNotFound)
		}
		return nil, fmt.Errorf("lock balance: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET points_balance = points_balance - $2, updated_at = NOW() WHERE id = $1`,
		userID, amount); err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}

	rec, err := insertTransaction(ctx, tx, userID, -amount, txType, description, exchangeID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit debit: %w", err)
	}
	return rec, nil
}

// Credit adds amount points to the user and records a positive-amount
// transaction.
func (s *Store) Credit(ctx context.Context, userID, amount int64, txType, description string, exchangeID *int64) (*models.Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: credit amount must be positive", common.ErrInvalidArgument)
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin credit: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET points_balance = points_balance + $2, updated_at = NOW() WHERE id = $1`,
		userID, amount)
	if err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("user %d: %w", userID, common.ErrNotFound)
	}

	rec, err := insertTransaction(ctx, tx, userID, amount, txType, description, exchangeID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit credit: %w", err)
	}
	return rec, nil
}

func insertTransaction(ctx context.Context, tx *sqlx.Tx, userID, amount int64, txType, description string, exchangeID *int64) (*models.Transaction, error) {
	var rec models.Transaction
	err := tx.QueryRowxContext(ctx,
		`INSERT INTO transactions (user_id, amount, transaction_type, description, exchange_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, user_id, amount, transaction_type, description, exchange_id, created_at`,
		userID, amount, txType, description, exchangeID).StructScan(&rec)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	return &rec, nil
}

// FindExchangeTransaction returns the first transaction of the given type
// linked to the exchange, or nil when none exists. Used as the idempotency
// check before debiting at completion and before refunding at cancellation.
func (s *Store) FindExchangeTransaction(ctx context.Context, exchangeID int64, txType string) (*models.Transaction, error) {
	var rec models.Transaction
	err := s.db.GetContext(ctx, &rec,
		`SELECT id, user_id, amount, transaction_type, description, exchange_id, created_at
		 FROM transactions WHERE exchange_id = $1 AND transaction_type = $2
		 ORDER BY id LIMIT 1`, exchangeID, txType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find exchange transaction: %w", err)
	}
	return &rec, nil
}

// History returns the user's transactions, newest first.
func (s *Store) History(ctx context.Context, userID int64, limit, offset int) ([]models.Transaction, error) {
	out := []models.Transaction{}
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, user_id, amount, transaction_type, description, exchange_id, created_at
		 FROM transactions WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("transaction history: %w", err)
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, userID int64) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM transactions WHERE user_id = $1`, userID); err != nil {
		return 0, fmt.Errorf("transaction count: %w", err)
	}
	return n, nil
}
