package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mediarise/neuromarket/internal/models"
)

// ErrInsufficientBalance is returned by Debit when the account holds less
// than the requested amount. The balance is left untouched.
var ErrInsufficientBalance = errors.New("insufficient balance")

type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) DB() *sql.DB {
	return r.db
}

func (r *LedgerRepository) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	const query = `SELECT balance FROM accounts WHERE user_id = ?`
	var balance decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("select balance: %w", err)
	}
	return balance, nil
}

// Credit adds amount to the account, creating it on first touch.
func (r *LedgerRepository) Credit(ctx context.Context, userID int64, amount decimal.Decimal) error {
	const query = `
INSERT INTO accounts (user_id, balance) VALUES (?, ?)
ON DUPLICATE KEY UPDATE balance = balance + VALUES(balance)`
	if _, err := r.db.ExecContext(ctx, query, userID, amount); err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}
	return nil
}

// Debit subtracts amount iff the balance covers it. The conditional update
// is the atomicity guarantee: concurrent debits for the same user cannot
// overdraw because only one of them matches the WHERE clause.
func (r *LedgerRepository) Debit(ctx context.Context, userID int64, amount decimal.Decimal) error {
	const query = `
UPDATE accounts SET balance = balance - ? WHERE user_id = ? AND balance >= ?`
	res, err := r.db.ExecContext(ctx, query, amount, userID, amount)
	if err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("debit rows affected: %w", err)
	}
	if affected == 0 {
		return ErrInsufficientBalance
	}
	return nil
}

func (r *LedgerRepository) IsBlocked(ctx context.Context, userID int64) (bool, error) {
	const query = `SELECT blocked FROM accounts WHERE user_id = ?`
	var blocked bool
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&blocked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("select blocked: %w", err)
	}
	return blocked, nil
}

func (r *LedgerRepository) SetBlocked(ctx context.Context, userID int64, blocked bool) error {
	const query = `
INSERT INTO accounts (user_id, balance, blocked) VALUES (?, 0, ?)
ON DUPLICATE KEY UPDATE blocked = VALUES(blocked)`
	if _, err := r.db.ExecContext(ctx, query, userID, blocked); err != nil {
		return fmt.Errorf("set blocked: %w", err)
	}
	return nil
}

// ListUserIDs returns every known account id, most recent first.
func (r *LedgerRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	const query = `SELECT user_id FROM accounts ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan account id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *LedgerRepository) AdminLimit(ctx context.Context, userID int64) (*models.AdminLimit, error) {
	const query = `SELECT user_id, spend_limit, spent, updated_at FROM admin_limits WHERE user_id = ?`
	row := r.db.QueryRowContext(ctx, query, userID)
	var l models.AdminLimit
	if err := row.Scan(&l.UserID, &l.Limit, &l.Spent, &l.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan admin limit: %w", err)
	}
	return &l, nil
}

// EnsureAdminLimit creates the row with the given limit if it does not
// exist yet; an existing row is left untouched.
func (r *LedgerRepository) EnsureAdminLimit(ctx context.Context, userID int64, limit decimal.Decimal) error {
	const query = `INSERT IGNORE INTO admin_limits (user_id, spend_limit) VALUES (?, ?)`
	if _, err := r.db.ExecContext(ctx, query, userID, limit); err != nil {
		return fmt.Errorf("ensure admin limit: %w", err)
	}
	return nil
}

func (r *LedgerRepository) UpsertAdminLimit(ctx context.Context, userID int64, limit decimal.Decimal) error {
	const query = `
INSERT INTO admin_limits (user_id, spend_limit) VALUES (?, ?)
ON DUPLICATE KEY UPDATE spend_limit = VALUES(spend_limit)`
	if _, err := r.db.ExecContext(ctx, query, userID, limit); err != nil {
		return fmt.Errorf("upsert admin limit: %w", err)
	}
	return nil
}

// AddSpent bumps a delegated admin's spent counter. Unknown ids are a
// no-op, matching the "no row, no limit tracking" contract.
func (r *LedgerRepository) AddSpent(ctx context.Context, userID int64, amount decimal.Decimal) error {
	const query = `UPDATE admin_limits SET spent = spent + ? WHERE user_id = ?`
	if _, err := r.db.ExecContext(ctx, query, amount, userID); err != nil {
		return fmt.Errorf("add admin spent: %w", err)
	}
	return nil
}

func (r *LedgerRepository) DeleteAdminLimit(ctx context.Context, userID int64) error {
	const query = `DELETE FROM admin_limits WHERE user_id = ?`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("delete admin limit: %w", err)
	}
	return nil
}
