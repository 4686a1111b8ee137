package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mediarise/neuromarket/internal/models"
)

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// RecordWithCredit appends the payment row and credits the account in one
// transaction, so a payment row never exists without its balance credit.
func (r *PaymentRepository) RecordWithCredit(ctx context.Context, payment *models.Payment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin payment tx: %w", err)
	}
	defer tx.Rollback()

	const insertPayment = `
INSERT INTO payments (user_id, amount, screenshot_ref, verified, detail)
VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, insertPayment, payment.UserID, payment.Amount, payment.ScreenshotRef, payment.Verified, payment.Detail)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	payment.ID = id

	const credit = `
INSERT INTO accounts (user_id, balance) VALUES (?, ?)
ON DUPLICATE KEY UPDATE balance = balance + VALUES(balance)`
	if _, err := tx.ExecContext(ctx, credit, payment.UserID, payment.Amount); err != nil {
		return fmt.Errorf("credit payment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit payment tx: %w", err)
	}
	return nil
}

func (r *PaymentRepository) ListRecent(ctx context.Context, limit int) ([]models.Payment, error) {
	const query = `
SELECT id, user_id, amount, screenshot_ref, verified, COALESCE(detail, ''), created_at
FROM payments ORDER BY id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.UserID, &p.Amount, &p.ScreenshotRef, &p.Verified, &p.Detail, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// Totals returns the lifetime payment count and sum.
func (r *PaymentRepository) Totals(ctx context.Context) (int64, decimal.Decimal, error) {
	const query = `SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM payments`
	var count int64
	var total decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query).Scan(&count, &total); err != nil {
		return 0, decimal.Zero, fmt.Errorf("payment totals: %w", err)
	}
	return count, total, nil
}
