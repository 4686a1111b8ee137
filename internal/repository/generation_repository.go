package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mediarise/neuromarket/internal/models"
)

type GenerationRepository struct {
	db *sql.DB
}

func NewGenerationRepository(db *sql.DB) *GenerationRepository {
	return &GenerationRepository{db: db}
}

func (r *GenerationRepository) Log(ctx context.Context, log *models.GenerationLog) error {
	const query = `
INSERT INTO generation_logs (user_id, model_id, task_id, status, charged, fail_code, fail_msg)
VALUES (?, ?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''))`
	res, err := r.db.ExecContext(ctx, query, log.UserID, log.ModelID, log.TaskID, log.Status, log.Charged, log.FailCode, log.FailMsg)
	if err != nil {
		return fmt.Errorf("insert generation log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	log.ID = id
	return nil
}

// Totals returns the lifetime successful generation count and charged sum.
func (r *GenerationRepository) Totals(ctx context.Context) (int64, decimal.Decimal, error) {
	const query = `
SELECT COUNT(*), COALESCE(SUM(charged), 0) FROM generation_logs WHERE status = ?`
	var count int64
	var total decimal.Decimal
	if err := r.db.QueryRowContext(ctx, query, models.GenerationSucceeded).Scan(&count, &total); err != nil {
		return 0, decimal.Zero, fmt.Errorf("generation totals: %w", err)
	}
	return count, total, nil
}
