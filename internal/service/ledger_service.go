package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mediarise/neuromarket/internal/config"
	"github.com/mediarise/neuromarket/internal/models"
	"github.com/mediarise/neuromarket/internal/repository"
)

// ErrInsufficientBalance mirrors the repository sentinel so callers do not
// have to import the repository package.
var ErrInsufficientBalance = repository.ErrInsufficientBalance

// ErrBlocked is returned for every operation attempted by a blocked user.
var ErrBlocked = errors.New("user is blocked")

// ErrLimitExceeded is returned when a delegated admin's request exceeds
// their remaining spend.
var ErrLimitExceeded = errors.New("admin spend limit exceeded")

// LedgerService owns balances, blocks, admin spend limits and the payment
// log. All mutations go through atomic per-key SQL statements.
type LedgerService struct {
	cfg      config.Config
	ledger   *repository.LedgerRepository
	payments *repository.PaymentRepository
}

func NewLedgerService(cfg config.Config, ledger *repository.LedgerRepository, payments *repository.PaymentRepository) *LedgerService {
	return &LedgerService{cfg: cfg, ledger: ledger, payments: payments}
}

// RoleFor resolves a Telegram user id to a pricing role. Delegated admins
// come from either the static config list or an admin_limits row.
func (s *LedgerService) RoleFor(ctx context.Context, userID int64) (models.Role, error) {
	if userID == s.cfg.RootAdminID {
		return models.RoleRoot, nil
	}
	if s.cfg.IsAdmin(userID) {
		return models.RoleAdmin, nil
	}
	limit, err := s.ledger.AdminLimit(ctx, userID)
	if err != nil {
		return models.RoleUser, fmt.Errorf("resolve role: %w", err)
	}
	if limit != nil {
		return models.RoleAdmin, nil
	}
	return models.RoleUser, nil
}

func (s *LedgerService) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	return s.ledger.Balance(ctx, userID)
}

func (s *LedgerService) Credit(ctx context.Context, userID int64, amount decimal.Decimal) error {
	return s.ledger.Credit(ctx, userID, amount)
}

func (s *LedgerService) Debit(ctx context.Context, userID int64, amount decimal.Decimal) error {
	return s.ledger.Debit(ctx, userID, amount)
}

func (s *LedgerService) IsBlocked(ctx context.Context, userID int64) (bool, error) {
	return s.ledger.IsBlocked(ctx, userID)
}

func (s *LedgerService) Block(ctx context.Context, userID int64) error {
	return s.ledger.SetBlocked(ctx, userID, true)
}

func (s *LedgerService) Unblock(ctx context.Context, userID int64) error {
	return s.ledger.SetBlocked(ctx, userID, false)
}

func (s *LedgerService) ListUserIDs(ctx context.Context) ([]int64, error) {
	return s.ledger.ListUserIDs(ctx)
}

// LimitFor returns the spend cap for an admin. The second value is false
// for the root admin, whose spend is uncapped.
func (s *LedgerService) LimitFor(ctx context.Context, userID int64) (decimal.Decimal, bool, error) {
	if userID == s.cfg.RootAdminID {
		return decimal.Zero, false, nil
	}
	limit, err := s.ledger.AdminLimit(ctx, userID)
	if err != nil {
		return decimal.Zero, true, fmt.Errorf("admin limit: %w", err)
	}
	if limit == nil {
		return s.cfg.AdminMonthLimit, true, nil
	}
	return limit.Limit, true, nil
}

func (s *LedgerService) SpentFor(ctx context.Context, userID int64) (decimal.Decimal, error) {
	limit, err := s.ledger.AdminLimit(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("admin spent: %w", err)
	}
	if limit == nil {
		return decimal.Zero, nil
	}
	return limit.Spent, nil
}

// RemainingFor returns limit − spent clamped at zero. The second value is
// false when the cap does not apply (root admin).
func (s *LedgerService) RemainingFor(ctx context.Context, userID int64) (decimal.Decimal, bool, error) {
	limit, capped, err := s.LimitFor(ctx, userID)
	if err != nil {
		return decimal.Zero, true, err
	}
	if !capped {
		return decimal.Zero, false, nil
	}
	spent, err := s.SpentFor(ctx, userID)
	if err != nil {
		return decimal.Zero, true, err
	}
	remaining := limit.Sub(spent)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return remaining, true, nil
}

// AddSpent records a delegated admin's charge. No-op for the root admin.
func (s *LedgerService) AddSpent(ctx context.Context, userID int64, amount decimal.Decimal) error {
	if userID == s.cfg.RootAdminID {
		return nil
	}
	if err := s.ledger.EnsureAdminLimit(ctx, userID, s.cfg.AdminMonthLimit); err != nil {
		return err
	}
	return s.ledger.AddSpent(ctx, userID, amount)
}

func (s *LedgerService) SetAdminLimit(ctx context.Context, userID int64, limit decimal.Decimal) error {
	return s.ledger.UpsertAdminLimit(ctx, userID, limit)
}

// RecordPayment appends a payment row and credits the balance as one
// logical operation.
func (s *LedgerService) RecordPayment(ctx context.Context, userID int64, amount decimal.Decimal, screenshotRef string, verified bool, detail string) (*models.Payment, error) {
	payment := &models.Payment{
		UserID:        userID,
		Amount:        amount,
		ScreenshotRef: screenshotRef,
		Verified:      verified,
		Detail:        detail,
	}
	if err := s.payments.RecordWithCredit(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *LedgerService) RecentPayments(ctx context.Context, limit int) ([]models.Payment, error) {
	return s.payments.ListRecent(ctx, limit)
}

func (s *LedgerService) PaymentTotals(ctx context.Context) (int64, decimal.Decimal, error) {
	return s.payments.Totals(ctx)
}
