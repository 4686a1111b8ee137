package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mediarise/neuromarket/internal/config"
	"github.com/mediarise/neuromarket/internal/models"
	"github.com/mediarise/neuromarket/internal/verifier"
)

// ErrAmountOutOfRange rejects top-up amounts outside the configured
// bounds; the step re-prompts, the session is preserved.
var ErrAmountOutOfRange = errors.New("top-up amount out of range")

// TopUpService runs the screenshot top-up flow: amount validation,
// heuristic verification, and the credit-with-payment-row write.
type TopUpService struct {
	cfg      config.Config
	log      *slog.Logger
	ledger   *LedgerService
	verifier *verifier.Verifier
}

func NewTopUpService(cfg config.Config, log *slog.Logger, ledger *LedgerService, v *verifier.Verifier) *TopUpService {
	return &TopUpService{cfg: cfg, log: log, ledger: ledger, verifier: v}
}

// ParseAmount validates a custom top-up amount typed by the user.
func (s *TopUpService) ParseAmount(text string) (decimal.Decimal, error) {
	text = strings.TrimSpace(strings.ReplaceAll(text, ",", "."))
	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", text, err)
	}
	if amount.LessThan(s.cfg.TopUpMin) || amount.GreaterThan(s.cfg.TopUpMax) {
		return decimal.Zero, fmt.Errorf("%w: %s..%s", ErrAmountOutOfRange, s.cfg.TopUpMin, s.cfg.TopUpMax)
	}
	return amount, nil
}

// Bounds returns the allowed custom amount range for prompts.
func (s *TopUpService) Bounds() (decimal.Decimal, decimal.Decimal) {
	return s.cfg.TopUpMin, s.cfg.TopUpMax
}

// ProcessScreenshot verifies one payment screenshot and, on an accepted
// verdict, credits the full expected amount with its payment row. A
// fail-open verdict credits too but records the row unverified.
func (s *TopUpService) ProcessScreenshot(ctx context.Context, userID int64, image []byte, expected decimal.Decimal, screenshotRef string) (verifier.Result, *models.Payment, error) {
	res := s.verifier.Analyze(ctx, image, expected, s.cfg.PaymentPhone)
	if !res.Valid {
		s.log.Info("payment screenshot rejected", "user", userID, "expected", expected)
		return res, nil, nil
	}

	payment, err := s.ledger.RecordPayment(ctx, userID, expected, screenshotRef, !res.FailOpen, res.Message)
	if err != nil {
		return res, nil, fmt.Errorf("record payment: %w", err)
	}
	s.log.Info("top-up credited", "user", userID, "amount", expected, "payment_id", payment.ID, "verified", payment.Verified)
	return res, payment, nil
}

// TestScreenshot runs the verifier without touching the ledger (admin
// OCR test mode).
func (s *TopUpService) TestScreenshot(ctx context.Context, image []byte, expected decimal.Decimal) verifier.Result {
	return s.verifier.Analyze(ctx, image, expected, s.cfg.PaymentPhone)
}

// PaymentDetails renders the SBP transfer details message.
func (s *TopUpService) PaymentDetails() string {
	var b strings.Builder
	b.WriteString("💳 <b>Реквизиты для оплаты (СБП):</b>\n\n")
	if s.cfg.PaymentPhone != "" {
		b.WriteString(fmt.Sprintf("📱 <b>Номер телефона:</b> <code>%s</code>\n", s.cfg.PaymentPhone))
	}
	if s.cfg.PaymentBank != "" {
		b.WriteString(fmt.Sprintf("🏦 <b>Банк:</b> %s\n", s.cfg.PaymentBank))
	}
	if s.cfg.PaymentHolder != "" {
		b.WriteString(fmt.Sprintf("👤 <b>Получатель:</b> %s\n", s.cfg.PaymentHolder))
	}
	b.WriteString("\n⚠️ <b>Важно:</b> После оплаты отправьте скриншот перевода в этот чат.\n\n")
	b.WriteString("✅ <b>Баланс начислится автоматически</b> после отправки скриншота.")
	return b.String()
}

// SupportContact renders the support message.
func (s *TopUpService) SupportContact() string {
	var b strings.Builder
	b.WriteString("🆘 <b>Поддержка</b>\n\n")
	b.WriteString("Если у вас возникли вопросы или проблемы, свяжитесь с нами:\n\n")
	if s.cfg.SupportContact != "" {
		b.WriteString(fmt.Sprintf("💬 <b>Telegram:</b> @%s\n", strings.TrimPrefix(s.cfg.SupportContact, "@")))
	} else {
		b.WriteString("⚠️ Контактная информация не настроена.\nОбратитесь к администратору.")
	}
	return b.String()
}
