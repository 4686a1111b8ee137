package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"github.com/mediarise/neuromarket/internal/pricing"
	"github.com/mediarise/neuromarket/internal/service"
	"github.com/mediarise/neuromarket/internal/session"
)

func (b *Bot) showTopUpMenu(ctx context.Context, chatID, userID int64) {
	if b.refuseIfBlocked(ctx, chatID, userID) {
		return
	}
	b.sessions.Do(userID, func(sess *session.Session) {
		sess.State = session.StateSelectingAmount
		sess.AwaitAmountText = false
		sess.TopUpAmount = decimal.Zero
	})
	min, max := b.topup.Bounds()
	text := fmt.Sprintf("💳 Выберите сумму пополнения или введите свою (от %s до %s ₽):", min, max)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = topUpKeyboard()
	b.send(msg)
}

func (b *Bot) handleTopUpPreset(ctx context.Context, chatID, userID int64, raw string) {
	amount, err := b.topup.ParseAmount(raw)
	if err != nil {
		b.log.Error("bad preset amount", "raw", raw, "err", err)
		b.sendText(chatID, "Некорректная сумма. Попробуйте ещё раз.")
		return
	}
	b.beginPayment(chatID, userID, amount)
}

func (b *Bot) handleTopUpCustom(chatID, userID int64) {
	b.sessions.Do(userID, func(sess *session.Session) {
		sess.State = session.StateSelectingAmount
		sess.AwaitAmountText = true
	})
	min, max := b.topup.Bounds()
	b.sendText(chatID, fmt.Sprintf("✏️ Введите сумму в рублях (от %s до %s):", min, max))
}

func (b *Bot) handleCustomAmount(ctx context.Context, chatID, userID int64, text string) {
	amount, err := b.topup.ParseAmount(text)
	if err != nil {
		if errors.Is(err, service.ErrAmountOutOfRange) {
			min, max := b.topup.Bounds()
			b.sendText(chatID, fmt.Sprintf("Сумма должна быть от %s до %s ₽. Попробуйте ещё раз.", min, max))
		} else {
			b.sendText(chatID, "Не получилось разобрать сумму. Введите число, например 500.")
		}
		return
	}
	b.beginPayment(chatID, userID, amount)
}

// beginPayment shows the transfer details and arms the screenshot step.
func (b *Bot) beginPayment(chatID, userID int64, amount decimal.Decimal) {
	b.sessions.Do(userID, func(sess *session.Session) {
		sess.State = session.StateWaitingPaymentScreenshot
		sess.AwaitAmountText = false
		sess.TopUpAmount = amount
	})
	text := fmt.Sprintf("💰 <b>Сумма к оплате:</b> %s\n\n%s", pricing.FormatRUB(amount), b.topup.PaymentDetails())
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(cancelRow())
	b.send(msg)
}

func (b *Bot) handlePaymentScreenshot(ctx context.Context, msg *tgbotapi.Message, expected decimal.Decimal) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	if expected.IsZero() {
		b.sendText(chatID, "Сумма пополнения не выбрана. Начните заново: «💳 Пополнить».")
		return
	}

	data, _, err := b.extractImage(ctx, msg)
	if err != nil {
		if errors.Is(err, errReferenceNotImage) {
			b.sendText(chatID, "Это не изображение. Пришлите скриншот перевода.")
		} else {
			b.log.Error("screenshot download failed", "user", userID, "err", err)
			b.sendText(chatID, "Не удалось получить скриншот, попробуйте снова.")
		}
		return
	}

	b.sendText(chatID, "🔍 Проверяю скриншот...")

	ref := screenshotRef(msg)
	res, payment, err := b.topup.ProcessScreenshot(ctx, userID, data, expected, ref)
	if err != nil {
		b.log.Error("process screenshot", "user", userID, "err", err)
		b.sendText(chatID, "Не удалось обработать платёж, попробуйте позже или обратитесь в поддержку.")
		return
	}
	if payment == nil {
		text := "❌ Не удалось подтвердить оплату по скриншоту.\n\n" + res.Message +
			"\n\nПроверьте, что на скриншоте видна сумма перевода, и пришлите его ещё раз. Если оплата точно прошла, обратитесь в поддержку."
		b.sendText(chatID, text)
		return
	}

	b.sessions.Clear(userID)
	balance, balErr := b.ledger.Balance(ctx, userID)
	text := fmt.Sprintf("✅ Оплата подтверждена!\n\n💰 Зачислено: %s", pricing.FormatRUB(payment.Amount))
	if balErr == nil {
		text += fmt.Sprintf("\n💼 Баланс: %s", pricing.FormatRUB(balance))
	}
	reply := tgbotapi.NewMessage(chatID, text)
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(backRow())
	b.send(reply)
}

// screenshotRef keeps the largest photo's file id so a payment row can
// be traced back to its screenshot.
func screenshotRef(msg *tgbotapi.Message) string {
	if len(msg.Photo) > 0 {
		return msg.Photo[len(msg.Photo)-1].FileID
	}
	if msg.Document != nil {
		return msg.Document.FileID
	}
	return ""
}
