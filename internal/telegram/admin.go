package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"github.com/mediarise/neuromarket/internal/models"
	"github.com/mediarise/neuromarket/internal/pricing"
	"github.com/mediarise/neuromarket/internal/session"
)

func (b *Bot) requireAdmin(ctx context.Context, chatID, userID int64) (models.Role, bool) {
	role, err := b.ledger.RoleFor(ctx, userID)
	if err != nil {
		b.log.Error("resolve role", "user", userID, "err", err)
		b.sendText(chatID, "Не удалось проверить права, попробуйте позже.")
		return models.RoleUser, false
	}
	if !role.IsAdmin() {
		b.sendText(chatID, "Эта команда доступна только администраторам.")
		return role, false
	}
	return role, true
}

func (b *Bot) showAdminPanel(ctx context.Context, chatID, userID int64) {
	if _, ok := b.requireAdmin(ctx, chatID, userID); !ok {
		return
	}
	userMode := b.sessions.Snapshot(userID).AdminUserMode
	msg := tgbotapi.NewMessage(chatID, "🛠 <b>Админ-панель</b>")
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = adminKeyboard(userMode)
	b.send(msg)
}

func (b *Bot) showAdminStats(ctx context.Context, chatID, userID int64) {
	if _, ok := b.requireAdmin(ctx, chatID, userID); !ok {
		return
	}

	payCount, payTotal, err := b.ledger.PaymentTotals(ctx)
	if err != nil {
		b.log.Error("payment totals", "err", err)
		b.sendText(chatID, "Не удалось получить статистику, попробуйте позже.")
		return
	}
	genCount, genTotal, err := b.generation.GenerationTotals(ctx)
	if err != nil {
		b.log.Error("generation totals", "err", err)
		b.sendText(chatID, "Не удалось получить статистику, попробуйте позже.")
		return
	}
	userIDs, err := b.ledger.ListUserIDs(ctx)
	if err != nil {
		b.log.Error("list users", "err", err)
		b.sendText(chatID, "Не удалось получить статистику, попробуйте позже.")
		return
	}

	text := fmt.Sprintf(
		"📊 <b>Статистика</b>\n\n👥 Пользователей: %d\n\n💳 Платежей: %d\n💰 Сумма пополнений: %s\n\n🎨 Успешных генераций: %d\n💵 Списано за генерации: %s",
		len(userIDs), payCount, pricing.FormatRUB(payTotal), genCount, pricing.FormatRUB(genTotal),
	)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(backRow())
	b.send(msg)
}

func (b *Bot) startTestOCR(ctx context.Context, chatID, userID int64) {
	if _, ok := b.requireAdmin(ctx, chatID, userID); !ok {
		return
	}
	b.sessions.Do(userID, func(sess *session.Session) {
		sess.State = session.StateAdminTestOCR
	})
	b.sendText(chatID, "🔍 Пришлите скриншот платежа. В подписи можно указать ожидаемую сумму, например: 500")
}

func (b *Bot) handleTestOCRImage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	userID := msg.From.ID
	if _, ok := b.requireAdmin(ctx, chatID, userID); !ok {
		return
	}

	data, _, err := b.extractImage(ctx, msg)
	if err != nil {
		if errors.Is(err, errReferenceNotImage) {
			b.sendText(chatID, "Это не изображение.")
		} else {
			b.log.Error("test ocr download failed", "err", err)
			b.sendText(chatID, "Не удалось получить изображение.")
		}
		return
	}

	expected := decimal.Zero
	if msg.Caption != "" {
		if amount, err := decimal.NewFromString(msg.Caption); err == nil {
			expected = amount
		}
	}

	res := b.topup.TestScreenshot(ctx, data, expected)
	text := fmt.Sprintf("🔍 <b>Результат проверки</b>\n\nВердикт: %v\nFail-open: %v\n\n%s", res.Valid, res.FailOpen, res.Message)
	b.sessions.Clear(userID)
	b.sendHTML(chatID, text)
}

func (b *Bot) toggleAdminUserMode(ctx context.Context, chatID, userID int64) {
	if _, ok := b.requireAdmin(ctx, chatID, userID); !ok {
		return
	}
	var enabled bool
	b.sessions.Do(userID, func(sess *session.Session) {
		sess.AdminUserMode = !sess.AdminUserMode
		enabled = sess.AdminUserMode
	})
	if enabled {
		b.sendText(chatID, "👁 Режим пользователя включён: цены отображаются с пользовательской наценкой.")
	} else {
		b.sendText(chatID, "👁 Режим пользователя выключен.")
	}
	b.showAdminPanel(ctx, chatID, userID)
}

func (b *Bot) showProviderCredits(ctx context.Context, chatID, userID int64) {
	role, err := b.ledger.RoleFor(ctx, userID)
	if err != nil {
		b.log.Error("resolve role", "user", userID, "err", err)
		return
	}
	if role != models.RoleRoot {
		b.sendText(chatID, "Эта команда доступна только главному администратору.")
		return
	}
	credits, err := b.credits.Credits(ctx)
	if err != nil {
		b.log.Error("fetch provider credits", "err", err)
		b.sendText(chatID, "Не удалось получить остаток кредитов провайдера.")
		return
	}
	b.sendHTML(chatID, fmt.Sprintf("🏦 <b>Остаток кредитов провайдера:</b> %s", credits.Round(2)))
}
