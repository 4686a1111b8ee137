package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mediarise/neuromarket/internal/catalog"
	"github.com/mediarise/neuromarket/internal/models"
	"github.com/mediarise/neuromarket/internal/pricing"
	"github.com/mediarise/neuromarket/internal/service"
	"github.com/mediarise/neuromarket/internal/session"
)

func (b *Bot) showCategories(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "🎨 Выберите категорию:")
	msg.ReplyMarkup = categoriesKeyboard()
	b.send(msg)
}

func (b *Bot) showModels(ctx context.Context, chatID, userID int64, category string) {
	if len(catalog.ByCategory(category)) == 0 {
		b.sendText(chatID, "В этой категории пока нет моделей.")
		return
	}
	role := b.displayRole(ctx, userID)
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("%s — выберите модель:", category))
	msg.ReplyMarkup = modelsKeyboard(category, role)
	b.send(msg)
}

func (b *Bot) startForm(ctx context.Context, chatID, userID int64, modelID string) {
	schema, ok := catalog.ByID(modelID)
	if !ok {
		b.sendText(chatID, "Модель не найдена.")
		return
	}
	if _, active := b.pollers.ActiveTask(userID); active {
		b.sendText(chatID, "⏳ У вас уже есть активная генерация. Дождитесь результата.")
		return
	}
	if b.refuseIfBlocked(ctx, chatID, userID) {
		return
	}

	role := b.displayRole(ctx, userID)
	var card strings.Builder
	card.WriteString(fmt.Sprintf("%s <b>%s</b>\n\n", schema.Emoji, schema.Name))
	if schema.Description != "" {
		card.WriteString(schema.Description + "\n\n")
	}
	card.WriteString("💵 Стоимость: " + modelPriceLabel(schema, role))
	b.sendHTML(chatID, card.String())

	b.sessions.Do(userID, func(sess *session.Session) {
		sess.BeginForm(schema)
	})
	b.presentNextStep(ctx, chatID, userID)
}

// presentNextStep advances the form: marks what input the session now
// expects and sends the matching prompt or keyboard.
func (b *Bot) presentNextStep(ctx context.Context, chatID, userID int64) {
	var (
		step       session.Step
		schema     catalog.Schema
		params     map[string]any
		imageCount int
		started    bool
	)
	b.sessions.Do(userID, func(sess *session.Session) {
		if sess.Schema.ID == "" {
			return
		}
		started = true
		step = sess.NextStep()
		schema = sess.Schema
		params = sess.Params
		imageCount = len(sess.Images)

		sess.WaitingFor = ""
		sess.CollectingImages = false
		switch step.Kind {
		case session.StepPrompt, session.StepParam:
			sess.WaitingFor = step.Param.ParamName()
		case session.StepImages:
			sess.CollectingImages = true
		case session.StepConfirm:
			sess.State = session.StateConfirmingGeneration
		}
	})
	if !started {
		return
	}

	switch step.Kind {
	case session.StepPrompt:
		p := step.Param.(catalog.TextParam)
		b.sendText(chatID, fmt.Sprintf("✍️ Введите промпт (до %d символов):", p.MaxLen))
	case session.StepImages:
		img := step.Image
		text := fmt.Sprintf("📎 Пришлите до %d изображений.", img.Max)
		if !img.Required {
			text += " Этот шаг можно пропустить."
		}
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ReplyMarkup = imagesKeyboard(img.Required, imageCount)
		b.send(msg)
	case session.StepParam:
		b.askParam(chatID, step.Param)
	case session.StepConfirm:
		b.showConfirmation(ctx, chatID, userID, schema, params)
	}
}

func (b *Bot) askParam(chatID int64, spec catalog.ParamSpec) {
	switch p := spec.(type) {
	case catalog.EnumParam:
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("⚙️ Выберите %s:", p.Label))
		msg.ReplyMarkup = enumKeyboard(p)
		b.send(msg)
	case catalog.BoolParam:
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("⚙️ %s?", p.Label))
		msg.ReplyMarkup = boolKeyboard(p)
		b.send(msg)
	case catalog.TextParam:
		b.sendText(chatID, fmt.Sprintf("✍️ Введите %s (до %d символов):", p.Label, p.MaxLen))
	}
}

func (b *Bot) showConfirmation(ctx context.Context, chatID, userID int64, schema catalog.Schema, params map[string]any) {
	role := b.displayRole(ctx, userID)
	price := pricing.Price(schema.ID, params, role)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s <b>%s</b>\n\n", schema.Emoji, schema.Name))
	for _, p := range schema.Params {
		v, ok := params[p.ParamName()]
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("• %s: %s\n", p.ParamLabel(), formatParamValue(v)))
	}
	sb.WriteString("\n💵 Стоимость: " + pricing.FormatRUB(price))

	if role == models.RoleUser {
		if balance, err := b.ledger.Balance(ctx, userID); err == nil {
			sb.WriteString("\n💰 Баланс: " + pricing.FormatRUB(balance))
		}
	}
	sb.WriteString("\n\nЗапустить генерацию?")

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = confirmKeyboard()
	b.send(msg)
}

func formatParamValue(v any) string {
	switch val := v.(type) {
	case string:
		if len([]rune(val)) > 100 {
			return string([]rune(val)[:100]) + "…"
		}
		return val
	case bool:
		if val {
			return "да"
		}
		return "нет"
	case []string:
		return fmt.Sprintf("%d шт.", len(val))
	default:
		return fmt.Sprintf("%v", val)
	}
}

func (b *Bot) handleParamText(ctx context.Context, chatID, userID int64, text string) {
	if text == "" {
		b.sendText(chatID, "Пустое значение. Попробуйте ещё раз.")
		return
	}
	var applyErr error
	b.sessions.Do(userID, func(sess *session.Session) {
		applyErr = sess.ApplyText(text)
	})
	if applyErr != nil {
		b.sendText(chatID, flowErrorText(applyErr))
		return
	}
	b.presentNextStep(ctx, chatID, userID)
}

func (b *Bot) handleParamSelection(ctx context.Context, chatID, userID int64, name, value string) {
	var applyErr error
	b.sessions.Do(userID, func(sess *session.Session) {
		if sess.Schema.ID == "" {
			applyErr = session.ErrNotExpected
			return
		}
		applyErr = sess.ApplySelection(name, value)
	})
	if applyErr != nil {
		b.sendText(chatID, flowErrorText(applyErr))
		return
	}
	b.presentNextStep(ctx, chatID, userID)
}

func (b *Bot) handleImagesDone(ctx context.Context, chatID, userID int64) {
	var finishErr error
	b.sessions.Do(userID, func(sess *session.Session) {
		finishErr = sess.FinishImages()
	})
	if finishErr != nil {
		b.sendText(chatID, flowErrorText(finishErr))
		return
	}
	b.presentNextStep(ctx, chatID, userID)
}

func (b *Bot) handleSkipImages(ctx context.Context, chatID, userID int64) {
	var skipErr error
	b.sessions.Do(userID, func(sess *session.Session) {
		skipErr = sess.SkipImages()
	})
	if skipErr != nil {
		b.sendText(chatID, flowErrorText(skipErr))
		return
	}
	b.presentNextStep(ctx, chatID, userID)
}

func flowErrorText(err error) string {
	switch {
	case errors.Is(err, session.ErrTooLong):
		return "Слишком длинный текст. Сократите и отправьте снова."
	case errors.Is(err, session.ErrNotAnOption):
		return "Такого варианта нет. Выберите один из предложенных."
	case errors.Is(err, session.ErrRequired):
		return "Этот шаг обязателен. Пришлите хотя бы одно изображение."
	default:
		return "Сейчас я не жду этот ввод. Откройте меню: /start"
	}
}

func (b *Bot) handleConfirm(ctx context.Context, chatID, userID int64) {
	sess := b.sessions.Snapshot(userID)
	if sess.State != session.StateConfirmingGeneration || sess.Schema.ID == "" {
		b.sendText(chatID, "Нет подготовленной генерации. Откройте меню: /start")
		return
	}
	if _, active := b.pollers.ActiveTask(userID); active {
		b.sendText(chatID, "⏳ У вас уже есть активная генерация. Дождитесь результата.")
		return
	}

	role, err := b.ledger.RoleFor(ctx, userID)
	if err != nil {
		b.log.Error("resolve role", "user", userID, "err", err)
		b.sendText(chatID, "Не удалось запустить генерацию, попробуйте позже.")
		return
	}

	taskID, err := b.generation.Submit(ctx, userID, sess.Schema, sess.Params)
	if err != nil {
		b.reportSubmitError(chatID, err)
		return
	}

	b.sessions.SaveGeneration(userID, sess.Schema.ID)
	b.sessions.Clear(userID)

	progress := tgbotapi.NewMessage(chatID, "⏳ Генерация запущена. Обычно это занимает одну-две минуты.")
	sent, sendErr := b.api.Send(progress)
	progressMsgID := 0
	if sendErr != nil {
		b.log.Error("send progress message", "err", sendErr)
	} else {
		progressMsgID = sent.MessageID
	}

	h := &jobHandler{
		bot:           b,
		userID:        userID,
		chatID:        chatID,
		progressMsgID: progressMsgID,
		schema:        sess.Schema,
		params:        sess.Params,
		role:          role,
		taskID:        taskID,
	}
	b.pollers.Start(ctx, userID, taskID, h)
}

func (b *Bot) reportSubmitError(chatID int64, err error) {
	var insufficient *service.InsufficientBalanceError
	var limitExceeded *service.LimitExceededError
	switch {
	case errors.Is(err, service.ErrNotConfigured):
		b.sendText(chatID, "Сервис генерации временно недоступен. Попробуйте позже.")
	case errors.Is(err, service.ErrBlocked):
		b.sendText(chatID, "🚫 Ваш аккаунт заблокирован. Обратитесь в поддержку.")
	case errors.As(err, &insufficient):
		text := fmt.Sprintf("💸 Недостаточно средств.\n\nСтоимость: %s\nБаланс: %s\n\nПополните баланс и попробуйте снова.",
			pricing.FormatRUB(insufficient.Price), pricing.FormatRUB(insufficient.Balance))
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ReplyMarkup = topUpHintKeyboard()
		b.send(msg)
	case errors.As(err, &limitExceeded):
		b.sendText(chatID, fmt.Sprintf("🚫 Превышен лимит расходов.\n\nСтоимость: %s\nОсталось: %s",
			pricing.FormatRUB(limitExceeded.Price), pricing.FormatRUB(limitExceeded.Remaining)))
	default:
		b.log.Error("submit generation", "err", err)
		b.sendText(chatID, "Не удалось запустить генерацию, попробуйте позже.")
	}
}

func (b *Bot) handleGenerateAgain(ctx context.Context, chatID, userID int64) {
	saved, ok := b.sessions.SavedGeneration(userID)
	if !ok {
		b.sendText(chatID, "Нет сохранённой генерации. Выберите модель в меню.")
		return
	}
	b.startForm(ctx, chatID, userID, saved.ModelID)
}
