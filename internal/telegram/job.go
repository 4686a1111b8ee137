package telegram

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mediarise/neuromarket/internal/catalog"
	"github.com/mediarise/neuromarket/internal/kie"
	"github.com/mediarise/neuromarket/internal/models"
	"github.com/mediarise/neuromarket/internal/pricing"
	"github.com/mediarise/neuromarket/internal/service"
)

// jobHandler reacts to the lifecycle of one submitted generation. The
// role is fixed at submission time so a role change mid-flight cannot
// alter what settlement does.
type jobHandler struct {
	bot           *Bot
	userID        int64
	chatID        int64
	progressMsgID int
	schema        catalog.Schema
	params        map[string]any
	role          models.Role
	taskID        string
}

func (h *jobHandler) HandleProgress(ctx context.Context, state kie.TaskState, elapsed time.Duration) {
	if h.progressMsgID == 0 {
		return
	}
	text := fmt.Sprintf("⏳ %s… (%d сек)", stateLabel(state), int(elapsed.Seconds()))
	edit := tgbotapi.NewEditMessageText(h.chatID, h.progressMsgID, text)
	if _, err := h.bot.api.Send(edit); err != nil {
		h.bot.log.Debug("edit progress message", "err", err)
	}
}

func stateLabel(state kie.TaskState) string {
	switch state {
	case kie.StateQueuing:
		return "В очереди"
	case kie.StateGenerating:
		return "Генерация идёт"
	default:
		return "Ожидание"
	}
}

func (h *jobHandler) HandleSuccess(ctx context.Context, status *kie.TaskStatus) {
	urls, err := service.ResultURLs(h.schema, h.params, status)
	if err != nil || len(urls) == 0 {
		h.bot.log.Error("parse task result", "task_id", h.taskID, "err", err)
		h.bot.generation.LogFailure(ctx, h.userID, h.schema.ID, h.taskID, "empty_result", "task succeeded without result urls")
		h.finishProgress("❌ Генерация завершилась без результата. Средства не списаны.")
		return
	}

	charged := h.bot.generation.Settle(ctx, h.userID, h.schema, h.params, h.taskID, h.role)

	h.finishProgress("✅ Готово!")
	for _, url := range urls {
		h.deliver(ctx, url)
	}

	text := fmt.Sprintf("✨ Генерация завершена: %s", h.schema.Name)
	if h.role == models.RoleUser && charged.IsPositive() {
		text += "\n💵 Списано: " + pricing.FormatRUB(charged)
		if balance, err := h.bot.ledger.Balance(ctx, h.userID); err == nil {
			text += "\n💰 Баланс: " + pricing.FormatRUB(balance)
		}
	}
	msg := tgbotapi.NewMessage(h.chatID, text)
	msg.ReplyMarkup = afterResultKeyboard()
	h.bot.send(msg)
}

// deliver tries three tiers: raw bytes, Telegram-side URL fetch, bare
// link as text.
func (h *jobHandler) deliver(ctx context.Context, url string) {
	if data, err := h.bot.generation.FetchArtifact(ctx, url); err == nil {
		if h.sendMedia(tgbotapi.FileBytes{Name: artifactName(h.schema), Bytes: data}) {
			return
		}
	} else {
		h.bot.log.Warn("fetch artifact", "task_id", h.taskID, "err", err)
	}
	if h.sendMedia(tgbotapi.FileURL(url)) {
		return
	}
	h.bot.sendText(h.chatID, "Результат: "+url)
}

func (h *jobHandler) sendMedia(file tgbotapi.RequestFileData) bool {
	var c tgbotapi.Chattable
	if h.schema.Video {
		c = tgbotapi.NewVideo(h.chatID, file)
	} else {
		c = tgbotapi.NewPhoto(h.chatID, file)
	}
	if _, err := h.bot.api.Send(c); err != nil {
		h.bot.log.Warn("send media", "task_id", h.taskID, "err", err)
		return false
	}
	return true
}

func artifactName(schema catalog.Schema) string {
	if schema.Video {
		return "generation.mp4"
	}
	return "generation.png"
}

func (h *jobHandler) HandleFailure(ctx context.Context, failCode, failMsg string) {
	h.bot.generation.LogFailure(ctx, h.userID, h.schema.ID, h.taskID, failCode, failMsg)
	text := "❌ Генерация не удалась."
	if failMsg != "" {
		text += "\n\nПричина: " + failMsg
	}
	text += "\n\nСредства не списаны."
	h.finishProgress(text)
	h.afterFailureMenu()
}

func (h *jobHandler) HandleTimeout(ctx context.Context) {
	h.bot.generation.LogTimeout(ctx, h.userID, h.schema.ID, h.taskID)
	h.finishProgress("⌛️ Генерация заняла слишком много времени и была остановлена. Средства не списаны.")
	h.afterFailureMenu()
}

func (h *jobHandler) HandlePollError(ctx context.Context, err error) {
	h.bot.log.Error("poll task status", "task_id", h.taskID, "err", err)
	h.finishProgress("⚠️ Не удалось получить статус генерации. Средства не списаны. Попробуйте позже.")
	h.afterFailureMenu()
}

// finishProgress replaces the progress message, or sends a fresh one
// if it was never created.
func (h *jobHandler) finishProgress(text string) {
	if h.progressMsgID == 0 {
		h.bot.sendText(h.chatID, text)
		return
	}
	edit := tgbotapi.NewEditMessageText(h.chatID, h.progressMsgID, text)
	if _, err := h.bot.api.Send(edit); err != nil {
		h.bot.sendText(h.chatID, text)
	}
}

func (h *jobHandler) afterFailureMenu() {
	msg := tgbotapi.NewMessage(h.chatID, "Что дальше?")
	msg.ReplyMarkup = afterResultKeyboard()
	h.bot.send(msg)
}
