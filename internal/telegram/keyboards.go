package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mediarise/neuromarket/internal/catalog"
	"github.com/mediarise/neuromarket/internal/models"
	"github.com/mediarise/neuromarket/internal/pricing"
)

var topUpPresets = []string{"100", "500", "1000", "2000", "5000"}

func mainMenuKeyboard(isAdmin bool) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎨 Модели", cbAllModels),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Баланс", cbBalance),
			tgbotapi.NewInlineKeyboardButtonData("💳 Пополнить", cbTopUp),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("ℹ️ Помощь", cbHelp),
			tgbotapi.NewInlineKeyboardButtonData("🆘 Поддержка", cbSupport),
		),
	}
	if isAdmin {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛠 Админ-панель", cbAdminPanel),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func categoriesKeyboard() tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(catalog.Categories())+1)
	for _, cat := range catalog.Categories() {
		emoji := "📷"
		if cat == catalog.CategoryVideo {
			emoji = "🎬"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(emoji+" "+cat, callbackCategory(cat)),
		))
	}
	rows = append(rows, backRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func modelsKeyboard(category string, role models.Role) tgbotapi.InlineKeyboardMarkup {
	schemas := catalog.ByCategory(category)
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(schemas)+1)
	for _, s := range schemas {
		label := fmt.Sprintf("%s %s — %s", s.Emoji, s.Name, modelPriceLabel(s, role))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, callbackSelectModel(s.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", cbAllModels),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// modelPriceLabel prices a schema at its defaults for list display;
// tiered models carry a PriceNote ("от ...").
func modelPriceLabel(s catalog.Schema, role models.Role) string {
	label := pricing.FormatRUB(pricing.Price(s.ID, s.Defaults(), role))
	if s.PriceNote != "" {
		label = s.PriceNote + " " + label
	}
	return label
}

func enumKeyboard(p catalog.EnumParam) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(p.Options)+1)
	for _, opt := range p.Options {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(opt, callbackSetParam(p.Name, opt)),
		))
	}
	rows = append(rows, cancelRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func boolKeyboard(p catalog.BoolParam) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Да", callbackSetParam(p.Name, "true")),
			tgbotapi.NewInlineKeyboardButtonData("❌ Нет", callbackSetParam(p.Name, "false")),
		),
		cancelRow(),
	)
}

func imagesKeyboard(required bool, count int) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, 3)
	if count > 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Готово", cbImagesDone),
		))
	}
	if !required && count == 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏭ Пропустить", cbSkipImages),
		))
	}
	rows = append(rows, cancelRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func confirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🚀 Запустить", cbConfirm),
		),
		cancelRow(),
	)
}

func topUpKeyboard() tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, 4)
	row := make([]tgbotapi.InlineKeyboardButton, 0, 3)
	for _, amount := range topUpPresets {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(amount+" ₽", callbackTopUpAmount(amount)))
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✏️ Своя сумма", cbTopUpCustom),
	))
	rows = append(rows, backRow())
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func afterResultKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔁 Повторить", cbGenerateAgain),
			tgbotapi.NewInlineKeyboardButtonData("🏠 В меню", cbMainMenu),
		),
	)
}

func adminKeyboard(userMode bool) tgbotapi.InlineKeyboardMarkup {
	userModeLabel := "👁 Режим пользователя: выкл"
	if userMode {
		userModeLabel = "👁 Режим пользователя: вкл"
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Статистика", cbAdminStats),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔍 Тест OCR", cbAdminTestOCR),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(userModeLabel, cbAdminUserMode),
		),
		backRow(),
	)
}

func backRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🏠 В меню", cbMainMenu),
	)
}

func cancelRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", cbCancel),
	)
}
