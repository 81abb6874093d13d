package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"giaoan/api/internal/lessonplan"
)

const (
	cbTemplate = "tpl:"
	cbLevel    = "lvl:"
)

// Template choice
func makeTemplateKeyboard() tgbotapi.InlineKeyboardMarkup {
	a := tgbotapi.NewInlineKeyboardButtonData("Công văn 5512 (THCS/THPT)", cbTemplate+string(lessonplan.CongVan5512))
	b := tgbotapi.NewInlineKeyboardButtonData("Công văn 2345 (Tiểu học)", cbTemplate+string(lessonplan.CongVan2345))
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(a), tgbotapi.NewInlineKeyboardRow(b))
}

func makeLevelKeyboard() tgbotapi.InlineKeyboardMarkup {
	a := tgbotapi.NewInlineKeyboardButtonData("Tiểu học (35 phút/tiết)", cbLevel+string(lessonplan.LevelPrimary))
	b := tgbotapi.NewInlineKeyboardButtonData("THCS (45 phút/tiết)", cbLevel+string(lessonplan.LevelLowerSecondary))
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(a, b))
}

func clearKeyboard(chatID int64, msgID int) tgbotapi.EditMessageReplyMarkupConfig {
	return tgbotapi.NewEditMessageReplyMarkup(chatID, msgID, tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
}
