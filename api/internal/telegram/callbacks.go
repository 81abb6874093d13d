package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (r *Router) handleCallback(cb tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	cid := cb.Message.Chat.ID
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack

	var ok bool
	switch {
	case strings.HasPrefix(cb.Data, cbTemplate):
		ok = r.setTemplate(cid, strings.TrimPrefix(cb.Data, cbTemplate))
	case strings.HasPrefix(cb.Data, cbLevel):
		ok = r.setLevel(cid, strings.TrimPrefix(cb.Data, cbLevel))
	}
	if ok {
		_ = r.deliver(clearKeyboard(cid, cb.Message.MessageID))
	}
}
