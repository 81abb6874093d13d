package telegram

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"giaoan/api/internal/attachment"
	"giaoan/api/internal/logger"
	"giaoan/api/internal/planner"
)

// Sender is the part of *tgbotapi.BotAPI the router talks to.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Generator interface {
	Generate(ctx context.Context, req planner.Request) (*planner.Result, error)
}

// FetchFunc downloads a Telegram file by id.
type FetchFunc func(ctx context.Context, fileID string) ([]byte, error)

type Router struct {
	Bot     Sender
	Fetch   FetchFunc
	Planner Generator
	Loader  *attachment.Loader
	Log     *logger.Logger
	// Timeout bounds one generation.
	Timeout time.Duration

	chats    sync.Map // chatID -> *chatState
	limit    *rate.Limiter
	ackDelay time.Duration
	spawn    func(func())
}

func NewRouter(bot *tgbotapi.BotAPI, p Generator, loader *attachment.Loader, log *logger.Logger, timeout time.Duration) *Router {
	return &Router{
		Bot:     bot,
		Fetch:   botFetcher(bot),
		Planner: p,
		Loader:  loader,
		Log:     log,
		Timeout: timeout,
		// Telegram allows about 30 messages per second per bot.
		limit: rate.NewLimiter(rate.Limit(25), 5),
	}
}

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	switch {
	case msg.IsCommand():
		r.HandleCommand(msg)
	case len(msg.Photo) > 0:
		r.acceptPhoto(msg.Chat.ID, msg.Photo[len(msg.Photo)-1].FileID)
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/"):
		r.acceptPhoto(msg.Chat.ID, msg.Document.FileID)
	case strings.TrimSpace(msg.Text) != "":
		r.send(msg.Chat.ID, "Gửi ảnh trang sách giáo khoa rồi dùng /generate. Xem /help để biết các lệnh.")
	}
}

func (r *Router) HandleCommand(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())
	switch msg.Command() {
	case "start", "help":
		r.send(cid, helpText)
	case "template":
		r.onTemplate(cid, args)
	case "level":
		r.onLevel(cid, args)
	case "periods":
		r.onPeriods(cid, args)
	case "subject", "grade", "title", "teacher":
		r.onField(cid, msg.Command(), args)
	case "show":
		r.send(cid, r.state(cid).summary())
	case "reset":
		r.onReset(cid)
	case "generate":
		r.onGenerate(cid)
	default:
		r.send(cid, "Lệnh không hợp lệ. Xem /help.")
	}
}

func (r *Router) log() *logger.Logger {
	if r.Log == nil {
		return logger.Nop()
	}
	return r.Log
}

// deliver sends c, pacing outgoing traffic when a limiter is set.
func (r *Router) deliver(c tgbotapi.Chattable) error {
	if r.limit != nil {
		if err := r.limit.Wait(context.Background()); err != nil {
			return err
		}
	}
	_, err := r.Bot.Send(c)
	return err
}

func (r *Router) send(chatID int64, text string) {
	r.sendMessage(tgbotapi.NewMessage(chatID, text))
}

func (r *Router) sendMessage(msg tgbotapi.MessageConfig) {
	if err := r.deliver(msg); err != nil {
		r.log().Warn("telegram send failed", "chat_id", msg.ChatID, "err", err)
	}
}

// sendLong splits text on line boundaries into messages Telegram accepts.
func (r *Router) sendLong(chatID int64, text string) {
	for _, part := range splitMessage(text, maxMessageRunes) {
		r.send(chatID, part)
	}
}

const maxMessageRunes = 3900

func splitMessage(text string, limit int) []string {
	var (
		parts []string
		cur   strings.Builder
		n     int
	)
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
			n = 0
		}
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		ln := utf8.RuneCountInString(line)
		if n+ln > limit {
			flush()
		}
		for ln > limit {
			runes := []rune(line)
			parts = append(parts, string(runes[:limit]))
			line = string(runes[limit:])
			ln -= limit
		}
		cur.WriteString(line)
		n += ln
	}
	flush()
	return parts
}

const helpText = `Soạn giáo án từ ảnh sách giáo khoa.

1. Gửi một hoặc nhiều ảnh trang sách (theo thứ tự trang).
2. Tuỳ chọn:
/template 5512|2345 - mẫu giáo án (Công văn)
/level TieuHoc|THCS - cấp học
/periods N - số tiết (0 để AI đề xuất)
/subject, /grade, /title, /teacher - môn, lớp, tên bài, giáo viên
/show - xem thông tin hiện tại
/reset - xoá ảnh và thông tin
3. /generate - soạn giáo án.`
