package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"giaoan/api/internal/apperr"
	"giaoan/api/internal/export"
	"giaoan/api/internal/lessonplan"
	"giaoan/api/internal/metrics"
	"giaoan/api/internal/planner"
	"giaoan/api/internal/render"
)

func (r *Router) onTemplate(chatID int64, args string) {
	if args == "" {
		msg := tgbotapi.NewMessage(chatID, "Chọn mẫu giáo án:")
		msg.ReplyMarkup = makeTemplateKeyboard()
		r.sendMessage(msg)
		return
	}
	if !r.setTemplate(chatID, args) {
		r.send(chatID, "Mẫu không hợp lệ. Dùng /template 5512 hoặc /template 2345.")
	}
}

func (r *Router) setTemplate(chatID int64, code string) bool {
	cv := lessonplan.CongVan(strings.TrimSpace(code))
	if cv != lessonplan.CongVan5512 && cv != lessonplan.CongVan2345 {
		return false
	}
	st := r.state(chatID)
	st.mu.Lock()
	st.input.CongVan = cv
	st.mu.Unlock()
	r.send(chatID, "Đã chọn mẫu Công văn "+string(cv)+".")
	return true
}

func (r *Router) onLevel(chatID int64, args string) {
	if args == "" {
		msg := tgbotapi.NewMessage(chatID, "Chọn cấp học:")
		msg.ReplyMarkup = makeLevelKeyboard()
		r.sendMessage(msg)
		return
	}
	if !r.setLevel(chatID, args) {
		r.send(chatID, "Cấp học không hợp lệ. Dùng /level TieuHoc hoặc /level THCS.")
	}
}

func parseLevel(s string) (lessonplan.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tieuhoc", "tiểu học", "tieu hoc", "th", "primary":
		return lessonplan.LevelPrimary, true
	case "thcs", "secondary":
		return lessonplan.LevelLowerSecondary, true
	}
	return "", false
}

func (r *Router) setLevel(chatID int64, s string) bool {
	lvl, ok := parseLevel(s)
	if !ok {
		return false
	}
	st := r.state(chatID)
	st.mu.Lock()
	st.input.Duration.Level = lvl
	st.mu.Unlock()
	r.send(chatID, fmt.Sprintf("Đã chọn cấp học: %s (%d phút/tiết).", lvl.Label(), lvl.MinutesPerPeriod()))
	return true
}

func (r *Router) onPeriods(chatID int64, args string) {
	n, err := strconv.Atoi(args)
	if err != nil || n < 0 || n > 20 {
		r.send(chatID, "Số tiết phải là số nguyên từ 0 đến 20 (0 để AI đề xuất).")
		return
	}
	st := r.state(chatID)
	st.mu.Lock()
	st.input.Duration.Periods = lessonplan.Periods(n)
	st.mu.Unlock()
	if n == 0 {
		r.send(chatID, "Số tiết sẽ do AI đề xuất.")
		return
	}
	r.send(chatID, fmt.Sprintf("Số tiết: %d.", n))
}

var fieldLabels = map[string]string{
	"subject": "Môn học",
	"grade":   "Lớp",
	"title":   "Tên bài",
	"teacher": "Giáo viên",
}

// onField sets one free-text form field; an empty argument clears it.
func (r *Router) onField(chatID int64, name, value string) {
	st := r.state(chatID)
	st.mu.Lock()
	switch name {
	case "subject":
		st.input.Subject = value
	case "grade":
		st.input.Grade = value
	case "title":
		st.input.LessonTitle = value
	case "teacher":
		st.input.TeacherName = value
	}
	st.mu.Unlock()
	r.send(chatID, fieldLabels[name]+": "+orDash(value))
}

func (r *Router) onReset(chatID int64) {
	st := r.state(chatID)
	st.mu.Lock()
	busy := st.busy
	st.mu.Unlock()
	if busy {
		r.send(chatID, "Đang soạn giáo án, vui lòng chờ rồi /reset.")
		return
	}
	r.chats.Delete(chatID)
	r.send(chatID, "Đã xoá ảnh và đặt lại thông tin bài dạy.")
}

func (r *Router) onGenerate(chatID int64) {
	st := r.state(chatID)
	st.mu.Lock()
	if st.busy {
		st.mu.Unlock()
		r.send(chatID, "Đang soạn giáo án, vui lòng chờ.")
		return
	}
	if len(st.photos) == 0 {
		st.mu.Unlock()
		r.send(chatID, apperr.UserMessage(apperr.ErrMissingAttachment))
		return
	}
	st.busy = true
	in := st.input
	photos := append([][]byte(nil), st.photos...)
	st.mu.Unlock()

	r.send(chatID, fmt.Sprintf("⏳ Đang soạn giáo án từ %d ảnh...", len(photos)))
	run := r.spawn
	if run == nil {
		run = func(f func()) { go f() }
	}
	run(func() {
		defer func() {
			st.mu.Lock()
			st.busy = false
			st.mu.Unlock()
		}()
		r.generate(chatID, st, in, photos)
	})
}

// generate runs one request for the snapshot in/photos. Photos that arrive
// meanwhile stay queued for the next run. The form keeps what the user
// typed; titles the model chose are used for this delivery only.
func (r *Router) generate(chatID int64, st *chatState, in lessonplan.Input, photos [][]byte) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	images, err := r.Loader.LoadAll(ctx, len(photos), func(_ context.Context, i int) (string, []byte, string, error) {
		return fmt.Sprintf("page-%d", i+1), photos[i], "", nil
	})
	if err != nil {
		r.log().Warn("photo rejected", "chat_id", chatID, "err", err)
		r.send(chatID, "Ảnh không hợp lệ, vui lòng /reset và gửi lại.")
		return
	}

	res, err := r.Planner.Generate(ctx, planner.Request{Input: in, Images: images})
	if err != nil {
		r.log().Warn("generation failed", "chat_id", chatID, "code", apperr.GetCode(err), "err", err)
		r.send(chatID, "❌ "+apperr.UserMessage(err))
		return
	}

	st.mu.Lock()
	if len(st.photos) >= len(photos) {
		st.photos = append([][]byte(nil), st.photos[len(photos):]...)
	} else {
		st.photos = nil
	}
	st.mu.Unlock()

	r.sendLong(chatID, render.PlainText(res.Document))
	r.sendDocument(chatID, res.Input.LessonTitle, res.Document)
}

func (r *Router) sendDocument(chatID int64, title string, doc render.Document) {
	file := tgbotapi.FileBytes{Name: export.Filename(title, export.ExtDoc), Bytes: export.Doc(doc)}
	d := tgbotapi.NewDocument(chatID, file)
	d.Caption = "Giáo án (mở bằng Microsoft Word)"
	if err := r.deliver(d); err != nil {
		r.log().Warn("telegram document send failed", "chat_id", chatID, "err", err)
		return
	}
	metrics.ObserveExport("doc")
	r.log().Info("lesson plan delivered", "chat_id", chatID, "file", file.Name)
}
