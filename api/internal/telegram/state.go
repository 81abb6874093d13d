package telegram

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"giaoan/api/internal/lessonplan"
)

const (
	debounce  = 1200 * time.Millisecond
	maxPhotos = 10
)

// chatState is the form and photo batch of one chat.
type chatState struct {
	mu     sync.Mutex
	input  lessonplan.Input
	photos [][]byte
	busy   bool
	timer  *time.Timer
}

func (r *Router) state(chatID int64) *chatState {
	v, _ := r.chats.LoadOrStore(chatID, &chatState{input: lessonplan.DefaultInput()})
	return v.(*chatState)
}

func (s *chatState) summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	in := s.input
	periods := "AI đề xuất"
	if in.Duration.Periods > 0 {
		periods = fmt.Sprint(int(in.Duration.Periods))
	}
	lines := []string{
		"Mẫu: Công văn " + string(in.CongVan),
		"Cấp học: " + in.Duration.Level.Label(),
		"Số tiết: " + periods,
		"Môn học: " + orDash(in.Subject),
		"Lớp: " + orDash(in.Grade),
		"Tên bài: " + orDash(in.LessonTitle),
		"Giáo viên: " + orDash(in.TeacherName),
		fmt.Sprintf("Ảnh đã gửi: %d", len(s.photos)),
	}
	return strings.Join(lines, "\n")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
