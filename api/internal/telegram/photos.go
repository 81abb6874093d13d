package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// acceptPhoto stores one page. Several pages sent in a burst get a single
// acknowledgement once the burst is over.
func (r *Router) acceptPhoto(chatID int64, fileID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	st := r.state(chatID)
	st.mu.Lock()
	full := len(st.photos) >= maxPhotos
	st.mu.Unlock()
	if full {
		r.send(chatID, fmt.Sprintf("Tối đa %d ảnh cho một giáo án. Dùng /generate hoặc /reset.", maxPhotos))
		return
	}

	img, err := r.Fetch(ctx, fileID)
	if err != nil {
		r.log().Warn("photo download failed", "chat_id", chatID, "err", err)
		r.send(chatID, "Không tải được ảnh, vui lòng gửi lại.")
		return
	}

	delay := r.ackDelay
	if delay <= 0 {
		delay = debounce
	}

	st.mu.Lock()
	st.photos = append(st.photos, img)
	if st.timer != nil {
		st.timer.Stop()
	}
	st.timer = time.AfterFunc(delay, func() {
		st.mu.Lock()
		n := len(st.photos)
		st.timer = nil
		st.mu.Unlock()
		if n > 0 {
			r.send(chatID, fmt.Sprintf("📷 Đã nhận %d ảnh. Gửi thêm ảnh hoặc /generate để soạn giáo án.", n))
		}
	})
	st.mu.Unlock()
}

func botFetcher(bot *tgbotapi.BotAPI) FetchFunc {
	return func(ctx context.Context, fileID string) ([]byte, error) {
		url, err := bot.GetFileDirectURL(fileID)
		if err != nil {
			return nil, err
		}
		return download(ctx, url)
	}
}

func download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(resp.Body)
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}
