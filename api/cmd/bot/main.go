package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"giaoan/api/internal/attachment"
	"giaoan/api/internal/config"
	"giaoan/api/internal/credential"
	"giaoan/api/internal/gemini"
	"giaoan/api/internal/logger"
	"giaoan/api/internal/metrics"
	"giaoan/api/internal/planner"
	"giaoan/api/internal/store"
	"giaoan/api/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	lg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatal(err)
	}
	defer lg.Sync()

	if cfg.TelegramBotToken == "" {
		lg.Fatal("telegram_bot_token is empty: set TELEGRAM_BOT_TOKEN")
	}

	// The slot is shared with the CLI and the HTTP server; when one of them
	// holds the lock the bot runs on the configured key alone.
	creds, err := credential.Open(cfg.CredentialDir())
	if err != nil {
		lg.Warn("credential store unavailable, using configured key only", "err", err)
		creds = nil
	} else {
		defer creds.Close()
	}

	opts := []planner.Option{planner.WithChannel("telegram")}
	journal, err := store.OpenJournal(context.Background(), cfg.DatabaseURL)
	if err != nil {
		lg.Fatal("journal", "err", err)
	}
	if journal != nil {
		defer journal.DB.Close()
		lg.Info("journal connected", "db", store.SafeDSNSummary(store.ResolveDSN(cfg.DatabaseURL)))
		opts = append(opts, planner.WithJournal(journal))
	}

	engine := gemini.New(cfg.GeminiModel, cfg.MaxOutputTokens, cfg.ThinkingBudget)
	svc := planner.New(engine, credential.Resolver(creds, cfg.GeminiAPIKey), lg, opts...)

	// --- Telegram bot ---
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		lg.Fatal("telegram", "err", err)
	}
	bot.Debug = false

	r := telegram.NewRouter(bot, svc, attachment.NewLoader(cfg.MaxImageSide), lg, cfg.RequestTimeout)

	// DefaultServeMux, because ListenForWebhook registers its handler there.
	http.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if journal != nil {
			ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
			defer cancel()
			if err := journal.DB.PingContext(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	http.Handle("/metrics", metrics.Handler())

	addr := "0.0.0.0:" + cfg.Port

	// --- Choose mode: Webhook vs Polling ---
	if cfg.WebhookURL != "" {
		startWebhookMode(addr, bot, r, cfg.WebhookURL, lg)
	} else {
		startPollingMode(addr, bot, r, lg)
	}
}

// ---------------- Modes -----------------

func startWebhookMode(addr string, bot *tgbotapi.BotAPI, r *telegram.Router, baseURL string, lg *logger.Logger) {
	// secret webhook path
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		lg.Fatal("webhook", "err", err)
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		lg.Fatal("set webhook", "err", err)
	}

	updates := bot.ListenForWebhook(path)
	go func() {
		for upd := range updates {
			r.HandleUpdate(upd)
		}
		lg.Warn("webhook updates channel closed")
	}()

	lg.Info("webhook listening", "addr", addr, "path", path)
	if err := http.ListenAndServe(addr, nil); err != nil {
		lg.Fatal("http server", "err", err)
	}
}

func startPollingMode(addr string, bot *tgbotapi.BotAPI, r *telegram.Router, lg *logger.Logger) {
	// the health server is optional in polling mode
	go func() {
		lg.Info("health server listening", "addr", addr)
		if err := http.ListenAndServe(addr, nil); err != nil {
			lg.Fatal("http server", "err", err)
		}
	}()

	// a removed webhook would otherwise make getUpdates fail with 409
	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		lg.Warn("delete webhook", "err", err)
	}
	runPolling(context.Background(), bot, r.HandleUpdate, lg)
}

// ---------------- Polling loop -----------------

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") { // HTTP 429
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

func clampDelay(d time.Duration) time.Duration {
	const (
		baseDelay = 1 * time.Second
		maxDelay  = 15 * time.Second
	)
	if d < baseDelay {
		return baseDelay
	}
	if d > maxDelay {
		return maxDelay
	}
	return d
}

func runPolling(ctx context.Context, bot *tgbotapi.BotAPI, handle func(tgbotapi.Update), lg *logger.Logger) {
	offset := 0
	for {
		select {
		case <-ctx.Done():
			lg.Info("polling: context cancelled")
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30 // long polling, seconds

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := clampDelay(retryDelayFromError(err))
			lg.Warn("polling error", "err", err, "retry_in", d)
			time.Sleep(d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			time.Sleep(200 * time.Millisecond)
		}
	}
}

// shortHash is a stable FNV-1a of the token for the webhook path.
func shortHash(s string) string {
	h := uint64(1469598103934665603)
	const prime = 1099511628211
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		out[i] = hexdigits[h&0xF]
		h >>= 4
	}
	return string(out)
}
