package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"giaoan/api/internal/attachment"
	"giaoan/api/internal/config"
	"giaoan/api/internal/credential"
	"giaoan/api/internal/export"
	"giaoan/api/internal/gemini"
	"giaoan/api/internal/handle"
	"giaoan/api/internal/logger"
	"giaoan/api/internal/metrics"
	"giaoan/api/internal/planner"
	"giaoan/api/internal/store"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	creds, err := credential.Open(cfg.CredentialDir())
	if err != nil {
		lg.Fatal("credential store", "dir", cfg.CredentialDir(), "err", err)
	}
	defer creds.Close()

	engine := gemini.New(cfg.GeminiModel, cfg.MaxOutputTokens, cfg.ThinkingBudget)
	opts := []planner.Option{planner.WithChannel("http")}

	journal, err := store.OpenJournal(ctx, cfg.DatabaseURL)
	if err != nil {
		lg.Fatal("journal", "err", err)
	}
	if journal != nil {
		defer journal.DB.Close()
		lg.Info("journal connected", "db", store.SafeDSNSummary(store.ResolveDSN(cfg.DatabaseURL)))
		opts = append(opts, planner.WithJournal(journal))
		go purgeJournal(ctx, journal, cfg.JournalRetention, lg)
	}

	svc := planner.New(engine, credential.Resolver(creds, cfg.GeminiAPIKey), lg, opts...)
	h := handle.New(svc, attachment.NewLoader(cfg.MaxImageSide), creds,
		export.NewPDFPrinter(cfg.ChromePath, 0), lg, cfg.RequestTimeout)
	if journal != nil {
		h.WithHistory(journal)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Handler())
	h.Register(mux)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	lg.Info("lesson-planner listening", "addr", srv.Addr, "model", engine.GetModel())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		lg.Fatal("http server", "err", err)
	}
}

// purgeJournal drops journal rows older than keep, once at start and then daily.
func purgeJournal(ctx context.Context, repo *store.GenerationRepo, keep time.Duration, lg *logger.Logger) {
	if keep <= 0 {
		return
	}
	t := time.NewTicker(24 * time.Hour)
	defer t.Stop()
	for {
		n, err := repo.PurgeOlderThan(ctx, keep)
		if err != nil {
			lg.Warn("journal purge failed", "err", err)
		} else if n > 0 {
			lg.Info("journal purged", "rows", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
