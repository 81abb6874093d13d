package handle

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"giaoan/api/internal/apperr"
	"giaoan/api/internal/attachment"
	"giaoan/api/internal/logger"
	"giaoan/api/internal/planner"
	"giaoan/api/internal/render"
	"giaoan/api/internal/store"
)

type Generator interface {
	Generate(ctx context.Context, req planner.Request) (*planner.Result, error)
}

type CredentialStore interface {
	Load() (string, error)
	Save(key string) error
	Clear() error
}

type PDFPrinter interface {
	PDF(ctx context.Context, doc render.Document) ([]byte, error)
}

// History lists recent journal rows.
type History interface {
	Recent(ctx context.Context, limit int) ([]store.Generation, error)
}

type Handle struct {
	planner Generator
	loader  *attachment.Loader
	creds   CredentialStore
	pdf     PDFPrinter
	history History
	log     *logger.Logger
	timeout time.Duration
}

// New wires the HTTP handlers. creds and pdf may be nil; their endpoints
// then answer 501.
func New(p Generator, loader *attachment.Loader, creds CredentialStore, pdf PDFPrinter, log *logger.Logger, timeout time.Duration) *Handle {
	if log == nil {
		log = logger.Nop()
	}
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	return &Handle{
		planner: p,
		loader:  loader,
		creds:   creds,
		pdf:     pdf,
		log:     log,
		timeout: timeout,
	}
}

// WithHistory enables GET /v1/generations.
func (h *Handle) WithHistory(hs History) *Handle {
	h.history = hs
	return h
}

// Register mounts every endpoint on mux.
func (h *Handle) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/lesson-plans", h.GenerateLessonPlan)
	mux.HandleFunc("/v1/lesson-plans/render", h.RenderLessonPlan)
	mux.HandleFunc("/v1/credential", h.Credential)
	mux.HandleFunc("/v1/generations", h.Generations)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with the error code and the localized message only;
// causes and raw model output stay in the logs.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.HTTPStatus(err), errorBody{
		Error:   apperr.GetCode(err),
		Message: apperr.UserMessage(err),
	})
}

// deadline reads X-Request-Timeout (or ?timeoutSec=) in seconds.
func (h *Handle) deadline(r *http.Request) time.Duration {
	if ts := r.Header.Get("X-Request-Timeout"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			return time.Duration(v) * time.Second
		}
	} else if ts := r.URL.Query().Get("timeoutSec"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			return time.Duration(v) * time.Second
		}
	}
	return h.timeout
}
