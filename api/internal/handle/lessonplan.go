package handle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"giaoan/api/internal/apperr"
	"giaoan/api/internal/export"
	"giaoan/api/internal/lessonplan"
	"giaoan/api/internal/metrics"
	"giaoan/api/internal/planner"
	"giaoan/api/internal/render"
)

// maxBody bounds a request: a handful of phone photos in base64.
const maxBody = 64 << 20

type GenerateRequest struct {
	Input lessonplan.Input `json:"input"`
	// Images are base64 strings or data: URLs, in page order.
	Images []string `json:"images"`
}

type GenerateResponse struct {
	RequestID string           `json:"request_id"`
	Plan      lessonplan.Plan  `json:"plan"`
	Input     lessonplan.Input `json:"input"`
	Text      string           `json:"text"`
	Markdown  string           `json:"markdown"`
	HTML      string           `json:"html"`
	Filename  string           `json:"filename"`
}

func (h *Handle) GenerateLessonPlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST only"})
		return
	}
	var req GenerateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json: " + err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.deadline(r))
	defer cancel()

	images, err := h.loader.FromBase64(ctx, req.Images)
	if err != nil {
		h.log.Warn("bad image payload", "err", err, "images", len(req.Images))
		writeError(w, apperr.Wrap(err, apperr.CodeInvalidInput, "bad image"))
		return
	}

	res, err := h.planner.Generate(ctx, planner.Request{Input: req.Input, Images: images})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{
		RequestID: res.RequestID,
		Plan:      res.Plan,
		Input:     res.Input,
		Text:      render.PlainText(res.Document),
		Markdown:  render.Markdown(res.Document),
		HTML:      render.HTML(res.Document),
		Filename:  export.Filename(res.Document.Title, export.ExtDoc),
	})
}

type RenderRequest struct {
	// Plan is the plan JSON as returned by GenerateLessonPlan.
	Plan  json.RawMessage  `json:"plan"`
	Input lessonplan.Input `json:"input"`
}

// RenderLessonPlan re-renders a saved plan. ?format= is text, markdown,
// html, doc or pdf.
func (h *Handle) RenderLessonPlan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST only"})
		return
	}
	var req RenderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad json: " + err.Error()})
		return
	}
	plan, err := lessonplan.Parse(string(req.Plan))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: apperr.GetCode(err), Message: apperr.UserMessage(err)})
		return
	}
	in := req.Input.Normalize().Backfill(plan)
	doc := render.Build(plan, in)

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "text"
	}
	var (
		body        []byte
		contentType string
		filename    string
	)
	switch format {
	case "text":
		body, contentType = []byte(render.PlainText(doc)), "text/plain; charset=utf-8"
	case "markdown":
		body, contentType = []byte(render.Markdown(doc)), "text/markdown; charset=utf-8"
	case "html":
		body, contentType = []byte(render.HTML(doc)), "text/html; charset=utf-8"
	case "doc":
		body, contentType = export.Doc(doc), "application/msword"
		filename = export.Filename(doc.Title, export.ExtDoc)
	case "pdf":
		if h.pdf == nil {
			writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "pdf export is not configured"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), h.deadline(r))
		defer cancel()
		body, err = h.pdf.PDF(ctx, doc)
		if err != nil {
			h.log.Error("pdf export failed", "err", err)
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "pdf export failed"})
			return
		}
		contentType = "application/pdf"
		filename = export.Filename(doc.Title, export.ExtPDF)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown format " + strconv.Quote(format)})
		return
	}
	metrics.ObserveExport(format)

	w.Header().Set("Content-Type", contentType)
	if filename != "" {
		w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
