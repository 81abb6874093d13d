package handle

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giaoan/api/internal/apperr"
	"giaoan/api/internal/attachment"
	"giaoan/api/internal/lessonplan"
	"giaoan/api/internal/planner"
	"giaoan/api/internal/render"
	"giaoan/api/internal/store"
)

type fakePlanner struct {
	got      planner.Request
	deadline time.Duration
	err      error
	raw      string
}

func (f *fakePlanner) Generate(ctx context.Context, req planner.Request) (*planner.Result, error) {
	f.got = req
	if d, ok := ctx.Deadline(); ok {
		f.deadline = time.Until(d).Round(time.Second)
	}
	if f.err != nil {
		return nil, f.err
	}
	plan, err := lessonplan.Parse(f.raw)
	if err != nil {
		return nil, err
	}
	in := req.Input.Normalize().Backfill(plan)
	return &planner.Result{RequestID: "req-1", Plan: plan, Input: in, Document: render.Build(plan, in)}, nil
}

type memCreds struct {
	key string
	err error
}

func (m *memCreds) Load() (string, error) { return m.key, m.err }
func (m *memCreds) Save(k string) error   { m.key = strings.TrimSpace(k); return m.err }
func (m *memCreds) Clear() error          { m.key = ""; return m.err }

type fakePDF struct{}

func (fakePDF) PDF(context.Context, render.Document) ([]byte, error) { return []byte("%PDF-1.4"), nil }

func newServer(p Generator, creds CredentialStore, pdf PDFPrinter) *httptest.Server {
	mux := http.NewServeMux()
	New(p, attachment.NewLoader(0), creds, pdf, nil, 0).Register(mux)
	return httptest.NewServer(mux)
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func postJSON(t *testing.T, url string, v any, header map[string]string) *http.Response {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	require.NoError(t, err)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestGenerateLessonPlan(t *testing.T) {
	fp := &fakePlanner{raw: `{"congVan":"2345","lessonTitle":"Phép cộng","yeuCauCanDat":"X"}`}
	srv := newServer(fp, nil, nil)
	defer srv.Close()

	in := lessonplan.DefaultInput()
	in.CongVan = lessonplan.CongVan2345
	resp := postJSON(t, srv.URL+"/v1/lesson-plans", GenerateRequest{
		Input:  in,
		Images: []string{"data:image/png;base64," + base64.StdEncoding.EncodeToString(tinyPNG(t))},
	}, map[string]string{"X-Request-Timeout": "30"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		RequestID string          `json:"request_id"`
		Plan      json.RawMessage `json:"plan"`
		Input     lessonplan.Input
		Text      string
		HTML      string
		Filename  string
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "req-1", out.RequestID)
	assert.Equal(t, "Phép cộng", out.Input.LessonTitle)
	assert.Contains(t, out.Text, "I. YÊU CẦU CẦN ĐẠT\nX")
	assert.Contains(t, out.HTML, "<!DOCTYPE html>")
	assert.Equal(t, "GiaoAn_Phép_cộng.doc", out.Filename)
	assert.JSONEq(t, `{"congVan":"2345","lessonTitle":"Phép cộng","yeuCauCanDat":"X","doDungDayHoc":"","hoatDongDayHoc":null}`, string(out.Plan))

	require.Len(t, fp.got.Images, 1)
	assert.Equal(t, "image/png", fp.got.Images[0].MIMEType)
	assert.Equal(t, 30*time.Second, fp.deadline)
}

func TestGenerateLessonPlanErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"missing key", apperr.ErrMissingCredential, http.StatusServiceUnavailable, apperr.CodeMissingCredential},
		{"no images", apperr.ErrMissingAttachment, http.StatusBadRequest, apperr.CodeMissingAttachment},
		{"busy", apperr.ErrRequestInFlight, http.StatusTooManyRequests, apperr.CodeRequestInFlight},
		{"malformed", apperr.MalformedJSON("not json {", errors.New("syntax")), http.StatusBadGateway, apperr.CodeMalformedJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(&fakePlanner{err: tt.err}, nil, nil)
			defer srv.Close()

			resp := postJSON(t, srv.URL+"/v1/lesson-plans", GenerateRequest{Input: lessonplan.DefaultInput()}, nil)
			assert.Equal(t, tt.status, resp.StatusCode)
			var body errorBody
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.code, body.Error)
			assert.Equal(t, apperr.UserMessage(tt.err), body.Message)
			assert.NotContains(t, body.Message, "not json")
		})
	}
}

func TestGenerateLessonPlanBadRequests(t *testing.T) {
	srv := newServer(&fakePlanner{}, nil, nil)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/lesson-plans")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/v1/lesson-plans", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	bad := postJSON(t, srv.URL+"/v1/lesson-plans", GenerateRequest{Images: []string{"%%%"}}, nil)
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestRenderLessonPlan(t *testing.T) {
	srv := newServer(&fakePlanner{}, nil, fakePDF{})
	defer srv.Close()

	in := lessonplan.DefaultInput()
	req := RenderRequest{
		Plan:  json.RawMessage(`{"congVan":"5512","lessonTitle":"Lực ma sát","thietBi":"Lò xo"}`),
		Input: in,
	}

	tests := []struct {
		format      string
		contentType string
		contains    string
		disposition string
	}{
		{"", "text/plain; charset=utf-8", "II. THIẾT BỊ DẠY HỌC VÀ HỌC LIỆU\nLò xo", ""},
		{"markdown", "text/markdown; charset=utf-8", "## II. THIẾT BỊ DẠY HỌC VÀ HỌC LIỆU", ""},
		{"html", "text/html; charset=utf-8", "<title>GiaoAn_Lực ma sát</title>", ""},
		{"doc", "application/msword", "<h3>II. THIẾT BỊ DẠY HỌC VÀ HỌC LIỆU</h3>", "GiaoAn_L%E1%BB%B1c_ma_s%C3%A1t.doc"},
		{"pdf", "application/pdf", "%PDF", ".pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/v1/lesson-plans/render?format="+tt.format, req, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.contentType, resp.Header.Get("Content-Type"))
			var buf bytes.Buffer
			_, _ = buf.ReadFrom(resp.Body)
			assert.Contains(t, buf.String(), tt.contains)
			if tt.disposition != "" {
				assert.Contains(t, resp.Header.Get("Content-Disposition"), tt.disposition)
			}
		})
	}
}

func TestRenderLessonPlanRejects(t *testing.T) {
	srv := newServer(&fakePlanner{}, nil, nil)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/lesson-plans/render?format=pdf", RenderRequest{Plan: json.RawMessage(`{"congVan":"5512"}`)}, nil)
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/v1/lesson-plans/render?format=odt", RenderRequest{Plan: json.RawMessage(`{}`)}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/v1/lesson-plans/render", map[string]any{"input": map[string]any{}}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCredentialLifecycle(t *testing.T) {
	creds := &memCreds{}
	srv := newServer(&fakePlanner{}, creds, nil)
	defer srv.Close()
	url := srv.URL + "/v1/credential"

	status := func() CredentialStatus {
		resp, err := http.Get(url)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var s CredentialStatus
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
		return s
	}
	assert.Equal(t, CredentialStatus{}, status())

	b, _ := json.Marshal(CredentialRequest{APIKey: "AIzaSyExample1234"})
	req, _ := http.NewRequest(http.MethodPut, url, bytes.NewReader(b))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, CredentialStatus{Configured: true, Masked: "****1234"}, status())

	req, _ = http.NewRequest(http.MethodPut, url, strings.NewReader(`{"api_key":"  "}`))
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req, _ = http.NewRequest(http.MethodDelete, url, nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.False(t, status().Configured)
}

func TestCredentialWithoutStore(t *testing.T) {
	srv := newServer(&fakePlanner{}, nil, nil)
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/v1/credential")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestDeadline(t *testing.T) {
	h := New(nil, nil, nil, nil, nil, 0)
	r := httptest.NewRequest(http.MethodPost, "/v1/lesson-plans?timeoutSec=15", nil)
	assert.Equal(t, 15*time.Second, h.deadline(r))
	r.Header.Set("X-Request-Timeout", "abc")
	assert.Equal(t, 180*time.Second, h.deadline(r))
	r.Header.Set("X-Request-Timeout", "20")
	assert.Equal(t, 20*time.Second, h.deadline(r))
}

type fakeHistory struct {
	limit int
	rows  []store.Generation
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]store.Generation, error) {
	f.limit = limit
	return f.rows, nil
}

func TestGenerations(t *testing.T) {
	hist := &fakeHistory{rows: []store.Generation{{ID: 1, RequestID: "r1", Channel: "http", Template: "5512", Outcome: "OK"}}}
	mux := http.NewServeMux()
	New(&fakePlanner{}, nil, nil, nil, nil, 0).WithHistory(hist).Register(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/generations?limit=5")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rows []store.Generation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "r1", rows[0].RequestID)
	assert.Equal(t, 5, hist.limit)
}

func TestGenerationsWithoutJournal(t *testing.T) {
	srv := newServer(&fakePlanner{}, nil, nil)
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/v1/generations")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}
