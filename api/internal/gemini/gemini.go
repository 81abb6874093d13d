// Package gemini streams lesson plans from the Gemini API.
package gemini

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"strings"

	"google.golang.org/api/iterator"
	"google.golang.org/genai"

	"giaoan/api/internal/apperr"
	"giaoan/api/internal/attachment"
	"giaoan/api/internal/stream"
)

type Engine struct {
	Model           string
	MaxOutputTokens int32
	// ThinkingBudget caps reasoning tokens; 0 turns thinking off and a
	// negative value lets the model decide.
	ThinkingBudget int32
}

func New(model string, maxOutputTokens, thinkingBudget int32) *Engine {
	return &Engine{
		Model:           strings.TrimSpace(model),
		MaxOutputTokens: maxOutputTokens,
		ThinkingBudget:  thinkingBudget,
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

// GenerateStream opens one streaming generation with the prompt followed by
// the images in order. The caller must Close the returned stream.
func (e *Engine) GenerateStream(ctx context.Context, apiKey, prompt string, images []attachment.Image) (stream.Stream, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, apperr.ErrMissingCredential
	}
	cl, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, Classify(err)
	}
	seq := cl.Models.GenerateContentStream(ctx, e.Model, contents(prompt, images), e.config())
	return newResponseStream(seq), nil
}

func (e *Engine) config() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		MaxOutputTokens:  e.MaxOutputTokens,
		CandidateCount:   1,
	}
	if e.ThinkingBudget >= 0 {
		budget := e.ThinkingBudget
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: &budget}
	}
	return cfg
}

func contents(prompt string, images []attachment.Image) []*genai.Content {
	parts := make([]*genai.Part, 0, len(images)+1)
	parts = append(parts, genai.NewPartFromText(prompt))
	for _, img := range images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

type responseStream struct {
	next func() (*genai.GenerateContentResponse, error, bool)
	stop func()
}

func newResponseStream(seq iter.Seq2[*genai.GenerateContentResponse, error]) *responseStream {
	next, stop := iter.Pull2(seq)
	return &responseStream{next: next, stop: stop}
}

func (s *responseStream) Next() (string, error) {
	resp, err, ok := s.next()
	if !ok {
		return "", iterator.Done
	}
	if err != nil {
		return "", Classify(err)
	}
	return chunkText(resp), nil
}

func (s *responseStream) Close() error {
	s.stop()
	return nil
}

// chunkText joins the answer parts of the first candidate of one chunk;
// thought summaries are skipped.
func chunkText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, p := range c.Content.Parts {
			if p != nil && !p.Thought {
				sb.WriteString(p.Text)
			}
		}
		return sb.String()
	}
	return ""
}

// Classify maps a Gemini error into the shared taxonomy. A rejected API key
// becomes SERVICE_INVALID_CREDENTIAL, everything else SERVICE_FAILURE. The
// original error stays reachable through errors.Is / errors.As.
func Classify(err error) error {
	if err == nil || errors.Is(err, iterator.Done) {
		return err
	}
	if apperr.IsAppError(err) {
		return err
	}
	if invalidKey(err) {
		return apperr.Wrap(err, apperr.CodeServiceInvalidCredential, apperr.ErrServiceInvalidCredential.Message)
	}
	return apperr.Wrap(err, apperr.CodeServiceFailure, apperr.ErrServiceFailure.Message)
}

func invalidKey(err error) bool {
	msg := err.Error()
	if strings.Contains(msg, "API key not valid") || strings.Contains(msg, "API_KEY_INVALID") {
		return true
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusUnauthorized
	}
	var apiErrPtr *genai.APIError
	return errors.As(err, &apiErrPtr) && apiErrPtr.Code == http.StatusUnauthorized
}
