package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/iterator"
	"google.golang.org/genai"

	"giaoan/api/internal/apperr"
	"giaoan/api/internal/attachment"
)

func TestNewTrims(t *testing.T) {
	e := New("  gemini-2.5-flash \n", 65536, 4096)
	assert.Equal(t, "gemini-2.5-flash", e.GetModel())
	assert.Equal(t, "gemini", e.Name())
}

func TestGenerateStreamNeedsKey(t *testing.T) {
	e := New("gemini-2.5-flash", 10, 0)
	s, err := e.GenerateStream(context.Background(), "   ", "prompt", nil)
	assert.Nil(t, s)
	assert.True(t, errors.Is(err, apperr.ErrMissingCredential))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"invalid key message", errors.New("googleapi: Error 400: API key not valid. Please pass a valid API key."), apperr.CodeServiceInvalidCredential},
		{"invalid key reason", errors.New("rpc error: reason API_KEY_INVALID"), apperr.CodeServiceInvalidCredential},
		{"401", fmt.Errorf("call: %w", &genai.APIError{Code: http.StatusUnauthorized, Status: "UNAUTHENTICATED"}), apperr.CodeServiceInvalidCredential},
		{"quota", &genai.APIError{Code: http.StatusTooManyRequests, Message: "Resource has been exhausted"}, apperr.CodeServiceFailure},
		{"network", errors.New("dial tcp: i/o timeout"), apperr.CodeServiceFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.Equal(t, tt.code, apperr.GetCode(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyAPIErrorValue(t *testing.T) {
	err := fmt.Errorf("stream: %w", genai.APIError{Code: http.StatusUnauthorized})
	assert.Equal(t, apperr.CodeServiceInvalidCredential, apperr.GetCode(Classify(err)))
}

func TestClassifyPassThrough(t *testing.T) {
	assert.NoError(t, Classify(nil))
	assert.Equal(t, iterator.Done, Classify(iterator.Done))
	assert.Equal(t, apperr.ErrMissingCredential, Classify(apperr.ErrMissingCredential))
}

func TestChunkText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{
				{Text: "reading the pages", Thought: true},
				{Text: `{"congVan":`},
				{Text: `"5512"`},
			}}},
			{Content: &genai.Content{Parts: []*genai.Part{{Text: "ignored"}}}},
		},
	}
	assert.Equal(t, `{"congVan":"5512"`, chunkText(resp))
	assert.Equal(t, "", chunkText(nil))
	assert.Equal(t, "", chunkText(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}))
}

func TestClassifyWrapsContextErrors(t *testing.T) {
	got := Classify(context.Canceled)
	require.Error(t, got)
	assert.ErrorIs(t, got, context.Canceled)
	assert.Equal(t, apperr.CodeServiceFailure, apperr.GetCode(got))
}

func TestConfigSendsThinkingBudget(t *testing.T) {
	cfg := New("gemini-2.5-flash", 65536, 4096).config()
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	assert.Equal(t, int32(65536), cfg.MaxOutputTokens)
	assert.Equal(t, int32(1), cfg.CandidateCount)
	require.NotNil(t, cfg.ThinkingConfig)
	require.NotNil(t, cfg.ThinkingConfig.ThinkingBudget)
	assert.Equal(t, int32(4096), *cfg.ThinkingConfig.ThinkingBudget)

	off := New("gemini-2.5-flash", 10, 0).config()
	require.NotNil(t, off.ThinkingConfig)
	assert.Zero(t, *off.ThinkingConfig.ThinkingBudget)

	assert.Nil(t, New("gemini-2.5-flash", 10, -1).config().ThinkingConfig)
}

func TestContentsKeepPageOrder(t *testing.T) {
	got := contents("prompt", []attachment.Image{
		{Name: "p1", MIMEType: "image/png", Data: []byte{1}},
		{Name: "p2", MIMEType: "image/jpeg", Data: []byte{2}},
	})
	require.Len(t, got, 1)
	assert.Equal(t, "user", got[0].Role)
	parts := got[0].Parts
	require.Len(t, parts, 3)
	assert.Equal(t, "prompt", parts[0].Text)
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "image/png", parts[1].InlineData.MIMEType)
	assert.Equal(t, []byte{2}, parts[2].InlineData.Data)
}

func TestResponseStream(t *testing.T) {
	chunk := func(text string) *genai.GenerateContentResponse {
		return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: text}}}},
		}}
	}
	seq := func(yield func(*genai.GenerateContentResponse, error) bool) {
		if !yield(chunk(`{"a":`), nil) {
			return
		}
		yield(chunk(`1}`), nil)
	}
	s := newResponseStream(seq)
	defer func() { _ = s.Close() }()

	first, err := s.Next()
	require.NoError(t, err)
	second, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, first+second)
	_, err = s.Next()
	assert.Equal(t, iterator.Done, err)
}

func TestResponseStreamClassifiesErrors(t *testing.T) {
	seq := func(yield func(*genai.GenerateContentResponse, error) bool) {
		yield(nil, genai.APIError{Code: http.StatusBadRequest, Message: "API key not valid. Please pass a valid API key."})
	}
	s := newResponseStream(seq)
	defer func() { _ = s.Close() }()

	_, err := s.Next()
	assert.Equal(t, apperr.CodeServiceInvalidCredential, apperr.GetCode(err))
}
