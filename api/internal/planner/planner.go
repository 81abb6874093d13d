// Package planner runs one lesson-plan generation from form input and
// photos to a rendered document.
package planner

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"giaoan/api/internal/apperr"
	"giaoan/api/internal/attachment"
	"giaoan/api/internal/lessonplan"
	"giaoan/api/internal/logger"
	"giaoan/api/internal/metrics"
	"giaoan/api/internal/prompt"
	"giaoan/api/internal/render"
	"giaoan/api/internal/store"
	"giaoan/api/internal/stream"
)

// CredentialFunc returns the API key to use for the next request; "" means
// none is configured.
type CredentialFunc func() (string, error)

type Generator interface {
	GenerateStream(ctx context.Context, apiKey, prompt string, images []attachment.Image) (stream.Stream, error)
	GetModel() string
}

// Journal records generation metadata. Failures are logged, never returned.
type Journal interface {
	Record(ctx context.Context, g store.Generation) error
}

type Request struct {
	Input  lessonplan.Input
	Images []attachment.Image
}

type Result struct {
	RequestID string
	Plan      lessonplan.Plan
	// Input has the lesson title, subject and grade the model chose filled in.
	Input    lessonplan.Input
	Document render.Document
}

type Service struct {
	gen     Generator
	cred    CredentialFunc
	log     *logger.Logger
	journal Journal
	channel string
	sem     *semaphore.Weighted
	now     func() time.Time
}

type Option func(*Service)

func WithJournal(j Journal) Option { return func(s *Service) { s.journal = j } }

// WithChannel names the caller in logs and the journal ("cli", "http", ...).
func WithChannel(name string) Option { return func(s *Service) { s.channel = name } }

func New(gen Generator, cred CredentialFunc, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{
		gen:     gen,
		cred:    cred,
		log:     log,
		channel: "unknown",
		sem:     semaphore.NewWeighted(1),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Generate runs one request. Only one runs at a time per Service; a second
// concurrent call fails at once with REQUEST_IN_FLIGHT. On any error no
// plan is returned.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	if !s.sem.TryAcquire(1) {
		return nil, apperr.ErrRequestInFlight
	}
	defer s.sem.Release(1)

	id := uuid.NewString()
	start := s.now()
	in := req.Input.Normalize()
	template := templateLabel(in.CongVan)
	log := s.log.With("request_id", id, "channel", s.channel, "template", template)

	var responseLen int
	res, err := s.run(ctx, id, in, req.Images, log, &responseLen)

	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = apperr.GetCode(err)
	}
	took := s.now().Sub(start)
	metrics.ObserveGeneration(template, outcome, took, len(req.Images))
	s.record(ctx, log, store.Generation{
		RequestID:   id,
		Channel:     s.channel,
		Template:    template,
		Subject:     in.Subject,
		Grade:       in.Grade,
		ImageCount:  len(req.Images),
		Outcome:     outcome,
		LatencyMs:   took.Milliseconds(),
		ResponseLen: responseLen,
	})

	if err != nil {
		log.Warn("generation failed", "code", outcome, "err", err, "took", took)
		return nil, err
	}
	log.Info("generation done", "took", took, "response_len", responseLen)
	return res, nil
}

func (s *Service) run(ctx context.Context, id string, in lessonplan.Input, images []attachment.Image, log *logger.Logger, responseLen *int) (*Result, error) {
	if len(images) == 0 {
		return nil, apperr.ErrMissingAttachment
	}
	key, err := s.cred()
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeMissingCredential, apperr.ErrMissingCredential.Message)
	}
	if key == "" {
		return nil, apperr.ErrMissingCredential
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	text, err := prompt.Build(in)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInvalidInput, apperr.ErrInvalidInput.Message)
	}
	log.Debug("prompt built", "model", s.gen.GetModel(), "images", len(images), "prompt_len", len(text))

	st, err := s.gen.GenerateStream(ctx, key, text, images)
	if err != nil {
		return nil, asServiceError(err)
	}
	defer func() { _ = st.Close() }()

	full, err := stream.Accumulate(ctx, st)
	if err != nil {
		return nil, asServiceError(err)
	}
	*responseLen = len(full)

	plan, err := lessonplan.Parse(full)
	if err != nil {
		if raw := apperr.RawOf(err); raw != "" {
			log.Error("model returned malformed JSON", "raw", raw, "err", err)
		}
		return nil, err
	}

	backfilled := in.Backfill(plan)
	return &Result{
		RequestID: id,
		Plan:      plan,
		Input:     backfilled,
		Document:  render.Build(plan, backfilled),
	}, nil
}

func (s *Service) record(ctx context.Context, log *logger.Logger, g store.Generation) {
	if s.journal == nil {
		return
	}
	// the journal outlives a cancelled request
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.journal.Record(ctx, g); err != nil {
		log.Warn("journal write failed", "err", err)
	}
}

// templateLabel bounds the template label set; anything Validate would
// reject is reported as "invalid".
func templateLabel(cv lessonplan.CongVan) string {
	switch cv {
	case lessonplan.CongVan5512, lessonplan.CongVan2345:
		return string(cv)
	}
	return "invalid"
}

func asServiceError(err error) error {
	if apperr.IsAppError(err) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(err, apperr.CodeServiceFailure, "generation cancelled")
	}
	return apperr.Wrap(err, apperr.CodeServiceFailure, apperr.ErrServiceFailure.Message)
}
