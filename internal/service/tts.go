package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/ekisa-team/voicemagic/internal/artifact"
	"github.com/ekisa-team/voicemagic/internal/backend"
	"github.com/ekisa-team/voicemagic/internal/config"
	"github.com/ekisa-team/voicemagic/internal/metrics"
	"github.com/ekisa-team/voicemagic/internal/voice"
)

// SynthesisRequest is one user request. Voice accepts a display name or a
// provider voice ID; empty selects the configured default.
type SynthesisRequest struct {
	Text   string
	Voice  string
	Rate   string
	Volume string
	Pitch  string
}

// settings is the hot-reloadable part of the service.
type settings struct {
	provider      backend.BackendProvider
	defaultVoice  string
	timeout       time.Duration
	maxTextLength int
}

// TTS is a service abstraction for text-to-speech.
type TTS struct {
	backends *backend.Registry
	voices   *voice.Registry
	store    *artifact.Store
	metrics  *metrics.Metrics
	limiter  *rate.Limiter
	slots    *slotPool

	mu  sync.RWMutex
	cur settings
}

// NewTTS creates a new TTS service. m may be nil.
func NewTTS(backends *backend.Registry, voices *voice.Registry, store *artifact.Store, cfg config.SynthesisConfig, m *metrics.Metrics) *TTS {
	s := &TTS{
		backends: backends,
		voices:   voices,
		store:    store,
		metrics:  m,
		limiter:  rate.NewLimiter(perMinute(cfg.RequestsPerMinute), burst(cfg)),
		slots:    newSlotPool(cfg.MaxConcurrent),
	}
	s.Configure(cfg)
	return s
}

// Configure applies a new synthesis configuration. The concurrency bound is
// resized in place, so calls holding a slot keep counting against it.
func (s *TTS) Configure(cfg config.SynthesisConfig) {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	s.limiter.SetLimit(perMinute(cfg.RequestsPerMinute))
	s.limiter.SetBurst(burst(cfg))
	s.slots.resize(maxConcurrent)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cur = settings{
		provider:      backend.BackendProvider(cfg.Backend),
		defaultVoice:  cfg.DefaultVoice,
		timeout:       cfg.Timeout,
		maxTextLength: cfg.MaxTextLength,
	}

	slog.Info("Synthesis settings applied",
		"backend", cfg.Backend,
		"default_voice", cfg.DefaultVoice,
		"timeout", cfg.Timeout,
		"max_concurrent", maxConcurrent,
		"requests_per_minute", cfg.RequestsPerMinute,
	)
}

// Voices returns the available voices in display order.
func (s *TTS) Voices() []voice.Voice {
	return s.voices.List()
}

// DefaultVoice returns the voice used when a request does not pick one.
func (s *TTS) DefaultVoice() voice.Voice {
	s.mu.RLock()
	name := s.cur.defaultVoice
	s.mu.RUnlock()

	if v, ok := s.voices.Resolve(name); ok {
		return v
	}
	return s.voices.List()[0]
}

// Open returns a stored artifact and its audio.
func (s *TTS) Open(id string) (*artifact.Artifact, []byte, error) {
	return s.store.Open(id)
}

// Synthesize validates req, synthesizes speech and stores it as a new
// artifact. It returns only once the audio is on disk or an error occurred.
func (s *TTS) Synthesize(ctx context.Context, req SynthesisRequest) (*artifact.Artifact, error) {
	s.mu.RLock()
	cur := s.cur
	s.mu.RUnlock()

	text := strings.TrimSpace(req.Text)
	if text == "" {
		s.metrics.ObserveRequest("", metrics.OutcomeInvalid)
		return nil, ErrEmptyText
	}

	if n := utf8.RuneCountInString(text); cur.maxTextLength > 0 && n > cur.maxTextLength {
		s.metrics.ObserveRequest("", metrics.OutcomeInvalid)
		return nil, fmt.Errorf("%w: %d characters (max %d)", ErrTextTooLong, n, cur.maxTextLength)
	}

	voiceKey := strings.TrimSpace(req.Voice)
	if voiceKey == "" {
		voiceKey = cur.defaultVoice
	}
	v, ok := s.voices.Resolve(voiceKey)
	if !ok {
		s.metrics.ObserveRequest("", metrics.OutcomeInvalid)
		return nil, fmt.Errorf("%w: %q", ErrUnknownVoice, voiceKey)
	}

	b, ok := s.backends.Get(cur.provider)
	if !ok {
		s.metrics.ObserveRequest(v.ID, metrics.OutcomeFailure)
		return nil, fmt.Errorf("%w: %s", backend.ErrNotFound, cur.provider)
	}

	if err := s.waitForToken(ctx, cur.timeout); err != nil {
		s.metrics.ObserveRequest(v.ID, metrics.OutcomeLimited)
		return nil, err
	}

	if err := s.slots.acquire(ctx); err != nil {
		s.metrics.ObserveRequest(v.ID, metrics.OutcomeLimited)
		return nil, fmt.Errorf("%w: %w", ErrBusy, err)
	}
	defer s.slots.release()

	breq := &backend.Request{
		Voice: v.ID,
		Input: strings.NewReader(html.EscapeString(text)),
		Parameters: map[string]any{
			"rate":   req.Rate,
			"volume": req.Volume,
			"pitch":  req.Pitch,
		},
	}

	done := s.metrics.TrackInFlight()
	start := time.Now()

	var audio []byte
	err := await(ctx, cur.timeout, func(ctx context.Context) error {
		resp, err := b.Infer(ctx, breq)
		if err != nil {
			return err
		}
		audio, err = io.ReadAll(resp.Output)
		return err
	})
	done()

	if err != nil {
		s.metrics.ObserveRequest(v.ID, outcomeOf(err))
		slog.Error("Synthesis failed", "voice", v.ID, "provider", cur.provider, "error", err)

		if IsValidation(err) || errors.Is(err, ErrTimeout) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, &SynthesisError{Provider: cur.provider, Voice: v.ID, Cause: err}
	}

	if len(audio) == 0 {
		s.metrics.ObserveRequest(v.ID, metrics.OutcomeFailure)
		return nil, &SynthesisError{Provider: cur.provider, Voice: v.ID, Cause: ErrEmptyAudio}
	}

	a, err := s.store.Save(audio, v.ID)
	if err != nil {
		s.metrics.ObserveRequest(v.ID, metrics.OutcomeFailure)
		return nil, fmt.Errorf("failed to store audio: %w", err)
	}

	elapsed := time.Since(start)
	s.metrics.ObserveRequest(v.ID, metrics.OutcomeSuccess)
	s.metrics.ObserveSynthesis(v.ID, elapsed, len(audio))

	slog.Info("Speech synthesized",
		"artifact", a.ID,
		"voice", v.ID,
		"chars", utf8.RuneCountInString(text),
		"bytes", a.Size,
		"duration", elapsed,
	)

	return a, nil
}

// waitForToken takes a rate limiter token, waiting at most maxWait for it.
// A request that would have to wait longer is rejected right away instead of
// queueing behind the burst.
func (s *TTS) waitForToken(ctx context.Context, maxWait time.Duration) error {
	r := s.limiter.Reserve()
	if !r.OK() {
		return ErrRateLimited
	}

	delay := r.Delay()
	if delay == 0 {
		return nil
	}
	if maxWait > 0 && delay > maxWait {
		r.Cancel()
		return fmt.Errorf("%w: next token in %s", ErrRateLimited, delay.Round(time.Second))
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return fmt.Errorf("%w: %w", ErrRateLimited, ctx.Err())
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return metrics.OutcomeTimeout
	case errors.Is(err, context.Canceled):
		return metrics.OutcomeCanceled
	case IsValidation(err):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeFailure
	}
}

func perMinute(n int) rate.Limit {
	if n <= 0 {
		return rate.Inf
	}
	return rate.Every(time.Minute / time.Duration(n))
}

func burst(cfg config.SynthesisConfig) int {
	if cfg.MaxConcurrent > 1 {
		return cfg.MaxConcurrent
	}
	return 1
}
