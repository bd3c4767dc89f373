// Package http exposes the synthesis service over HTTP: the browser page, a
// JSON API with server-sent progress events, audio downloads and metrics.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/ekisa-team/voicemagic/internal/artifact"
	"github.com/ekisa-team/voicemagic/internal/metrics"
	"github.com/ekisa-team/voicemagic/internal/service"
	"github.com/ekisa-team/voicemagic/internal/voice"
)

// Synthesizer is the part of service.TTS the HTTP surface depends on.
type Synthesizer interface {
	Synthesize(ctx context.Context, req service.SynthesisRequest) (*artifact.Artifact, error)
	Voices() []voice.Voice
	DefaultVoice() voice.Voice
	Open(id string) (*artifact.Artifact, []byte, error)
}

// Options configures a Server.
type Options struct {
	Addr        string
	AnalyticsID string
	Metrics     *metrics.Metrics
}

// Server is the HTTP front end.
type Server struct {
	api     huma.API
	page    *PageHandler
	handler http.Handler
	srv     *http.Server
}

type (
	// HealthOutput is the huma output for the health operation.
	HealthOutput struct {
		Body struct {
			Status string `json:"status" example:"ok"`
		}
	}
)

// NewServer wires the page, the API and the metrics endpoint onto one mux.
func NewServer(svc Synthesizer, opts Options) *Server {
	mux := http.NewServeMux()

	api := humago.New(mux, huma.DefaultConfig("Voice Magic TTS", "1.0.0"))

	huma.Register(api, huma.Operation{
		OperationID: "healthz",
		Method:      http.MethodGet,
		Path:        "/healthz",
		Summary:     "Liveness probe",
		Tags:        []string{"system"},
	}, func(context.Context, *struct{}) (*HealthOutput, error) {
		out := &HealthOutput{}
		out.Body.Status = "ok"
		return out, nil
	})

	NewTTSHandler(api, svc)

	page := NewPageHandler(svc, opts.AnalyticsID)
	mux.HandleFunc("GET /{$}", page.Show)
	mux.HandleFunc("POST /{$}", page.Submit)

	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics.Handler())
	}

	handler := logRequests(mux)

	return &Server{
		api:     api,
		page:    page,
		handler: handler,
		srv: &http.Server{
			Addr:              opts.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// API returns the huma API, mostly for OpenAPI generation.
func (s *Server) API() huma.API {
	return s.api
}

// SetAnalyticsID updates the analytics tag rendered on the page.
func (s *Server) SetAnalyticsID(id string) {
	s.page.SetAnalyticsID(id)
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve accepts connections on l until Shutdown is called.
func (s *Server) Serve(l net.Listener) error {
	slog.Info("HTTP server listening", "addr", l.Addr().String())

	if err := s.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// ListenAndServe listens on the configured address and serves.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.srv.Addr, err)
	}
	return s.Serve(l)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server")
	return s.srv.Shutdown(ctx)
}
