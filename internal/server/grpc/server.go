// Package grpc exposes the synthesis service over gRPC, together with the
// standard health service.
package grpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/ekisa-team/voicemagic/internal/artifact"
	"github.com/ekisa-team/voicemagic/internal/mapsafe"
	"github.com/ekisa-team/voicemagic/internal/service"
	"github.com/ekisa-team/voicemagic/internal/voice"
)

// Synthesizer is the part of service.TTS the gRPC surface depends on.
type Synthesizer interface {
	Synthesize(ctx context.Context, req service.SynthesisRequest) (*artifact.Artifact, error)
	Voices() []voice.Voice
	Open(id string) (*artifact.Artifact, []byte, error)
}

// Server hosts the Synthesizer and health services.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
}

// NewServer creates a gRPC server backed by svc.
func NewServer(svc Synthesizer, opts ...grpc.ServerOption) *Server {
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(logUnary)}, opts...)

	s := &Server{
		grpc:   grpc.NewServer(opts...),
		health: health.NewServer(),
	}

	RegisterSynthesizerServer(s.grpc, &synthesizer{service: svc})
	healthpb.RegisterHealthServer(s.grpc, s.health)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	return s
}

// Serve accepts connections on l until Shutdown is called.
func (s *Server) Serve(l net.Listener) error {
	slog.Info("gRPC server listening", "addr", l.Addr().String())

	if err := s.grpc.Serve(l); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("grpc server: %w", err)
	}
	return nil
}

// Shutdown marks the server as not serving and stops it gracefully, forcing
// the stop once ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down gRPC server")
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		s.grpc.Stop()
		return ctx.Err()
	}
}

type synthesizer struct {
	service Synthesizer
}

func (s *synthesizer) Synthesize(ctx context.Context, in *structpb.Struct) (*wrapperspb.BytesValue, error) {
	fields := in.AsMap()

	a, err := s.service.Synthesize(ctx, service.SynthesisRequest{
		Text:   mapsafe.String(fields, "text"),
		Voice:  mapsafe.String(fields, "voice"),
		Rate:   mapsafe.String(fields, "rate"),
		Volume: mapsafe.String(fields, "volume"),
		Pitch:  mapsafe.String(fields, "pitch"),
	})
	if err != nil {
		return nil, toStatus(err)
	}

	_, data, err := s.service.Open(a.ID)
	if err != nil {
		return nil, toStatus(err)
	}

	if err := grpc.SetHeader(ctx, metadata.Pairs(
		HeaderArtifactID, a.ID,
		HeaderVoiceID, a.VoiceID,
		HeaderContentType, a.MIMEType,
	)); err != nil {
		slog.Warn("Failed to set response headers", "error", err)
	}

	return wrapperspb.Bytes(data), nil
}

func (s *synthesizer) ListVoices(_ context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	voices := s.service.Voices()

	items := make([]any, 0, len(voices))
	for _, v := range voices {
		items = append(items, map[string]any{
			"name":   v.Name,
			"id":     v.ID,
			"locale": v.Locale,
			"gender": v.Gender,
		})
	}

	list, err := structpb.NewList(items)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode voices: %v", err)
	}
	return list, nil
}

func toStatus(err error) error {
	switch {
	case service.IsValidation(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, "too many requests")
	case errors.Is(err, service.ErrBusy):
		return status.Error(codes.Unavailable, "all synthesis slots are busy")
	case errors.Is(err, service.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "speech synthesis timed out")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	case errors.Is(err, artifact.ErrNotFound), errors.Is(err, artifact.ErrInvalidID):
		return status.Error(codes.NotFound, "audio not found")
	default:
		return status.Error(codes.Internal, "speech synthesis failed")
	}
}

func logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	code := status.Code(err)
	level := slog.LevelInfo
	if code == codes.Internal || code == codes.Unknown {
		level = slog.LevelWarn
	}

	slog.Log(ctx, level, "gRPC request",
		"method", info.FullMethod,
		"code", code.String(),
		"duration", time.Since(start),
	)

	return resp, err
}
