package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/ekisa-team/voicemagic/internal/artifact"
	"github.com/ekisa-team/voicemagic/internal/progress"
	"github.com/ekisa-team/voicemagic/internal/service"
	"github.com/ekisa-team/voicemagic/internal/voice"
	"github.com/ekisa-team/voicemagic/internal/web"
)

type (
	// SynthesizeRequestDTO is the request body for the Synthesize operation.
	SynthesizeRequestDTO struct {
		Text   string `json:"text" doc:"Text to speak"`
		Voice  string `json:"voice,omitempty" doc:"Voice display name or provider voice ID" example:"Guy"`
		Rate   string `json:"rate,omitempty" pattern:"^[+-][0-9]{1,3}%$" example:"+10%"`
		Volume string `json:"volume,omitempty" pattern:"^[+-][0-9]{1,3}%$" example:"-5%"`
		Pitch  string `json:"pitch,omitempty" pattern:"^[+-][0-9]{1,4}Hz$" example:"+2Hz"`
	}

	// SynthesizeResponseDTO is the response body for the Synthesize operation.
	SynthesizeResponseDTO struct {
		Artifact    *artifact.Artifact `json:"artifact"`
		AudioURL    string             `json:"audio_url"`
		DownloadURL string             `json:"download_url"`
	}

	// VoicesResponseDTO is the response body for the ListVoices operation.
	VoicesResponseDTO struct {
		Default string        `json:"default"`
		Voices  []voice.Voice `json:"voices"`
	}
)

type (
	// SynthesizeInput is the huma input for the Synthesize operation.
	SynthesizeInput struct {
		Body SynthesizeRequestDTO
	}

	// SynthesizeOutput is the huma output for the Synthesize operation.
	SynthesizeOutput struct {
		Body SynthesizeResponseDTO
	}

	// SynthesizeEventsInput is the huma input for the SynthesizeEvents operation.
	// It is a GET so browsers can consume it with EventSource.
	SynthesizeEventsInput struct {
		Text   string `query:"text"`
		Voice  string `query:"voice"`
		Rate   string `query:"rate"`
		Volume string `query:"volume"`
		Pitch  string `query:"pitch"`
	}

	// VoicesOutput is the huma output for the ListVoices operation.
	VoicesOutput struct {
		Body VoicesResponseDTO
	}

	// AudioInput is the huma input for the GetAudio operation.
	AudioInput struct {
		ID       string `path:"id" doc:"Artifact ID"`
		Download bool   `query:"download" doc:"Serve as an attachment"`
	}

	// AudioOutput is the huma output for the GetAudio operation.
	AudioOutput struct {
		ContentType        string `header:"Content-Type"`
		ContentDisposition string `header:"Content-Disposition"`
		CacheControl       string `header:"Cache-Control"`
		Body               []byte
	}
)

type (
	// CompleteEvent is sent once the audio is stored.
	CompleteEvent struct {
		ArtifactID  string `json:"artifact_id"`
		AudioURL    string `json:"audio_url"`
		DownloadURL string `json:"download_url"`
		FileName    string `json:"file_name"`
	}

	// ErrorEvent is sent when synthesis did not produce audio. Kind is
	// "warning" for input problems and "error" otherwise.
	ErrorEvent struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	}
)

// TTSHandler handles HTTP requests for TTS.
type TTSHandler struct {
	service Synthesizer
	ticker  progress.Ticker
}

// NewTTSHandler creates a new TTSHandler instance.
func NewTTSHandler(api huma.API, svc Synthesizer) *TTSHandler {
	h := &TTSHandler{service: svc, ticker: progress.Default()}

	huma.Register(api, huma.Operation{
		OperationID: "list-voices",
		Method:      http.MethodGet,
		Path:        "/api/voices",
		Summary:     "List available voices",
		Tags:        []string{"tts"},
	}, h.handleVoices)

	huma.Register(api, huma.Operation{
		OperationID:   "synthesize",
		Method:        http.MethodPost,
		Path:          "/api/synthesize",
		Summary:       "Synthesize speech from text",
		Tags:          []string{"tts"},
		DefaultStatus: http.StatusCreated,
	}, h.handleSynthesize)

	sse.Register(api, huma.Operation{
		OperationID: "synthesize-events",
		Method:      http.MethodGet,
		Path:        "/api/synthesize/events",
		Summary:     "Synthesize speech and stream progress (SSE)",
		Tags:        []string{"tts"},
	}, map[string]any{
		"progress": progress.Update{},
		"complete": CompleteEvent{},
		"error":    ErrorEvent{},
	}, h.handleSynthesizeEvents)

	huma.Register(api, huma.Operation{
		OperationID: "get-audio",
		Method:      http.MethodGet,
		Path:        "/api/audio/{id}",
		Summary:     "Fetch synthesized audio",
		Tags:        []string{"tts"},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "MP3 audio",
				Content: map[string]*huma.MediaType{
					artifact.MIMETypeMP3: {},
				},
			},
		},
	}, h.handleAudio)

	return h
}

// handleVoices handles the list-voices operation.
func (h *TTSHandler) handleVoices(_ context.Context, _ *struct{}) (*VoicesOutput, error) {
	return &VoicesOutput{
		Body: VoicesResponseDTO{
			Default: h.service.DefaultVoice().Name,
			Voices:  h.service.Voices(),
		},
	}, nil
}

// handleSynthesize handles the synthesize operation.
func (h *TTSHandler) handleSynthesize(ctx context.Context, input *SynthesizeInput) (*SynthesizeOutput, error) {
	a, err := h.service.Synthesize(ctx, service.SynthesisRequest{
		Text:   input.Body.Text,
		Voice:  input.Body.Voice,
		Rate:   input.Body.Rate,
		Volume: input.Body.Volume,
		Pitch:  input.Body.Pitch,
	})
	if err != nil {
		return nil, toHTTPError(err)
	}

	res := web.NewResult(a)

	return &SynthesizeOutput{
		Body: SynthesizeResponseDTO{
			Artifact:    a,
			AudioURL:    res.AudioURL,
			DownloadURL: res.DownloadURL,
		},
	}, nil
}

// handleSynthesizeEvents handles the synthesize-events operation.
func (h *TTSHandler) handleSynthesizeEvents(ctx context.Context, input *SynthesizeEventsInput, send sse.Sender) {
	req := service.SynthesisRequest{
		Text:   input.Text,
		Voice:  input.Voice,
		Rate:   input.Rate,
		Volume: input.Volume,
		Pitch:  input.Pitch,
	}

	var a *artifact.Artifact
	err := h.ticker.Track(ctx, func(ctx context.Context) error {
		var err error
		a, err = h.service.Synthesize(ctx, req)
		return err
	}, func(u progress.Update) error {
		return send.Data(u)
	})
	if err != nil {
		_ = send.Data(errorEvent(err))
		return
	}

	res := web.NewResult(a)
	_ = send.Data(CompleteEvent{
		ArtifactID:  a.ID,
		AudioURL:    res.AudioURL,
		DownloadURL: res.DownloadURL,
		FileName:    res.FileName,
	})
}

// handleAudio handles the get-audio operation.
func (h *TTSHandler) handleAudio(_ context.Context, input *AudioInput) (*AudioOutput, error) {
	a, data, err := h.service.Open(input.ID)
	if err != nil {
		return nil, toHTTPError(err)
	}

	out := &AudioOutput{
		ContentType:  a.MIMEType,
		CacheControl: "private, max-age=3600",
		Body:         data,
	}
	if input.Download {
		out.ContentDisposition = fmt.Sprintf("attachment; filename=%q", artifact.DownloadName)
	}

	return out, nil
}

// toHTTPError maps service and storage errors onto HTTP problems. Backend
// failure details are logged by the service and never sent to the client.
func toHTTPError(err error) error {
	switch {
	case errors.Is(err, service.ErrEmptyText):
		return huma.Error422UnprocessableEntity(web.WarningEmptyText)
	case service.IsValidation(err):
		return huma.Error422UnprocessableEntity(err.Error())
	case errors.Is(err, service.ErrRateLimited):
		return huma.Error429TooManyRequests("too many requests, try again later")
	case errors.Is(err, service.ErrBusy):
		return huma.Error503ServiceUnavailable("all synthesis slots are busy, try again later")
	case errors.Is(err, service.ErrTimeout):
		return huma.Error504GatewayTimeout("speech synthesis timed out")
	case errors.Is(err, context.Canceled):
		return huma.Error503ServiceUnavailable("request canceled")
	case errors.Is(err, artifact.ErrNotFound), errors.Is(err, artifact.ErrInvalidID):
		return huma.Error404NotFound("audio not found")
	}

	var synthErr *service.SynthesisError
	if errors.As(err, &synthErr) {
		return huma.Error502BadGateway(web.ErrorGeneric)
	}

	slog.Error("Unhandled request error", "error", err)
	return huma.Error500InternalServerError(web.ErrorGeneric)
}

// errorEvent is the SSE counterpart of toHTTPError.
func errorEvent(err error) ErrorEvent {
	switch {
	case errors.Is(err, service.ErrEmptyText):
		return ErrorEvent{Kind: "warning", Message: web.WarningEmptyText}
	case service.IsValidation(err):
		return ErrorEvent{Kind: "warning", Message: err.Error()}
	case errors.Is(err, service.ErrRateLimited), errors.Is(err, service.ErrBusy):
		return ErrorEvent{Kind: "error", Message: "The service is busy. Please try again in a moment."}
	default:
		return ErrorEvent{Kind: "error", Message: web.ErrorGeneric}
	}
}
