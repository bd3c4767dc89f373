package backend

import (
	"context"
	"io"
	"time"
)

// BackendProvider is a string identifier for a backend provider.
type BackendProvider string

const (
	// BackendProviderEdgeTTS delegates synthesis to the edge-tts client.
	BackendProviderEdgeTTS BackendProvider = "edge-tts"
)

// Backend defines the core interface for all synthesis backends.
type Backend interface {
	// Provider returns the backend identifier.
	Provider() BackendProvider

	// Infer synthesizes the whole input and returns the complete audio.
	Infer(ctx context.Context, req *Request) (*Response, error)

	// Close cleans up resources.
	Close() error
}

// Request encapsulates all parameters for a synthesis call.
type Request struct {
	// Voice is the provider voice identifier, e.g. "en-US-GuyNeural".
	Voice string

	// Input is the text to speak.
	Input io.Reader

	// Parameters contains backend-specific options (rate, volume, pitch...).
	Parameters map[string]any
}

// Response contains the result of a synthesis call.
type Response struct {
	// Output is the encoded audio.
	Output io.Reader

	// Metadata contains backend-specific information.
	Metadata *ResponseMetadata
}

// ResponseMetadata contains metadata about the response.
type ResponseMetadata struct {
	Provider        BackendProvider `json:"provider"`
	Voice           string          `json:"voice"`
	MIMEType        string          `json:"mime_type"`
	Timestamp       time.Time       `json:"timestamp"`
	OutputBytes     int64           `json:"output_bytes"`
	BackendSpecific map[string]any  `json:"backend_specific,omitempty"`
}
