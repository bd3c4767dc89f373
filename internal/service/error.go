package service

import (
	"errors"

	"github.com/ekisa-team/voicemagic/internal/backend"
)

// Error definitions for the service package.
var (
	ErrEmptyText    = errors.New("text is empty after stripping spaces")
	ErrTextTooLong  = errors.New("text is too long")
	ErrUnknownVoice = errors.New("unknown voice")
	ErrRateLimited  = errors.New("too many synthesis requests")
	ErrBusy         = errors.New("no synthesis slot available")
	ErrTimeout      = errors.New("synthesis timed out")
	ErrEmptyAudio   = errors.New("backend returned no audio")
)

// SynthesisError wraps any failure that happened while the backend was
// producing audio. Callers show users a generic message and log the cause.
type SynthesisError struct {
	Provider backend.BackendProvider
	Voice    string
	Cause    error
}

// Error implements the error interface.
func (e *SynthesisError) Error() string {
	return "synthesis failed (" + string(e.Provider) + ", " + e.Voice + "): " + e.Cause.Error()
}

// Unwrap returns the underlying error.
func (e *SynthesisError) Unwrap() error {
	return e.Cause
}

// IsValidation reports whether err was caused by the request itself, before
// any synthesis was attempted.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyText) ||
		errors.Is(err, ErrTextTooLong) ||
		errors.Is(err, ErrUnknownVoice) ||
		errors.Is(err, backend.ErrInvalidParameter)
}
