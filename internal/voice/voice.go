// Package voice holds the static table of neural voices offered to users.
package voice

import (
	"errors"
	"fmt"
	"strings"
)

// Error definitions for the voice package.
var (
	ErrEmptyVoice     = errors.New("voice name and id must not be empty")
	ErrDuplicateVoice = errors.New("voice is already registered")
)

// Voice maps a human-readable display name to a provider voice identifier.
type Voice struct {
	Name   string `json:"name"`
	ID     string `json:"id"`
	Locale string `json:"locale"`
	Gender string `json:"gender"`
}

// DefaultName is the voice used when a request does not pick one.
const DefaultName = "Guy"

var defaultVoices = []Voice{
	{Name: "Guy", ID: "en-US-GuyNeural", Gender: "Male"},
	{Name: "Ryan", ID: "en-GB-RyanNeural", Gender: "Male"},
	{Name: "James", ID: "en-US-AndrewNeural", Gender: "Male"},
	{Name: "Eric", ID: "en-US-EricNeural", Gender: "Male"},
	{Name: "Christopher", ID: "en-US-ChristopherNeural", Gender: "Male"},
	{Name: "Jenny", ID: "en-US-JennyNeural", Gender: "Female"},
	{Name: "Aria", ID: "en-US-AriaNeural", Gender: "Female"},
	{Name: "Libby", ID: "en-GB-LibbyNeural", Gender: "Female"},
	{Name: "Ava", ID: "en-US-AvaMultilingualNeural", Gender: "Female"},
	{Name: "Emma", ID: "en-US-EmmaMultilingualNeural", Gender: "Female"},
}

// Registry is an immutable, ordered set of voices.
type Registry struct {
	voices []Voice
	byName map[string]Voice
	byID   map[string]Voice
}

// NewRegistry validates voices and builds a registry preserving their order.
func NewRegistry(voices []Voice) (*Registry, error) {
	r := &Registry{
		voices: make([]Voice, 0, len(voices)),
		byName: make(map[string]Voice, len(voices)),
		byID:   make(map[string]Voice, len(voices)),
	}

	for _, v := range voices {
		v.Name = strings.TrimSpace(v.Name)
		v.ID = strings.TrimSpace(v.ID)
		if v.Name == "" || v.ID == "" {
			return nil, fmt.Errorf("%w: %+v", ErrEmptyVoice, v)
		}
		if v.Locale == "" {
			v.Locale = localeOf(v.ID)
		}

		nameKey := strings.ToLower(v.Name)
		if _, ok := r.byName[nameKey]; ok {
			return nil, fmt.Errorf("%w: name %q", ErrDuplicateVoice, v.Name)
		}
		if _, ok := r.byID[v.ID]; ok {
			return nil, fmt.Errorf("%w: id %q", ErrDuplicateVoice, v.ID)
		}

		r.byName[nameKey] = v
		r.byID[v.ID] = v
		r.voices = append(r.voices, v)
	}

	return r, nil
}

// Default returns the built-in registry of ten English neural voices.
func Default() *Registry {
	r, err := NewRegistry(defaultVoices)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve looks a voice up by display name (case-insensitive) or provider ID.
func (r *Registry) Resolve(key string) (Voice, bool) {
	key = strings.TrimSpace(key)
	if v, ok := r.byName[strings.ToLower(key)]; ok {
		return v, true
	}
	v, ok := r.byID[key]
	return v, ok
}

// List returns the voices in display order.
func (r *Registry) List() []Voice {
	out := make([]Voice, len(r.voices))
	copy(out, r.voices)
	return out
}

// Len returns the number of voices.
func (r *Registry) Len() int {
	return len(r.voices)
}

// localeOf extracts "en-US" from "en-US-GuyNeural".
func localeOf(id string) string {
	parts := strings.SplitN(id, "-", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[0] + "-" + parts[1]
}
