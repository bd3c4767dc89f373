// Package web renders the browser page.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/ekisa-team/voicemagic/internal/artifact"
	"github.com/ekisa-team/voicemagic/internal/voice"
)

// Page messages.
const (
	WarningEmptyText = "Please enter some text."
	ErrorGeneric     = "Something went wrong while generating speech. Please try again."
)

//go:embed templates/*.html
var templates embed.FS

var page = template.Must(template.ParseFS(templates, "templates/index.html"))

// Result points the page at a finished artifact.
type Result struct {
	AudioURL    string
	DownloadURL string
	FileName    string
}

// PageData is everything index.html needs.
type PageData struct {
	Voices      []voice.Voice
	Selected    string
	Text        string
	Warning     string
	Error       string
	Result      *Result
	AnalyticsID string
}

// NewResult builds the playback and download links for a.
func NewResult(a *artifact.Artifact) *Result {
	return &Result{
		AudioURL:    AudioURL(a.ID),
		DownloadURL: AudioURL(a.ID) + "?download=true",
		FileName:    artifact.DownloadName,
	}
}

// AudioURL is the HTTP path serving artifact id.
func AudioURL(id string) string {
	return "/api/audio/" + id
}

// Render writes the page to w.
func Render(w io.Writer, data PageData) error {
	if err := page.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	return nil
}

// EmptyWarning is shown by the page script before submitting blank text.
func (PageData) EmptyWarning() string { return WarningEmptyText }

// GenericError is shown by the page script when synthesis fails.
func (PageData) GenericError() string { return ErrorGeneric }
