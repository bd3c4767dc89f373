package http

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/ekisa-team/voicemagic/internal/service"
	"github.com/ekisa-team/voicemagic/internal/web"
)

// maxFormBytes bounds POST / bodies.
const maxFormBytes = 1 << 20

// PageHandler serves the HTML page. It works without JavaScript: a form POST
// synthesizes synchronously and renders the result.
type PageHandler struct {
	service     Synthesizer
	analyticsID atomic.Pointer[string]
}

// NewPageHandler creates a new PageHandler instance.
func NewPageHandler(svc Synthesizer, analyticsID string) *PageHandler {
	h := &PageHandler{service: svc}
	h.SetAnalyticsID(analyticsID)
	return h
}

// SetAnalyticsID swaps the Google Analytics ID used by subsequent renders.
// An empty ID disables the tag.
func (h *PageHandler) SetAnalyticsID(id string) {
	h.analyticsID.Store(&id)
}

// Show renders the empty page.
func (h *PageHandler) Show(w http.ResponseWriter, r *http.Request) {
	h.render(w, h.pageData(""))
}

// Submit synthesizes the posted text and renders the page with the result.
func (h *PageHandler) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	data := h.pageData(r.PostFormValue("voice"))
	data.Text = r.PostFormValue("text")

	a, err := h.service.Synthesize(r.Context(), service.SynthesisRequest{
		Text:  data.Text,
		Voice: data.Selected,
	})
	switch {
	case errors.Is(err, service.ErrEmptyText):
		data.Warning = web.WarningEmptyText
	case service.IsValidation(err):
		data.Warning = err.Error()
	case err != nil:
		data.Error = web.ErrorGeneric
	default:
		data.Result = web.NewResult(a)
	}

	h.render(w, data)
}

func (h *PageHandler) pageData(selected string) web.PageData {
	if selected == "" {
		selected = h.service.DefaultVoice().Name
	}
	return web.PageData{
		Voices:      h.service.Voices(),
		Selected:    selected,
		AnalyticsID: *h.analyticsID.Load(),
	}
}

func (h *PageHandler) render(w http.ResponseWriter, data web.PageData) {
	var buf bytes.Buffer
	if err := web.Render(&buf, data); err != nil {
		slog.Error("Failed to render page", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
