package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/voicemagic/internal/metrics"
	"github.com/ekisa-team/voicemagic/internal/service"
)

func postForm(t *testing.T, h http.Handler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPage_Show(t *testing.T) {
	srv := NewServer(&MockSynthesizer{}, Options{AnalyticsID: "G-TEST1"})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, `<option value="Guy" selected>`)
	assert.Contains(t, body, "G-TEST1")
}

func TestPage_SubmitEmptyTextWarns(t *testing.T) {
	svc := &MockSynthesizer{}
	svc.On("Synthesize", mock.Anything, service.SynthesisRequest{Text: "  ", Voice: "Ryan"}).Return(nil, service.ErrEmptyText)

	srv := NewServer(svc, Options{})
	rec := postForm(t, srv.Handler(), url.Values{"text": {"  "}, "voice": {"Ryan"}})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ">Please enter some text.</div>")
	assert.Contains(t, rec.Body.String(), `<option value="Ryan" selected>`)
}

func TestPage_SubmitRendersResult(t *testing.T) {
	svc := &MockSynthesizer{}
	svc.On("Synthesize", mock.Anything, service.SynthesisRequest{Text: "Hello world", Voice: "Guy"}).Return(testArtifact(), nil)

	srv := NewServer(svc, Options{})
	rec := postForm(t, srv.Handler(), url.Values{"text": {"Hello world"}, "voice": {"Guy"}})

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `src="/api/audio/`+testArtifactID+`"`)
	assert.Contains(t, body, `download="voice_output.mp3"`)
	assert.Contains(t, body, ">Hello world</textarea>")
}

func TestPage_SubmitFailureShowsGenericError(t *testing.T) {
	svc := &MockSynthesizer{}
	svc.On("Synthesize", mock.Anything, mock.Anything).
		Return(nil, &service.SynthesisError{Cause: errors.New("edge-tts exited with status 1")})

	srv := NewServer(svc, Options{})
	rec := postForm(t, srv.Handler(), url.Values{"text": {"hi"}})

	body := rec.Body.String()
	assert.Contains(t, body, "Something went wrong while generating speech.")
	assert.NotContains(t, body, "exited with status")
}

func TestServer_HealthAndMetrics(t *testing.T) {
	m := metrics.New()
	m.ObserveRequest("en-US-GuyNeural", metrics.OutcomeSuccess)
	srv := NewServer(&MockSynthesizer{}, Options{Metrics: m})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "voicemagic_synthesis_requests_total")
	n, err := testutil.GatherAndCount(m.Registry(), "voicemagic_synthesis_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestServer_UnknownRouteIs404(t *testing.T) {
	srv := NewServer(&MockSynthesizer{}, Options{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_SetAnalyticsIDAppliesToNextRender(t *testing.T) {
	srv := NewServer(&MockSynthesizer{}, Options{})

	get := func() string {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		return rec.Body.String()
	}

	assert.NotContains(t, get(), "googletagmanager")

	srv.SetAnalyticsID("G-RELOADED")
	assert.Contains(t, get(), "gtag/js?id=G-RELOADED")

	srv.SetAnalyticsID("")
	assert.NotContains(t, get(), "googletagmanager")
}

func TestServer_OpenAPIMatchesBackendParameterLimits(t *testing.T) {
	srv := NewServer(&MockSynthesizer{}, Options{})

	schema := srv.API().OpenAPI().Components.Schemas.Map()["SynthesizeRequestDTO"]
	require.NotNil(t, schema)
	assert.Equal(t, "^[+-][0-9]{1,3}%$", schema.Properties["rate"].Pattern)
	assert.Equal(t, "^[+-][0-9]{1,3}%$", schema.Properties["volume"].Pattern)
	assert.Equal(t, "^[+-][0-9]{1,4}Hz$", schema.Properties["pitch"].Pattern)
}
