package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekisa-team/voicemagic/internal/artifact"
	"github.com/ekisa-team/voicemagic/internal/backend"
	"github.com/ekisa-team/voicemagic/internal/config"
	"github.com/ekisa-team/voicemagic/internal/metrics"
	"github.com/ekisa-team/voicemagic/internal/voice"
)

// fakeBackend records requests and answers with infer, or with "audio:<text>".
type fakeBackend struct {
	mu     sync.Mutex
	calls  []recordedCall
	infer  func(ctx context.Context, text string) ([]byte, error)
	closed bool
}

type recordedCall struct {
	Voice  string
	Text   string
	Params map[string]any
}

func (f *fakeBackend) Provider() backend.BackendProvider {
	return backend.BackendProviderEdgeTTS
}

func (f *fakeBackend) Infer(ctx context.Context, req *backend.Request) (*backend.Response, error) {
	text, err := io.ReadAll(req.Input)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.calls = append(f.calls, recordedCall{Voice: req.Voice, Text: string(text), Params: req.Parameters})
	infer := f.infer
	f.mu.Unlock()

	audio := []byte("audio:" + string(text))
	if infer != nil {
		audio, err = infer(ctx, string(text))
		if err != nil {
			return nil, err
		}
	}

	return &backend.Response{
		Output:   bytes.NewReader(audio),
		Metadata: &backend.ResponseMetadata{Provider: f.Provider(), Voice: req.Voice},
	}, nil
}

func (f *fakeBackend) Close() error {
	f.closed = true
	return nil
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeBackend) lastCall() recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func testConfig() config.SynthesisConfig {
	return config.Default().Synthesis
}

func newTestService(t *testing.T, cfg config.SynthesisConfig, fb *fakeBackend, m *metrics.Metrics) *TTS {
	t.Helper()

	backends := backend.NewRegistry()
	require.NoError(t, backends.Register(fb))

	store, err := artifact.NewStore(filepath.Join(t.TempDir(), "audio"))
	require.NoError(t, err)

	return NewTTS(backends, voice.Default(), store, cfg, m)
}

func TestSynthesize_HelloWorldGuy(t *testing.T) {
	fb := &fakeBackend{}
	svc := newTestService(t, testConfig(), fb, nil)

	a, err := svc.Synthesize(context.Background(), SynthesisRequest{Text: "Hello world", Voice: "Guy"})
	require.NoError(t, err)

	require.Equal(t, 1, fb.callCount())
	call := fb.lastCall()
	assert.Equal(t, "en-US-GuyNeural", call.Voice)
	assert.Equal(t, "Hello world", call.Text)

	assert.Equal(t, "en-US-GuyNeural", a.VoiceID)
	assert.Positive(t, a.Size)

	_, data, err := svc.Open(a.ID)
	require.NoError(t, err)
	assert.Equal(t, "audio:Hello world", string(data))
}

func TestSynthesize_EmptyTextNeverCallsBackend(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t "} {
		fb := &fakeBackend{}
		svc := newTestService(t, testConfig(), fb, nil)

		_, err := svc.Synthesize(context.Background(), SynthesisRequest{Text: text, Voice: "Guy"})
		assert.ErrorIs(t, err, ErrEmptyText)
		assert.True(t, IsValidation(err))
		assert.Zero(t, fb.callCount(), "text=%q", text)
	}
}

func TestSynthesize_TrimsAndEscapes(t *testing.T) {
	fb := &fakeBackend{}
	svc := newTestService(t, testConfig(), fb, nil)

	_, err := svc.Synthesize(context.Background(), SynthesisRequest{Text: "  <b>Tom & Jerry's</b>\n", Voice: "Aria"})
	require.NoError(t, err)

	assert.Equal(t, "&lt;b&gt;Tom &amp; Jerry&#39;s&lt;/b&gt;", fb.lastCall().Text)
	assert.Equal(t, "en-US-AriaNeural", fb.lastCall().Voice)
}

func TestSynthesize_VoiceResolution(t *testing.T) {
	fb := &fakeBackend{}
	svc := newTestService(t, testConfig(), fb, nil)

	_, err := svc.Synthesize(context.Background(), SynthesisRequest{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "en-US-GuyNeural", fb.lastCall().Voice, "empty voice selects the default")

	_, err = svc.Synthesize(context.Background(), SynthesisRequest{Text: "hi", Voice: "en-GB-LibbyNeural"})
	require.NoError(t, err)
	assert.Equal(t, "en-GB-LibbyNeural", fb.lastCall().Voice)

	_, err = svc.Synthesize(context.Background(), SynthesisRequest{Text: "hi", Voice: "james"})
	require.NoError(t, err)
	assert.Equal(t, "en-US-AndrewNeural", fb.lastCall().Voice)
}

func TestSynthesize_UnknownVoice(t *testing.T) {
	fb := &fakeBackend{}
	svc := newTestService(t, testConfig(), fb, nil)

	_, err := svc.Synthesize(context.Background(), SynthesisRequest{Text: "hi", Voice: "Bob"})
	assert.ErrorIs(t, err, ErrUnknownVoice)
	assert.Zero(t, fb.callCount())
}

func TestSynthesize_TextTooLong(t *testing.T) {
	cfg := testConfig()
	cfg.MaxTextLength = 5
	fb := &fakeBackend{}
	svc := newTestService(t, cfg, fb, nil)

	_, err := svc.Synthesize(context.Background(), SynthesisRequest{Text: "ñññññ"})
	require.NoError(t, err, "length is counted in characters, not bytes")

	_, err = svc.Synthesize(context.Background(), SynthesisRequest{Text: "toolong"})
	assert.ErrorIs(t, err, ErrTextTooLong)
	assert.Equal(t, 1, fb.callCount())
}

func TestSynthesize_PassesParameters(t *testing.T) {
	fb := &fakeBackend{}
	svc := newTestService(t, testConfig(), fb, nil)

	_, err := svc.Synthesize(context.Background(), SynthesisRequest{Text: "hi", Rate: "+10%", Volume: "-5%", Pitch: "+2Hz"})
	require.NoError(t, err)

	params := fb.lastCall().Params
	assert.Equal(t, "+10%", params["rate"])
	assert.Equal(t, "-5%", params["volume"])
	assert.Equal(t, "+2Hz", params["pitch"])
}

func TestSynthesize_BackendFailure(t *testing.T) {
	cause := errors.New("No audio was received")
	fb := &fakeBackend{infer: func(context.Context, string) ([]byte, error) { return nil, cause }}
	svc := newTestService(t, testConfig(), fb, nil)

	_, err := svc.Synthesize(context.Background(), SynthesisRequest{Text: "hi", Voice: "Eric"})
	require.Error(t, err)

	var synthErr *SynthesisError
	require.ErrorAs(t, err, &synthErr)
	assert.Equal(t, "en-US-EricNeural", synthErr.Voice)
	assert.Equal(t, backend.BackendProviderEdgeTTS, synthErr.Provider)
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsValidation(err))
}

func TestSynthesize_InvalidParameterIsValidation(t *testing.T) {
	fb := &fakeBackend{infer: func(context.Context, string) ([]byte, error) {
		return nil, backend.ErrInvalidParameter
	}}
	svc := newTestService(t, testConfig(), fb, nil)

	_, err := svc.Synthesize(context.Background(), SynthesisRequest{Text: "hi", Rate: "fast"})
	assert.True(t, IsValidation(err))

	var synthErr *SynthesisError
	assert.False(t, errors.As(err, &synthErr))
}

func TestSynthesize_EmptyAudio(t *testing.T) {
	fb := &fakeBackend{infer: func(context.Context, string) ([]byte, error) { return nil, nil }}
	svc := newTestService(t, testConfig(), fb, nil)

	_, err := svc.Synthesize(context.Background(), SynthesisRequest{Text: "hi"})
	assert.ErrorIs(t, err, ErrEmptyAudio)
}

func TestSynthesize_Timeout(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 30 * time.Millisecond
	fb := &fakeBackend{infer: func(ctx context.Context, _ string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	svc := newTestService(t, cfg, fb, nil)

	start := time.Now()
	_, err := svc.Synthesize(context.Background(), SynthesisRequest{Text: "hi"})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSynthesize_SequentialRequestsKeepTheirOwnContent(t *testing.T) {
	fb := &fakeBackend{}
	svc := newTestService(t, testConfig(), fb, nil)

	first, err := svc.Synthesize(context.Background(), SynthesisRequest{Text: "first", Voice: "Guy"})
	require.NoError(t, err)
	second, err := svc.Synthesize(context.Background(), SynthesisRequest{Text: "second", Voice: "Jenny"})
	require.NoError(t, err)

	require.NotEqual(t, first.ID, second.ID)

	_, data, err := svc.Open(second.ID)
	require.NoError(t, err)
	assert.Equal(t, "audio:second", string(data))

	_, data, err = svc.Open(first.ID)
	require.NoError(t, err)
	assert.Equal(t, "audio:first", string(data))
}

func TestSynthesize_ConcurrencyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrent = 1
	cfg.RequestsPerMinute = 6000

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	fb := &fakeBackend{infer: func(_ context.Context, text string) ([]byte, error) {
		if text == "slow" {
			started <- struct{}{}
			<-release
		}
		return []byte(text), nil
	}}
	svc := newTestService(t, cfg, fb, nil)

	errc := make(chan error, 1)
	go func() {
		_, err := svc.Synthesize(context.Background(), SynthesisRequest{Text: "slow"})
		errc <- err
	}()
	<-started

	// Give the limiter time to refill a token for the second request.
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := svc.Synthesize(ctx, SynthesisRequest{Text: "fast"})
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-errc)
}

func TestSynthesize_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrent = 1
	cfg.RequestsPerMinute = 1
	cfg.Timeout = 5 * time.Second
	fb := &fakeBackend{}
	svc := newTestService(t, cfg, fb, nil)

	_, err := svc.Synthesize(context.Background(), SynthesisRequest{Text: "one"})
	require.NoError(t, err)

	// No deadline on the context: the wait is bounded by the synthesis timeout.
	start := time.Now()
	_, err = svc.Synthesize(context.Background(), SynthesisRequest{Text: "two"})
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, fb.callCount())
}

func TestSynthesize_RateLimitWaitsForShortDelays(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrent = 1
	cfg.RequestsPerMinute = 600
	fb := &fakeBackend{}
	svc := newTestService(t, cfg, fb, nil)

	for _, text := range []string{"one", "two", "three"} {
		_, err := svc.Synthesize(context.Background(), SynthesisRequest{Text: text})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, fb.callCount())
}

func TestSynthesize_RateLimitCanceledWhileWaiting(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrent = 1
	cfg.RequestsPerMinute = 1
	fb := &fakeBackend{}
	svc := newTestService(t, cfg, fb, nil)

	_, err := svc.Synthesize(context.Background(), SynthesisRequest{Text: "one"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = svc.Synthesize(ctx, SynthesisRequest{Text: "two"})
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 1, fb.callCount())
}

func TestConfigure_ReloadKeepsConcurrencyBound(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrent = 1
	cfg.RequestsPerMinute = 6000

	var running, peak atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	fb := &fakeBackend{infer: func(_ context.Context, text string) ([]byte, error) {
		n := running.Add(1)
		defer running.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		started <- struct{}{}
		<-release
		return []byte(text), nil
	}}
	svc := newTestService(t, cfg, fb, nil)

	errc := make(chan error, 2)
	go func() {
		_, err := svc.Synthesize(context.Background(), SynthesisRequest{Text: "first"})
		errc <- err
	}()
	<-started

	svc.Configure(cfg)
	time.Sleep(20 * time.Millisecond)

	go func() {
		_, err := svc.Synthesize(context.Background(), SynthesisRequest{Text: "second"})
		errc <- err
	}()

	select {
	case <-started:
		t.Fatal("second call started while the only slot was held")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-errc)
	require.NoError(t, <-errc)
	assert.Equal(t, int32(1), peak.Load())
}

func TestConfigure_RaisingConcurrencyAdmitsWaiters(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrent = 1
	cfg.RequestsPerMinute = 6000

	release := make(chan struct{})
	started := make(chan struct{}, 2)
	fb := &fakeBackend{infer: func(_ context.Context, text string) ([]byte, error) {
		started <- struct{}{}
		<-release
		return []byte(text), nil
	}}
	svc := newTestService(t, cfg, fb, nil)

	errc := make(chan error, 2)
	for _, text := range []string{"first", "second"} {
		go func() {
			_, err := svc.Synthesize(context.Background(), SynthesisRequest{Text: text})
			errc <- err
		}()
		time.Sleep(20 * time.Millisecond)
	}
	<-started

	cfg.MaxConcurrent = 2
	svc.Configure(cfg)

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("waiting call was not admitted after the limit was raised")
	}

	close(release)
	require.NoError(t, <-errc)
	require.NoError(t, <-errc)
}

func TestConfigure_AppliesNewSettings(t *testing.T) {
	fb := &fakeBackend{}
	svc := newTestService(t, testConfig(), fb, nil)

	cfg := testConfig()
	cfg.DefaultVoice = "Emma"
	cfg.MaxTextLength = 3
	svc.Configure(cfg)

	assert.Equal(t, "Emma", svc.DefaultVoice().Name)

	_, err := svc.Synthesize(context.Background(), SynthesisRequest{Text: "four"})
	assert.ErrorIs(t, err, ErrTextTooLong)

	_, err = svc.Synthesize(context.Background(), SynthesisRequest{Text: "one"})
	require.NoError(t, err)
	assert.Equal(t, "en-US-EmmaMultilingualNeural", fb.lastCall().Voice)
}

func TestSynthesize_MissingBackend(t *testing.T) {
	cfg := testConfig()
	cfg.Backend = "polly"
	svc := newTestService(t, cfg, &fakeBackend{}, nil)

	_, err := svc.Synthesize(context.Background(), SynthesisRequest{Text: "hi"})
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestSynthesize_RecordsMetrics(t *testing.T) {
	m := metrics.New()
	svc := newTestService(t, testConfig(), &fakeBackend{}, m)

	_, err := svc.Synthesize(context.Background(), SynthesisRequest{Text: "hi"})
	require.NoError(t, err)
	_, err = svc.Synthesize(context.Background(), SynthesisRequest{Text: " "})
	require.Error(t, err)

	expected := `
# HELP voicemagic_synthesis_requests_total Synthesis requests by voice and outcome.
# TYPE voicemagic_synthesis_requests_total counter
voicemagic_synthesis_requests_total{outcome="invalid",voice=""} 1
voicemagic_synthesis_requests_total{outcome="success",voice="en-US-GuyNeural"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "voicemagic_synthesis_requests_total"))
}

func TestVoices(t *testing.T) {
	svc := newTestService(t, testConfig(), &fakeBackend{}, nil)
	assert.Len(t, svc.Voices(), 10)
	assert.Equal(t, "Guy", svc.DefaultVoice().Name)
}
