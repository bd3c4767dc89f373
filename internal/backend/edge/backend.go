package edge

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/ekisa-team/voicemagic/internal/backend"
	"github.com/ekisa-team/voicemagic/internal/mapsafe"
)

const (
	// MIMEType is the content type of the audio edge-tts writes by default
	// (audio-24khz-48kbitrate-mono-mp3).
	MIMEType = "audio/mpeg"

	defaultTimeout = 60 * time.Second
)

var (
	percentPattern = regexp.MustCompile(`^[+-]\d{1,3}%$`)
	hertzPattern   = regexp.MustCompile(`^[+-]\d{1,4}Hz$`)
)

// Config configures the Edge TTS backend.
type Config struct {
	// BinPath is the edge-tts executable, bare name or path. Defaults to "edge-tts".
	BinPath string

	// Proxy is passed to edge-tts as --proxy when set.
	Proxy string

	// Timeout bounds a single edge-tts run. Defaults to one minute.
	Timeout time.Duration

	// TempDir receives intermediate files. Defaults to the system temp dir.
	TempDir string
}

// Backend implements backend.Backend on top of the edge-tts client.
type Backend struct {
	executor *backend.Executor
	proxy    string
	tempDir  string
}

// NewBackend creates a new Edge TTS backend.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.BinPath == "" {
		cfg.BinPath = "edge-tts"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	executor, err := backend.NewExecutor(cfg.BinPath, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	return newBackend(executor, cfg), nil
}

// NewBackendWithExecutor creates a backend around an existing executor.
func NewBackendWithExecutor(executor *backend.Executor, cfg Config) *Backend {
	return newBackend(executor, cfg)
}

func newBackend(executor *backend.Executor, cfg Config) *Backend {
	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}

	return &Backend{
		executor: executor,
		proxy:    cfg.Proxy,
		tempDir:  tempDir,
	}
}

// Provider returns the backend provider.
func (b *Backend) Provider() backend.BackendProvider {
	return backend.BackendProviderEdgeTTS
}

// Infer synthesizes speech from text.
// Input: text, fed to edge-tts on stdin.
// Output: MP3 audio bytes.
func (b *Backend) Infer(ctx context.Context, req *backend.Request) (*backend.Response, error) {
	if req.Voice == "" {
		return nil, fmt.Errorf("%w: voice is required", backend.ErrInvalidParameter)
	}

	// edge-tts writes media to a file, so a temp file is used and read back.
	outputFile := filepath.Join(b.tempDir, fmt.Sprintf("edge-tts-%s.mp3", uuid.NewString()))
	defer os.Remove(outputFile)

	args, err := b.buildArgs(req, outputFile)
	if err != nil {
		return nil, err
	}

	stdout, stderr, err := b.executor.Execute(ctx, args, req.Input)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("edge-tts interrupted: %w", ctxErr)
		}
		return nil, fmt.Errorf("edge-tts failed: %w\nstderr: %s", err, bytes.TrimSpace(stderr))
	}

	audioData, err := os.ReadFile(outputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}

	return &backend.Response{
		Output: bytes.NewReader(audioData),
		Metadata: &backend.ResponseMetadata{
			Provider:    b.Provider(),
			Voice:       req.Voice,
			MIMEType:    MIMEType,
			Timestamp:   time.Now(),
			OutputBytes: int64(len(audioData)),
			BackendSpecific: map[string]any{
				"stdout": string(stdout),
				"stderr": string(stderr),
				"args":   args,
			},
		},
	}, nil
}

// buildArgs builds edge-tts command-line arguments.
// Signed values use the --flag=value form so that argparse does not read
// "-10%" as an option.
func (b *Backend) buildArgs(req *backend.Request, outputFile string) ([]string, error) {
	args := []string{
		"--voice", req.Voice,
		"--file", "-",
		"--write-media", outputFile,
	}

	p := req.Parameters

	if v := mapsafe.String(p, "rate"); v != "" {
		if !percentPattern.MatchString(v) {
			return nil, fmt.Errorf("%w: rate %q must look like +10%% or -5%%", backend.ErrInvalidParameter, v)
		}
		args = append(args, "--rate="+v)
	}

	if v := mapsafe.String(p, "volume"); v != "" {
		if !percentPattern.MatchString(v) {
			return nil, fmt.Errorf("%w: volume %q must look like +10%% or -5%%", backend.ErrInvalidParameter, v)
		}
		args = append(args, "--volume="+v)
	}

	if v := mapsafe.String(p, "pitch"); v != "" {
		if !hertzPattern.MatchString(v) {
			return nil, fmt.Errorf("%w: pitch %q must look like +5Hz or -2Hz", backend.ErrInvalidParameter, v)
		}
		args = append(args, "--pitch="+v)
	}

	if b.proxy != "" {
		args = append(args, "--proxy="+b.proxy)
	}

	return args, nil
}

// Close cleans up resources. edge-tts runs per request, so there is nothing to release.
func (b *Backend) Close() error {
	return nil
}
