package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ekisa-team/voicemagic/internal/artifact"
	"github.com/ekisa-team/voicemagic/internal/backend"
	"github.com/ekisa-team/voicemagic/internal/backend/edge"
	"github.com/ekisa-team/voicemagic/internal/config"
	"github.com/ekisa-team/voicemagic/internal/env"
	"github.com/ekisa-team/voicemagic/internal/logger"
	"github.com/ekisa-team/voicemagic/internal/metrics"
	"github.com/ekisa-team/voicemagic/internal/service"
	"github.com/ekisa-team/voicemagic/internal/voice"
)

var version = "dev"

// globalOptions are the flags shared by every subcommand.
type globalOptions struct {
	configPath string
	schemaPath string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "voicemagic",
		Short:         "Turn text into natural-sounding speech with Edge neural voices",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", filepath.Join(config.DefaultConfigPath(), "config.yaml"), "Path to config file")
	cmd.PersistentFlags().StringVar(&opts.schemaPath, "schema", "", "Path to schema file (embedded schema when empty)")

	cmd.AddCommand(
		newServeCommand(opts),
		newVoicesCommand(),
		newSayCommand(opts),
	)

	return cmd
}

// loadConfig reads the config file when it exists and falls back to defaults
// plus environment overrides otherwise.
func loadConfig(opts *globalOptions) (*config.Config, bool, error) {
	if _, err := os.Stat(opts.configPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, false, fmt.Errorf("failed to stat config %s: %w", opts.configPath, err)
		}
		cfg, err := config.FromEnv()
		return cfg, false, err
	}

	cfg, err := config.LoadAndValidate(opts.configPath, opts.schemaPath)
	return cfg, true, err
}

func setupLogger(environment env.Environment, cfg config.LoggingConfig) {
	slog.SetDefault(
		logger.New(environment,
			logger.WithLevel(logger.ParseLevel(cfg.Level)),
			logger.WithLogToFile(cfg.ToFile),
			logger.WithLogFile(cfg.File),
		),
	)
}

// app is the wired synthesis stack shared by serve and say.
type app struct {
	backends *backend.Registry
	store    *artifact.Store
	metrics  *metrics.Metrics
	tts      *service.TTS
}

func newApp(cfg *config.Config) (*app, error) {
	eb, err := edge.NewBackend(edge.Config{
		BinPath: cfg.Synthesis.BinPath,
		Proxy:   cfg.Synthesis.Proxy,
		Timeout: cfg.Synthesis.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create edge-tts backend: %w", err)
	}

	backends := backend.NewRegistry()
	if err := backends.Register(eb); err != nil {
		return nil, err
	}

	store, err := artifact.NewStore(cfg.Storage.OutputDir)
	if err != nil {
		return nil, err
	}

	m := metrics.New()

	return &app{
		backends: backends,
		store:    store,
		metrics:  m,
		tts:      service.NewTTS(backends, voice.Default(), store, cfg.Synthesis, m),
	}, nil
}

func (a *app) Close() error {
	return a.backends.Close()
}
