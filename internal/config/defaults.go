package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/ekisa-team/voicemagic/internal/voice"
)

// Defaults.
const (
	CurrentVersion = "1"

	defaultHTTPPort          = 8501
	defaultGRPCPort          = 8502
	defaultShutdownTimeout   = 10 * time.Second
	defaultRetention         = 24 * time.Hour
	defaultPruneInterval     = 10 * time.Minute
	defaultBackend           = "edge-tts"
	defaultBinPath           = "edge-tts"
	defaultSynthesisTimeout  = 60 * time.Second
	defaultMaxConcurrent     = 4
	defaultRequestsPerMinute = 60
	defaultMaxTextLength     = 5000
	defaultLogLevel          = "info"
	defaultLogFile           = "logs/voicemagic.log"
)

// DefaultHTTPPort returns the default HTTP port.
func DefaultHTTPPort() int {
	return defaultHTTPPort
}

// DefaultGRPCPort returns the default gRPC port.
func DefaultGRPCPort() int {
	return defaultGRPCPort
}

// Default returns a configuration with every field populated.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Server: ServerConfig{
			HTTPPort:        defaultHTTPPort,
			GRPCPort:        defaultGRPCPort,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Storage: StorageConfig{
			OutputDir:     DefaultOutputPath(),
			Retention:     defaultRetention,
			PruneInterval: defaultPruneInterval,
		},
		Synthesis: SynthesisConfig{
			Backend:           defaultBackend,
			BinPath:           defaultBinPath,
			DefaultVoice:      voice.DefaultName,
			Timeout:           defaultSynthesisTimeout,
			MaxConcurrent:     defaultMaxConcurrent,
			RequestsPerMinute: defaultRequestsPerMinute,
			MaxTextLength:     defaultMaxTextLength,
		},
		Logging: LoggingConfig{
			Level: defaultLogLevel,
			File:  defaultLogFile,
		},
	}
}

// DefaultConfigPath returns the default path for the voicemagic config directory.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "voicemagic", "config")
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "voicemagic")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "voicemagic")
	default: // Linux, BSD, etc.
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "voicemagic")
		}
		return filepath.Join(home, ".config", "voicemagic")
	}
}

// DefaultOutputPath returns the default directory for synthesized audio.
func DefaultOutputPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "voicemagic", "audio")
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Local", "voicemagic", "audio")
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "voicemagic", "audio")
	default: // Linux, BSD, etc.
		if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
			return filepath.Join(xdg, "voicemagic", "audio")
		}
		return filepath.Join(home, ".cache", "voicemagic", "audio")
	}
}
