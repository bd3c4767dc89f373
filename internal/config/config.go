package config

import (
	"time"
)

// Config holds the main configuration for the application.
type Config struct {
	Version   string          `json:"version"             yaml:"version"`
	Server    ServerConfig    `json:"server,omitempty"    yaml:"server,omitempty"`
	Storage   StorageConfig   `json:"storage,omitempty"   yaml:"storage,omitempty"`
	Synthesis SynthesisConfig `json:"synthesis,omitempty" yaml:"synthesis,omitempty"`
	Logging   LoggingConfig   `json:"logging,omitempty"   yaml:"logging,omitempty"`
	Web       WebConfig       `json:"web,omitempty"       yaml:"web,omitempty"`
}

// ServerConfig holds listener settings.
type ServerConfig struct {
	HTTPPort        int           `json:"http_port,omitempty"        yaml:"http_port,omitempty"        env:"VOICEMAGIC_SERVER_HTTP_PORT"`
	GRPCPort        int           `json:"grpc_port,omitempty"        yaml:"grpc_port,omitempty"        env:"VOICEMAGIC_SERVER_GRPC_PORT"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout,omitempty" yaml:"shutdown_timeout,omitempty" env:"VOICEMAGIC_SERVER_SHUTDOWN_TIMEOUT"`
}

// StorageConfig holds settings for produced audio artifacts.
type StorageConfig struct {
	OutputDir     string        `json:"output_dir,omitempty"     yaml:"output_dir,omitempty"     env:"VOICEMAGIC_OUTPUT_DIR"`
	Retention     time.Duration `json:"retention,omitempty"      yaml:"retention,omitempty"      env:"VOICEMAGIC_STORAGE_RETENTION"`
	PruneInterval time.Duration `json:"prune_interval,omitempty" yaml:"prune_interval,omitempty" env:"VOICEMAGIC_STORAGE_PRUNE_INTERVAL"`
}

// SynthesisConfig holds settings for the synthesis pipeline. This section is
// hot-reloadable.
type SynthesisConfig struct {
	Backend           string        `json:"backend,omitempty"             yaml:"backend,omitempty"`
	BinPath           string        `json:"bin_path,omitempty"            yaml:"bin_path,omitempty"            env:"VOICEMAGIC_EDGE_TTS_PATH"`
	Proxy             string        `json:"proxy,omitempty"               yaml:"proxy,omitempty"               env:"VOICEMAGIC_EDGE_TTS_PROXY"`
	DefaultVoice      string        `json:"default_voice,omitempty"       yaml:"default_voice,omitempty"       env:"VOICEMAGIC_DEFAULT_VOICE"`
	Timeout           time.Duration `json:"timeout,omitempty"             yaml:"timeout,omitempty"             env:"VOICEMAGIC_SYNTHESIS_TIMEOUT"`
	MaxConcurrent     int           `json:"max_concurrent,omitempty"      yaml:"max_concurrent,omitempty"      env:"VOICEMAGIC_SYNTHESIS_MAX_CONCURRENT"`
	RequestsPerMinute int           `json:"requests_per_minute,omitempty" yaml:"requests_per_minute,omitempty" env:"VOICEMAGIC_SYNTHESIS_REQUESTS_PER_MINUTE"`
	MaxTextLength     int           `json:"max_text_length,omitempty"     yaml:"max_text_length,omitempty"     env:"VOICEMAGIC_SYNTHESIS_MAX_TEXT_LENGTH"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `json:"level,omitempty"   yaml:"level,omitempty"   env:"VOICEMAGIC_LOG_LEVEL"`
	File   string `json:"file,omitempty"    yaml:"file,omitempty"    env:"VOICEMAGIC_LOG_FILE"`
	ToFile bool   `json:"to_file,omitempty" yaml:"to_file,omitempty" env:"VOICEMAGIC_LOG_TO_FILE"`
}

// WebConfig holds settings for the HTML page.
type WebConfig struct {
	AnalyticsID string `json:"analytics_id,omitempty" yaml:"analytics_id,omitempty" env:"VOICEMAGIC_ANALYTICS_ID"`
}
