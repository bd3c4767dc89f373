// Package logger builds the process-wide slog.Logger.
//
// Development output goes through tint for readable, colored lines on stderr.
// Production output is JSON on stdout. Either can additionally be mirrored as
// JSON into a size-rotated log file.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ekisa-team/voicemagic/internal/env"
)

const (
	defaultLogFile    = "logs/voicemagic.log"
	defaultMaxSizeMB  = 20
	defaultMaxBackups = 5
	defaultMaxAgeDays = 14
)

type options struct {
	level     slog.Level
	logToFile bool
	logFile   string
	console   io.Writer
}

// Option configures the logger.
type Option func(*options)

// WithLogToFile enables mirroring log records into a rotated file.
func WithLogToFile(enabled bool) Option {
	return func(o *options) {
		o.logToFile = enabled
	}
}

// WithLogFile sets the path of the rotated log file.
func WithLogFile(path string) Option {
	return func(o *options) {
		if path != "" {
			o.logFile = path
		}
	}
}

// WithLevel sets the minimum level.
func WithLevel(level slog.Level) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithConsole replaces the console writer (stderr in development, stdout in production).
func WithConsole(w io.Writer) Option {
	return func(o *options) {
		o.console = w
	}
}

// New creates a logger for the given environment.
func New(environment env.Environment, opts ...Option) *slog.Logger {
	o := &options{
		level:   slog.LevelInfo,
		logFile: defaultLogFile,
	}
	for _, opt := range opts {
		opt(o)
	}

	var console slog.Handler
	if environment.IsProduction() {
		w := o.console
		if w == nil {
			w = os.Stdout
		}
		console = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: o.level})
	} else {
		w := o.console
		if w == nil {
			w = os.Stderr
		}
		console = tint.NewHandler(w, &tint.Options{
			Level:      o.level,
			TimeFormat: time.Kitchen,
			NoColor:    environment == env.Test,
		})
	}

	if !o.logToFile {
		return slog.New(console)
	}

	if err := os.MkdirAll(filepath.Dir(o.logFile), 0o755); err != nil {
		l := slog.New(console)
		l.Warn("Failed to create log directory, file logging disabled", "path", o.logFile, "error", err)
		return l
	}

	file := slog.NewJSONHandler(&lumberjack.Logger{
		Filename:   o.logFile,
		MaxSize:    defaultMaxSizeMB,
		MaxBackups: defaultMaxBackups,
		MaxAge:     defaultMaxAgeDays,
		Compress:   true,
	}, &slog.HandlerOptions{Level: o.level})

	return slog.New(newFanout(console, file))
}

// ParseLevel converts a config string into a slog.Level. Unknown values map to Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
