package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions routes log output to a rotating file instead of stdout.
type FileOptions struct {
	Path       string `yaml:"path" toml:"path"`
	MaxSizeMB  int    `yaml:"maxSizeMB" toml:"max_size_mb"`
	MaxBackups int    `yaml:"maxBackups" toml:"max_backups"`
	MaxAgeDays int    `yaml:"maxAgeDays" toml:"max_age_days"`
	Compress   bool   `yaml:"compress" toml:"compress"`
}

// Options tunes Setup. The zero value logs INFO and above to stdout.
type Options struct {
	Level string
	File  *FileOptions
}

// Setup configures the standard library logger to emit structured JSON and returns
// the underlying slog.Logger for richer logging within the service. All log lines
// include the service name and environment when provided.
func Setup(service, env string) *slog.Logger {
	return SetupWithOptions(service, env, Options{})
}

// SetupWithOptions is Setup with an explicit level and output.
func SetupWithOptions(service, env string, opts Options) *slog.Logger {
	return setup(Output(opts.File), service, env, ParseLevel(opts.Level))
}

// Output returns the writer log lines go to: a lumberjack rotator when file
// options carry a path, stdout otherwise.
func Output(file *FileOptions) io.Writer {
	if file == nil || strings.TrimSpace(file.Path) == "" {
		return os.Stdout
	}
	maxSize := file.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 100
	}
	return &lumberjack.Logger{
		Filename:   strings.TrimSpace(file.Path),
		MaxSize:    maxSize,
		MaxBackups: file.MaxBackups,
		MaxAge:     file.MaxAgeDays,
		Compress:   file.Compress,
	}
}

// ParseLevel maps textual levels onto slog levels, defaulting to INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

func setup(out io.Writer, service, env string, level slog.Level) *slog.Logger {
	handler := NewHandler(out, level)

	attrs := []slog.Attr{
		slog.String("service", strings.TrimSpace(service)),
	}
	if env = strings.TrimSpace(env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}

	withArgs := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		withArgs = append(withArgs, attr)
	}

	base := slog.New(handler).With(withArgs...)
	slog.SetDefault(base)

	// Bridge the standard library logger so existing packages continue to work.
	stdBridge := slog.NewLogLogger(handler.WithAttrs(attrs), slog.LevelInfo)
	stdBridge.SetFlags(0)
	log.SetOutput(stdBridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return base
}

// NewHandler returns the JSON handler shape shared by every chronicles
// binary: timestamp, severity and message keys.
func NewHandler(out io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if attr.Key == slog.TimeKey {
				return slog.Attr{Key: "timestamp", Value: attr.Value}
			}
			if attr.Key == slog.LevelKey {
				level := strings.ToUpper(attr.Value.String())
				return slog.String("severity", level)
			}
			if attr.Key == slog.MessageKey {
				return slog.Attr{Key: "message", Value: attr.Value}
			}
			return attr
		},
	})
}
