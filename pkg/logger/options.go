package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the local output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

type options struct {
	output     io.Writer
	sentry     *SentryConfig
	format     Format
	extractors []ContextExtractor
	level      slog.Level
}

// Option configures New.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		output: os.Stdout,
		format: FormatJSON,
		level:  slog.LevelInfo,
	}
}

// WithLevel sets the minimum level written locally. Default: info.
func WithLevel(level slog.Level) Option {
	return func(o *options) {
		o.level = level
	}
}

// WithFormat selects JSON or text output. Unknown formats fall back to JSON.
func WithFormat(f Format) Option {
	return func(o *options) {
		if f == FormatText {
			o.format = FormatText
			return
		}
		o.format = FormatJSON
	}
}

// WithOutput redirects local output. Default: os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.output = w
		}
	}
}

// WithExtractors appends context extractors.
func WithExtractors(extractors ...ContextExtractor) Option {
	return func(o *options) {
		o.extractors = append(o.extractors, extractors...)
	}
}

// WithSentry forwards warnings and errors to Sentry.
// Ignored when cfg.DSN is empty.
func WithSentry(cfg SentryConfig) Option {
	return func(o *options) {
		if cfg.DSN != "" {
			o.sentry = &cfg
		}
	}
}

// ParseLevel maps "debug", "info", "warn" and "error" to a slog level.
// Anything else yields info.
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
