package logger

import (
	"log/slog"
)

// New creates a logger from opts.
func New(opts ...Option) *slog.Logger {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	hopts := &slog.HandlerOptions{Level: o.level}
	var local slog.Handler
	if o.format == FormatText {
		local = slog.NewTextHandler(o.output, hopts)
	} else {
		local = slog.NewJSONHandler(o.output, hopts)
	}

	handler := local
	if o.sentry != nil {
		if sh, err := newSentryHandler(*o.sentry); err != nil {
			slog.New(local).Error("sentry disabled", slog.Any("error", err))
		} else {
			handler = fanout(local, sh)
		}
	}

	return slog.New(NewContextHandler(handler, o.extractors...))
}

// NewNope creates a logger that discards all output.
func NewNope() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
