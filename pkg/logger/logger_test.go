package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatehouse/pkg/logger"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	return m
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json with extractors", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.WithOutput(&buf),
			logger.WithExtractors(logger.RequestIDExtractor(), nil),
		)

		ctx := logger.WithRequestID(context.Background(), "req-1")
		log.InfoContext(ctx, "route matched", slog.String("target", "Admin@index"))

		m := decode(t, &buf)
		require.Equal(t, "route matched", m["msg"])
		require.Equal(t, "Admin@index", m["target"])
		require.Equal(t, "req-1", m["request_id"])
	})

	t.Run("extractor skips empty values", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(logger.WithOutput(&buf), logger.WithExtractors(logger.RequestIDExtractor()))
		log.Info("boot")

		require.NotContains(t, decode(t, &buf), "request_id")
	})

	t.Run("level filter", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(logger.WithOutput(&buf), logger.WithLevel(slog.LevelWarn))
		log.Info("hidden")
		require.Zero(t, buf.Len())

		log.Warn("shown")
		require.Equal(t, "shown", decode(t, &buf)["msg"])
	})

	t.Run("text format", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(logger.WithOutput(&buf), logger.WithFormat(logger.FormatText))
		log.Info("hello", slog.String("k", "v"))
		require.Contains(t, buf.String(), "msg=hello")
		require.Contains(t, buf.String(), "k=v")
	})

	t.Run("empty sentry dsn keeps local output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(logger.WithOutput(&buf), logger.WithSentry(logger.SentryConfig{}))
		log.Error("boom")
		require.Equal(t, "boom", decode(t, &buf)["msg"])
	})

	t.Run("extractors survive With", func(t *testing.T) {
		t.Parallel()

		type userKey struct{}
		var buf bytes.Buffer
		log := logger.New(
			logger.WithOutput(&buf),
			logger.WithExtractors(logger.ValueExtractor("user", userKey{})),
		).With("component", "gate")

		ctx := context.WithValue(context.Background(), userKey{}, "alice")
		log.InfoContext(ctx, "authenticated")

		m := decode(t, &buf)
		require.Equal(t, "gate", m["component"])
		require.Equal(t, "alice", m["user"])
	})
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		require.Equal(t, want, logger.ParseLevel(in), in)
	}
}

func TestNewNope(t *testing.T) {
	t.Parallel()

	log := logger.NewNope()
	require.False(t, log.Enabled(context.Background(), slog.LevelError))
	require.NotPanics(t, func() { log.Error("discarded") })
}
