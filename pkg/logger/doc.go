// Package logger builds the structured loggers used across gatehouse.
//
// Loggers are plain *slog.Logger values. New assembles a handler chain from
// options: a JSON or text handler writing to stdout (or any io.Writer), an
// optional Sentry fan-out, and a context handler that appends request-scoped
// attributes pulled from the context on every call.
//
//	log := logger.New(
//		logger.WithLevel(slog.LevelDebug),
//		logger.WithExtractors(logger.RequestIDExtractor()),
//		logger.WithSentry(logger.SentryConfig{DSN: os.Getenv("SENTRY_DSN")}),
//	)
//
//	ctx := logger.WithRequestID(r.Context(), "abc-123")
//	log.InfoContext(ctx, "route matched", slog.String("target", "Admin@index"))
//	// {"level":"INFO","msg":"route matched","target":"Admin@index","request_id":"abc-123"}
//
// Sentry is optional. With an empty DSN, or when the SDK fails to initialize,
// the logger writes to the local handler only.
//
// NewNope returns a logger that discards everything; packages use it as their
// default so a nil logger never needs checking.
package logger
