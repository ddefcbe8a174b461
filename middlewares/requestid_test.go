package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatehouse/internal"
	"github.com/dmitrymomot/gatehouse/middlewares"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	serve := func(t *testing.T, req *http.Request, opts ...middlewares.RequestIDOption) (*httptest.ResponseRecorder, string) {
		t.Helper()
		var seen string
		app := newApp(t, func(c internal.Context, _ ...any) error {
			seen = middlewares.GetRequestID(c)
			return c.NoContent(http.StatusNoContent)
		}, internal.WithHTTPMiddleware(middlewares.RequestID(opts...)))

		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, req)
		return rec, seen
	}

	t.Run("generates a uuid", func(t *testing.T) {
		t.Parallel()

		rec, seen := serve(t, httptest.NewRequest(http.MethodGet, "/", nil))
		id := rec.Header().Get("X-Request-ID")
		require.Equal(t, id, seen)
		_, err := uuid.Parse(id)
		require.NoError(t, err)
	})

	t.Run("keeps an upstream id", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Correlation-ID", "upstream-123")
		rec, seen := serve(t, req)
		require.Equal(t, "upstream-123", seen)
		require.Equal(t, "upstream-123", rec.Header().Get("X-Request-ID"))
	})

	t.Run("ignores oversized upstream ids", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", strings.Repeat("a", 500))
		_, seen := serve(t, req, middlewares.WithRequestIDGenerator(func() string { return "generated" }))
		require.Equal(t, "generated", seen)
	})

	t.Run("custom headers", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "ignored")
		req.Header.Set("X-Trace", "trace-1")
		rec, seen := serve(t, req,
			middlewares.WithRequestIDHeaders("X-Trace"),
			middlewares.WithRequestIDResponseHeader("X-Trace"),
		)
		require.Equal(t, "trace-1", seen)
		require.Equal(t, "trace-1", rec.Header().Get("X-Trace"))
	})
}

func TestRequestID_ErrorResponse(t *testing.T) {
	t.Parallel()

	app := newApp(t, func(c internal.Context, _ ...any) error {
		return internal.ErrBadRequest("bad input")
	}, internal.WithHTTPMiddleware(middlewares.RequestID(middlewares.WithRequestIDGenerator(func() string { return "req-1" }))))

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"message":"bad input","request_id":"req-1","status":400}`, rec.Body.String())
}
