package middlewares_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatehouse/internal"
	"github.com/dmitrymomot/gatehouse/middlewares"
	"github.com/dmitrymomot/gatehouse/pkg/route"
)

// newApp serves fn at "/" with the given options.
func newApp(t *testing.T, fn internal.TargetFunc, opts ...internal.Option) *internal.App {
	t.Helper()

	targets := internal.NewTargets()
	targets.Func("root", fn)
	base := []internal.Option{
		internal.WithTargets(targets),
		internal.WithRoutes(route.Entry{Pattern: "/", Target: "root"}),
	}
	app, err := internal.New(append(base, opts...)...)
	require.NoError(t, err)
	return app
}

// captureErrors records the error reaching the error handler.
func captureErrors(got *error) internal.Option {
	return internal.WithErrorHandler(func(c internal.Context, err error) error {
		*got = err
		return c.String(http.StatusInternalServerError, "recovered")
	})
}

func TestRecover(t *testing.T) {
	t.Parallel()

	panicErr := errors.New("error panic")
	type custom struct{ Code int }

	tests := []struct {
		name  string
		value any
	}{
		{"string", "test panic"},
		{"error", panicErr},
		{"int", 42},
		{"struct", custom{Code: 500}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got error
			app := newApp(t, func(internal.Context, ...any) error { panic(tt.value) },
				internal.WithMiddleware(middlewares.Recover()),
				captureErrors(&got),
			)

			rec := httptest.NewRecorder()
			app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			require.Equal(t, http.StatusInternalServerError, rec.Code)
			require.Equal(t, "recovered", rec.Body.String())

			pe, ok := middlewares.AsPanicError(got)
			require.True(t, ok)
			require.Equal(t, tt.value, pe.Value)
			require.NotEmpty(t, pe.Stack)
		})
	}
}

func TestRecover_ControllerFactoryPanic(t *testing.T) {
	t.Parallel()

	targets := internal.NewTargets()
	internal.Controller(targets, "Broken", internal.CapFront,
		func() *brokenController { panic("factory failed") },
		internal.Methods[*brokenController]{"index": (*brokenController).Index},
	)

	var got error
	app, err := internal.New(
		internal.WithTargets(targets),
		internal.WithRoutes(route.Entry{Pattern: "/", Target: "Broken@index"}),
		internal.WithMiddleware(middlewares.Recover(middlewares.WithRecoverDisablePrintStack())),
		captureErrors(&got),
	)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	pe, ok := middlewares.AsPanicError(got)
	require.True(t, ok)
	require.Equal(t, "factory failed", pe.Value)
	require.Nil(t, pe.Stack)
}

func TestRecover_DefaultErrorHandler(t *testing.T) {
	t.Parallel()

	app := newApp(t, func(internal.Context, ...any) error { panic("boom") },
		internal.WithMiddleware(middlewares.Recover()),
	)

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "boom", "panic values are not leaked")
}

func TestRecover_PassThrough(t *testing.T) {
	t.Parallel()

	app := newApp(t, func(c internal.Context, _ ...any) error { return c.String(http.StatusOK, "ok") },
		internal.WithMiddleware(middlewares.Recover(middlewares.WithRecoverStackSize(8192))),
	)

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

type brokenController struct{}

func (*brokenController) Index(c internal.Context, _ ...any) error { return c.NoContent(http.StatusOK) }
