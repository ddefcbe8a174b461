package metrics_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatehouse/internal"
	"github.com/dmitrymomot/gatehouse/pkg/auth"
	"github.com/dmitrymomot/gatehouse/pkg/credential"
	"github.com/dmitrymomot/gatehouse/pkg/hook"
	"github.com/dmitrymomot/gatehouse/pkg/metrics"
	"github.com/dmitrymomot/gatehouse/pkg/password"
	"github.com/dmitrymomot/gatehouse/pkg/route"
	"github.com/dmitrymomot/gatehouse/pkg/session"
	"github.com/dmitrymomot/gatehouse/pkg/transient"
)

func newInstrumentedApp(t *testing.T) (*internal.App, *metrics.Metrics, *prometheus.Registry) {
	t.Helper()

	hasher := password.NewHasher(password.WithParams(password.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1}))
	hash, err := hasher.Hash("Secr3t!pass")
	require.NoError(t, err)

	tokens := transient.NewMemory(transient.WithCleanupInterval(0))
	t.Cleanup(func() { _ = tokens.Close() })

	hooks := hook.New()
	gate := auth.New(
		credential.NewStatic("username", map[string]credential.StaticUser{
			"alice": {Fields: map[string]string{"username": "alice"}, PasswordHash: hash},
		}),
		tokens,
		auth.WithHooks(hooks),
		auth.WithVerifier(hasher),
	)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.Subscribe(hooks)

	targets := internal.NewTargets()
	internal.RegisterAuthTargets(targets)
	internal.Controller(targets, "Admin", internal.CapBackend,
		func() *admin { return &admin{} },
		internal.Methods[*admin]{"index": (*admin).Index},
	)

	app, err := internal.New(
		internal.WithGate(gate),
		internal.WithSessions(session.NewMemoryStore()),
		internal.WithTargets(targets),
		internal.WithRoutes(
			route.Entry{Pattern: "/login", Target: "Auth@form", Methods: []string{http.MethodGet}},
			route.Entry{Pattern: "/login", Target: "Auth@login", Methods: []string{http.MethodPost}},
			route.Entry{Pattern: "/admin", Target: "Admin@index"},
		),
		internal.WithMetrics("/metrics", metrics.Handler(reg)),
		internal.WithHTTPMiddleware(m.Middleware()),
	)
	require.NoError(t, err)
	return app, m, reg
}

type admin struct{}

func (*admin) Index(c internal.Context, _ ...any) error { return c.NoContent(http.StatusOK) }

func serve(app http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

func TestMetrics_Dispatch(t *testing.T) {
	t.Parallel()

	app, m, _ := newInstrumentedApp(t)

	serve(app, httptest.NewRequest(http.MethodGet, "/admin", nil))
	serve(app, httptest.NewRequest(http.MethodGet, "/missing", nil))
	serve(app, httptest.NewRequest(http.MethodGet, "/login", nil))

	require.InDelta(t, 2, testutil.ToFloat64(m.Dispatches.WithLabelValues(metrics.OutcomeMatched, "backend"))+
		testutil.ToFloat64(m.Dispatches.WithLabelValues(metrics.OutcomeMatched, "auth-gated")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.Dispatches.WithLabelValues(metrics.OutcomeDenied, "backend")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.Dispatches.WithLabelValues(metrics.OutcomeNotFound, "")), 0)

	require.InDelta(t, 1, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("get", "302")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("get", "404")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("get", "200")), 0)
}

func TestMetrics_AuthOutcomes(t *testing.T) {
	t.Parallel()

	app, m, _ := newInstrumentedApp(t)

	// No token at all.
	form := url.Values{"username": {"alice"}, "password": {"Secr3t!pass"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusUnauthorized, serve(app, req).Code)

	require.InDelta(t, 1, testutil.ToFloat64(m.AuthAttempts.WithLabelValues("failed", "invalid_token")), 0)
	require.Zero(t, testutil.ToFloat64(m.AuthAttempts.WithLabelValues("succeeded", "established")))
}

func TestMetrics_HookEvents(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	hooks := hook.New()
	handles := m.Subscribe(hooks)
	require.Len(t, handles, 6)

	ctx := context.Background()
	hooks.DoAction(ctx, auth.HookLogout, "alice")
	hooks.DoAction(ctx, auth.HookLogout, "bob")
	// Unexpected argument types are ignored.
	hooks.DoAction(ctx, auth.HookFailed, "not an attempt")
	hooks.DoAction(ctx, internal.HookMatched, nil)

	require.InDelta(t, 2, testutil.ToFloat64(m.Logouts), 0)
	require.Zero(t, testutil.CollectAndCount(m.AuthAttempts))
	require.Zero(t, testutil.CollectAndCount(m.Dispatches))
}

func TestHandler(t *testing.T) {
	t.Parallel()

	app, _, _ := newInstrumentedApp(t)
	serve(app, httptest.NewRequest(http.MethodGet, "/missing", nil))

	rec := serve(app, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `gatehouse_dispatch_total{category="",outcome="not_found"} 1`)
	require.Contains(t, string(body), "gatehouse_http_requests_total")
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	metrics.New(reg)
	require.Panics(t, func() { metrics.New(reg) })
}
