package internal_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatehouse/internal"
	"github.com/dmitrymomot/gatehouse/pkg/route"
	"github.com/dmitrymomot/gatehouse/pkg/session"
)

// events records dispatch hook invocations.
type events struct {
	mu   sync.Mutex
	seen []string
	last *internal.Dispatch
}

func (e *events) record(name string) func(ctx context.Context, args ...any) {
	return func(_ context.Context, args ...any) {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.seen = append(e.seen, name)
		if ev, ok := args[0].(*internal.Dispatch); ok {
			e.last = ev
		}
	}
}

func (e *events) snapshot() ([]string, *internal.Dispatch) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.seen...), e.last
}

func TestDispatcher_Arity(t *testing.T) {
	t.Parallel()

	f := newAppFixture(t)
	client := f.client(t)

	tests := []struct {
		path string
		want string
	}{
		{"/page", "none"},
		{"/page/about", "arg:about"},
		{"/post/2024/hello", "params:2024/hello"},
	}
	for _, tt := range tests {
		res := f.get(t, client, tt.path)
		require.Equal(t, http.StatusOK, res.code, tt.path)
		require.Equal(t, tt.want, res.body, tt.path)
	}

	// The match type rejects a non-numeric year.
	require.Equal(t, http.StatusNotFound, f.get(t, client, "/post/soon/hello").code)
}

func TestDispatcher_NotFound(t *testing.T) {
	t.Parallel()

	f := newAppFixture(t)
	ev := &events{}
	f.hooks.AddAction(internal.HookNotFound, ev.record("not_found"))
	f.hooks.AddAction(internal.HookMatched, ev.record("matched"))

	res := f.get(t, f.client(t), "/nowhere")
	require.Equal(t, http.StatusNotFound, res.code)
	require.JSONEq(t, `{"message":"page not found","status":404}`, res.body)

	seen, last := ev.snapshot()
	require.Equal(t, []string{"not_found"}, seen)
	require.Equal(t, "/nowhere", last.Path)
	require.Zero(t, f.built.get("Pages"))
	require.Zero(t, f.built.get("Admin"))
}

func TestDispatcher_MethodMismatchIsNotFound(t *testing.T) {
	t.Parallel()

	f := newAppFixture(t)
	req, err := http.NewRequest(http.MethodDelete, f.server.URL+"/logout", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, do(t, f.client(t), req).code)
}

func TestDispatcher_BackendDenied(t *testing.T) {
	t.Parallel()

	f := newAppFixture(t)
	ev := &events{}
	f.hooks.AddAction(internal.HookDenied, ev.record("denied"))

	res := f.get(t, f.client(t), "/admin")
	require.Equal(t, http.StatusFound, res.code)
	require.Equal(t, "/login", res.header.Get("Location"))
	require.Zero(t, f.built.get("Admin"), "denied controllers are never constructed")

	seen, last := ev.snapshot()
	require.Equal(t, []string{"denied"}, seen)
	require.Equal(t, "not authenticated", last.Reason)
	require.Equal(t, "Admin@index", last.Target.Target)
	require.Equal(t, internal.CategoryBackend, last.Target.Category)
}

func TestDispatcher_SessionStoreError(t *testing.T) {
	t.Parallel()

	store := &failingStore{MemoryStore: session.NewMemoryStore(), failGet: true}
	f := newAppFixture(t, internal.WithSessions(store))
	ev := &events{}
	f.hooks.AddAction(internal.HookDenied, ev.record("denied"))

	get := func(path string) response {
		req, err := http.NewRequest(http.MethodGet, f.server.URL+path, nil)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: "__sid", Value: "some-token"})
		return do(t, f.client(t), req)
	}

	t.Run("backend", func(t *testing.T) {
		res := get("/admin")
		require.Equal(t, http.StatusInternalServerError, res.code)
		require.Empty(t, res.header.Get("Location"))
		require.Zero(t, f.built.get("Admin"))
	})

	t.Run("auth-gated", func(t *testing.T) {
		require.Equal(t, http.StatusInternalServerError, get("/login").code)
	})

	t.Run("front pages do not read the session", func(t *testing.T) {
		res := get("/page")
		require.Equal(t, http.StatusOK, res.code)
		require.Equal(t, "none", res.body)
	})

	seen, _ := ev.snapshot()
	require.Empty(t, seen, "a store failure is not an access decision")
}

func TestDispatcher_RedirectOptions(t *testing.T) {
	t.Parallel()

	f := newAppFixture(t, internal.WithDispatch(
		internal.WithRedirectCode(http.StatusMovedPermanently),
		internal.WithLoginURL("/signin"),
		internal.WithAdminURL("/dashboard"),
	))
	client := f.client(t)

	res := f.get(t, client, "/admin")
	require.Equal(t, http.StatusMovedPermanently, res.code)
	require.Equal(t, "/signin", res.header.Get("Location"))

	require.Equal(t, http.StatusOK, f.login(t, client, "alice", "Secr3t!pass").code)

	res = f.get(t, client, "/login")
	require.Equal(t, http.StatusMovedPermanently, res.code)
	require.Equal(t, "/dashboard", res.header.Get("Location"))
}

func TestDispatcher_API(t *testing.T) {
	t.Parallel()

	f := newAppFixture(t)

	call := func(user, pass string, set bool) response {
		req, err := http.NewRequest(http.MethodGet, f.server.URL+"/api/status", nil)
		require.NoError(t, err)
		if set {
			req.SetBasicAuth(user, pass)
		}
		return do(t, f.client(t), req)
	}

	res := call("", "", false)
	require.Equal(t, http.StatusUnauthorized, res.code)
	require.Equal(t, `Basic realm="gatehouse", charset="UTF-8"`, res.header.Get("WWW-Authenticate"))

	res = call("api", "wrong", true)
	require.Equal(t, http.StatusUnauthorized, res.code)
	res = call("nobody", "s3cret", true)
	require.Equal(t, http.StatusUnauthorized, res.code)
	require.Zero(t, f.built.get("Api"))

	res = call("api", "s3cret", true)
	require.Equal(t, http.StatusOK, res.code)
	require.JSONEq(t, `{"status":"ok"}`, res.body)
	require.Equal(t, 1, f.built.get("Api"))
}

func TestDispatcher_APIWithoutCredentialsConfigured(t *testing.T) {
	t.Parallel()

	targets := internal.NewTargets()
	internal.Controller(targets, "Api", internal.CapAPI,
		func() apiController { return apiController{} },
		internal.Methods[apiController]{"status": apiController.Status},
	)
	app, err := internal.New(
		internal.WithTargets(targets),
		internal.WithRoutes(route.Entry{Pattern: "/api/status", Target: "Api@status"}),
	)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.SetBasicAuth("", "")
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDispatcher_ParamsFilter(t *testing.T) {
	t.Parallel()

	f := newAppFixture(t)
	f.hooks.AddFilter(internal.FilterParams, func(_ context.Context, value any, args ...any) any {
		p := value.(route.Params)
		if slug, ok := p.Lookup("slug"); ok && slug == "old" {
			return p.With("slug", "new")
		}
		return value
	})

	res := f.get(t, f.client(t), "/page/old")
	require.Equal(t, http.StatusOK, res.code)
	require.Equal(t, "arg:new", res.body)
}

func TestDispatcher_MatchedEvent(t *testing.T) {
	t.Parallel()

	f := newAppFixture(t)
	ev := &events{}
	f.hooks.AddAction(internal.HookMatched, ev.record("matched"))

	require.Equal(t, http.StatusOK, f.get(t, f.client(t), "/blog/hello").code)

	seen, last := ev.snapshot()
	require.Equal(t, []string{"matched"}, seen)
	require.Equal(t, internal.KindModuleMethod, last.Target.Kind)
	require.Equal(t, "blog", last.Target.Module)
	require.Equal(t, "hello", last.Params.Get("slug"))
	require.Equal(t, 1, f.built.get("Posts"))
}

func TestDispatcher_RequestHooksAreIsolated(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		calls int
	)
	targets := internal.NewTargets()
	targets.Func("tap", func(c internal.Context, _ ...any) error {
		// Registered on the request clone only.
		c.Hooks().AddAction("tap", func(context.Context, ...any) {
			mu.Lock()
			calls++
			mu.Unlock()
		})
		c.Hooks().DoAction(c, "tap")
		return c.NoContent(http.StatusNoContent)
	})
	app, err := internal.New(
		internal.WithTargets(targets),
		internal.WithRoutes(route.Entry{Pattern: "/tap", Target: "tap"}),
	)
	require.NoError(t, err)

	for range 3 {
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tap", nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 3, calls)
	require.False(t, app.Hooks().HasAction("tap"))
}

func TestDispatcher_CustomNotFound(t *testing.T) {
	t.Parallel()

	app, err := internal.New(internal.WithDispatch(internal.WithNotFound(func(c internal.Context) error {
		return c.String(http.StatusNotFound, "nothing here")
	})))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "nothing here", rec.Body.String())
}
