package internal

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/gatehouse/pkg/auth"
	"github.com/dmitrymomot/gatehouse/pkg/hook"
	"github.com/dmitrymomot/gatehouse/pkg/logger"
	"github.com/dmitrymomot/gatehouse/pkg/module"
	"github.com/dmitrymomot/gatehouse/pkg/route"
	"github.com/dmitrymomot/gatehouse/pkg/session"
)

// Option configures the application.
type Option func(*App)

// WithRoutes appends a core route fragment.
// Core fragments come before module fragments, so on overlap the core wins.
func WithRoutes(entries ...route.Entry) Option {
	return func(a *App) {
		a.routes = append(a.routes, entries)
	}
}

// WithRouteFile loads a YAML route fragment from fsys.
//
// Example:
//
//	//go:embed config
//	var configFS embed.FS
//
//	gatehouse.New(
//	    gatehouse.WithRouteFile(configFS, "config/routes.yaml"),
//	)
func WithRouteFile(fsys fs.FS, name string) Option {
	return func(a *App) {
		entries, err := route.LoadYAML(fsys, name)
		if err != nil {
			a.errs = append(a.errs, fmt.Errorf("load routes %s: %w", name, err))
			return
		}
		a.routes = append(a.routes, entries)
	}
}

// WithModules discovers installed modules under dir in fsys using the
// default module registry. Their routes follow the core routes.
func WithModules(fsys fs.FS, dir string) Option {
	return WithModuleRegistry(module.Default, fsys, dir)
}

// WithModuleRegistry is WithModules with an explicit registry.
func WithModuleRegistry(reg *module.Registry, fsys fs.FS, dir string) Option {
	return func(a *App) {
		if reg != nil && fsys != nil {
			a.modules = &moduleSource{fsys: fsys, registry: reg, dir: dir}
		}
	}
}

// WithTargets sets the registry route targets resolve against.
func WithTargets(t *Targets) Option {
	return func(a *App) {
		if t != nil {
			a.targets = t
		}
	}
}

// WithGate enables authentication. The gate's registry becomes the
// application registry unless WithHooks is also given.
func WithGate(g *auth.Gate) Option {
	return func(a *App) {
		a.gate = g
	}
}

// WithHooks sets the application hook registry.
// Each request works on a clone of it.
func WithHooks(reg *hook.Registry) Option {
	return func(a *App) {
		if reg != nil {
			a.hooks = reg
		}
	}
}

// WithSessions enables server-side sessions backed by store.
//
// Example:
//
//	gatehouse.New(
//	    gatehouse.WithSessions(session.NewRedisStore(client, "gatehouse"),
//	        gatehouse.WithSessionCookieName("__sid"),
//	        gatehouse.WithSessionCookies(cookie.New(cookie.WithSecret(secret))),
//	    ),
//	)
func WithSessions(store session.Store, opts ...SessionOption) Option {
	return func(a *App) {
		a.sessionManager = NewSessionManager(store, opts...)
	}
}

// WithDispatch configures the dispatcher: login and admin URLs, redirect
// code, API credentials and the not-found handler.
func WithDispatch(opts ...DispatcherOption) Option {
	return func(a *App) {
		a.dispatchOpts = append(a.dispatchOpts, opts...)
	}
}

// WithMiddleware adds middleware around the dispatcher.
// Middleware is applied in the order provided.
func WithMiddleware(mw ...Middleware) Option {
	return func(a *App) {
		a.middlewares = append(a.middlewares, mw...)
	}
}

// WithHTTPMiddleware adds net/http middleware in front of every endpoint,
// operational ones included.
func WithHTTPMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(a *App) {
		a.httpMiddleware = append(a.httpMiddleware, mw...)
	}
}

// WithErrorHandler sets a custom error handler for handler errors.
// Defaults to DefaultErrorHandler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(a *App) {
		if h != nil {
			a.errorHandler = h
		}
	}
}

// WithHealthChecks enables liveness and readiness endpoints.
//
// Example:
//
//	gatehouse.WithHealthChecks(
//	    gatehouse.WithReadinessCheck("db", db.Healthcheck(pool)),
//	    gatehouse.WithReadinessCheck("redis", redis.Healthcheck(client)),
//	)
func WithHealthChecks(opts ...HealthOption) Option {
	return func(a *App) {
		cfg := &healthConfig{
			livenessPath:  defaultLivenessPath,
			readinessPath: defaultReadinessPath,
		}
		for _, opt := range opts {
			opt(cfg)
		}
		a.healthConfig = cfg
	}
}

// WithMetrics mounts a metrics handler at path.
func WithMetrics(path string, h http.Handler) Option {
	return func(a *App) {
		if path != "" && h != nil {
			a.metricsPath = path
			a.metrics = h
		}
	}
}

// WithLogger builds the application logger from logger options.
//
// Example:
//
//	gatehouse.New(
//	    gatehouse.WithLogger(
//	        logger.WithLevel(slog.LevelDebug),
//	        logger.WithExtractors(logger.RequestIDExtractor()),
//	    ),
//	)
func WithLogger(opts ...logger.Option) Option {
	return func(a *App) {
		a.logger = logger.New(opts...)
	}
}

// WithCustomLogger sets a fully custom logger.
func WithCustomLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}
