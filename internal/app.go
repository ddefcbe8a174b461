package internal

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/gatehouse/pkg/auth"
	"github.com/dmitrymomot/gatehouse/pkg/health"
	"github.com/dmitrymomot/gatehouse/pkg/hook"
	"github.com/dmitrymomot/gatehouse/pkg/logger"
	"github.com/dmitrymomot/gatehouse/pkg/module"
	"github.com/dmitrymomot/gatehouse/pkg/route"
)

// Default server timeouts.
const (
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultMaxHeaderBytes    = 1 << 20 // 1MB
	defaultShutdownTimeout   = 30 * time.Second
)

// App wires the route table, the dispatcher, the gate and sessions into an
// http.Handler. App is immutable after creation.
type App struct {
	router         chi.Router
	hooks          *hook.Registry
	gate           *auth.Gate
	sessionManager *SessionManager
	targets        *Targets
	dispatcher     *Dispatcher
	errorHandler   ErrorHandler
	logger         *slog.Logger
	healthConfig   *healthConfig
	modules        *moduleSource
	metrics        http.Handler
	metricsPath    string
	middlewares    []Middleware
	httpMiddleware []func(http.Handler) http.Handler
	routes         [][]route.Entry
	dispatchOpts   []DispatcherOption
	installed      []module.Installed
	errs           []error
}

// moduleSource is where installed modules are discovered.
type moduleSource struct {
	fsys     fs.FS
	registry *module.Registry
	dir      string
}

// New creates an application. The route table is built and every target
// resolved here; a target that does not resolve is returned as an error.
//
// Example:
//
//	targets := gatehouse.NewTargets()
//	gatehouse.RegisterAuthTargets(targets)
//
//	app, err := gatehouse.New(
//	    gatehouse.WithRoutes(entries...),
//	    gatehouse.WithTargets(targets),
//	    gatehouse.WithGate(gate),
//	    gatehouse.WithSessions(session.NewMemoryStore()),
//	)
func New(opts ...Option) (*App, error) {
	a := &App{
		router:       chi.NewRouter(),
		logger:       logger.NewNope(),
		targets:      NewTargets(),
		errorHandler: DefaultErrorHandler,
	}

	for _, opt := range opts {
		opt(a)
	}
	if err := errors.Join(a.errs...); err != nil {
		return nil, err
	}

	if a.hooks == nil {
		if a.gate != nil {
			a.hooks = a.gate.Hooks()
		} else {
			a.hooks = hook.New(hook.WithLogger(a.logger))
		}
	}
	if a.sessionManager != nil {
		a.sessionManager.SetLogger(a.logger)
	}

	if err := a.build(); err != nil {
		return nil, err
	}
	a.setupRoutes()
	return a, nil
}

// build discovers modules, merges route fragments and resolves targets.
func (a *App) build() error {
	fragments := a.routes

	if a.modules != nil {
		installed, err := a.modules.registry.Discover(a.modules.fsys, a.modules.dir, a.logger)
		if err != nil {
			return err
		}
		for _, m := range installed {
			if r, ok := m.Module.(interface{ Targets(*Targets) }); ok {
				r.Targets(a.targets)
			}
		}
		a.installed = installed
		fragments = append(fragments, module.Fragments(installed)...)
	}

	table, err := route.NewTable(route.Merge(fragments...)...)
	if err != nil {
		return err
	}

	opts := append([]DispatcherOption{WithDispatchLogger(a.logger)}, a.dispatchOpts...)
	a.dispatcher, err = NewDispatcher(table, a.targets, opts...)
	if err != nil {
		return err
	}

	a.logger.Debug("route table built",
		slog.Int("routes", table.Len()),
		slog.Int("modules", len(a.installed)),
	)
	return nil
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Router returns the underlying chi.Router.
func (a *App) Router() chi.Router {
	return a.router
}

// Dispatcher returns the dispatcher serving the route table.
func (a *App) Dispatcher() *Dispatcher {
	return a.dispatcher
}

// Hooks returns the application hook registry each request registry is cloned from.
func (a *App) Hooks() *hook.Registry {
	return a.hooks
}

// Modules returns the modules installed at construction.
func (a *App) Modules() []module.Installed {
	return a.installed
}

// Run starts the HTTP server and blocks until shutdown.
//
// Example:
//
//	err := app.Run(":8080",
//	    gatehouse.Logger(log),
//	    gatehouse.ShutdownHook(db.Shutdown(pool)),
//	)
func (a *App) Run(addr string, opts ...RunOption) error {
	cfg := buildRunConfig(opts...)
	if cfg.logger == nil {
		cfg.logger = a.logger
	}

	return runServer(runtimeConfig{
		handler:         a,
		address:         addr,
		logger:          cfg.logger,
		shutdownTimeout: cfg.shutdownTimeout,
		startupHooks:    cfg.startupHooks,
		shutdownHooks:   cfg.shutdownHooks,
		baseCtx:         cfg.baseCtx,
	})
}

// setupRoutes mounts operational endpoints and sends everything else to the dispatcher.
func (a *App) setupRoutes() {
	for _, mw := range a.httpMiddleware {
		a.router.Use(mw)
	}

	if a.healthConfig != nil {
		a.router.Get(a.healthConfig.livenessPath, health.LivenessHandler())
		a.router.Get(a.healthConfig.readinessPath,
			health.ReadinessHandler(a.healthConfig.checks, health.WithLogger(a.logger)))
	}
	if a.metrics != nil {
		a.router.Handle(a.metricsPath, a.metrics)
	}

	h := a.dispatcher.Dispatch
	for i := len(a.middlewares) - 1; i >= 0; i-- {
		h = a.middlewares[i](h)
	}
	serve := a.wrapHandler(h)
	a.router.Handle("/*", serve)
	a.router.NotFound(serve)
	a.router.MethodNotAllowed(serve)
}

// wrapHandler converts a HandlerFunc to http.HandlerFunc using the app's error handler.
func (a *App) wrapHandler(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := newContext(w, r, a)
		if err := h(c); err != nil {
			a.handleError(c, err)
		}
		c.flush()
	}
}

// handleError handles errors from handlers using the configured error handler.
func (a *App) handleError(c Context, err error) {
	if c.Written() {
		a.logger.ErrorContext(c, "handler failed after writing response", slog.Any("error", err))
		return
	}
	if herr := a.errorHandler(c, err); herr != nil {
		a.logger.ErrorContext(c, "error handler failed", slog.Any("error", herr))
		if !c.Written() {
			http.Error(c.Response(), http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
}

// healthConfig holds health check endpoint configuration.
type healthConfig struct {
	checks        health.Checks
	livenessPath  string
	readinessPath string
}

// Default health check paths.
const (
	defaultLivenessPath  = "/health/live"
	defaultReadinessPath = "/health/ready"
)

// HealthOption configures health check endpoints.
type HealthOption func(*healthConfig)

// WithLivenessPath sets a custom liveness endpoint path.
// Defaults to "/health/live".
func WithLivenessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.livenessPath = path
		}
	}
}

// WithReadinessPath sets a custom readiness endpoint path.
// Defaults to "/health/ready".
func WithReadinessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.readinessPath = path
		}
	}
}

// WithReadinessCheck adds a named readiness check.
//
// Example:
//
//	gatehouse.WithReadinessCheck("redis", redis.Healthcheck(client))
func WithReadinessCheck(name string, fn health.CheckFunc) HealthOption {
	return func(c *healthConfig) {
		if c.checks == nil {
			c.checks = make(health.Checks)
		}
		c.checks[name] = fn
	}
}
