package gatehouse

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/gatehouse/internal"
	"github.com/dmitrymomot/gatehouse/pkg/auth"
	"github.com/dmitrymomot/gatehouse/pkg/cookie"
	"github.com/dmitrymomot/gatehouse/pkg/health"
	"github.com/dmitrymomot/gatehouse/pkg/hook"
	"github.com/dmitrymomot/gatehouse/pkg/logger"
	"github.com/dmitrymomot/gatehouse/pkg/module"
	"github.com/dmitrymomot/gatehouse/pkg/route"
	"github.com/dmitrymomot/gatehouse/pkg/session"
)

// Type aliases - public API
type (
	// App wires the route table, the dispatcher, the gate and sessions into an http.Handler.
	App = internal.App

	// Context provides request/response access and helper methods.
	Context = internal.Context

	// HandlerFunc is the signature of middleware-wrapped handlers.
	HandlerFunc = internal.HandlerFunc

	// TargetFunc is the signature of route targets. args follow the arity rule:
	// none for no params, the value for one param, route.Params for more.
	TargetFunc = internal.TargetFunc

	// Middleware wraps a HandlerFunc to add cross-cutting concerns.
	Middleware = internal.Middleware

	// ErrorHandler handles errors returned from targets.
	ErrorHandler = internal.ErrorHandler

	// Option configures the application.
	Option = internal.Option

	// RunOption configures the server runtime.
	RunOption = internal.RunOption

	// HealthOption configures health check endpoints.
	HealthOption = internal.HealthOption

	// DispatcherOption configures the dispatcher.
	DispatcherOption = internal.DispatcherOption

	// Dispatcher matches requests against the route table and applies category gates.
	Dispatcher = internal.Dispatcher

	// Dispatch is the event passed to dispatch hooks.
	Dispatch = internal.Dispatch

	// Targets is the registry route targets resolve against.
	Targets = internal.Targets

	// Resolved is a target bound at build time.
	Resolved = internal.Resolved

	// TargetKind is how a target string resolved.
	TargetKind = internal.TargetKind

	// Capability flags a controller's access rule.
	Capability = internal.Capability

	// Category is the access rule the dispatcher applies.
	Category = internal.Category

	// AuthOption configures the built-in login endpoints.
	AuthOption = internal.AuthOption

	// Extractor reads a value from the first matching request source.
	Extractor = internal.Extractor

	// ExtractorSource reads one value from the request.
	ExtractorSource = internal.ExtractorSource

	// HTTPError is a terminal HTTP response error.
	HTTPError = internal.HTTPError

	// HTTPErrorOption configures an HTTPError.
	HTTPErrorOption = internal.HTTPErrorOption

	// SessionHandle is the session bound to one request.
	SessionHandle = internal.SessionHandle

	// SessionOption configures the session manager.
	SessionOption = internal.SessionOption

	// ResponseWriter wraps http.ResponseWriter with a before-write hook.
	ResponseWriter = internal.ResponseWriter

	// Session is a stored visitor session.
	Session = session.Session

	// SessionStore persists sessions.
	SessionStore = session.Store

	// Route is one route table entry.
	Route = route.Entry

	// Module is an installed extension contributing routes.
	Module = module.Module

	// Gate is the authentication gate.
	Gate = auth.Gate

	// Hooks is the action and filter registry.
	Hooks = hook.Registry

	// ContextExtractor extracts a slog attribute from context.
	ContextExtractor = logger.ContextExtractor

	// CookieOption configures the session cookie manager.
	CookieOption = cookie.Option
)

// Controller method maps.
type (
	// Method is a controller method expression, e.g. (*Pages).Show.
	Method[C any] = internal.Method[C]

	// Methods maps route method names to controller methods.
	Methods[C any] = internal.Methods[C]
)

// Target kinds.
const (
	KindCallable         = internal.KindCallable
	KindControllerMethod = internal.KindControllerMethod
	KindModuleMethod     = internal.KindModuleMethod
)

// Capabilities. Combined flags resolve by precedence:
// auth-gated, backend, front, api.
const (
	CapFront     = internal.CapFront
	CapBackend   = internal.CapBackend
	CapAuthGated = internal.CapAuthGated
	CapAPI       = internal.CapAPI
)

// Categories.
const (
	CategoryUnclassified = internal.CategoryUnclassified
	CategoryFront        = internal.CategoryFront
	CategoryBackend      = internal.CategoryBackend
	CategoryAuthGated    = internal.CategoryAuthGated
	CategoryAPI          = internal.CategoryAPI
	CategoryModule       = internal.CategoryModule
)

// Dispatch hook points.
const (
	HookMatched  = internal.HookMatched
	HookNotFound = internal.HookNotFound
	HookDenied   = internal.HookDenied
	FilterParams = internal.FilterParams
)

// Built-in controller names.
const (
	AuthControllerName    = internal.AuthControllerName
	AccountControllerName = internal.AccountControllerName
)

// Errors
var (
	ErrUnknownTarget        = internal.ErrUnknownTarget
	ErrDuplicateTarget      = internal.ErrDuplicateTarget
	ErrSessionNotConfigured = internal.ErrSessionNotConfigured
	ErrGateNotConfigured    = internal.ErrGateNotConfigured
)

// Constructors

// New creates an application. Routes are merged, modules discovered and
// every target resolved here; a route naming an unknown target is an error.
//
// Example:
//
//	targets := gatehouse.NewTargets()
//	gatehouse.RegisterAuthTargets(targets)
//	gatehouse.Controller(targets, "Admin", gatehouse.CapBackend,
//	    func() *Admin { return &Admin{repo: repo} },
//	    gatehouse.Methods[*Admin]{"index": (*Admin).Index},
//	)
//
//	app, err := gatehouse.New(
//	    gatehouse.WithRouteFile(configFS, "config/routes.yaml"),
//	    gatehouse.WithTargets(targets),
//	    gatehouse.WithGate(gate),
//	    gatehouse.WithSessions(session.NewRedisStore(client, "gatehouse")),
//	)
func New(opts ...Option) (*App, error) {
	return internal.New(opts...)
}

// NewTargets creates an empty target registry.
func NewTargets() *Targets {
	return internal.NewTargets()
}

// NewHooks creates an empty hook registry.
func NewHooks(opts ...hook.RegistryOption) *Hooks {
	return hook.New(opts...)
}

// Controller registers a controller. The factory runs per request, and only
// after the dispatcher grants access.
func Controller[C any](t *Targets, name string, caps Capability, factory func() C, methods Methods[C]) {
	internal.Controller(t, name, caps, factory, methods)
}

// ModuleController registers a controller served by a module, addressed as
// "module::Name@method".
func ModuleController[C any](t *Targets, module, name string, factory func() C, methods Methods[C]) {
	internal.ModuleController(t, module, name, factory, methods)
}

// RegisterAuthTargets registers "Auth@form", "Auth@login" and "Account@logout".
func RegisterAuthTargets(t *Targets, opts ...AuthOption) {
	internal.RegisterAuthTargets(t, opts...)
}

// App options

// WithRoutes appends a core route fragment.
func WithRoutes(entries ...Route) Option {
	return internal.WithRoutes(entries...)
}

// WithRouteFile loads a YAML route fragment from fsys.
func WithRouteFile(fsys fs.FS, name string) Option {
	return internal.WithRouteFile(fsys, name)
}

// WithModules discovers installed modules under dir using the default registry.
func WithModules(fsys fs.FS, dir string) Option {
	return internal.WithModules(fsys, dir)
}

// WithModuleRegistry is WithModules with an explicit registry.
func WithModuleRegistry(reg *module.Registry, fsys fs.FS, dir string) Option {
	return internal.WithModuleRegistry(reg, fsys, dir)
}

// WithTargets sets the target registry.
func WithTargets(t *Targets) Option {
	return internal.WithTargets(t)
}

// WithGate enables authentication.
func WithGate(g *Gate) Option {
	return internal.WithGate(g)
}

// WithHooks sets the application hook registry. Each request works on a clone.
func WithHooks(reg *Hooks) Option {
	return internal.WithHooks(reg)
}

// WithSessions enables server-side sessions backed by store.
func WithSessions(store SessionStore, opts ...SessionOption) Option {
	return internal.WithSessions(store, opts...)
}

// WithDispatch configures the dispatcher.
func WithDispatch(opts ...DispatcherOption) Option {
	return internal.WithDispatch(opts...)
}

// WithMiddleware adds middleware around the dispatcher.
func WithMiddleware(mw ...Middleware) Option {
	return internal.WithMiddleware(mw...)
}

// WithHTTPMiddleware adds net/http middleware in front of every endpoint.
func WithHTTPMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return internal.WithHTTPMiddleware(mw...)
}

// WithErrorHandler sets a custom error handler.
func WithErrorHandler(h ErrorHandler) Option {
	return internal.WithErrorHandler(h)
}

// WithHealthChecks enables liveness and readiness endpoints.
//
// Example:
//
//	gatehouse.WithHealthChecks(
//	    gatehouse.WithReadinessCheck("db", db.Healthcheck(pool)),
//	)
func WithHealthChecks(opts ...HealthOption) Option {
	return internal.WithHealthChecks(opts...)
}

// WithMetrics mounts a metrics handler at path.
func WithMetrics(path string, h http.Handler) Option {
	return internal.WithMetrics(path, h)
}

// WithLogger builds the application logger from logger options.
func WithLogger(opts ...logger.Option) Option {
	return internal.WithLogger(opts...)
}

// WithCustomLogger sets a fully custom logger.
func WithCustomLogger(l *slog.Logger) Option {
	return internal.WithCustomLogger(l)
}

// Health options

// WithLivenessPath sets the liveness endpoint path. Default: "/health/live".
func WithLivenessPath(path string) HealthOption {
	return internal.WithLivenessPath(path)
}

// WithReadinessPath sets the readiness endpoint path. Default: "/health/ready".
func WithReadinessPath(path string) HealthOption {
	return internal.WithReadinessPath(path)
}

// WithReadinessCheck adds a named readiness check.
func WithReadinessCheck(name string, fn health.CheckFunc) HealthOption {
	return internal.WithReadinessCheck(name, fn)
}

// Dispatcher options

// WithLoginURL sets where anonymous visitors of backend targets are sent.
func WithLoginURL(url string) DispatcherOption {
	return internal.WithLoginURL(url)
}

// WithAdminURL sets where authenticated visitors of auth-gated targets are sent.
func WithAdminURL(url string) DispatcherOption {
	return internal.WithAdminURL(url)
}

// WithRedirectCode sets the redirect status code.
func WithRedirectCode(code int) DispatcherOption {
	return internal.WithRedirectCode(code)
}

// WithAPICredentials sets the Basic credentials API targets require.
func WithAPICredentials(user, password string) DispatcherOption {
	return internal.WithAPICredentials(user, password)
}

// WithAPIRealm sets the realm of the Basic challenge.
func WithAPIRealm(realm string) DispatcherOption {
	return internal.WithAPIRealm(realm)
}

// WithNotFound sets the handler for unmatched requests.
func WithNotFound(h HandlerFunc) DispatcherOption {
	return internal.WithNotFound(h)
}

// Session options

// WithSessionCookieName sets the session cookie name. Default: "__sid".
func WithSessionCookieName(name string) SessionOption {
	return internal.WithSessionCookieName(name)
}

// WithSessionTTL sets how long an anonymous session lives.
func WithSessionTTL(d time.Duration) SessionOption {
	return internal.WithSessionTTL(d)
}

// WithSessionCookies sets the cookie manager for the session cookie.
//
// Example:
//
//	gatehouse.WithSessionCookies(cookie.New(cookie.WithSecret(secret), cookie.WithSecure(true)))
func WithSessionCookies(m *cookie.Manager) SessionOption {
	return internal.WithSessionCookies(m)
}

// Login endpoint options

// WithIdentifierExtractor sets where the login identifier is read from.
func WithIdentifierExtractor(e Extractor) AuthOption {
	return internal.WithIdentifierExtractor(e)
}

// WithSecretExtractor sets where the password is read from.
func WithSecretExtractor(e Extractor) AuthOption {
	return internal.WithSecretExtractor(e)
}

// WithTokenExtractor sets where the request token is read from.
func WithTokenExtractor(e Extractor) AuthOption {
	return internal.WithTokenExtractor(e)
}

// WithLoginAction sets the action request tokens are bound to.
func WithLoginAction(action string) AuthOption {
	return internal.WithLoginAction(action)
}

// Extractors

// NewExtractor tries sources in order.
func NewExtractor(sources ...ExtractorSource) Extractor {
	return internal.NewExtractor(sources...)
}

func FromHeader(name string) ExtractorSource { return internal.FromHeader(name) }
func FromQuery(name string) ExtractorSource  { return internal.FromQuery(name) }
func FromParam(name string) ExtractorSource  { return internal.FromParam(name) }
func FromForm(name string) ExtractorSource   { return internal.FromForm(name) }

// FromBasicAuth reads the Basic user name, or the password if password is true.
func FromBasicAuth(password bool) ExtractorSource {
	return internal.FromBasicAuth(password)
}

// Run options

// Logger sets the server logger.
func Logger(l *slog.Logger) RunOption {
	return internal.Logger(l)
}

// ShutdownTimeout sets the graceful shutdown budget. Default: 30s.
func ShutdownTimeout(d time.Duration) RunOption {
	return internal.ShutdownTimeout(d)
}

// StartupHook runs fn after the listener is bound and before serving.
// A failing hook aborts startup.
func StartupHook(fn func(context.Context) error) RunOption {
	return internal.StartupHook(fn)
}

// ShutdownHook runs fn after the server stops accepting requests.
func ShutdownHook(fn func(context.Context) error) RunOption {
	return internal.ShutdownHook(fn)
}

// WithContext sets the base context; cancelling it shuts the server down.
func WithContext(ctx context.Context) RunOption {
	return internal.WithContext(ctx)
}

// Errors

// NewHTTPError creates an HTTPError.
func NewHTTPError(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.NewHTTPError(code, message, opts...)
}

func ErrBadRequest(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrBadRequest(message, opts...)
}

func ErrUnauthorized(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrUnauthorized(message, opts...)
}

func ErrForbidden(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrForbidden(message, opts...)
}

func ErrNotFound(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrNotFound(message, opts...)
}

func ErrInternal(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrInternal(message, opts...)
}

// WithError attaches the underlying error to an HTTPError.
func WithError(err error) HTTPErrorOption {
	return internal.WithError(err)
}

// AsHTTPError extracts an HTTPError from err's chain, or returns nil.
func AsHTTPError(err error) *HTTPError {
	return internal.AsHTTPError(err)
}

// IsHTTPError reports whether err's chain holds an HTTPError.
func IsHTTPError(err error) bool {
	return internal.IsHTTPError(err)
}

// DefaultErrorHandler renders errors as JSON.
func DefaultErrorHandler(c Context, err error) error {
	return internal.DefaultErrorHandler(c, err)
}

// Helpers

// Param returns a route parameter converted to T.
func Param[T ~string | ~int | ~int64 | ~float64 | ~bool](c Context, name string) T {
	return internal.Param[T](c, name)
}

// Query returns a query parameter converted to T.
func Query[T ~string | ~int | ~int64 | ~float64 | ~bool](c Context, name string) T {
	return internal.Query[T](c, name)
}

// QueryDefault returns a query parameter converted to T, or defaultValue.
func QueryDefault[T ~string | ~int | ~int64 | ~float64 | ~bool](c Context, name string, defaultValue T) T {
	return internal.QueryDefault(c, name, defaultValue)
}

// ContextValue returns the request context value under key as a T.
func ContextValue[T any](c Context, key any) T {
	return internal.ContextValue[T](c, key)
}

// SessionValue returns the session value under key as a T.
func SessionValue[T any](c Context, key string) (T, bool) {
	return internal.SessionValue[T](c, key)
}
