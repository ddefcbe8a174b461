package internal

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/gatehouse/pkg/auth"
	"github.com/dmitrymomot/gatehouse/pkg/hook"
	"github.com/dmitrymomot/gatehouse/pkg/route"
)

// Context errors.
var (
	ErrSessionNotConfigured = errors.New("gatehouse: sessions not configured")
	ErrGateNotConfigured    = errors.New("gatehouse: authentication gate not configured")
)

// Context provides request/response access and helper methods.
// It also implements context.Context by delegating to the underlying request context.
type Context interface {
	context.Context

	// Request returns the underlying *http.Request.
	Request() *http.Request

	// Response returns the underlying http.ResponseWriter.
	Response() http.ResponseWriter

	// ResponseWriter returns the wrapped writer.
	ResponseWriter() *ResponseWriter

	// Context returns the request's context.Context.
	Context() context.Context

	// Param returns a route parameter bound by the dispatcher, or "".
	Param(name string) string

	// Params returns every bound route parameter.
	Params() route.Params

	Query(name string) string
	Form(name string) string
	Header(name string) string
	SetHeader(name, value string)

	// ClientIP returns the host part of the request's remote address.
	ClientIP() string

	// JSON writes a JSON response with the given status code.
	JSON(code int, v any) error

	// String writes a plain text response with the given status code.
	String(code int, s string) error

	// NoContent writes a response with no body.
	NoContent(code int) error

	// Redirect redirects to url with the given status code.
	Redirect(code int, url string) error

	// Error creates an HTTPError without writing a response.
	Error(code int, message string, opts ...HTTPErrorOption) *HTTPError

	// Written returns true if a response has already been written.
	Written() bool

	Logger() *slog.Logger
	LogDebug(msg string, attrs ...any)
	LogInfo(msg string, attrs ...any)
	LogWarn(msg string, attrs ...any)
	LogError(msg string, attrs ...any)

	// Set stores a value in the request context.
	Set(key any, value any)

	// Get retrieves a value from the request context, or nil.
	Get(key any) any

	// Hooks returns this request's hook registry.
	// It starts as a copy of the application registry; callbacks added to it
	// do not outlive the request.
	Hooks() *hook.Registry

	// Gate returns the authentication gate bound to this request's hooks.
	// Returns ErrGateNotConfigured if WithGate was not used.
	Gate() (*auth.Gate, error)

	// Session returns this request's session handle.
	// Returns ErrSessionNotConfigured if WithSessions was not used.
	Session() (*SessionHandle, error)

	// IsAuthenticated reports whether the session holds an authenticated identity.
	IsAuthenticated() bool

	// UserID returns the authenticated identity, or "".
	UserID() string
}

// requestContext implements the Context interface.
type requestContext struct {
	request        *http.Request
	responseWriter *ResponseWriter
	logger         *slog.Logger
	hooks          *hook.Registry
	gate           *auth.Gate
	session        *SessionHandle
	params         route.Params
}

// newContext builds the per-request context: a cloned hook registry, a gate
// firing into it and a session handle flushed before the first write.
func newContext(w http.ResponseWriter, r *http.Request, a *App) *requestContext {
	rw := NewResponseWriter(w)
	c := &requestContext{
		request:        r,
		responseWriter: rw,
		logger:         a.logger,
		hooks:          a.hooks.Clone(),
	}

	userKey := auth.DefaultSessionKey
	if a.gate != nil {
		c.gate = a.gate.WithRequestHooks(c.hooks)
		userKey = a.gate.SessionKey()
	}

	if a.sessionManager != nil {
		c.session = newSessionHandle(a.sessionManager, rw, r, userKey)
		rw.OnBeforeWrite(func() {
			if err := c.session.Flush(r.Context()); err != nil {
				c.logger.ErrorContext(r.Context(), "failed to save session", slog.Any("error", err))
			}
		})
	}

	return c
}

func (c *requestContext) Request() *http.Request {
	return c.request
}

func (c *requestContext) Response() http.ResponseWriter {
	return c.responseWriter
}

func (c *requestContext) ResponseWriter() *ResponseWriter {
	return c.responseWriter
}

func (c *requestContext) Context() context.Context {
	return c.request.Context()
}

func (c *requestContext) Deadline() (time.Time, bool) {
	return c.request.Context().Deadline()
}

func (c *requestContext) Done() <-chan struct{} {
	return c.request.Context().Done()
}

func (c *requestContext) Err() error {
	return c.request.Context().Err()
}

func (c *requestContext) Value(key any) any {
	return c.request.Context().Value(key)
}

func (c *requestContext) Param(name string) string {
	return c.params.Get(name)
}

func (c *requestContext) Params() route.Params {
	return c.params
}

func (c *requestContext) setParams(p route.Params) {
	c.params = p
}

func (c *requestContext) Query(name string) string {
	return c.request.URL.Query().Get(name)
}

func (c *requestContext) Form(name string) string {
	return c.request.FormValue(name)
}

func (c *requestContext) Header(name string) string {
	return c.request.Header.Get(name)
}

func (c *requestContext) SetHeader(name, value string) {
	c.responseWriter.Header().Set(name, value)
}

func (c *requestContext) ClientIP() string {
	return remoteIP(c.request)
}

func (c *requestContext) JSON(code int, v any) error {
	c.responseWriter.Header().Set("Content-Type", "application/json; charset=utf-8")
	c.responseWriter.WriteHeader(code)
	return json.NewEncoder(c.responseWriter).Encode(v)
}

func (c *requestContext) String(code int, s string) error {
	c.responseWriter.Header().Set("Content-Type", "text/plain; charset=utf-8")
	c.responseWriter.WriteHeader(code)
	_, err := c.responseWriter.Write([]byte(s))
	return err
}

func (c *requestContext) NoContent(code int) error {
	c.responseWriter.WriteHeader(code)
	return nil
}

func (c *requestContext) Redirect(code int, url string) error {
	http.Redirect(c.responseWriter, c.request, url, code)
	return nil
}

func (c *requestContext) Error(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(code, message, opts...)
}

func (c *requestContext) Written() bool {
	return c.responseWriter.Written()
}

func (c *requestContext) Logger() *slog.Logger {
	return c.logger
}

func (c *requestContext) LogDebug(msg string, attrs ...any) {
	c.logger.DebugContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) LogInfo(msg string, attrs ...any) {
	c.logger.InfoContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) LogWarn(msg string, attrs ...any) {
	c.logger.WarnContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) LogError(msg string, attrs ...any) {
	c.logger.ErrorContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) Set(key, value any) {
	ctx := context.WithValue(c.request.Context(), key, value)
	c.request = c.request.WithContext(ctx)
}

func (c *requestContext) Get(key any) any {
	return c.request.Context().Value(key)
}

func (c *requestContext) Hooks() *hook.Registry {
	return c.hooks
}

func (c *requestContext) Gate() (*auth.Gate, error) {
	if c.gate == nil {
		return nil, ErrGateNotConfigured
	}
	return c.gate, nil
}

func (c *requestContext) Session() (*SessionHandle, error) {
	if c.session == nil {
		return nil, ErrSessionNotConfigured
	}
	return c.session, nil
}

func (c *requestContext) IsAuthenticated() bool {
	if c.gate == nil || c.session == nil {
		return false
	}
	return c.gate.IsAuthenticated(c.session)
}

func (c *requestContext) UserID() string {
	if c.gate == nil || c.session == nil {
		return ""
	}
	id, _ := c.gate.User(c.session)
	return id
}

// flush saves the session when the handler returned without writing.
func (c *requestContext) flush() {
	if c.session == nil || c.Written() {
		return
	}
	if err := c.session.Flush(c.request.Context()); err != nil {
		c.logger.ErrorContext(c.request.Context(), "failed to save session", slog.Any("error", err))
	}
}
