package internal

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/gatehouse/pkg/hook"
	"github.com/dmitrymomot/gatehouse/pkg/logger"
	"github.com/dmitrymomot/gatehouse/pkg/route"
)

// Hook points fired by the dispatcher on the request registry.
//
// Actions receive a *Dispatch. FilterParams receives the bound route.Params
// and the *Dispatch, and must return route.Params.
const (
	HookMatched  = "dispatch.matched"
	HookNotFound = "dispatch.not_found"
	HookDenied   = "dispatch.denied"

	FilterParams = "dispatch.params"
)

// Default dispatcher settings.
const (
	defaultLoginURL     = "/login"
	defaultAdminURL     = "/admin"
	defaultRedirectCode = http.StatusFound
	defaultAPIRealm     = "gatehouse"
)

// Dispatch describes one routed request. Hook callbacks receive it.
type Dispatch struct {
	Params route.Params
	Method string
	Path   string
	// Reason is set when the request was denied or redirected.
	Reason string
	Target Resolved
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLoginURL sets where unauthenticated backend requests are redirected.
func WithLoginURL(url string) DispatcherOption {
	return func(d *Dispatcher) {
		if url != "" {
			d.loginURL = url
		}
	}
}

// WithAdminURL sets where authenticated visitors of auth-gated pages are redirected.
func WithAdminURL(url string) DispatcherOption {
	return func(d *Dispatcher) {
		if url != "" {
			d.adminURL = url
		}
	}
}

// WithRedirectCode sets the status used for access redirects. Default: 302.
func WithRedirectCode(code int) DispatcherOption {
	return func(d *Dispatcher) {
		if code >= 300 && code < 400 {
			d.redirectCode = code
		}
	}
}

// WithAPICredentials sets the Basic credentials required by API targets.
// Without them every API request is rejected.
func WithAPICredentials(user, password string) DispatcherOption {
	return func(d *Dispatcher) {
		d.apiUser = user
		d.apiPassword = password
	}
}

// WithAPIRealm sets the realm advertised in WWW-Authenticate.
func WithAPIRealm(realm string) DispatcherOption {
	return func(d *Dispatcher) {
		if realm != "" {
			d.apiRealm = realm
		}
	}
}

// WithNotFound sets the handler for requests no route matches.
func WithNotFound(h HandlerFunc) DispatcherOption {
	return func(d *Dispatcher) {
		if h != nil {
			d.notFound = h
		}
	}
}

// WithDispatchLogger sets the dispatcher logger.
func WithDispatchLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// Dispatcher routes requests to targets through the access rule of
// each target's category.
type Dispatcher struct {
	table        *route.Table
	targets      map[string]Resolved
	notFound     HandlerFunc
	logger       *slog.Logger
	loginURL     string
	adminURL     string
	apiUser      string
	apiPassword  string
	apiRealm     string
	redirectCode int
}

// NewDispatcher resolves every target named by table.
// Returns an error listing each target that does not resolve.
func NewDispatcher(table *route.Table, targets *Targets, opts ...DispatcherOption) (*Dispatcher, error) {
	d := &Dispatcher{
		table:        table,
		targets:      make(map[string]Resolved),
		logger:       logger.NewNope(),
		loginURL:     defaultLoginURL,
		adminURL:     defaultAdminURL,
		redirectCode: defaultRedirectCode,
		apiRealm:     defaultAPIRealm,
		notFound: func(Context) error {
			return ErrNotFound("page not found")
		},
	}
	for _, opt := range opts {
		opt(d)
	}

	errs := []error{targets.Err()}
	for _, e := range table.Entries() {
		if _, done := d.targets[e.Target]; done {
			continue
		}
		res, err := targets.Resolve(e.Target)
		if err != nil {
			errs = append(errs, fmt.Errorf("route %q: %w", e.Pattern, err))
			continue
		}
		d.targets[e.Target] = res
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return d, nil
}

// Table returns the route table the dispatcher serves.
func (d *Dispatcher) Table() *route.Table {
	return d.table
}

// Lookup returns the resolved target for a target string.
func (d *Dispatcher) Lookup(target string) (Resolved, bool) {
	res, ok := d.targets[target]
	return res, ok
}

// Dispatch matches the request and runs its target if access is granted.
func (d *Dispatcher) Dispatch(c Context) error {
	r := c.Request()
	hooks := c.Hooks()

	m, ok := d.table.Match(r.Method, r.URL.Path)
	if !ok {
		hooks.DoAction(c, HookNotFound, &Dispatch{Method: r.Method, Path: r.URL.Path})
		return d.notFound(c)
	}

	ev := &Dispatch{
		Params: m.Params,
		Method: r.Method,
		Path:   r.URL.Path,
		Target: d.targets[m.Target],
	}
	bindParams(c, m.Params)
	hooks.DoAction(c, HookMatched, ev)

	if err := sessionErr(c, ev.Target.Category); err != nil {
		d.logger.ErrorContext(c, "session unavailable", slog.Any("error", err))
		return ErrInternal("", WithError(err))
	}

	switch ev.Target.Category {
	case CategoryBackend:
		if !c.IsAuthenticated() {
			return d.deny(c, ev, "not authenticated", d.redirectTo(c, d.loginURL))
		}
	case CategoryAuthGated:
		if c.IsAuthenticated() {
			return d.deny(c, ev, "already authenticated", d.redirectTo(c, d.adminURL))
		}
	case CategoryAPI:
		if !d.checkBasic(r) {
			return d.deny(c, ev, "invalid api credentials", d.challenge(c))
		}
	}

	params := hook.Apply(c, hooks, FilterParams, ev.Params, ev)
	bindParams(c, params)

	d.logger.DebugContext(c, "dispatching",
		slog.String("target", ev.Target.Target),
		slog.String("category", ev.Target.Category.String()),
	)
	return ev.Target.Invoke(c, targetArgs(params)...)
}

// sessionErr reports a session store failure on routes whose access
// depends on the session.
func sessionErr(c Context, cat Category) error {
	if cat != CategoryBackend && cat != CategoryAuthGated {
		return nil
	}
	sess, err := c.Session()
	if err != nil {
		return nil
	}
	return sess.Err()
}

func (d *Dispatcher) deny(c Context, ev *Dispatch, reason string, respond func() error) error {
	ev.Reason = reason
	c.Hooks().DoAction(c, HookDenied, ev)
	d.logger.DebugContext(c, "dispatch denied",
		slog.String("target", ev.Target.Target),
		slog.String("reason", reason),
	)
	return respond()
}

func (d *Dispatcher) redirectTo(c Context, url string) func() error {
	return func() error {
		return c.Redirect(d.redirectCode, url)
	}
}

// challenge returns 401 with a Basic challenge. The header is set before the
// error is returned so a custom error handler keeps it.
func (d *Dispatcher) challenge(c Context) func() error {
	return func() error {
		c.SetHeader("WWW-Authenticate", `Basic realm="`+d.apiRealm+`", charset="UTF-8"`)
		return ErrUnauthorized("authentication required")
	}
}

// checkBasic compares both fields in constant time, so a wrong user name
// costs as much as a wrong password.
func (d *Dispatcher) checkBasic(r *http.Request) bool {
	if d.apiUser == "" || d.apiPassword == "" {
		return false
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(d.apiUser))
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(d.apiPassword))
	return userOK&passOK == 1
}

// bindParams exposes params through c.Param when c supports it.
func bindParams(c Context, p route.Params) {
	if pb, ok := c.(interface{ setParams(route.Params) }); ok {
		pb.setParams(p)
	}
}

// targetArgs applies the arity rule: no params, no args; one param, its
// value; more, the whole set.
func targetArgs(p route.Params) []any {
	switch p.Len() {
	case 0:
		return nil
	case 1:
		return []any{p.Values()[0]}
	default:
		return []any{p}
	}
}
