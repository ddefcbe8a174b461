package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/gatehouse/pkg/credential"
	"github.com/dmitrymomot/gatehouse/pkg/hook"
	"github.com/dmitrymomot/gatehouse/pkg/logger"
	"github.com/dmitrymomot/gatehouse/pkg/password"
	"github.com/dmitrymomot/gatehouse/pkg/transient"
)

// Gate decides whether a caller is authenticated and runs login attempts.
// A Gate is immutable after construction and safe for concurrent use.
type Gate struct {
	provider   credential.Provider
	tokens     transient.Store
	verifier   Verifier
	hooks      *hook.Registry
	logger     *slog.Logger
	sessionKey string
	pendingKey string
	sessionTTL time.Duration
	tokenTTL   time.Duration
}

// New creates a gate that looks credentials up in provider and keeps request
// tokens and failure counters in tokens.
func New(provider credential.Provider, tokens transient.Store, opts ...Option) *Gate {
	g := &Gate{
		provider:   provider,
		tokens:     tokens,
		verifier:   password.NewHasher(),
		hooks:      hook.New(),
		logger:     logger.NewNope(),
		sessionKey: DefaultSessionKey,
		pendingKey: DefaultPendingKey,
		sessionTTL: DefaultSessionTTL,
		tokenTTL:   DefaultTokenTTL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// WithRequestHooks returns a copy of the gate firing into reg.
// Use it with a per-request registry cloned from the application one.
func (g *Gate) WithRequestHooks(reg *hook.Registry) *Gate {
	c := *g
	if reg != nil {
		c.hooks = reg
	}
	return &c
}

// Hooks returns the registry the gate fires into.
func (g *Gate) Hooks() *hook.Registry {
	return g.hooks
}

// SessionKey returns the session key holding the authenticated identity.
func (g *Gate) SessionKey() string {
	return g.sessionKey
}

// IsAuthenticated reports whether sess carries an identity and is registered
// and not expired. It has no side effects.
func (g *Gate) IsAuthenticated(sess Session) bool {
	if sess == nil {
		return false
	}
	return sess.IsSetted(g.sessionKey) && sess.IsRegistered() && !sess.IsExpired()
}

// User returns the identity stored in an authenticated session.
func (g *Gate) User(sess Session) (string, bool) {
	if !g.IsAuthenticated(sess) {
		return "", false
	}
	return fmt.Sprint(sess.Get(g.sessionKey)), true
}

// LoginRequest is a submitted login form.
type LoginRequest struct {
	Identifier string
	Secret     string
	Token      string
	Action     string
	URL        string
	IP         string
}

// Login runs a full attempt: request token check, then credentials.
// A non-nil error means a collaborator failed; rejections are reported in Result.
func (g *Gate) Login(ctx context.Context, sess Session, req LoginRequest) (Result, error) {
	a := newAttempt(g.tokens, req.Identifier, req.IP)

	ok, err := g.VerifyToken(ctx, sess, req.Token, TokenContext{Action: req.Action, URL: req.URL, IP: req.IP})
	if err != nil {
		return Result{}, err
	}
	if !ok {
		a.Reject(ErrInvalidToken)
		return g.reject(ctx, a)
	}
	a.state = StateRequestVerified

	return g.authenticate(ctx, sess, a, req.Secret)
}

// Authenticate runs an attempt without the request token check.
// Intended for middleware that receives credentials outside a login form.
func (g *Gate) Authenticate(ctx context.Context, sess Session, identifier, secret, ip string) (Result, error) {
	a := newAttempt(g.tokens, identifier, ip)
	a.state = StateRequestVerified
	return g.authenticate(ctx, sess, a, secret)
}

// Logout ends the session and fires HookLogout with the identity it held.
func (g *Gate) Logout(ctx context.Context, sess Session) error {
	user := sess.Get(g.sessionKey)
	if err := sess.End(ctx); err != nil {
		return err
	}
	g.hooks.DoAction(ctx, HookLogout, user)
	g.logger.InfoContext(ctx, "session ended", slog.Any("user", user))
	return nil
}

func (g *Gate) authenticate(ctx context.Context, sess Session, a *Attempt, secret string) (Result, error) {
	if g.provider == nil {
		return Result{}, ErrNoProvider
	}

	g.hooks.DoAction(ctx, HookBeforeAuthenticate, a)
	if a.err != nil {
		return Result{}, a.err
	}
	if a.reason != nil {
		return g.reject(ctx, a)
	}

	rec, err := g.provider.GetUser(ctx, a.Identifier)
	if errors.Is(err, credential.ErrNotFound) {
		a.Reject(ErrInvalidCredentials)
		return g.reject(ctx, a)
	}
	if err != nil {
		return Result{}, err
	}

	match, err := g.verifier.Verify(secret, rec.PasswordHash)
	if err != nil {
		g.logger.ErrorContext(ctx, "stored password hash is unusable",
			slog.String("identifier", a.Identifier),
			slog.Any("error", err),
		)
	}
	if !match {
		a.Reject(ErrInvalidCredentials)
		return g.reject(ctx, a)
	}
	a.state = StateCredentialsChecked

	// The strength policy is advisory: a weak password still logs in.
	var warning string
	if checker := hook.Apply[Checker](ctx, g.hooks, FilterStrongPassword, nil, a); checker != nil && !checker.IsStrong(secret) {
		warning = MessageWeakPassword
	}

	if err := sess.Register(ctx, g.sessionTTL); err != nil {
		return Result{}, err
	}
	a.state = StateSessionRegistered

	if !sess.IsRegistered() || sess.IsExpired() {
		if err := sess.End(ctx); err != nil {
			return Result{}, err
		}
		a.Reject(ErrSessionNotRegistered)
		return g.reject(ctx, a)
	}

	hasSecret, err := g.provider.HasSecret(ctx, a.Identifier)
	if err != nil {
		return Result{}, err
	}

	identity := rec.Value(g.provider.Key())
	res := Result{Status: http.StatusOK, Message: MessageAuthenticated, State: StateEstablished}
	if hasSecret {
		sess.Set(g.pendingKey, identity)
		res = Result{Status: http.StatusAccepted, Message: MessagePending, State: StateSecretPending}
	} else {
		sess.Set(g.sessionKey, identity)
	}
	if warning != "" {
		res.Warning = warning
		res.Message = warning
	}
	a.state = res.State

	g.hooks.DoAction(ctx, HookSucceeded, a)
	if a.err != nil {
		return Result{}, a.err
	}

	g.logger.InfoContext(ctx, "authentication succeeded",
		slog.String("identifier", a.Identifier),
		slog.String("state", res.State.String()),
	)

	return hook.Apply(ctx, g.hooks, FilterResponse, res, a), nil
}

// reject fires HookFailed and builds the generic failure result.
func (g *Gate) reject(ctx context.Context, a *Attempt) (Result, error) {
	a.state = StateRejected

	g.hooks.DoAction(ctx, HookFailed, a)
	if a.err != nil {
		return Result{}, a.err
	}

	g.logger.InfoContext(ctx, "authentication rejected",
		slog.String("identifier", a.Identifier),
		slog.String("ip", a.IP),
		slog.Any("reason", a.reason),
	)

	res := Result{
		Status:  http.StatusUnauthorized,
		Message: MessageFailed,
		State:   StateRejected,
		Err:     a.reason,
	}
	return hook.Apply(ctx, g.hooks, FilterResponse, res, a), nil
}
