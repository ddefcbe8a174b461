package internal

import (
	"net/http"

	"github.com/dmitrymomot/gatehouse/pkg/auth"
)

// Targets registered by RegisterAuthTargets.
const (
	AuthControllerName    = "Auth"
	AccountControllerName = "Account"
)

// defaultLoginAction is the action request tokens are bound to.
const defaultLoginAction = "login"

// AuthOption configures the built-in login endpoints.
type AuthOption func(*authConfig)

type authConfig struct {
	identifier Extractor
	secret     Extractor
	token      Extractor
	action     string
}

// WithIdentifierExtractor sets where the login identifier is read from.
// Default: form field "username", then Basic auth user.
func WithIdentifierExtractor(e Extractor) AuthOption {
	return func(c *authConfig) {
		c.identifier = e
	}
}

// WithSecretExtractor sets where the password is read from.
// Default: form field "password", then Basic auth password.
func WithSecretExtractor(e Extractor) AuthOption {
	return func(c *authConfig) {
		c.secret = e
	}
}

// WithTokenExtractor sets where the request token is read from.
// Default: form field "_token", then header "X-CSRF-Token".
func WithTokenExtractor(e Extractor) AuthOption {
	return func(c *authConfig) {
		c.token = e
	}
}

// WithLoginAction sets the action request tokens are bound to.
func WithLoginAction(action string) AuthOption {
	return func(c *authConfig) {
		if action != "" {
			c.action = action
		}
	}
}

// AuthController serves the login form token and the login attempt.
// It is auth-gated: authenticated visitors are sent to the admin area.
type AuthController struct {
	cfg *authConfig
}

// AccountController serves endpoints for authenticated visitors.
type AccountController struct{}

// RegisterAuthTargets registers "Auth@form", "Auth@login" and "Account@logout".
//
// Example routes:
//
//	- pattern: /login
//	  methods: [GET]
//	  target: Auth@form
//	- pattern: /login
//	  methods: [POST]
//	  target: Auth@login
//	- pattern: /logout
//	  methods: [POST]
//	  target: Account@logout
func RegisterAuthTargets(t *Targets, opts ...AuthOption) {
	cfg := &authConfig{
		identifier: NewExtractor(FromForm("username"), FromBasicAuth(false)),
		secret:     NewExtractor(FromForm("password"), FromBasicAuth(true)),
		token:      NewExtractor(FromForm("_token"), FromHeader("X-CSRF-Token")),
		action:     defaultLoginAction,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	Controller(t, AuthControllerName, CapAuthGated,
		func() *AuthController { return &AuthController{cfg: cfg} },
		Methods[*AuthController]{
			"form":  (*AuthController).Form,
			"login": (*AuthController).Login,
		},
	)
	Controller(t, AccountControllerName, CapBackend,
		func() *AccountController { return &AccountController{} },
		Methods[*AccountController]{
			"logout": (*AccountController).Logout,
		},
	)
}

// loginForm is the body returned by Form.
type loginForm struct {
	Token  string `json:"token"`
	Action string `json:"action"`
}

// Form issues a single-use request token for the login form.
func (a *AuthController) Form(c Context, _ ...any) error {
	gate, sess, err := gateAndSession(c)
	if err != nil {
		return err
	}
	id, err := gate.IssueToken(c, sess, auth.TokenContext{
		Action: a.cfg.action,
		URL:    c.Request().URL.Path,
		IP:     c.ClientIP(),
	})
	if err != nil {
		return ErrInternal("", WithError(err))
	}
	c.SetHeader("Cache-Control", "no-store")
	return c.JSON(http.StatusOK, loginForm{Token: id, Action: a.cfg.action})
}

// Login runs a login attempt and renders its Result.
func (a *AuthController) Login(c Context, _ ...any) error {
	gate, sess, err := gateAndSession(c)
	if err != nil {
		return err
	}

	identifier, _ := a.cfg.identifier.Extract(c)
	secret, _ := a.cfg.secret.Extract(c)
	token, _ := a.cfg.token.Extract(c)

	res, err := gate.Login(c, sess, auth.LoginRequest{
		Identifier: identifier,
		Secret:     secret,
		Token:      token,
		Action:     a.cfg.action,
		URL:        c.Request().URL.Path,
		IP:         c.ClientIP(),
	})
	if err != nil {
		return ErrInternal("", WithError(err))
	}
	// The identity is written after registration; persist it before
	// reporting the result.
	if err := sess.Flush(c); err != nil {
		return ErrInternal("", WithError(err))
	}
	return c.JSON(res.Status, res)
}

// Logout ends the session.
func (a *AccountController) Logout(c Context, _ ...any) error {
	gate, sess, err := gateAndSession(c)
	if err != nil {
		return err
	}
	if err := gate.Logout(c, sess); err != nil {
		return ErrInternal("", WithError(err))
	}
	return c.NoContent(http.StatusNoContent)
}

func gateAndSession(c Context) (*auth.Gate, *SessionHandle, error) {
	gate, err := c.Gate()
	if err != nil {
		return nil, nil, ErrInternal("", WithError(err))
	}
	sess, err := c.Session()
	if err != nil {
		return nil, nil, ErrInternal("", WithError(err))
	}
	return gate, sess, nil
}
