package auth

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/gatehouse/pkg/hook"
	"github.com/dmitrymomot/gatehouse/pkg/password"
)

// Defaults.
const (
	DefaultSessionKey = "user"
	DefaultPendingKey = "auth.pending"
	DefaultSessionTTL = 24 * time.Hour
	DefaultTokenTTL   = 15 * time.Minute
)

// Option configures a Gate.
type Option func(*Gate)

// WithHooks sets the hook registry the gate fires into.
func WithHooks(reg *hook.Registry) Option {
	return func(g *Gate) {
		if reg != nil {
			g.hooks = reg
		}
	}
}

// WithLogger sets the logger for gate decisions.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithSessionKey sets the session key holding the authenticated identity.
// Default: "user".
func WithSessionKey(key string) Option {
	return func(g *Gate) {
		if key != "" {
			g.sessionKey = key
		}
	}
}

// WithPendingKey sets the session key holding the identity awaiting a second factor.
// Default: "auth.pending".
func WithPendingKey(key string) Option {
	return func(g *Gate) {
		if key != "" {
			g.pendingKey = key
		}
	}
}

// WithSessionTTL sets how long a registered session lives.
// Default: 24 hours.
func WithSessionTTL(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.sessionTTL = d
		}
	}
}

// WithTokenTTL sets how long an issued request token stays valid.
// Default: 15 minutes.
func WithTokenTTL(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.tokenTTL = d
		}
	}
}

// WithVerifier sets the password hash verifier.
// Default: password.NewHasher().
func WithVerifier(v Verifier) Option {
	return func(g *Gate) {
		if v != nil {
			g.verifier = v
		}
	}
}

// compile-time check that the default verifier fits.
var _ Verifier = (*password.Hasher)(nil)
