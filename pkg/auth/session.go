package auth

import (
	"context"
	"time"
)

// Session is the request-bound session the gate reads and writes.
// The gate keeps no session state of its own.
type Session interface {
	// IsSetted reports whether key holds a value.
	IsSetted(key string) bool
	IsRegistered() bool
	IsExpired() bool
	// Get returns the value under key, or nil.
	Get(key string) any
	Set(key string, value any)
	// Register marks the session as registered for ttl.
	Register(ctx context.Context, ttl time.Duration) error
	// End destroys the session.
	End(ctx context.Context) error
}

// Checker is a password strength predicate.
type Checker interface {
	IsStrong(password string) bool
}

// Verifier checks a password against a stored hash.
type Verifier interface {
	Verify(password, encoded string) (bool, error)
}
