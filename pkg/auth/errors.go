package auth

import "errors"

// Rejection reasons. They are reported to hooks and logs only: every
// rejection reaches the caller as the same generic 401 result.
var (
	ErrInvalidCredentials   = errors.New("auth: invalid credentials")
	ErrInvalidToken         = errors.New("auth: invalid request token")
	ErrThrottled            = errors.New("auth: too many failed attempts")
	ErrSessionNotRegistered = errors.New("auth: session not registered")
)

// ErrNoProvider is returned when a gate is used without a credential provider.
var ErrNoProvider = errors.New("auth: credential provider not configured")
