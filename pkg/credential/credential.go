package credential

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no user matches the identifier.
var ErrNotFound = errors.New("credential: user not found")

// Provider looks up stored credentials.
type Provider interface {
	// GetUser returns the record for identifier or ErrNotFound.
	GetUser(ctx context.Context, identifier string) (*Record, error)

	// Key names the identity field stored in the session after login.
	Key() string

	// HasSecret reports whether the user has a second factor configured.
	HasSecret(ctx context.Context, identifier string) (bool, error)
}

// Record is a stored user credential.
type Record struct {
	Fields       map[string]string
	PasswordHash string
}

// Value returns the identity field named key, or empty string.
func (r *Record) Value(key string) string {
	if r == nil {
		return ""
	}
	return r.Fields[key]
}
