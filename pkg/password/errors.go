package password

import "errors"

// Sentinel errors for hashing and verification.
var (
	// ErrUnsupportedHash is returned when a stored hash uses an unknown scheme.
	ErrUnsupportedHash = errors.New("password: unsupported hash format")

	// ErrMalformedHash is returned when a stored hash cannot be parsed.
	ErrMalformedHash = errors.New("password: malformed hash")

	// ErrEmptyPassword is returned when hashing an empty password.
	ErrEmptyPassword = errors.New("password: empty password")
)
