package session

import "errors"

// Session errors.
var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("session: not found")

	// ErrExpired is returned when a session has expired.
	ErrExpired = errors.New("session: expired")

	// ErrInvalidToken is returned when a session token is empty or malformed.
	ErrInvalidToken = errors.New("session: invalid token")

	// ErrTypeMismatch is returned by Value when a stored value has another type.
	ErrTypeMismatch = errors.New("session: type mismatch")

	// ErrEncode is returned when a session cannot be serialized for storage.
	ErrEncode = errors.New("session: failed to encode")

	// ErrDecode is returned when a stored session cannot be deserialized.
	ErrDecode = errors.New("session: failed to decode")
)
