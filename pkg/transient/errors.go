package transient

import "errors"

// Sentinel errors for transient store operations.
var (
	// ErrNotFound is returned when a key does not exist or has expired.
	ErrNotFound = errors.New("transient: entry not found")

	// ErrClosed is returned when an operation is attempted on a closed store.
	ErrClosed = errors.New("transient: closed")

	// ErrNotCounter is returned by Increment when the stored value is not an integer.
	ErrNotCounter = errors.New("transient: value is not a counter")
)
