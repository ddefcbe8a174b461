package route

import "errors"

// Sentinel errors for route table construction.
var (
	// ErrInvalidEntry is returned when an entry has no pattern or target.
	ErrInvalidEntry = errors.New("route: invalid entry")

	// ErrInvalidPattern is returned when a pattern or match type cannot be compiled.
	ErrInvalidPattern = errors.New("route: invalid pattern")

	// ErrLoadConfig is returned when a route file cannot be read or decoded.
	ErrLoadConfig = errors.New("route: failed to load route config")
)
