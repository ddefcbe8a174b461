package middlewares

import (
	"errors"
	"fmt"
	"net/netip"
)

// ErrIPDenied is returned when IPAccess rejects a client address.
var ErrIPDenied = errors.New("middlewares: client address denied")

// PanicError represents a recovered panic.
type PanicError struct {
	Value any    // The panic value
	Stack []byte // Stack trace (nil if disabled)
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it is an error, e.g. panic(err).
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// IsPanicError returns true if the error is a PanicError.
func IsPanicError(err error) bool {
	var pe *PanicError
	return errors.As(err, &pe)
}

// AsPanicError extracts the PanicError from an error if present.
func AsPanicError(err error) (*PanicError, bool) {
	var pe *PanicError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// AccessError describes a rejected client address.
type AccessError struct {
	Addr   netip.Addr
	Reason string
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("%s: %s", e.Addr, e.Reason)
}

func (e *AccessError) Unwrap() error {
	return ErrIPDenied
}
