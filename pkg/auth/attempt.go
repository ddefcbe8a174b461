package auth

import (
	"context"

	"github.com/dmitrymomot/gatehouse/pkg/transient"
)

// AttemptKeyPrefix prefixes the per-identifier failure counter key.
const AttemptKeyPrefix = "authenticate-"

// Attempt is the context shared with interceptors for one authentication attempt.
// Interceptors read the identifier and counter and may reject the attempt.
type Attempt struct {
	tokens     transient.Store
	reason     error
	err        error
	Identifier string
	IP         string
	state      State
}

func newAttempt(tokens transient.Store, identifier, ip string) *Attempt {
	return &Attempt{tokens: tokens, Identifier: identifier, IP: ip}
}

// CounterKey returns the transient store key of the failure counter.
func (a *Attempt) CounterKey() string {
	return AttemptKeyPrefix + a.Identifier
}

// Failures returns the stored failure count for the identifier.
func (a *Attempt) Failures(ctx context.Context) (int64, error) {
	return transient.Counter(ctx, a.tokens, a.CounterKey())
}

// RecordFailure increments the failure counter. The counter never expires.
func (a *Attempt) RecordFailure(ctx context.Context) (int64, error) {
	return a.tokens.Increment(ctx, a.CounterKey())
}

// ResetFailures clears the failure counter.
func (a *Attempt) ResetFailures(ctx context.Context) error {
	return a.tokens.Delete(ctx, a.CounterKey())
}

// Reject stops the attempt with reason. The first rejection wins.
func (a *Attempt) Reject(reason error) {
	if a.reason == nil {
		a.reason = reason
	}
}

// Fail aborts the attempt with a collaborator error, returned to the caller
// instead of a result. The first error wins.
func (a *Attempt) Fail(err error) {
	if a.err == nil && err != nil {
		a.err = err
	}
}

// Reason returns the rejection reason, or nil.
func (a *Attempt) Reason() error {
	return a.reason
}

// State returns the step the attempt reached.
func (a *Attempt) State() State {
	return a.state
}
