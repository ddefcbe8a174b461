package auth

import (
	"context"
	"errors"

	"github.com/dmitrymomot/gatehouse/pkg/hook"
)

// ThrottleOption configures Throttle.
type ThrottleOption func(*throttle)

type throttle struct {
	priority       int
	resetOnSuccess bool
}

// ResetOnSuccess clears the failure counter after a successful attempt.
// Without it the counter only grows until cleared by hand.
func ResetOnSuccess() ThrottleOption {
	return func(t *throttle) {
		t.resetOnSuccess = true
	}
}

// ThrottlePriority sets the hook priority of the throttle callbacks.
// Default: hook.DefaultPriority.
func ThrottlePriority(p int) ThrottleOption {
	return func(t *throttle) {
		t.priority = p
	}
}

// Throttle rejects attempts for an identifier once limit failures were recorded,
// before credentials are looked up. Every rejected attempt, other than one
// stopped by the throttle itself, adds one failure.
// Returns the handles of the registered callbacks. A non-positive limit
// disables throttling and registers nothing.
func Throttle(reg *hook.Registry, limit int64, opts ...ThrottleOption) []hook.Handle {
	if limit <= 0 {
		return nil
	}
	t := &throttle{priority: hook.DefaultPriority}
	for _, opt := range opts {
		opt(t)
	}
	prio := hook.WithPriority(t.priority)

	handles := []hook.Handle{
		reg.AddAction(HookBeforeAuthenticate, func(ctx context.Context, args ...any) {
			a, ok := attemptArg(args)
			if !ok {
				return
			}
			n, err := a.Failures(ctx)
			if err != nil {
				a.Fail(err)
				return
			}
			if n >= limit {
				a.Reject(ErrThrottled)
			}
		}, prio),

		reg.AddAction(HookFailed, func(ctx context.Context, args ...any) {
			a, ok := attemptArg(args)
			if !ok || errors.Is(a.Reason(), ErrThrottled) {
				return
			}
			if _, err := a.RecordFailure(ctx); err != nil {
				a.Fail(err)
			}
		}, prio),
	}

	if t.resetOnSuccess {
		handles = append(handles, reg.AddAction(HookSucceeded, func(ctx context.Context, args ...any) {
			if a, ok := attemptArg(args); ok {
				if err := a.ResetFailures(ctx); err != nil {
					a.Fail(err)
				}
			}
		}, prio))
	}

	return handles
}

// PasswordPolicy enables the advisory strength check with checker.
// A weak password still logs in; the result carries a warning.
func PasswordPolicy(reg *hook.Registry, checker Checker) hook.Handle {
	return reg.AddFilter(FilterStrongPassword, func(_ context.Context, v any, _ ...any) any {
		if checker == nil {
			return v
		}
		return checker
	})
}

func attemptArg(args []any) (*Attempt, bool) {
	if len(args) == 0 {
		return nil, false
	}
	a, ok := args[0].(*Attempt)
	return a, ok && a != nil
}
