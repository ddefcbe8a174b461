package hook

import "log/slog"

// Default registration parameters.
const (
	DefaultPriority = 10
	DefaultArgs     = 1
)

// Option configures a single callback registration.
type Option func(*entry)

// WithPriority sets the callback priority. Lower values run first.
// Default: 10.
func WithPriority(p int) Option {
	return func(e *entry) {
		e.priority = p
	}
}

// WithArgs sets how many positional arguments the callback accepts.
// Extra arguments passed when the hook fires are dropped. Negative means all.
// Default: 1.
func WithArgs(n int) Option {
	return func(e *entry) {
		e.argCount = n
	}
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used to report recovered callback panics.
func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}
