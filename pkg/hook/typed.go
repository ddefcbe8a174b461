package hook

import "context"

// AddFilterFunc registers a filter that operates on values of type T.
// If the value reaching the callback is not a T (another filter in the chain
// returned a different type), the callback is skipped and the value passes through.
func AddFilterFunc[T any](r *Registry, name string, fn func(ctx context.Context, v T, args ...any) T, opts ...Option) Handle {
	return r.AddFilter(name, func(ctx context.Context, value any, args ...any) any {
		v, ok := value.(T)
		if !ok {
			return value
		}
		return fn(ctx, v, args...)
	}, opts...)
}

// Apply runs the filter chain for name and returns the result as T.
// If the chain produces a value that is not a T, value is returned unchanged.
func Apply[T any](ctx context.Context, r *Registry, name string, value T, args ...any) T {
	out, ok := r.ApplyFilter(ctx, name, value, args...).(T)
	if !ok {
		return value
	}
	return out
}
