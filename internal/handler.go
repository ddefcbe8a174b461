package internal

// HandlerFunc is the signature for request handlers.
// Returning a non-nil error triggers the error handler.
type HandlerFunc func(c Context) error

// Middleware wraps a HandlerFunc to add cross-cutting concerns.
// Middleware can inspect the request, short-circuit processing,
// or wrap the response.
//
// Example:
//
//	func Audit(next gatehouse.HandlerFunc) gatehouse.HandlerFunc {
//	    return func(c gatehouse.Context) error {
//	        c.LogInfo("request", "path", c.Request().URL.Path)
//	        return next(c)
//	    }
//	}
type Middleware func(next HandlerFunc) HandlerFunc

// ErrorHandler handles errors returned from handlers.
type ErrorHandler func(Context, error) error

// TargetFunc is a dispatch target.
//
// args depends on how many parameters the matched route bound: none for zero,
// the bare string for one, and route.Params for more.
type TargetFunc func(c Context, args ...any) error
