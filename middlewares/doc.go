// Package middlewares provides middleware for gatehouse applications.
//
// # Request ID
//
// RequestID is net/http middleware, so health and metrics endpoints get an ID
// too. It keeps an upstream ID from X-Request-ID or X-Correlation-ID and
// generates a UUID otherwise. Combine it with logger.RequestIDExtractor to
// add "request_id" to every log entry:
//
//	app, err := gatehouse.New(
//	    gatehouse.WithLogger(logger.WithExtractors(logger.RequestIDExtractor())),
//	    gatehouse.WithHTTPMiddleware(middlewares.RequestID()),
//	)
//
// # Recover
//
// Recover catches panics in targets, controller factories and inner
// middleware and returns a PanicError to the ErrorHandler:
//
//	gatehouse.WithMiddleware(middlewares.Recover())
//
// # IP access
//
// IPAccess rejects clients by address with 403. Deny rules win over allow
// rules; an empty allow list admits everyone not denied:
//
//	allow, deny, err := cfg.Auth.IPRules()
//	gatehouse.WithHTTPMiddleware(
//	    middleware.RealIP,
//	    middlewares.IPAccess(allow, deny),
//	)
//
// # Order
//
//	gatehouse.WithHTTPMiddleware(
//	    middlewares.RequestID(),          // first: every log line carries the ID
//	    middlewares.IPAccess(allow, deny), // then reject before any work is done
//	),
//	gatehouse.WithMiddleware(
//	    middlewares.Recover(),
//	),
package middlewares
