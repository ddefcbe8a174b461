package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/gatehouse/internal"
	"github.com/dmitrymomot/gatehouse/pkg/auth"
	"github.com/dmitrymomot/gatehouse/pkg/hook"
)

// Namespace prefixes every metric name.
const Namespace = "gatehouse"

// Dispatch outcomes.
const (
	OutcomeMatched  = "matched"
	OutcomeDenied   = "denied"
	OutcomeNotFound = "not_found"
)

// Metrics holds the collectors.
type Metrics struct {
	AuthAttempts  *prometheus.CounterVec
	Logouts       prometheus.Counter
	Dispatches    *prometheus.CounterVec
	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
// It panics if a collector is already registered, like prometheus.MustRegister.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "auth_attempts_total",
				Help:      "Authentication attempts by outcome and reason.",
			},
			[]string{"outcome", "reason"},
		),
		Logouts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "auth_logouts_total",
				Help:      "Sessions ended by logout.",
			},
		),
		Dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "dispatch_total",
				Help:      "Dispatcher decisions by outcome and target category.",
			},
			[]string{"outcome", "category"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method and status code.",
			},
			[]string{"method", "code"},
		),
		HTTPDurations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}

	reg.MustRegister(m.AuthAttempts, m.Logouts, m.Dispatches, m.HTTPRequests, m.HTTPDurations)
	return m
}

// Subscribe registers hook callbacks that feed the counters.
// Pass the application registry: requests work on clones of it, so
// subscriptions must be in place before the server starts.
func (m *Metrics) Subscribe(reg *hook.Registry) []hook.Handle {
	return []hook.Handle{
		reg.AddAction(auth.HookSucceeded, func(_ context.Context, args ...any) {
			if a, ok := attempt(args); ok {
				m.AuthAttempts.WithLabelValues("succeeded", a.State().String()).Inc()
			}
		}),
		reg.AddAction(auth.HookFailed, func(_ context.Context, args ...any) {
			if a, ok := attempt(args); ok {
				m.AuthAttempts.WithLabelValues("failed", reasonLabel(a.Reason())).Inc()
			}
		}),
		reg.AddAction(auth.HookLogout, func(context.Context, ...any) {
			m.Logouts.Inc()
		}),
		reg.AddAction(internal.HookMatched, func(_ context.Context, args ...any) {
			if d, ok := dispatch(args); ok {
				m.Dispatches.WithLabelValues(OutcomeMatched, d.Target.Category.String()).Inc()
			}
		}),
		reg.AddAction(internal.HookDenied, func(_ context.Context, args ...any) {
			if d, ok := dispatch(args); ok {
				m.Dispatches.WithLabelValues(OutcomeDenied, d.Target.Category.String()).Inc()
			}
		}),
		reg.AddAction(internal.HookNotFound, func(context.Context, ...any) {
			m.Dispatches.WithLabelValues(OutcomeNotFound, "").Inc()
		}),
	}
}

// Middleware instruments every request with the HTTP counters.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return promhttp.InstrumentHandlerCounter(m.HTTPRequests,
			promhttp.InstrumentHandlerDuration(m.HTTPDurations, next))
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func attempt(args []any) (*auth.Attempt, bool) {
	if len(args) == 0 {
		return nil, false
	}
	a, ok := args[0].(*auth.Attempt)
	return a, ok && a != nil
}

func dispatch(args []any) (*internal.Dispatch, bool) {
	if len(args) == 0 {
		return nil, false
	}
	d, ok := args[0].(*internal.Dispatch)
	return d, ok && d != nil
}

// reasonLabel keeps label cardinality bounded.
func reasonLabel(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, auth.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, auth.ErrThrottled):
		return "throttled"
	case errors.Is(err, auth.ErrSessionNotRegistered):
		return "session_not_registered"
	case err == nil:
		return "none"
	default:
		return "other"
	}
}
