// Package metrics exposes Prometheus counters for the authentication gate and
// the route dispatcher.
//
// Counters are fed by hook subscriptions, so nothing in the request path
// depends on this package:
//
//	reg := prometheus.NewRegistry()
//	m := metrics.New(reg)
//	m.Subscribe(app.Hooks())
//
//	gatehouse.WithMetrics("/metrics", metrics.Handler(reg))
//	gatehouse.WithHTTPMiddleware(m.Middleware())
package metrics
