package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gatehouse/internal"
	"github.com/dmitrymomot/gatehouse/middlewares"
)

func TestIPAccess(t *testing.T) {
	t.Parallel()

	prefixes := func(s ...string) []netip.Prefix {
		out := make([]netip.Prefix, 0, len(s))
		for _, v := range s {
			out = append(out, netip.MustParsePrefix(v))
		}
		return out
	}

	tests := []struct {
		name   string
		allow  []netip.Prefix
		deny   []netip.Prefix
		remote string
		want   int
	}{
		{"no rules", nil, nil, "203.0.113.5:1234", http.StatusOK},
		{"allowed", prefixes("10.0.0.0/8"), nil, "10.1.2.3:1234", http.StatusOK},
		{"not allowed", prefixes("10.0.0.0/8"), nil, "203.0.113.5:1234", http.StatusForbidden},
		{"denied", nil, prefixes("203.0.113.0/24"), "203.0.113.5:1234", http.StatusForbidden},
		{"deny wins over allow", prefixes("10.0.0.0/8"), prefixes("10.0.0.1/32"), "10.0.0.1:1234", http.StatusForbidden},
		{"ipv4-mapped ipv6", prefixes("10.0.0.0/8"), nil, "[::ffff:10.0.0.1]:1234", http.StatusOK},
		{"ipv6", prefixes("2001:db8::/32"), nil, "[2001:db8::1]:1234", http.StatusOK},
		{"bare address", prefixes("10.0.0.0/8"), nil, "10.0.0.1", http.StatusOK},
		{"garbage address", prefixes("10.0.0.0/8"), nil, "not-an-ip", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var reached bool
			app := newApp(t, func(c internal.Context, _ ...any) error {
				reached = true
				return c.NoContent(http.StatusOK)
			}, internal.WithHTTPMiddleware(middlewares.IPAccess(tt.allow, tt.deny)))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			rec := httptest.NewRecorder()
			app.ServeHTTP(rec, req)

			require.Equal(t, tt.want, rec.Code)
			require.Equal(t, tt.want == http.StatusOK, reached)
		})
	}
}

func TestIPAccess_CoversHealthEndpoints(t *testing.T) {
	t.Parallel()

	app := newApp(t, func(c internal.Context, _ ...any) error { return nil },
		internal.WithHTTPMiddleware(middlewares.IPAccess(nil, []netip.Prefix{netip.MustParsePrefix("192.0.2.0/24")})),
		internal.WithHealthChecks(),
	)

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusForbidden, rec.Code, "httptest requests come from 192.0.2.1")
}
