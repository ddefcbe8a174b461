package middlewares

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"

	"github.com/dmitrymomot/gatehouse/pkg/logger"
)

// IPAccessOption configures IPAccess.
type IPAccessOption func(*ipAccess)

type ipAccess struct {
	logger *slog.Logger
	allow  []netip.Prefix
	deny   []netip.Prefix
}

// WithIPAccessLogger logs rejected addresses at warn level.
func WithIPAccessLogger(l *slog.Logger) IPAccessOption {
	return func(a *ipAccess) {
		if l != nil {
			a.logger = l
		}
	}
}

// IPAccess returns net/http middleware that rejects clients by address.
// Deny rules win over allow rules. An empty allow list admits every address
// that is not denied. Rejected requests get 403.
//
// The address is taken from r.RemoteAddr; put chi's middleware.RealIP in
// front when running behind a trusted proxy.
func IPAccess(allow, deny []netip.Prefix, opts ...IPAccessOption) func(http.Handler) http.Handler {
	a := &ipAccess{allow: allow, deny: deny, logger: logger.NewNope()}
	for _, opt := range opts {
		opt(a)
	}

	return func(next http.Handler) http.Handler {
		if len(a.allow) == 0 && len(a.deny) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := a.check(r.RemoteAddr); err != nil {
				a.logger.WarnContext(r.Context(), "request rejected by ip rules",
					slog.String("remote_addr", r.RemoteAddr),
					slog.Any("error", err),
				)
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// check returns nil if remoteAddr may pass.
func (a *ipAccess) check(remoteAddr string) error {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return &AccessError{Reason: "unparsable address " + host}
	}
	addr = addr.Unmap()

	for _, p := range a.deny {
		if p.Contains(addr) {
			return &AccessError{Addr: addr, Reason: "denied by rule " + p.String()}
		}
	}
	if len(a.allow) == 0 {
		return nil
	}
	for _, p := range a.allow {
		if p.Contains(addr) {
			return nil
		}
	}
	return &AccessError{Addr: addr, Reason: "not in allow list"}
}
