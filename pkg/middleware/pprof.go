package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"net/netip"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/uaidecants/storefront/pkg/errors"
	"github.com/uaidecants/storefront/pkg/httputil"
)

// RegisterPprof mounts the profiling endpoints under /debug/pprof, reachable
// only from allowedCIDRs. An empty list leaves them unreachable.
func RegisterPprof(r chi.Router, allowedCIDRs []string, l *slog.Logger) {
	r.Route("/debug/pprof", func(r chi.Router) {
		r.Use(IPAllowlist(allowedCIDRs, l))
		r.Get("/cmdline", pprof.Cmdline)
		r.Get("/profile", pprof.Profile)
		r.Get("/symbol", pprof.Symbol)
		r.Post("/symbol", pprof.Symbol)
		r.Get("/trace", pprof.Trace)
		r.Get("/*", pprof.Index)
	})
}

// IPAllowlist answers 403 unless the peer address (RemoteAddr, never a
// forwarded header) falls inside one of cidrs. Unparseable entries are
// logged once and skipped.
func IPAllowlist(cidrs []string, l *slog.Logger) func(http.Handler) http.Handler {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, cidr := range cidrs {
		p, err := netip.ParsePrefix(cidr)
		if err != nil {
			l.Warn("skipping invalid allowlist cidr", slog.String("cidr", cidr), slog.String("error", err.Error()))
			continue
		}
		prefixes = append(prefixes, p.Masked())
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !peerAllowed(r.RemoteAddr, prefixes) {
				l.WarnContext(r.Context(), "ip allowlist denied request",
					slog.String("peer", r.RemoteAddr),
					slog.String("path", r.URL.Path),
				)
				httputil.WriteError(w, r, apperrors.Forbidden("access restricted by IP allowlist"), l)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func peerAllowed(remoteAddr string, prefixes []netip.Prefix) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
