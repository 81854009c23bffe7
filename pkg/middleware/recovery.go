package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/uaidecants/storefront/pkg/errors"
	"github.com/uaidecants/storefront/pkg/httputil"
)

var recoveredPanics = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "storefront",
	Subsystem: "http",
	Name:      "panics_recovered_total",
	Help:      "Handler panics converted to 500 responses, by route.",
}, []string{"route"})

// Recovery converts a handler panic into a 500 envelope. The stack goes to
// the log only. http.ErrAbortHandler is re-raised so net/http can drop the
// connection as it expects. If the handler had already started writing, no
// second status is sent.
func Recovery(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sr := newStatusRecorder(w)
			defer func() {
				rec := recover()
				switch {
				case rec == nil:
					return
				case rec == http.ErrAbortHandler:
					panic(rec)
				}

				route := routePattern(r, unmatchedRoute)
				recoveredPanics.WithLabelValues(route).Inc()
				l.ErrorContext(r.Context(), "panic recovered",
					slog.Any("panic", rec),
					slog.String("route", route),
					slog.String("stack", string(debug.Stack())),
				)

				if sr.wrote {
					return
				}
				httputil.WriteError(sr, r, apperrors.Internal(fmt.Errorf("panic: %v", rec)), l)
			}()

			next.ServeHTTP(sr, r)
		})
	}
}
