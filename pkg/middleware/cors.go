package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures CORS. A "*" entry in AllowedOrigins allows every
// origin, and credentials are then never advertised. Zero-valued fields take
// defaults suited to the storefront SPA.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	MaxAge           int
	AllowCredentials bool
}

type corsPolicy struct {
	anyOrigin   bool
	origins     map[string]bool
	credentials bool
	static      map[string]string
}

func newCORSPolicy(cfg CORSConfig) *corsPolicy {
	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	}
	headers := cfg.AllowedHeaders
	if len(headers) == 0 {
		headers = []string{"Accept", "Authorization", "Content-Type", CorrelationIDHeader}
	}
	exposed := cfg.ExposedHeaders
	if len(exposed) == 0 {
		exposed = []string{CorrelationIDHeader}
	}
	maxAge := cfg.MaxAge
	if maxAge == 0 {
		maxAge = 3600
	}

	p := &corsPolicy{
		origins:     make(map[string]bool, len(cfg.AllowedOrigins)),
		credentials: cfg.AllowCredentials,
		static: map[string]string{
			"Access-Control-Allow-Methods":  strings.Join(methods, ", "),
			"Access-Control-Allow-Headers":  strings.Join(headers, ", "),
			"Access-Control-Expose-Headers": strings.Join(exposed, ", "),
			"Access-Control-Max-Age":        strconv.Itoa(maxAge),
		},
	}
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			p.anyOrigin = true
			continue
		}
		p.origins[strings.TrimSuffix(o, "/")] = true
	}
	return p
}

// decorate sets the origin headers for r and the static policy headers.
func (p *corsPolicy) decorate(h http.Header, origin string) {
	if p.anyOrigin {
		h.Set("Access-Control-Allow-Origin", "*")
	} else if origin != "" {
		h.Add("Vary", "Origin")
		if p.origins[origin] {
			h.Set("Access-Control-Allow-Origin", origin)
			if p.credentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
		}
	}
	for k, v := range p.static {
		h.Set(k, v)
	}
}

func isPreflight(r *http.Request) bool {
	return r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
}

// CORS decorates responses and answers preflight requests itself with 204.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	policy := newCORSPolicy(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			policy.decorate(w.Header(), r.Header.Get("Origin"))
			if isPreflight(r) {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
