package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/uaidecants/storefront/internal/service"
	"github.com/uaidecants/storefront/pkg/health"
	"github.com/uaidecants/storefront/pkg/middleware"
)

// ServiceName labels metrics and spans emitted by the router.
const ServiceName = "checkout-support"

// Services groups the application services the router exposes.
type Services struct {
	Addresses *service.AddressService
	Coupons   *service.CouponService
	Shipping  *service.ShippingService
	Carts     *service.CartService
}

// RouterConfig carries the transport settings.
type RouterConfig struct {
	CORS              middleware.CORSConfig
	CouponRateLimit   middleware.RateLimitConfig
	PprofAllowedCIDRs []string
	RequestTimeout    time.Duration
}

// NewRouter creates a chi router with all checkout support routes
// registered. ctx bounds background work such as rate limiter cleanup.
func NewRouter(
	ctx context.Context,
	svcs Services,
	tokens middleware.TokenValidator,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(ServiceName))
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)

	addressHandler := NewAddressHandler(svcs.Addresses, logger)
	couponHandler := NewCouponHandler(svcs.Coupons, logger)
	shippingHandler := NewShippingHandler(svcs.Shipping, logger)
	cartHandler := NewCartHandler(svcs.Carts, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.NoStore())

		// Public endpoints
		r.With(middleware.RateLimit(ctx, cfg.CouponRateLimit, logger)).
			Post("/coupons/validate", couponHandler.Validate)
		r.Post("/shipping/quote", shippingHandler.Quote)

		// Customer endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokens))

			r.Get("/me/addresses", addressHandler.List)
			r.Post("/me/addresses", addressHandler.Create)
			r.Put("/me/addresses/{id}", addressHandler.Update)
			r.Delete("/me/addresses/{id}", addressHandler.Delete)

			r.Get("/me/cart", cartHandler.Get)
			r.Put("/me/cart", cartHandler.Replace)
		})

		// Admin endpoints
		r.Route("/admin/coupons", func(r chi.Router) {
			r.Use(middleware.Auth(tokens))
			r.Use(middleware.RequireRole(middleware.RoleAdmin))

			r.Get("/", couponHandler.List)
			r.Post("/", couponHandler.Create)
			r.Put("/{id}", couponHandler.Update)
			r.Delete("/{id}", couponHandler.Delete)
		})
	})

	return r
}
