package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"google.golang.org/api/iterator"

	"github.com/uaidecants/storefront/internal/config"
	"github.com/uaidecants/storefront/internal/domain"
	"github.com/uaidecants/storefront/internal/event"
	handler "github.com/uaidecants/storefront/internal/handler/http"
	"github.com/uaidecants/storefront/internal/identity"
	"github.com/uaidecants/storefront/internal/provider"
	"github.com/uaidecants/storefront/internal/repository"
	fsrepo "github.com/uaidecants/storefront/internal/repository/firestore"
	"github.com/uaidecants/storefront/internal/repository/memory"
	"github.com/uaidecants/storefront/internal/repository/postgres"
	redisrepo "github.com/uaidecants/storefront/internal/repository/redis"
	"github.com/uaidecants/storefront/internal/service"
	"github.com/uaidecants/storefront/migrations"
	"github.com/uaidecants/storefront/pkg/database"
	"github.com/uaidecants/storefront/pkg/health"
	pkgkafka "github.com/uaidecants/storefront/pkg/kafka"
	"github.com/uaidecants/storefront/pkg/middleware"
	"github.com/uaidecants/storefront/pkg/tracing"
)

// App wires together all dependencies and runs the checkout support service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	firestore      *firestore.Client
	redis          *goredis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
	stopBackground context.CancelFunc
}

// stores is the repository set chosen by STORE_BACKEND.
type stores struct {
	addresses repository.AddressRepository
	coupons   repository.CouponRepository
}

// NewApp creates a new application instance, initializing all dependencies.
// Anything opened before a failure is closed again.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.closeResources()
		}
	}()

	// Initialize OpenTelemetry tracing.
	a.tracerShutdown, err = tracing.InitTracer(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	healthHandler := health.NewHandler()

	var fbApp *firebase.App
	if cfg.StoreBackend == config.BackendFirestore || cfg.IdentityProvider == config.IdentityFirebase {
		fbApp, err = database.NewFirebaseApp(ctx, cfg.Firebase)
		if err != nil {
			return nil, err
		}
	}

	st, err := a.openStores(ctx, fbApp, healthHandler)
	if err != nil {
		return nil, err
	}

	// Carts and the quote cache live in Redis when it is enabled.
	var (
		carts      repository.CartRepository = memory.NewCartRepository()
		quoteCache repository.QuoteCache
	)
	if cfg.RedisEnabled {
		a.redis, err = database.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis", slog.String("addr", cfg.Redis.Addr()))

		carts = redisrepo.NewCartRepository(a.redis, cfg.CartTTL())
		if ttl := cfg.QuoteCacheTTL(); ttl > 0 {
			quoteCache = redisrepo.NewQuoteCache(a.redis, ttl)
		}
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})
	}

	// Domain events go to Kafka when it is enabled and are dropped otherwise.
	var publisher event.Publisher
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = a.producer
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return a.producer.Ping(ctx)
		})
	}
	eventProducer := event.NewProducer(publisher, logger)

	verifier, err := newVerifier(ctx, cfg, fbApp)
	if err != nil {
		return nil, err
	}
	logger.Info("identity provider configured",
		slog.String("provider", cfg.IdentityProvider),
		slog.Int("admins", len(cfg.AdminEmails)),
	)

	providers := provider.Build(cfg.Providers, logger)
	if len(providers) == 0 {
		logger.Warn("no shipping provider configured, only pickup will be quoted")
	}

	svcs := handler.Services{
		Addresses: service.NewAddressService(st.addresses, eventProducer, cfg.MaxAddressesPerCustomer, logger),
		Coupons:   service.NewCouponService(st.coupons, verifier, eventProducer, logger),
		Shipping: service.NewShippingService(providers, quoteCache, service.ShippingOptions{
			OriginPostalCode: cfg.Shipping.OriginPostalCode,
			Dimensions: domain.Dimensions{
				Height: cfg.Shipping.PackageHeightCM,
				Width:  cfg.Shipping.PackageWidthCM,
				Length: cfg.Shipping.PackageLengthCM,
			},
			PickupEnabled:   cfg.Shipping.PickupEnabled,
			PickupCity:      cfg.Shipping.PickupCity,
			ProviderTimeout: cfg.Providers.ProviderTimeout(),
		}, logger),
		Carts: service.NewCartService(carts, logger),
	}

	bgCtx, stop := context.WithCancel(context.Background())
	a.stopBackground = stop

	router := handler.NewRouter(bgCtx, svcs, identity.TokenValidator(verifier), healthHandler, handler.RouterConfig{
		CORS: middleware.CORSConfig{AllowedOrigins: cfg.CORSAllowedOrigins},
		CouponRateLimit: middleware.RateLimitConfig{
			RPS:   cfg.CouponRateLimitRPS,
			Burst: cfg.CouponRateLimitBurst,
		},
		PprofAllowedCIDRs: cfg.PprofAllowedCIDRs,
		RequestTimeout:    cfg.Providers.ProviderTimeout() + 5*time.Second,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.Providers.ProviderTimeout() + 10*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// openStores connects the address and coupon repositories for the configured
// backend and registers the matching readiness check.
func (a *App) openStores(ctx context.Context, fbApp *firebase.App, h *health.Handler) (stores, error) {
	cfg, logger := a.cfg, a.logger

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Postgres, logger)
		if err != nil {
			return stores{}, fmt.Errorf("connect to postgres: %w", err)
		}
		a.pool = pool
		logger.Info("connected to PostgreSQL",
			slog.String("host", cfg.Postgres.Host),
			slog.Int("port", cfg.Postgres.Port),
			slog.String("database", cfg.Postgres.DBName),
		)
		if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, handler.ServiceName); err != nil {
			logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
		}

		if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
			return stores{}, fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations completed")

		if cfg.SlowQueryMs > 0 {
			database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryMs)*time.Millisecond, logger)
		}

		h.RegisterCritical("postgres", func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
		return stores{
			addresses: postgres.NewAddressRepository(pool),
			coupons:   postgres.NewCouponRepository(pool),
		}, nil

	case config.BackendFirestore:
		client, err := database.NewFirestoreClient(ctx, fbApp)
		if err != nil {
			return stores{}, err
		}
		a.firestore = client
		logger.Info("connected to Firestore", slog.String("project", cfg.Firebase.ProjectID))

		h.RegisterCritical("firestore", func(ctx context.Context) error {
			_, err := client.Collection("coupons").Limit(1).Documents(ctx).Next()
			if errors.Is(err, iterator.Done) {
				return nil
			}
			return err
		})
		return stores{
			addresses: fsrepo.NewAddressRepository(client),
			coupons:   fsrepo.NewCouponRepository(client),
		}, nil

	default:
		logger.Warn("using in-memory store, data is lost on restart")
		return stores{
			addresses: memory.NewAddressRepository(),
			coupons:   memory.NewCouponRepository(),
		}, nil
	}
}

func newVerifier(ctx context.Context, cfg *config.Config, fbApp *firebase.App) (identity.Verifier, error) {
	admins := identity.NewAdmins(cfg.AdminEmails)
	if cfg.IdentityProvider == config.IdentityFirebase {
		v, err := identity.NewFirebaseVerifier(ctx, fbApp, admins)
		if err != nil {
			return nil, fmt.Errorf("firebase auth: %w", err)
		}
		return v, nil
	}
	return identity.NewJWTVerifier(cfg.JWTSecret, admins), nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("store", a.cfg.StoreBackend),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.closeResources()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: in-flight HTTP
// requests drain first, then pending spans are flushed, then the Kafka
// producer, Redis and the primary store are closed.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	errs = append(errs, a.closeResources())

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeResources releases everything NewApp may have opened. Nil fields
// are skipped, so it is safe on a partially built App.
func (a *App) closeResources() error {
	var errs []error

	if a.stopBackground != nil {
		a.stopBackground()
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.firestore != nil {
		if err := a.firestore.Close(); err != nil {
			a.logger.Error("firestore close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.pool != nil {
		a.pool.Close()
	}

	return errors.Join(errs...)
}
