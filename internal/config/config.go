package config

import (
	"fmt"
	"strings"
	"time"

	pkgconfig "github.com/uaidecants/storefront/pkg/config"
	"github.com/uaidecants/storefront/pkg/database"
	"github.com/uaidecants/storefront/pkg/tracing"
)

// Store backends.
const (
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
	BackendMemory    = "memory"
)

// Identity providers.
const (
	IdentityFirebase = "firebase"
	IdentityJWT      = "jwt"
)

const defaultJWTSecret = "change-this-to-a-secure-secret"

// Config holds all configuration for the checkout support service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`

	StoreBackend string `env:"STORE_BACKEND" envDefault:"memory"`
	Firebase     database.FirebaseConfig
	Postgres     database.PostgresConfig
	SlowQueryMs  int `env:"DB_SLOW_QUERY_THRESHOLD_MS" envDefault:"200"`

	RedisEnabled      bool `env:"REDIS_ENABLED" envDefault:"false"`
	Redis             database.RedisConfig
	CartTTLHours      int `env:"CART_TTL_HOURS" envDefault:"720"`
	QuoteCacheSeconds int `env:"QUOTE_CACHE_TTL_SECONDS" envDefault:"300"`

	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	IdentityProvider string   `env:"IDENTITY_PROVIDER" envDefault:"jwt"`
	JWTSecret        string   `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	AdminEmails      []string `env:"ADMIN_EMAILS" envSeparator:","`

	Shipping  ShippingConfig
	Providers ProvidersConfig

	MaxAddressesPerCustomer int `env:"MAX_ADDRESSES_PER_CUSTOMER" envDefault:"4"`

	CouponRateLimitRPS   float64 `env:"COUPON_RATE_LIMIT_RPS" envDefault:"2"`
	CouponRateLimitBurst int     `env:"COUPON_RATE_LIMIT_BURST" envDefault:"10"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	PprofAllowedCIDRs  []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.1/32,::1/128" envSeparator:","`

	Tracing tracing.Config
}

// ShippingConfig describes the seller's package and pickup option.
type ShippingConfig struct {
	OriginPostalCode string  `env:"ORIGIN_POSTAL_CODE" envDefault:"01001000"`
	PackageHeightCM  float64 `env:"PACKAGE_HEIGHT_CM" envDefault:"6"`
	PackageWidthCM   float64 `env:"PACKAGE_WIDTH_CM" envDefault:"11"`
	PackageLengthCM  float64 `env:"PACKAGE_LENGTH_CM" envDefault:"16"`
	PickupEnabled    bool    `env:"PICKUP_ENABLED" envDefault:"true"`
	PickupCity       string  `env:"PICKUP_CITY" envDefault:"Paracatu - MG"`
}

// ProvidersConfig carries credentials and endpoints for the rate providers.
// A provider with an empty token is disabled.
type ProvidersConfig struct {
	TimeoutSeconds int `env:"PROVIDER_TIMEOUT_SECONDS" envDefault:"8"`

	SuperFreteToken   string `env:"SUPERFRETE_TOKEN"`
	SuperFreteBaseURL string `env:"SUPERFRETE_BASE_URL" envDefault:"https://api.superfrete.com"`

	MelhorEnvioToken        string `env:"MELHORENVIO_TOKEN"`
	MelhorEnvioSandboxToken string `env:"MELHORENVIO_TOKEN_SANDBOX"`
	MelhorEnvioSandbox      bool   `env:"MELHORENVIO_SANDBOX" envDefault:"false"`
	MelhorEnvioBaseURL      string `env:"MELHORENVIO_BASE_URL" envDefault:"https://www.melhorenvio.com.br"`
	MelhorEnvioSandboxURL   string `env:"MELHORENVIO_SANDBOX_URL" envDefault:"https://sandbox.melhorenvio.com.br"`

	BreakerMaxRequests     uint32        `env:"CB_MAX_REQUESTS" envDefault:"3"`
	BreakerInterval        time.Duration `env:"CB_INTERVAL" envDefault:"60s"`
	BreakerTimeout         time.Duration `env:"CB_TIMEOUT" envDefault:"30s"`
	BreakerFailureRatio    float64       `env:"CB_FAILURE_RATIO" envDefault:"0.6"`
	BreakerMinimumRequests uint32        `env:"CB_MIN_REQUESTS" envDefault:"5"`
}

// ProviderTimeout is the per-provider call budget.
func (p ProvidersConfig) ProviderTimeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// MelhorEnvioCredentials returns the base URL and token for the active
// Melhor Envio environment.
func (p ProvidersConfig) MelhorEnvioCredentials() (baseURL, token string) {
	if p.MelhorEnvioSandbox {
		return p.MelhorEnvioSandboxURL, p.MelhorEnvioSandboxToken
	}
	return p.MelhorEnvioBaseURL, p.MelhorEnvioToken
}

// CartTTL is how long an idle cart is kept.
func (c *Config) CartTTL() time.Duration {
	return time.Duration(c.CartTTLHours) * time.Hour
}

// QuoteCacheTTL is how long a provider's quotes are reused. Zero disables
// the cache.
func (c *Config) QuoteCacheTTL() time.Duration {
	return time.Duration(c.QuoteCacheSeconds) * time.Second
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load checkout-support config: %w", err)
	}
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))
	c.IdentityProvider = strings.ToLower(strings.TrimSpace(c.IdentityProvider))

	emails := c.AdminEmails[:0]
	for _, e := range c.AdminEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			emails = append(emails, e)
		}
	}
	c.AdminEmails = emails
}

func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	switch c.StoreBackend {
	case BackendMemory, BackendPostgres:
	case BackendFirestore:
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("FIRESTORE_PROJECT_ID is required when STORE_BACKEND=firestore")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.IdentityProvider {
	case IdentityJWT:
		if c.Environment != "development" {
			if c.JWTSecret == defaultJWTSecret {
				return fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", c.Environment)
			}
			if len(c.JWTSecret) < 32 {
				return fmt.Errorf("JWT_SECRET must be at least 32 characters long, got %d", len(c.JWTSecret))
			}
		}
	case IdentityFirebase:
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("FIRESTORE_PROJECT_ID is required when IDENTITY_PROVIDER=firebase")
		}
	default:
		return fmt.Errorf("unknown IDENTITY_PROVIDER %q", c.IdentityProvider)
	}

	if c.MaxAddressesPerCustomer < 1 {
		return fmt.Errorf("MAX_ADDRESSES_PER_CUSTOMER must be positive, got %d", c.MaxAddressesPerCustomer)
	}
	if len(digitsOnly(c.Shipping.OriginPostalCode)) != 8 {
		return fmt.Errorf("ORIGIN_POSTAL_CODE must have 8 digits, got %q", c.Shipping.OriginPostalCode)
	}
	if c.Shipping.PackageHeightCM <= 0 || c.Shipping.PackageWidthCM <= 0 || c.Shipping.PackageLengthCM <= 0 {
		return fmt.Errorf("package dimensions must be positive")
	}
	if c.Providers.TimeoutSeconds < 1 {
		return fmt.Errorf("PROVIDER_TIMEOUT_SECONDS must be at least 1, got %d", c.Providers.TimeoutSeconds)
	}
	if c.CartTTLHours < 1 {
		return fmt.Errorf("CART_TTL_HOURS must be at least 1, got %d", c.CartTTLHours)
	}
	if c.QuoteCacheSeconds < 0 {
		return fmt.Errorf("QUOTE_CACHE_TTL_SECONDS must not be negative")
	}
	if c.CouponRateLimitRPS <= 0 || c.CouponRateLimitBurst < 1 {
		return fmt.Errorf("coupon rate limit must be positive")
	}
	return nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
