package provider

import (
	"log/slog"
	"time"

	"github.com/uaidecants/storefront/internal/config"
	"github.com/uaidecants/storefront/pkg/httpclient"
)

// Build returns one provider per configured token, each behind its own
// circuit breaker. A provider without a token is left out.
func Build(cfg config.ProvidersConfig, logger *slog.Logger) []RateProvider {
	base := httpclient.New(httpclient.Config{
		Timeout:         cfg.ProviderTimeout(),
		MaxRetries:      1,
		RetryWaitMin:    200 * time.Millisecond,
		RetryWaitMax:    time.Second,
		MaxConnsPerHost: 20,
	})

	breaker := func(name string) *httpclient.CircuitBreakerClient {
		return httpclient.NewCircuitBreakerClient(base, httpclient.CircuitBreakerConfig{
			Name:         "shipping-" + name,
			MaxRequests:  cfg.BreakerMaxRequests,
			Interval:     cfg.BreakerInterval,
			Timeout:      cfg.BreakerTimeout,
			FailureRatio: cfg.BreakerFailureRatio,
			MinRequests:  cfg.BreakerMinimumRequests,
		}, logger)
	}

	var providers []RateProvider
	if cfg.SuperFreteToken != "" {
		providers = append(providers, NewHTTPProvider(Strategies[SuperFrete], cfg.SuperFreteBaseURL, cfg.SuperFreteToken, breaker(SuperFrete)))
	}
	if baseURL, token := cfg.MelhorEnvioCredentials(); token != "" {
		providers = append(providers, NewHTTPProvider(Strategies[MelhorEnvio], baseURL, token, breaker(MelhorEnvio)))
	}

	for _, p := range providers {
		logger.Info("shipping provider enabled", slog.String("provider", p.Name()))
	}
	return providers
}
