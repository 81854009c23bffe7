package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, IdentityJWT, cfg.IdentityProvider)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 4, cfg.MaxAddressesPerCustomer)
	assert.Equal(t, "01001000", cfg.Shipping.OriginPostalCode)
	assert.Equal(t, 6.0, cfg.Shipping.PackageHeightCM)
	assert.True(t, cfg.Shipping.PickupEnabled)
	assert.Equal(t, 8*time.Second, cfg.Providers.ProviderTimeout())
	assert.Equal(t, 30*24*time.Hour, cfg.CartTTL())
	assert.Equal(t, 5*time.Minute, cfg.QuoteCacheTTL())
	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, "checkout-support", cfg.Tracing.ServiceName)
}

func TestLoad_NormalizesAdminEmailsAndBackend(t *testing.T) {
	setEnvs(t, map[string]string{
		"STORE_BACKEND": " Postgres ",
		"ADMIN_EMAILS":  "Owner@Shop.com, ,ops@shop.com",
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, []string{"owner@shop.com", "ops@shop.com"}, cfg.AdminEmails)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		envs map[string]string
		want string
	}{
		{"bad port", map[string]string{"HTTP_PORT": "70000"}, "invalid HTTP port"},
		{"unknown backend", map[string]string{"STORE_BACKEND": "mongo"}, "unknown STORE_BACKEND"},
		{"firestore without project", map[string]string{"STORE_BACKEND": "firestore"}, "FIRESTORE_PROJECT_ID"},
		{"firebase identity without project", map[string]string{"IDENTITY_PROVIDER": "firebase"}, "FIRESTORE_PROJECT_ID"},
		{"unknown identity", map[string]string{"IDENTITY_PROVIDER": "saml"}, "unknown IDENTITY_PROVIDER"},
		{"production default secret", map[string]string{"ENVIRONMENT": "production"}, "JWT_SECRET must be explicitly set"},
		{"production short secret", map[string]string{"ENVIRONMENT": "production", "JWT_SECRET": "short"}, "at least 32 characters"},
		{"zero max addresses", map[string]string{"MAX_ADDRESSES_PER_CUSTOMER": "0"}, "MAX_ADDRESSES_PER_CUSTOMER"},
		{"short origin", map[string]string{"ORIGIN_POSTAL_CODE": "123"}, "ORIGIN_POSTAL_CODE"},
		{"negative package", map[string]string{"PACKAGE_WIDTH_CM": "-1"}, "package dimensions"},
		{"zero provider timeout", map[string]string{"PROVIDER_TIMEOUT_SECONDS": "0"}, "PROVIDER_TIMEOUT_SECONDS"},
		{"negative cache ttl", map[string]string{"QUOTE_CACHE_TTL_SECONDS": "-5"}, "QUOTE_CACHE_TTL_SECONDS"},
		{"not a number", map[string]string{"HTTP_PORT": "eighty"}, "load checkout-support config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnvs(t, tt.envs)
			cfg, err := Load()
			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_FirestoreBackend(t *testing.T) {
	setEnvs(t, map[string]string{
		"STORE_BACKEND":        "firestore",
		"IDENTITY_PROVIDER":    "firebase",
		"FIRESTORE_PROJECT_ID": "uai-decants",
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "uai-decants", cfg.Firebase.ProjectID)
}

func TestMelhorEnvioCredentials(t *testing.T) {
	p := ProvidersConfig{
		MelhorEnvioToken:        "prod-token",
		MelhorEnvioSandboxToken: "sandbox-token",
		MelhorEnvioBaseURL:      "https://www.melhorenvio.com.br",
		MelhorEnvioSandboxURL:   "https://sandbox.melhorenvio.com.br",
	}

	base, token := p.MelhorEnvioCredentials()
	assert.Equal(t, "https://www.melhorenvio.com.br", base)
	assert.Equal(t, "prod-token", token)

	p.MelhorEnvioSandbox = true
	base, token = p.MelhorEnvioCredentials()
	assert.Equal(t, "https://sandbox.melhorenvio.com.br", base)
	assert.Equal(t, "sandbox-token", token)
}
