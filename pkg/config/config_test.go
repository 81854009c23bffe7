package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type providerConfig struct {
	OriginPostalCode string        `env:"TEST_ORIGIN_POSTAL_CODE" envDefault:"01001000"`
	Timeout          time.Duration `env:"TEST_PROVIDER_TIMEOUT" envDefault:"8s"`
	Sandbox          bool          `env:"TEST_SANDBOX" envDefault:"false"`
	Brokers          []string      `env:"TEST_BROKERS" envDefault:"localhost:9092" envSeparator:","`
}

type requiredConfig struct {
	Secret string `env:"TEST_REQUIRED_SECRET,required"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg providerConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, "01001000", cfg.OriginPostalCode)
	assert.Equal(t, 8*time.Second, cfg.Timeout)
	assert.False(t, cfg.Sandbox)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Brokers)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_ORIGIN_POSTAL_CODE", "38600000")
	t.Setenv("TEST_PROVIDER_TIMEOUT", "2s")
	t.Setenv("TEST_SANDBOX", "true")
	t.Setenv("TEST_BROKERS", "k1:9092,k2:9092")

	var cfg providerConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, "38600000", cfg.OriginPostalCode)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.True(t, cfg.Sandbox)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers)
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("TEST_PROVIDER_TIMEOUT", "soon")

	var cfg providerConfig
	err := Load(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_MissingRequired(t *testing.T) {
	var cfg requiredConfig
	require.Error(t, Load(&cfg))
}

func TestLoadFrom_ExplicitEnvironment(t *testing.T) {
	t.Setenv("TEST_SANDBOX", "false")

	var cfg providerConfig
	require.NoError(t, LoadFrom(&cfg, map[string]string{
		"TEST_SANDBOX": "true",
		"TEST_BROKERS": "a:1,b:2",
	}))

	assert.True(t, cfg.Sandbox, "explicit map wins over the process environment")
	assert.Equal(t, []string{"a:1", "b:2"}, cfg.Brokers)
	assert.Equal(t, "01001000", cfg.OriginPostalCode)
}
