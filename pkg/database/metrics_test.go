package database

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolStatsCollector_Describe(t *testing.T) {
	c := NewPoolStatsCollector(nil, "checkout-support")

	ch := make(chan *prometheus.Desc, 16)
	c.Describe(ch)
	close(ch)

	n := 0
	for d := range ch {
		assert.Contains(t, d.String(), "db_pool_")
		n++
	}
	assert.Equal(t, len(c.metrics), n)
}

func TestRegisterPoolMetrics_CollectsFromLazyPool(t *testing.T) {
	cfg, err := pgxpool.ParseConfig("postgres://u:p@127.0.0.1:1/db?sslmode=disable")
	require.NoError(t, err)
	cfg.MinConns = 0
	cfg.MaxConns = 7

	pool, err := pgxpool.NewWithConfig(t.Context(), cfg)
	require.NoError(t, err)
	defer pool.Close()

	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterPoolMetrics(reg, pool, "checkout-support"))

	count, err := testutil.GatherAndCount(reg, "db_pool_max_connections")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.Error(t, RegisterPoolMetrics(reg, pool, "checkout-support"), "duplicate registration must fail")
}
