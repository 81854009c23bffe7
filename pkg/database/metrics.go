package database

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

type poolMetric struct {
	desc      *prometheus.Desc
	valueType prometheus.ValueType
	value     func(*pgxpool.Stat) float64
}

// PoolStatsCollector exports pgxpool statistics.
type PoolStatsCollector struct {
	pool    *pgxpool.Pool
	service string
	metrics []poolMetric
}

func newPoolMetric(name, help string, vt prometheus.ValueType, value func(*pgxpool.Stat) float64) poolMetric {
	return poolMetric{
		desc:      prometheus.NewDesc(name, help, []string{"service"}, nil),
		valueType: vt,
		value:     value,
	}
}

// NewPoolStatsCollector builds a collector for pool. Describe works with a
// nil pool; Collect does not.
func NewPoolStatsCollector(pool *pgxpool.Pool, service string) *PoolStatsCollector {
	gauge, counter := prometheus.GaugeValue, prometheus.CounterValue
	return &PoolStatsCollector{
		pool:    pool,
		service: service,
		metrics: []poolMetric{
			newPoolMetric("db_pool_acquired_connections", "Number of currently acquired connections", gauge,
				func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) }),
			newPoolMetric("db_pool_idle_connections", "Number of currently idle connections", gauge,
				func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) }),
			newPoolMetric("db_pool_total_connections", "Total number of connections in the pool", gauge,
				func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) }),
			newPoolMetric("db_pool_max_connections", "Maximum number of connections allowed", gauge,
				func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) }),
			newPoolMetric("db_pool_acquire_count_total", "Total number of connection acquires", counter,
				func(s *pgxpool.Stat) float64 { return float64(s.AcquireCount()) }),
			newPoolMetric("db_pool_acquire_duration_seconds_total", "Total time spent acquiring connections", counter,
				func(s *pgxpool.Stat) float64 { return s.AcquireDuration().Seconds() }),
			newPoolMetric("db_pool_canceled_acquire_count_total", "Total number of canceled acquires", counter,
				func(s *pgxpool.Stat) float64 { return float64(s.CanceledAcquireCount()) }),
			newPoolMetric("db_pool_empty_acquire_count_total", "Acquires that had to wait for a connection", counter,
				func(s *pgxpool.Stat) float64 { return float64(s.EmptyAcquireCount()) }),
		},
	}
}

func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		ch <- m.desc
	}
}

func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	stat := c.pool.Stat()
	for _, m := range c.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, m.valueType, m.value(stat), c.service)
	}
}

// RegisterPoolMetrics registers a collector for pool on reg.
func RegisterPoolMetrics(reg prometheus.Registerer, pool *pgxpool.Pool, service string) error {
	return reg.Register(NewPoolStatsCollector(pool, service))
}
