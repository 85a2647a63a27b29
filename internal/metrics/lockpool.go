package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// RegisterLockPoolMetrics exposes the lock database connection pool as
// Prometheus gauges. The pool normally holds a single pinned connection while
// a deploy run owns the lock.
func RegisterLockPoolMetrics(pool *pgxpool.Pool) {
	prometheus.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "rolling_deploy_lock_db_acquired_conns",
			Help: "Connections currently pinned by the deploy lock.",
		}, func() float64 {
			return float64(pool.Stat().AcquiredConns())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "rolling_deploy_lock_db_total_conns",
			Help: "Total connections open to the lock database.",
		}, func() float64 {
			return float64(pool.Stat().TotalConns())
		}),
	)
}
