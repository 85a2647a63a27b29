// Package metrics exposes Prometheus metrics for deploy runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LockWaitSeconds observes how long invocations waited for the deploy lock.
	LockWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rolling_deploy_lock_wait_seconds",
		Help:    "Time spent waiting to acquire the deploy lock.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	})

	// BatchesTotal counts processed batches by outcome.
	BatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rolling_deploy_batches_total",
		Help: "Deploy batches processed, by outcome.",
	}, []string{"outcome"})

	// DeploymentsTotal counts deployments by terminal status.
	DeploymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rolling_deploy_deployments_total",
		Help: "OpsWorks deployments issued, by terminal status.",
	}, []string{"status"})

	// LBDetachesTotal counts load balancers drained during detach operations.
	LBDetachesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rolling_deploy_lb_detaches_total",
		Help: "Load balancers instances were deregistered from.",
	})

	// LBAttachesTotal counts load balancers restored during attach operations.
	LBAttachesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rolling_deploy_lb_attaches_total",
		Help: "Load balancers instances were re-registered with.",
	})
)
