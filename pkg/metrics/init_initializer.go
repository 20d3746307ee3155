package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initInitializerMetrics() {
	r.InitRunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowsim_init_runs_total",
			Help: "Total number of sequential initialization runs",
		},
		[]string{"status"}, // converged, failed
	)

	r.InitRunDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flowsim_init_run_duration_seconds",
			Help:    "Duration of full initialization passes in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1.0, 5.0, 30.0},
		},
	)

	r.InitNodesVisited = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "flowsim_init_nodes_visited_total",
			Help: "Total number of node-local estimates performed",
		},
	)

	r.InitEstimateDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flowsim_init_estimate_duration_seconds",
			Help:    "Duration of node-local estimates in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"node"},
	)

	r.InitPropagationsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "flowsim_init_propagations_total",
			Help: "Total number of arc state propagations",
		},
	)

	r.InitOrderRecomputes = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "flowsim_init_order_recomputes_total",
			Help: "Total number of initialization order computations",
		},
	)

	r.InitStagesApplied = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowsim_init_stages_applied_total",
			Help: "Total number of initialization stages applied",
		},
		[]string{"stage", "status"},
	)
}
