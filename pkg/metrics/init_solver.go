package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSolverMetrics() {
	r.SolverSolvesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowsim_solver_solves_total",
			Help: "Total number of simultaneous solves",
		},
		[]string{"status"}, // converged, max_iterations, infeasible, numerical_error
	)

	r.SolverIterations = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flowsim_solver_iterations",
			Help:    "Newton iterations taken per solve",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200},
		},
	)

	r.SolverResidualNorm = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "flowsim_solver_residual_norm",
			Help: "Final scaled residual norm of the last solve",
		},
	)

	r.SolverSolveDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flowsim_solver_solve_duration_seconds",
			Help:    "Duration of simultaneous solves in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 1.0, 10.0, 60.0},
		},
	)

	r.SolverJacobianEvals = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "flowsim_solver_jacobian_evaluations_total",
			Help: "Total number of finite-difference Jacobian evaluations",
		},
	)
}
