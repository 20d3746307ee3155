package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// Initializer Metrics
	InitRunsTotal         *prometheus.CounterVec
	InitRunDuration       prometheus.Histogram
	InitNodesVisited      prometheus.Counter
	InitEstimateDuration  *prometheus.HistogramVec
	InitPropagationsTotal prometheus.Counter
	InitOrderRecomputes   prometheus.Counter
	InitStagesApplied     *prometheus.CounterVec

	// Solver Metrics
	SolverSolvesTotal   *prometheus.CounterVec
	SolverIterations    prometheus.Histogram
	SolverResidualNorm  prometheus.Gauge
	SolverSolveDuration prometheus.Histogram
	SolverJacobianEvals prometheus.Counter

	// Plant Metrics
	PlantTearArcs         prometheus.Gauge
	PlantActiveArcs       prometheus.Gauge
	PlantNodesTotal       prometheus.Gauge
	PlantH2ProductionRate prometheus.Gauge
	PlantNetPowerWatts    prometheus.Gauge

	// Snapshot Metrics
	SnapshotWritesTotal   *prometheus.CounterVec
	SnapshotWriteDuration prometheus.Histogram
	SnapshotSizeBytes     prometheus.Histogram
	SnapshotArchivesTotal *prometheus.CounterVec

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge
	MemorySysBytes   prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	// Initialize all metrics
	r.initInitializerMetrics()
	r.initSolverMetrics()
	r.initPlantMetrics()
	r.initSnapshotMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
