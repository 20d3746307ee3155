package metrics

import (
	"time"
)

// RecordInitRun records a full sequential initialization pass
func (r *Registry) RecordInitRun(status string, duration time.Duration) {
	r.InitRunsTotal.WithLabelValues(status).Inc()
	r.InitRunDuration.Observe(duration.Seconds())
}

// RecordNodeEstimate records one node-local estimate
func (r *Registry) RecordNodeEstimate(node string, duration time.Duration) {
	r.InitNodesVisited.Inc()
	r.InitEstimateDuration.WithLabelValues(node).Observe(duration.Seconds())
}

// RecordStage records the outcome of one initialization stage
func (r *Registry) RecordStage(stage, status string) {
	r.InitStagesApplied.WithLabelValues(stage, status).Inc()
}

// RecordSolve records a simultaneous solve with its outcome
func (r *Registry) RecordSolve(status string, iterations int, residualNorm float64, duration time.Duration) {
	r.SolverSolvesTotal.WithLabelValues(status).Inc()
	r.SolverIterations.Observe(float64(iterations))
	r.SolverResidualNorm.Set(residualNorm)
	r.SolverSolveDuration.Observe(duration.Seconds())
}

// RecordSnapshotWrite records a state snapshot write
func (r *Registry) RecordSnapshotWrite(status string, sizeBytes int, duration time.Duration) {
	r.SnapshotWritesTotal.WithLabelValues(status).Inc()
	if status == "ok" {
		r.SnapshotSizeBytes.Observe(float64(sizeBytes))
	}
	r.SnapshotWriteDuration.Observe(duration.Seconds())
}

// UpdatePlantTopology updates the flowsheet size gauges
func (r *Registry) UpdatePlantTopology(nodes, activeArcs, tearArcs int) {
	r.PlantNodesTotal.Set(float64(nodes))
	r.PlantActiveArcs.Set(float64(activeArcs))
	r.PlantTearArcs.Set(float64(tearArcs))
}
