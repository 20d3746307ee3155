package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSnapshotMetrics() {
	r.SnapshotWritesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowsim_snapshot_writes_total",
			Help: "Total number of state snapshot writes",
		},
		[]string{"status"}, // ok, error
	)

	r.SnapshotWriteDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flowsim_snapshot_write_duration_seconds",
			Help:    "Duration of snapshot writes in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	r.SnapshotSizeBytes = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flowsim_snapshot_size_bytes",
			Help:    "Compressed snapshot size in bytes",
			Buckets: []float64{1000, 10000, 100000, 1000000, 10000000},
		},
	)

	r.SnapshotArchivesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "flowsim_snapshot_archives_total",
			Help: "Total number of snapshot uploads to remote archive",
		},
		[]string{"status"},
	)
}
