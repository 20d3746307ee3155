package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initPlantMetrics() {
	r.PlantNodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "flowsim_plant_nodes_total",
			Help: "Number of unit-operation nodes in the flowsheet",
		},
	)

	r.PlantActiveArcs = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "flowsim_plant_active_arcs",
			Help: "Number of currently active stream arcs",
		},
	)

	r.PlantTearArcs = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "flowsim_plant_tear_arcs",
			Help: "Number of declared tear arcs",
		},
	)

	r.PlantH2ProductionRate = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "flowsim_plant_h2_production_mol_per_second",
			Help: "Hydrogen product molar flow from the last converged state",
		},
	)

	r.PlantNetPowerWatts = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "flowsim_plant_net_power_watts",
			Help: "Net plant power from the last converged state",
		},
	)
}
