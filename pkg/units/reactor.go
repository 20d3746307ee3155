package units

import (
	"fmt"

	"github.com/dd0wney/flowsim/pkg/stream"
	"github.com/dd0wney/flowsim/pkg/thermo"
)

// StoichiometricReactor burns every combustible species to completion
// against the oxygen in the mixed feed. Part of the released heat can be
// exported (the in-bed boiler duty); the rest raises the product
// temperature adiabatically, unless a fixed outlet temperature is set.
type StoichiometricReactor struct {
	UnitName string
	// OutletTemperature pins the product temperature when positive;
	// otherwise the outlet is adiabatic after the exported duty.
	OutletTemperature float64
	// ExportedDuty is heat (W) removed from the flame, e.g. to an in-bed
	// steam coil. Ignored when OutletTemperature is set.
	ExportedDuty float64
}

func (rx *StoichiometricReactor) Name() string      { return rx.UnitName }
func (rx *StoichiometricReactor) Inlets() []string  { return []string{PortIn} }
func (rx *StoichiometricReactor) Outlets() []string { return []string{PortOut} }

func (rx *StoichiometricReactor) Estimate(in map[string]stream.State) (map[string]stream.State, error) {
	s, err := requireInlet(in, PortIn)
	if err != nil {
		return nil, err
	}

	flows := make(map[string]float64, len(s.Basis.Species))
	for _, sp := range s.Basis.Species {
		flows[sp] = s.ComponentFlow(sp)
	}

	o2Demand := 0.0
	heatRelease := 0.0
	for _, sp := range s.Basis.Species {
		demand := thermo.OxygenDemand(sp)
		n := flows[sp]
		if demand == 0 || n == 0 {
			continue
		}
		o2Demand += n * demand
		heatRelease += n * thermo.HeatOfCombustion(sp)
		co2, h2o := thermo.CombustionProducts(sp)
		flows["CO2"] += n * co2
		flows["H2O"] += n * h2o
		flows[sp] = 0
	}

	if flows["O2"] < o2Demand {
		return nil, fmt.Errorf("oxygen starved: need %g mol/s, have %g mol/s",
			o2Demand, flows["O2"])
	}
	flows["O2"] -= o2Demand

	total := 0.0
	for _, sp := range s.Basis.Species {
		total += flows[sp]
	}
	comp := make(map[string]float64, len(s.Basis.Species))
	for _, sp := range s.Basis.Species {
		comp[sp] = flows[sp] / total
	}

	var tOut float64
	if rx.OutletTemperature > 0 {
		tOut = rx.OutletTemperature
	} else {
		hIn := s.Flow * thermo.MixtureEnthalpy(s.MoleFrac, s.Temperature)
		hOut := (hIn + heatRelease - rx.ExportedDuty) / total
		tOut, err = thermo.TemperatureFromEnthalpy(comp, hOut, s.Temperature+500)
		if err != nil {
			return nil, err
		}
		if tOut <= 0 {
			return nil, fmt.Errorf("exported duty %g W over-cools the flame", rx.ExportedDuty)
		}
	}

	out := stream.New(s.Basis, total, tOut, s.Pressure, comp)
	return map[string]stream.State{PortOut: out}, nil
}

// HeatRelease returns the combustion heat (W) of a feed stream at
// complete conversion.
func (rx *StoichiometricReactor) HeatRelease(in stream.State) float64 {
	total := 0.0
	for _, sp := range in.Basis.Species {
		if thermo.OxygenDemand(sp) > 0 {
			total += in.ComponentFlow(sp) * thermo.HeatOfCombustion(sp)
		}
	}
	return total
}
