package units

import (
	"fmt"

	"github.com/dd0wney/flowsim/pkg/stream"
	"github.com/dd0wney/flowsim/pkg/thermo"
)

// Heater sets a stream to an outlet temperature, optionally with a
// pressure drop. It models intercoolers, trim heaters and condenser duty
// alike; the sign of the duty falls out of the temperatures.
type Heater struct {
	UnitName          string
	OutletTemperature float64
	PressureDrop      float64
}

func (h *Heater) Name() string      { return h.UnitName }
func (h *Heater) Inlets() []string  { return []string{PortIn} }
func (h *Heater) Outlets() []string { return []string{PortOut} }

func (h *Heater) Estimate(in map[string]stream.State) (map[string]stream.State, error) {
	s, err := requireInlet(in, PortIn)
	if err != nil {
		return nil, err
	}
	if h.OutletTemperature <= 0 {
		return nil, fmt.Errorf("outlet temperature %g K must be positive", h.OutletTemperature)
	}
	if h.PressureDrop >= s.Pressure {
		return nil, fmt.Errorf("pressure drop %g Pa exceeds inlet pressure %g Pa",
			h.PressureDrop, s.Pressure)
	}

	out := s.Clone()
	out.Temperature = h.OutletTemperature
	out.Pressure = s.Pressure - h.PressureDrop
	return map[string]stream.State{PortOut: out}, nil
}

// Duty returns the heat duty (W) implied by a pair of states.
func (h *Heater) Duty(in, out stream.State) float64 {
	return in.Flow * (thermo.MixtureEnthalpy(out.MoleFrac, out.Temperature) -
		thermo.MixtureEnthalpy(in.MoleFrac, in.Temperature))
}

// Port names of the two-stream exchanger.
const (
	PortHotIn   = "hot_in"
	PortHotOut  = "hot_out"
	PortColdIn  = "cold_in"
	PortColdOut = "cold_out"
)

// HXSpec selects which temperature the exchanger pins.
type HXSpec int

const (
	// ApproachAtHotInlet pins cold_out = hot_in - Approach.
	ApproachAtHotInlet HXSpec = iota
	// ApproachAtHotOutlet pins hot_out = cold_in + Approach.
	ApproachAtHotOutlet
	// ColdOutletTemperature pins cold_out = Target.
	ColdOutletTemperature
)

// HeatExchanger is a counter-current exchanger closed by one temperature
// specification; the other side follows from the energy balance.
type HeatExchanger struct {
	UnitName string
	Spec     HXSpec
	// Approach is the pinch temperature difference for the approach specs.
	Approach float64
	// Target is the set temperature for ColdOutletTemperature.
	Target float64
}

func (x *HeatExchanger) Name() string      { return x.UnitName }
func (x *HeatExchanger) Inlets() []string  { return []string{PortHotIn, PortColdIn} }
func (x *HeatExchanger) Outlets() []string { return []string{PortHotOut, PortColdOut} }

func (x *HeatExchanger) Estimate(in map[string]stream.State) (map[string]stream.State, error) {
	hot, err := requireInlet(in, PortHotIn)
	if err != nil {
		return nil, err
	}
	cold, err := requireInlet(in, PortColdIn)
	if err != nil {
		return nil, err
	}
	if hot.Temperature <= cold.Temperature {
		return nil, fmt.Errorf("hot inlet %g K is not hotter than cold inlet %g K",
			hot.Temperature, cold.Temperature)
	}

	hotOut := hot.Clone()
	coldOut := cold.Clone()

	switch x.Spec {
	case ApproachAtHotInlet:
		coldOut.Temperature = hot.Temperature - x.Approach
		if err := x.balanceHotSide(hot, cold, &hotOut, coldOut); err != nil {
			return nil, err
		}
	case ColdOutletTemperature:
		coldOut.Temperature = x.Target
		if err := x.balanceHotSide(hot, cold, &hotOut, coldOut); err != nil {
			return nil, err
		}
	case ApproachAtHotOutlet:
		hotOut.Temperature = cold.Temperature + x.Approach
		duty := hot.Flow * (thermo.MixtureEnthalpy(hot.MoleFrac, hot.Temperature) -
			thermo.MixtureEnthalpy(hotOut.MoleFrac, hotOut.Temperature))
		if duty < 0 {
			return nil, fmt.Errorf("approach spec implies negative duty %g W", duty)
		}
		hCold := thermo.MixtureEnthalpy(cold.MoleFrac, cold.Temperature) + duty/cold.Flow
		t, err := thermo.TemperatureFromEnthalpy(cold.MoleFrac, hCold, hot.Temperature)
		if err != nil {
			return nil, err
		}
		coldOut.Temperature = t
	default:
		return nil, fmt.Errorf("unknown exchanger spec %d", x.Spec)
	}

	if coldOut.Temperature <= cold.Temperature {
		return nil, fmt.Errorf("cold side does not heat up: %g K -> %g K",
			cold.Temperature, coldOut.Temperature)
	}
	return map[string]stream.State{PortHotOut: hotOut, PortColdOut: coldOut}, nil
}

// balanceHotSide fixes the hot outlet from a known cold outlet.
func (x *HeatExchanger) balanceHotSide(hot, cold stream.State, hotOut *stream.State, coldOut stream.State) error {
	duty := cold.Flow * (thermo.MixtureEnthalpy(coldOut.MoleFrac, coldOut.Temperature) -
		thermo.MixtureEnthalpy(cold.MoleFrac, cold.Temperature))
	if duty < 0 {
		return fmt.Errorf("spec implies negative duty %g W", duty)
	}
	hHot := thermo.MixtureEnthalpy(hot.MoleFrac, hot.Temperature) - duty/hot.Flow
	t, err := thermo.TemperatureFromEnthalpy(hot.MoleFrac, hHot, cold.Temperature)
	if err != nil {
		return err
	}
	if t <= 0 {
		return fmt.Errorf("hot side over-cooled to %g K", t)
	}
	hotOut.Temperature = t
	return nil
}

// Duty returns the exchanged heat (W) from the cold-side states.
func (x *HeatExchanger) Duty(coldIn, coldOut stream.State) float64 {
	return coldIn.Flow * (thermo.MixtureEnthalpy(coldOut.MoleFrac, coldOut.Temperature) -
		thermo.MixtureEnthalpy(coldIn.MoleFrac, coldIn.Temperature))
}
