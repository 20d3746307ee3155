package units

import (
	"fmt"
	"math"

	"github.com/dd0wney/flowsim/pkg/stream"
)

// waterSaturationPressure is an Antoine fit for water, valid between the
// triple point and ~440 K. Returns Pa.
func waterSaturationPressure(tK float64) float64 {
	// Antoine constants, log10(P[mmHg]) = A - B/(C + T[C]).
	const (
		a = 8.07131
		b = 1730.63
		c = 233.426
	)
	tC := tK - 273.15
	mmHg := math.Pow(10, a-b/(c+tC))
	return mmHg * 133.322
}

// Flash knocks condensed water out of a vapor stream at a set temperature
// and pressure. Water leaves in the vapor at its saturation mole fraction;
// the excess condenses to the liquid outlet.
type Flash struct {
	UnitName    string
	Temperature float64
	Pressure    float64
}

// Flash port names.
const (
	PortVapor  = "vapor"
	PortLiquid = "liquid"
)

func (fl *Flash) Name() string      { return fl.UnitName }
func (fl *Flash) Inlets() []string  { return []string{PortIn} }
func (fl *Flash) Outlets() []string { return []string{PortVapor, PortLiquid} }

func (fl *Flash) Estimate(in map[string]stream.State) (map[string]stream.State, error) {
	s, err := requireInlet(in, PortIn)
	if err != nil {
		return nil, err
	}
	if !s.Basis.Contains("H2O") {
		return nil, fmt.Errorf("basis %q has no H2O to condense", s.Basis.Name)
	}
	if fl.Temperature <= 0 || fl.Pressure <= 0 {
		return nil, fmt.Errorf("flash conditions %g K / %g Pa must be positive",
			fl.Temperature, fl.Pressure)
	}

	waterIn := s.ComponentFlow("H2O")
	dryFlow := s.Flow - waterIn
	ySat := waterSaturationPressure(fl.Temperature) / fl.Pressure
	if ySat >= 1 {
		return nil, fmt.Errorf("flash above the dew pressure: y_sat = %g", ySat)
	}

	// Vapor water such that x_H2O = ySat over the remaining vapor.
	waterVap := ySat * dryFlow / (1 - ySat)
	if waterVap > waterIn {
		waterVap = waterIn
	}
	condensed := waterIn - waterVap
	if dryFlow <= 0 {
		return nil, fmt.Errorf("nothing but water in the flash feed")
	}

	vapFlow := dryFlow + waterVap
	vapor := s.Clone()
	vapor.Flow = vapFlow
	vapor.Temperature = fl.Temperature
	vapor.Pressure = fl.Pressure
	for _, sp := range s.Basis.Species {
		n := s.ComponentFlow(sp)
		if sp == "H2O" {
			n = waterVap
		}
		vapor.MoleFrac[sp] = n / vapFlow
	}

	liquid := stream.New(stream.Water, condensed, fl.Temperature, fl.Pressure,
		map[string]float64{"H2O": 1})
	liquid.Phase = stream.Liquid
	if condensed == 0 {
		liquid.Flow = 0
	}

	return map[string]stream.State{PortVapor: vapor, PortLiquid: liquid}, nil
}

// CPU is the CO2 processing surrogate: it dries the incoming flue gas,
// captures a fraction of its CO2 as product, and vents the rest with the
// light ends.
type CPU struct {
	UnitName        string
	CaptureFraction float64
}

// CPU port names.
const (
	PortCO2   = "co2"
	PortWater = "water"
	PortVent  = "vent"
)

func (c *CPU) Name() string      { return c.UnitName }
func (c *CPU) Inlets() []string  { return []string{PortIn} }
func (c *CPU) Outlets() []string { return []string{PortCO2, PortWater, PortVent} }

func (c *CPU) Estimate(in map[string]stream.State) (map[string]stream.State, error) {
	s, err := requireInlet(in, PortIn)
	if err != nil {
		return nil, err
	}
	if c.CaptureFraction <= 0 || c.CaptureFraction > 1 {
		return nil, fmt.Errorf("capture fraction %g out of (0, 1]", c.CaptureFraction)
	}

	co2In := s.ComponentFlow("CO2")
	waterIn := s.ComponentFlow("H2O")
	captured := c.CaptureFraction * co2In

	co2 := stream.New(stream.CO2H2O, captured, s.Temperature, s.Pressure,
		map[string]float64{"CO2": 1, "H2O": 0})
	water := stream.New(stream.Water, waterIn, s.Temperature, s.Pressure,
		map[string]float64{"H2O": 1})
	water.Phase = stream.Liquid

	ventFlow := s.Flow - captured - waterIn
	if ventFlow <= 0 {
		return nil, fmt.Errorf("vent flow %g mol/s is not positive", ventFlow)
	}
	vent := s.Clone()
	vent.Flow = ventFlow
	for _, sp := range s.Basis.Species {
		n := s.ComponentFlow(sp)
		switch sp {
		case "CO2":
			n = co2In - captured
		case "H2O":
			n = 0
		}
		vent.MoleFrac[sp] = n / ventFlow
	}

	return map[string]stream.State{PortCO2: co2, PortWater: water, PortVent: vent}, nil
}
