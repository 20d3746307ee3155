package units

import (
	"fmt"

	"github.com/dd0wney/flowsim/pkg/stream"
	"github.com/dd0wney/flowsim/pkg/thermo"
)

// Compressor raises a vapor stream to a set outlet pressure along an
// isentropic path corrected by an isentropic efficiency.
type Compressor struct {
	UnitName       string
	OutletPressure float64
	Efficiency     float64
}

func (c *Compressor) Name() string      { return c.UnitName }
func (c *Compressor) Inlets() []string  { return []string{PortIn} }
func (c *Compressor) Outlets() []string { return []string{PortOut} }

func (c *Compressor) Estimate(in map[string]stream.State) (map[string]stream.State, error) {
	s, err := requireInlet(in, PortIn)
	if err != nil {
		return nil, err
	}
	if c.Efficiency <= 0 || c.Efficiency > 1 {
		return nil, fmt.Errorf("isentropic efficiency %g out of (0, 1]", c.Efficiency)
	}
	if c.OutletPressure <= s.Pressure {
		return nil, fmt.Errorf("outlet pressure %g Pa does not exceed inlet %g Pa",
			c.OutletPressure, s.Pressure)
	}

	t2s, err := thermo.IsentropicOutletTemperature(s.MoleFrac, s.Temperature, s.Pressure, c.OutletPressure)
	if err != nil {
		return nil, err
	}
	h1 := thermo.MixtureEnthalpy(s.MoleFrac, s.Temperature)
	h2s := thermo.MixtureEnthalpy(s.MoleFrac, t2s)
	h2 := h1 + (h2s-h1)/c.Efficiency
	t2, err := thermo.TemperatureFromEnthalpy(s.MoleFrac, h2, t2s)
	if err != nil {
		return nil, err
	}

	out := s.Clone()
	out.Temperature = t2
	out.Pressure = c.OutletPressure
	return map[string]stream.State{PortOut: out}, nil
}

// Power returns the shaft power (W) implied by a pair of inlet and outlet
// states across the compressor.
func (c *Compressor) Power(in, out stream.State) float64 {
	return in.Flow * (thermo.MixtureEnthalpy(out.MoleFrac, out.Temperature) -
		thermo.MixtureEnthalpy(in.MoleFrac, in.Temperature))
}

// Pump raises a liquid stream's pressure. The temperature rise across a
// liquid pump is negligible at these heads and is ignored.
type Pump struct {
	UnitName       string
	OutletPressure float64
	Efficiency     float64
}

func (p *Pump) Name() string      { return p.UnitName }
func (p *Pump) Inlets() []string  { return []string{PortIn} }
func (p *Pump) Outlets() []string { return []string{PortOut} }

func (p *Pump) Estimate(in map[string]stream.State) (map[string]stream.State, error) {
	s, err := requireInlet(in, PortIn)
	if err != nil {
		return nil, err
	}
	if p.Efficiency <= 0 || p.Efficiency > 1 {
		return nil, fmt.Errorf("pump efficiency %g out of (0, 1]", p.Efficiency)
	}
	if p.OutletPressure <= 0 {
		return nil, fmt.Errorf("outlet pressure %g Pa must be positive", p.OutletPressure)
	}

	out := s.Clone()
	out.Pressure = p.OutletPressure
	out.Phase = stream.Liquid
	return map[string]stream.State{PortOut: out}, nil
}

// Power returns the hydraulic shaft power (W) for a pair of states, using
// the molar volume of liquid water.
func (p *Pump) Power(in, out stream.State) float64 {
	const molarVolume = 1.8e-5 // m3/mol, liquid water
	return in.Flow * molarVolume * (out.Pressure - in.Pressure) / p.Efficiency
}
