package plant

import (
	"fmt"

	"github.com/dd0wney/flowsim/pkg/stream"
	"github.com/dd0wney/flowsim/pkg/thermo"
	"github.com/dd0wney/flowsim/pkg/units"
)

const (
	// naturalGasHHV is the higher heating value of the reference pipeline
	// gas [J/mol].
	naturalGasHHV = 908839.23
	// hydrogenHHV is the higher heating value of hydrogen [J/kg].
	hydrogenHHV = 141.7e6
	// steamCycleEfficiency converts recovered flue heat to electric power;
	// the bottoming cycle itself is outside the flowsheet.
	steamCycleEfficiency = 0.381
)

// Summary aggregates the plant-level results of a converged flowsheet.
type Summary struct {
	HydrogenRate float64 // mol/s of H2 leaving the stack
	HydrogenMass float64 // kg/s

	StackPower       float64 // W consumed by the SOEC
	CompressionPower float64 // W, ASU + sweep blower + H2 train
	PumpPower        float64 // W
	SteamCyclePower  float64 // W generated from recovered flue heat
	NetPower         float64 // W, negative means grid import

	FuelHHVInput float64 // W of natural gas fired
	CO2Captured  float64 // kg/s
	CO2Vented    float64 // kg/s

	// Efficiency is hydrogen HHV out over fuel HHV plus imported power.
	Efficiency float64
}

// shaftPower is the enthalpy rise rate across a compression step [W].
func shaftPower(in, out stream.State) float64 {
	return in.Flow * (thermo.MixtureEnthalpy(out.MoleFrac, out.Temperature) -
		thermo.MixtureEnthalpy(in.MoleFrac, in.Temperature))
}

// Summarize reads the converged port states and computes the plant summary.
// It requires the product trains to be built and initialized.
func (p *Plant) Summarize() (Summary, error) {
	if !p.extended {
		return Summary{}, fmt.Errorf("product trains not built; call Extend first")
	}

	var sum Summary

	fuelIn, err := p.portState("soec", units.PortFuelIn)
	if err != nil {
		return Summary{}, err
	}
	fuelOut, err := p.portState("soec", units.PortFuelOut)
	if err != nil {
		return Summary{}, err
	}
	sum.HydrogenRate = p.stack.HydrogenRate(fuelIn, fuelOut)
	h2Props, err := thermo.Lookup("H2")
	if err != nil {
		return Summary{}, err
	}
	sum.HydrogenMass = sum.HydrogenRate * h2Props.MolarMass
	sum.StackPower = p.stack.Power(sum.HydrogenRate)

	for _, name := range []string{"cmp01", "cmp02", "blower", "hcmp01", "hcmp02", "hcmp03", "hcmp04"} {
		in, err := p.portState(name, units.PortIn)
		if err != nil {
			return Summary{}, err
		}
		out, err := p.portState(name, units.PortOut)
		if err != nil {
			return Summary{}, err
		}
		sum.CompressionPower += shaftPower(in, out)
	}

	pumpIn, err := p.portState("feed_pump", units.PortIn)
	if err != nil {
		return Summary{}, err
	}
	pumpOut, err := p.portState("feed_pump", units.PortOut)
	if err != nil {
		return Summary{}, err
	}
	sum.PumpPower = p.feedPump.Power(pumpIn, pumpOut)

	hrsgIn, err := p.portState("hrsg", units.PortIn)
	if err != nil {
		return Summary{}, err
	}
	hrsgOut, err := p.portState("hrsg", units.PortOut)
	if err != nil {
		return Summary{}, err
	}
	if duty := p.hrsg.Duty(hrsgIn, hrsgOut); duty < 0 {
		sum.SteamCyclePower = -duty * steamCycleEfficiency
	}

	co2, err := p.portState("cpu", units.PortCO2)
	if err != nil {
		return Summary{}, err
	}
	vent, err := p.portState("cpu", units.PortVent)
	if err != nil {
		return Summary{}, err
	}
	co2Props, err := thermo.Lookup("CO2")
	if err != nil {
		return Summary{}, err
	}
	sum.CO2Captured = co2.ComponentFlow("CO2") * co2Props.MolarMass
	sum.CO2Vented = vent.ComponentFlow("CO2") * co2Props.MolarMass

	ng, err := p.portState("ng_feed", units.PortOut)
	if err != nil {
		return Summary{}, err
	}
	sum.FuelHHVInput = ng.Flow * naturalGasHHV

	sum.NetPower = sum.SteamCyclePower - sum.StackPower - sum.CompressionPower - sum.PumpPower

	energyIn := sum.FuelHHVInput
	if sum.NetPower < 0 {
		energyIn -= sum.NetPower
	}
	if energyIn > 0 {
		sum.Efficiency = sum.HydrogenMass * hydrogenHHV / energyIn
	}
	return sum, nil
}
