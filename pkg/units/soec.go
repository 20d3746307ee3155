package units

import (
	"fmt"

	"github.com/dd0wney/flowsim/pkg/stream"
	"github.com/dd0wney/flowsim/pkg/thermo"
)

// SOEC stack port names.
const (
	PortFuelIn  = "fuel_in"
	PortFuelOut = "fuel_out"
	PortAirIn   = "air_in"
	PortAirOut  = "air_out"
)

// SOECStack is a solid-oxide electrolysis stack operated at the
// thermoneutral point: steam on the fuel side is split into hydrogen, the
// evolved oxygen crosses to the sweep side, and the stack stays
// isothermal. Splitting one mole of water moves half a mole of O2, but the
// sweep also carries stack cooling duty; the crossover ratio folds both
// effects into one number.
type SOECStack struct {
	UnitName string
	// CellVoltage is the operating voltage per cell (V).
	CellVoltage float64
	// OperatingTemperature is the isothermal stack temperature (K).
	OperatingTemperature float64
	// Conversion is the per-pass steam conversion on the fuel side.
	Conversion float64
	// OxygenCrossover is mol O2 added to the sweep per mol H2 produced.
	OxygenCrossover float64
}

func (st *SOECStack) Name() string      { return st.UnitName }
func (st *SOECStack) Inlets() []string  { return []string{PortFuelIn, PortAirIn} }
func (st *SOECStack) Outlets() []string { return []string{PortFuelOut, PortAirOut} }

func (st *SOECStack) Estimate(in map[string]stream.State) (map[string]stream.State, error) {
	fuel, err := requireInlet(in, PortFuelIn)
	if err != nil {
		return nil, err
	}
	air, err := requireInlet(in, PortAirIn)
	if err != nil {
		return nil, err
	}
	if st.Conversion <= 0 || st.Conversion >= 1 {
		return nil, fmt.Errorf("steam conversion %g out of (0, 1)", st.Conversion)
	}
	if !fuel.Basis.Contains("H2O") || !fuel.Basis.Contains("H2") {
		return nil, fmt.Errorf("fuel basis %q lacks H2O/H2", fuel.Basis.Name)
	}

	steamIn := fuel.ComponentFlow("H2O")
	if steamIn <= 0 {
		return nil, fmt.Errorf("no steam on the fuel side")
	}
	h2Produced := st.Conversion * steamIn

	// Fuel side: H2O -> H2 mole for mole, total flow unchanged.
	fuelOut := fuel.Clone()
	fuelOut.Temperature = st.OperatingTemperature
	h2Flow := fuel.ComponentFlow("H2") + h2Produced
	h2oFlow := steamIn - h2Produced
	fuelOut.MoleFrac["H2"] = h2Flow / fuel.Flow
	fuelOut.MoleFrac["H2O"] = h2oFlow / fuel.Flow

	// Sweep side gains the crossover oxygen.
	o2Added := st.OxygenCrossover * h2Produced
	airFlowOut := air.Flow + o2Added
	airOut := air.Clone()
	airOut.Temperature = st.OperatingTemperature
	airOut.Flow = airFlowOut
	for _, sp := range air.Basis.Species {
		n := air.ComponentFlow(sp)
		if sp == "O2" {
			n += o2Added
		}
		airOut.MoleFrac[sp] = n / airFlowOut
	}

	return map[string]stream.State{PortFuelOut: fuelOut, PortAirOut: airOut}, nil
}

// Power returns the electrical power draw (W) for a hydrogen production
// rate, 2 F E_cell per mole of H2.
func (st *SOECStack) Power(h2Rate float64) float64 {
	return 2 * thermo.Faraday * st.CellVoltage * h2Rate
}

// HydrogenRate returns the H2 production implied by a pair of fuel-side
// states.
func (st *SOECStack) HydrogenRate(fuelIn, fuelOut stream.State) float64 {
	return fuelOut.ComponentFlow("H2") - fuelIn.ComponentFlow("H2")
}
