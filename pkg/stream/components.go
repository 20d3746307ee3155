package stream

// ComponentSet is a fixed, ordered list of chemical species over which a
// stream composition is defined. Sets are compared by name, so two streams
// share a basis only when they share the same set.
type ComponentSet struct {
	Name    string
	Species []string
}

// Contains reports whether the set includes the given species.
func (cs ComponentSet) Contains(species string) bool {
	for _, s := range cs.Species {
		if s == species {
			return true
		}
	}
	return false
}

// Index returns the position of a species in the set, or -1 if absent.
func (cs ComponentSet) Index(species string) int {
	for i, s := range cs.Species {
		if s == species {
			return i
		}
	}
	return -1
}

// Property bases used by the plant. These mirror the parameter blocks of the
// original process model: one basis per section of the flowsheet.
var (
	// FuelGas covers natural gas feed and combustion products.
	FuelGas = ComponentSet{
		Name:    "fuel_gas",
		Species: []string{"CH4", "C2H6", "C3H8", "C4H10", "O2", "H2O", "CO2", "N2", "Ar"},
	}

	// Air covers ambient air, ASU streams and oxidized flue gas.
	Air = ComponentSet{
		Name:    "air",
		Species: []string{"O2", "H2O", "CO2", "N2", "Ar"},
	}

	// Hydrogen covers the SOEC fuel side (steam plus product hydrogen).
	Hydrogen = ComponentSet{
		Name:    "hydrogen",
		Species: []string{"H2", "H2O"},
	}

	// PureHydrogen covers the dried compression train.
	PureHydrogen = ComponentSet{
		Name:    "pure_hydrogen",
		Species: []string{"H2"},
	}

	// Water covers boiler feed water and steam.
	Water = ComponentSet{
		Name:    "water",
		Species: []string{"H2O"},
	}

	// CO2H2O covers the CO2 purification train downstream of the condenser.
	CO2H2O = ComponentSet{
		Name:    "co2_h2o",
		Species: []string{"CO2", "H2O"},
	}
)
