// Package thermo provides the small set of ideal-gas property relations the
// flowsheet needs to build an initial guess: heat capacities, sensible
// enthalpy, isentropic compression estimates and heats of combustion. These
// are deliberately simple correlations; the downstream simultaneous solve
// only needs them to be physically plausible, not rigorous.
package thermo

import (
	"fmt"
	"math"
)

// R is the universal gas constant [J/mol/K].
const R = 8.31446261815324

// TRef is the enthalpy reference temperature [K].
const TRef = 298.15

// Faraday is the Faraday constant [C/mol].
const Faraday = 96485.33212

// Species holds per-component constants: molar mass and a linear ideal-gas
// heat capacity fit cp(T) = CpA + CpB*T valid over the plant's 300-1400 K
// working range.
type Species struct {
	MolarMass float64 // kg/mol
	CpA       float64 // J/mol/K
	CpB       float64 // J/mol/K^2
	HComb     float64 // J/mol, lower heating value (0 for non-fuels)
}

// speciesData covers every component appearing in the plant bases.
var speciesData = map[string]Species{
	"CH4":   {MolarMass: 0.0160425, CpA: 23.64, CpB: 0.0479, HComb: 802.3e3},
	"C2H6":  {MolarMass: 0.03007, CpA: 28.15, CpB: 0.0896, HComb: 1428.6e3},
	"C3H8":  {MolarMass: 0.0441, CpA: 28.28, CpB: 0.1360, HComb: 2043.1e3},
	"C4H10": {MolarMass: 0.05812, CpA: 35.45, CpB: 0.1812, HComb: 2657.3e3},
	"H2":    {MolarMass: 0.002016, CpA: 27.81, CpB: 0.0024},
	"O2":    {MolarMass: 0.031999, CpA: 28.22, CpB: 0.0044},
	"N2":    {MolarMass: 0.0280134, CpA: 27.92, CpB: 0.0034},
	"Ar":    {MolarMass: 0.039948, CpA: 20.79, CpB: 0},
	"H2O":   {MolarMass: 0.01801528, CpA: 30.38, CpB: 0.0096},
	"CO2":   {MolarMass: 0.04401, CpA: 33.06, CpB: 0.0226},
}

// Lookup returns the constants for one species.
func Lookup(species string) (Species, error) {
	s, ok := speciesData[species]
	if !ok {
		return Species{}, fmt.Errorf("no property data for species %q", species)
	}
	return s, nil
}

// Cp returns the ideal-gas heat capacity of a species at T [J/mol/K].
func Cp(species string, T float64) float64 {
	s := speciesData[species]
	return s.CpA + s.CpB*T
}

// MixtureCp returns the mole-fraction weighted heat capacity [J/mol/K].
func MixtureCp(comp map[string]float64, T float64) float64 {
	cp := 0.0
	for sp, x := range comp {
		if x == 0 {
			continue
		}
		cp += x * Cp(sp, T)
	}
	return cp
}

// Enthalpy returns the sensible ideal-gas enthalpy of a species relative to
// TRef [J/mol].
func Enthalpy(species string, T float64) float64 {
	s := speciesData[species]
	return s.CpA*(T-TRef) + 0.5*s.CpB*(T*T-TRef*TRef)
}

// MixtureEnthalpy returns the mole-fraction weighted sensible enthalpy
// [J/mol].
func MixtureEnthalpy(comp map[string]float64, T float64) float64 {
	h := 0.0
	for sp, x := range comp {
		if x == 0 {
			continue
		}
		h += x * Enthalpy(sp, T)
	}
	return h
}

// TemperatureFromEnthalpy inverts MixtureEnthalpy by Newton iteration. The
// enthalpy curve is monotonic in T, so a handful of steps from the supplied
// starting point converge well inside the working range.
func TemperatureFromEnthalpy(comp map[string]float64, h, tGuess float64) (float64, error) {
	T := tGuess
	if T <= 0 {
		T = TRef
	}
	for i := 0; i < 50; i++ {
		f := MixtureEnthalpy(comp, T) - h
		cp := MixtureCp(comp, T)
		if cp <= 0 {
			return 0, fmt.Errorf("non-positive mixture cp at T=%g K", T)
		}
		dT := f / cp
		T -= dT
		if T <= 0 {
			return 0, fmt.Errorf("temperature iteration left the physical range (T=%g K)", T)
		}
		if math.Abs(dT) < 1e-9 {
			return T, nil
		}
	}
	return 0, fmt.Errorf("temperature from enthalpy did not converge (h=%g J/mol)", h)
}

// IsentropicOutletTemperature estimates the ideal outlet temperature of a
// reversible adiabatic compression or expansion from T1 to pressure ratio
// P2/P1, using the mean-cp relation T2 = T1 * (P2/P1)^(R/cp). One refinement
// pass re-evaluates cp at the mean temperature.
func IsentropicOutletTemperature(comp map[string]float64, T1, P1, P2 float64) (float64, error) {
	if P1 <= 0 || P2 <= 0 {
		return 0, fmt.Errorf("isentropic step needs positive pressures, got P1=%g P2=%g", P1, P2)
	}
	ratio := P2 / P1
	T2 := T1
	for i := 0; i < 3; i++ {
		cp := MixtureCp(comp, 0.5*(T1+T2))
		if cp <= R {
			return 0, fmt.Errorf("mixture cp %g J/mol/K too small for isentropic relation", cp)
		}
		T2 = T1 * math.Pow(ratio, R/cp)
	}
	return T2, nil
}

// HeatOfCombustion returns the molar lower heating value of a species
// [J/mol]; zero for non-fuels.
func HeatOfCombustion(species string) float64 {
	return speciesData[species].HComb
}

// OxygenDemand returns the stoichiometric O2 requirement per mole of fuel
// species for complete combustion to CO2 and H2O.
func OxygenDemand(species string) float64 {
	switch species {
	case "CH4":
		return 2
	case "C2H6":
		return 3.5
	case "C3H8":
		return 5
	case "C4H10":
		return 6.5
	case "H2":
		return 0.5
	default:
		return 0
	}
}

// CombustionProducts returns moles of CO2 and H2O produced per mole of fuel
// species burned completely.
func CombustionProducts(species string) (co2, h2o float64) {
	switch species {
	case "CH4":
		return 1, 2
	case "C2H6":
		return 2, 3
	case "C3H8":
		return 3, 4
	case "C4H10":
		return 4, 5
	case "H2":
		return 0, 1
	default:
		return 0, 0
	}
}

// MixtureMolarMass returns the mole-fraction weighted molar mass [kg/mol].
func MixtureMolarMass(comp map[string]float64) float64 {
	m := 0.0
	for sp, x := range comp {
		m += x * speciesData[sp].MolarMass
	}
	return m
}
