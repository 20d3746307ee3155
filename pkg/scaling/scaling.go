// Package scaling provides scale-factor advice for the simultaneous solve.
// Flowsheet variables span many orders of magnitude (mole fractions near
// 1e-5 next to pressures near 3.2e7), so the solver conditions its linear
// systems with per-variable and per-residual factors. The advice is exactly
// that: it never changes the solution, only the arithmetic route to it.
package scaling

import "math"

// Factors holds multiplicative scale factors. A scaled variable is
// x[i]*Variable[i]; a scaled residual is r[j]*Residual[j].
type Factors struct {
	Variable []float64
	Residual []float64
}

// Advisor produces scale factors for a variable vector and its residuals.
type Advisor interface {
	Advise(names []string, x, r []float64) Factors
}

// MagnitudeAdvisor scales each quantity by the inverse of its magnitude,
// floored to avoid amplifying noise on near-zero values.
type MagnitudeAdvisor struct {
	// Floor is the smallest magnitude considered meaningful. Defaults to
	// 1e-8 when zero.
	Floor float64
}

// NewMagnitudeAdvisor returns an advisor with the default floor.
func NewMagnitudeAdvisor() *MagnitudeAdvisor {
	return &MagnitudeAdvisor{Floor: 1e-8}
}

// Advise computes inverse-magnitude factors for x and r.
func (a *MagnitudeAdvisor) Advise(names []string, x, r []float64) Factors {
	floor := a.Floor
	if floor <= 0 {
		floor = 1e-8
	}
	f := Factors{
		Variable: make([]float64, len(x)),
		Residual: make([]float64, len(r)),
	}
	for i, v := range x {
		f.Variable[i] = 1 / math.Max(math.Abs(v), floor)
	}
	for j, v := range r {
		f.Residual[j] = 1 / math.Max(math.Abs(v), floor)
	}
	return f
}

// UnitAdvisor returns factor 1 for everything: no scaling.
type UnitAdvisor struct{}

// Advise returns all-ones factors.
func (UnitAdvisor) Advise(names []string, x, r []float64) Factors {
	f := Factors{
		Variable: make([]float64, len(x)),
		Residual: make([]float64, len(r)),
	}
	for i := range f.Variable {
		f.Variable[i] = 1
	}
	for j := range f.Residual {
		f.Residual[j] = 1
	}
	return f
}
