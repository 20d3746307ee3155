package stream

import (
	"fmt"
	"math"
)

// CompositionTolerance is the largest acceptable deviation of a mole
// fraction sum from exactly 1.
const CompositionTolerance = 1e-6

// Phase tags a stream as vapor, liquid or a two-phase mixture.
type Phase int

const (
	Vapor Phase = iota
	Liquid
	TwoPhase
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case Vapor:
		return "Vap"
	case Liquid:
		return "Liq"
	case TwoPhase:
		return "VLE"
	default:
		return "unknown"
	}
}

// State is a snapshot of the physical conditions of material at one point in
// the process network: molar flow, temperature, pressure and composition
// over a fixed component set. States are copied between ports by value; a
// propagated state is an exact copy of its source.
type State struct {
	Flow        float64 // mol/s
	Temperature float64 // K
	Pressure    float64 // Pa
	Basis       ComponentSet
	MoleFrac    map[string]float64
	Phase       Phase
}

// New returns a state over the given basis with every mole fraction present
// in comp. Species of the basis absent from comp are set to exactly zero.
func New(basis ComponentSet, flow, temperature, pressure float64, comp map[string]float64) State {
	x := make(map[string]float64, len(basis.Species))
	for _, sp := range basis.Species {
		x[sp] = comp[sp]
	}
	return State{
		Flow:        flow,
		Temperature: temperature,
		Pressure:    pressure,
		Basis:       basis,
		MoleFrac:    x,
		Phase:       Vapor,
	}
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	c := s
	c.MoleFrac = make(map[string]float64, len(s.MoleFrac))
	for k, v := range s.MoleFrac {
		c.MoleFrac[k] = v
	}
	return c
}

// ComponentFlow returns the molar flow of one species.
func (s State) ComponentFlow(species string) float64 {
	return s.Flow * s.MoleFrac[species]
}

// Validate checks the composition invariant: every basis species present,
// no negative fraction, and the fractions summing to 1 within
// CompositionTolerance. Exact zeros are valid; lower-bounded species on the
// bound are the normal case in this plant, not an error.
func (s State) Validate() error {
	if s.Flow < 0 {
		return fmt.Errorf("stream flow %g mol/s is negative", s.Flow)
	}
	if s.Temperature <= 0 {
		return fmt.Errorf("stream temperature %g K is not positive", s.Temperature)
	}
	if s.Pressure <= 0 {
		return fmt.Errorf("stream pressure %g Pa is not positive", s.Pressure)
	}
	sum := 0.0
	for _, sp := range s.Basis.Species {
		x, ok := s.MoleFrac[sp]
		if !ok {
			return fmt.Errorf("composition incomplete: %s missing from basis %s", sp, s.Basis.Name)
		}
		if x < 0 {
			return fmt.Errorf("mole fraction of %s is negative (%g)", sp, x)
		}
		sum += x
	}
	if math.Abs(sum-1) > CompositionTolerance {
		return fmt.Errorf("mole fractions over basis %s sum to %.9f, want 1 within %g",
			s.Basis.Name, sum, CompositionTolerance)
	}
	return nil
}

// Normalize rescales the mole fractions to sum to exactly 1. A zero sum
// leaves the composition untouched.
func (s *State) Normalize() {
	sum := 0.0
	for _, sp := range s.Basis.Species {
		sum += s.MoleFrac[sp]
	}
	if sum == 0 {
		return
	}
	for _, sp := range s.Basis.Species {
		s.MoleFrac[sp] /= sum
	}
}

// Equal reports whether two states match bit-for-bit: same basis, same flow,
// temperature, pressure and identical mole fractions. Used to verify the
// exact-copy contract of stream propagation.
func (s State) Equal(o State) bool {
	if s.Basis.Name != o.Basis.Name || s.Phase != o.Phase {
		return false
	}
	if s.Flow != o.Flow || s.Temperature != o.Temperature || s.Pressure != o.Pressure {
		return false
	}
	if len(s.MoleFrac) != len(o.MoleFrac) {
		return false
	}
	for k, v := range s.MoleFrac {
		if o.MoleFrac[k] != v {
			return false
		}
	}
	return true
}

// AlmostEqual reports whether two states agree within tol on every scalar
// quantity. Used for fixed-point checks after repeated initialization.
func (s State) AlmostEqual(o State, tol float64) bool {
	if s.Basis.Name != o.Basis.Name {
		return false
	}
	if relDiff(s.Flow, o.Flow) > tol || relDiff(s.Temperature, o.Temperature) > tol ||
		relDiff(s.Pressure, o.Pressure) > tol {
		return false
	}
	for k, v := range s.MoleFrac {
		if math.Abs(o.MoleFrac[k]-v) > tol {
			return false
		}
	}
	return true
}

func relDiff(a, b float64) float64 {
	d := math.Abs(a - b)
	m := math.Max(math.Abs(a), math.Abs(b))
	if m < 1 {
		return d
	}
	return d / m
}

// Translate re-expresses the state over a different component set. Species
// absent from the target basis are dropped and the remainder renormalized;
// species new to the target are zero. Flow is reduced by the dropped mole
// fraction so component flows of shared species are conserved.
func (s State) Translate(target ComponentSet) State {
	kept := 0.0
	x := make(map[string]float64, len(target.Species))
	for _, sp := range target.Species {
		if s.Basis.Contains(sp) {
			x[sp] = s.MoleFrac[sp]
			kept += s.MoleFrac[sp]
		} else {
			x[sp] = 0
		}
	}
	out := State{
		Flow:        s.Flow * kept,
		Temperature: s.Temperature,
		Pressure:    s.Pressure,
		Basis:       target,
		MoleFrac:    x,
		Phase:       s.Phase,
	}
	out.Normalize()
	return out
}

// String formats the state for reports and log fields.
func (s State) String() string {
	return fmt.Sprintf("F=%.4g mol/s T=%.2f K P=%.4g Pa basis=%s", s.Flow, s.Temperature, s.Pressure, s.Basis.Name)
}
