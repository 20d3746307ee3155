package plant

import (
	"context"
	"fmt"
	"math"

	"github.com/dd0wney/flowsim/pkg/sequence"
	"github.com/dd0wney/flowsim/pkg/solver"
	"github.com/dd0wney/flowsim/pkg/stream"
)

// TearClosure poses the tear arcs of an initialized flowsheet as a root
// finding problem: the unknowns are the guessed tear states, the residual is
// the mismatch between each guess and the state the sequential pass computes
// at the tear's source port. A root is a self-consistent recycle.
type TearClosure struct {
	init *sequence.Initializer
	arcs []string
	base map[string]stream.State

	ctx context.Context
}

// NewTearClosure wraps an initializer whose tears already carry guesses.
func NewTearClosure(init *sequence.Initializer, arcs ...string) (*TearClosure, error) {
	if len(arcs) == 0 {
		return nil, fmt.Errorf("no tear arcs to close")
	}
	fs := init.Flowsheet()
	tc := &TearClosure{
		init: init,
		base: make(map[string]stream.State, len(arcs)),
		ctx:  context.Background(),
	}
	for _, name := range arcs {
		a, err := fs.Arc(name)
		if err != nil {
			return nil, err
		}
		if !a.Tear {
			return nil, fmt.Errorf("arc %q is not a tear arc", name)
		}
		s, ok, err := fs.PortState(a.Dest)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("tear %q has no registered guess", name)
		}
		tc.arcs = append(tc.arcs, name)
		tc.base[name] = s
	}
	return tc, nil
}

// Variable layout per tear: flow, temperature, then all mole fractions but
// the last species, which is implied by the sum-to-one invariant. Pressure
// is held at the guessed value; the recycle loops here run at fixed
// pressure levels.
func (tc *TearClosure) Problem() solver.Problem {
	var names []string
	var lower, upper []float64
	for _, arc := range tc.arcs {
		s := tc.base[arc]
		names = append(names, arc+".flow", arc+".temperature")
		lower = append(lower, 1e-6, 200)
		upper = append(upper, math.Inf(1), 3000)
		for _, sp := range s.Basis.Species[:len(s.Basis.Species)-1] {
			names = append(names, arc+".x_"+sp)
			lower = append(lower, 0)
			upper = append(upper, 1)
		}
	}
	return solver.Problem{Names: names, Residual: tc.Residual, Lower: lower, Upper: upper}
}

// X0 returns the starting point, read from the registered guesses.
func (tc *TearClosure) X0() []float64 {
	var x []float64
	for _, arc := range tc.arcs {
		s := tc.base[arc]
		x = append(x, s.Flow, s.Temperature)
		for _, sp := range s.Basis.Species[:len(s.Basis.Species)-1] {
			x = append(x, s.MoleFrac[sp])
		}
	}
	return x
}

// apply writes the variable vector back into the tear guesses.
func (tc *TearClosure) apply(x []float64) error {
	i := 0
	for _, arc := range tc.arcs {
		s := tc.base[arc].Clone()
		s.Flow = x[i]
		s.Temperature = x[i+1]
		i += 2
		rest := 1.0
		n := len(s.Basis.Species)
		for _, sp := range s.Basis.Species[:n-1] {
			s.MoleFrac[sp] = x[i]
			rest -= x[i]
			i++
		}
		if rest < -stream.CompositionTolerance {
			return fmt.Errorf("tear %q: trial fractions sum past 1 by %g", arc, -rest)
		}
		if rest < 0 {
			rest = 0
		}
		s.MoleFrac[s.Basis.Species[n-1]] = rest
		if err := tc.init.RegisterTearGuess(arc, s); err != nil {
			return err
		}
	}
	return nil
}

// Residual applies a trial point, runs one sequential pass, and reports the
// mismatch between each tear's source state and its guess.
func (tc *TearClosure) Residual(x, r []float64) error {
	if err := tc.apply(x); err != nil {
		return err
	}

	if tc.init.Phase() == sequence.PhaseFailed {
		tc.init.Reset()
	}
	switch tc.init.Phase() {
	case sequence.PhaseOrderComputed, sequence.PhaseConverged:
	default:
		if err := tc.init.ComputeOrder(); err != nil {
			return err
		}
	}
	if err := tc.init.Run(tc.ctx); err != nil {
		tc.init.Reset()
		return fmt.Errorf("sequential pass at trial point: %w", err)
	}

	fs := tc.init.Flowsheet()
	i := 0
	for _, arc := range tc.arcs {
		a, err := fs.Arc(arc)
		if err != nil {
			return err
		}
		src, ok, err := fs.PortState(a.Source)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("tear %q: source %s not initialized", arc, a.Source)
		}
		r[i] = src.Flow - x[i]
		r[i+1] = src.Temperature - x[i+1]
		i += 2
		s := tc.base[arc]
		for _, sp := range s.Basis.Species[:len(s.Basis.Species)-1] {
			r[i] = src.MoleFrac[sp] - x[i]
			i++
		}
	}
	return nil
}

// Solve drives the tear states to a fixed point and leaves the flowsheet
// holding the converged pass.
func (tc *TearClosure) Solve(ctx context.Context, nw solver.Solver, opts solver.Options) (solver.Result, error) {
	tc.ctx = ctx
	res, err := nw.Solve(ctx, tc.Problem(), tc.X0(), opts)
	if err != nil {
		return res, err
	}
	if res.Status != solver.Converged {
		return res, fmt.Errorf("tear closure did not converge: %s", res.Status)
	}
	// One final pass at the root so every port reflects the solution.
	r := make([]float64, len(res.X))
	if err := tc.Residual(res.X, r); err != nil {
		return res, err
	}
	return res, nil
}
