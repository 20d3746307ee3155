// Package solver defines the simultaneous-solve boundary of the flowsheet
// model and supplies a damped-Newton implementation over dense gonum linear
// algebra. The initializer produces the starting point; the solver drives
// the residual vector (tear-stream loop-closure errors) to zero.
package solver

import (
	"context"
	"errors"
	"fmt"

	"github.com/dd0wney/flowsim/pkg/scaling"
)

// Status is the outcome of a simultaneous solve.
type Status int

const (
	// Converged means the scaled residual norm met the tolerance.
	Converged Status = iota
	// MaxIterationsExceeded means the iteration budget ran out first.
	MaxIterationsExceeded
	// Infeasible means the line search stalled: no step direction reduced
	// the residual.
	Infeasible
	// NumericalError means a NaN, Inf or singular linear system stopped
	// the iteration.
	NumericalError
)

// String returns the string representation of a status
func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case MaxIterationsExceeded:
		return "max_iterations"
	case Infeasible:
		return "infeasible"
	case NumericalError:
		return "numerical_error"
	}
	return "unknown"
}

// Problem is a square nonlinear system r(x) = 0.
type Problem struct {
	// Names labels the variables for scaling and diagnostics.
	Names []string
	// Residual evaluates r into the provided slice. len(r) == len(x).
	Residual func(x, r []float64) error
	// Lower and Upper are optional simple bounds; nil means unbounded.
	Lower, Upper []float64
}

// Options configures one solve. The value is passed per call and never
// stored as ambient state.
type Options struct {
	Tolerance     float64
	MaxIterations int
	// BoundPush is the distance iterates are pushed inside their bounds
	// when a step lands on or beyond one.
	BoundPush float64
	// LinearSolver selects the dense factorization: "lu" or "qr".
	LinearSolver string
	// Damping is the backtracking factor of the line search, in (0, 1).
	Damping float64
}

// DefaultOptions mirrors the interior-point settings the plant model was
// tuned with.
func DefaultOptions() Options {
	return Options{
		Tolerance:     1e-7,
		MaxIterations: 200,
		BoundPush:     1e-12,
		LinearSolver:  "lu",
		Damping:       0.5,
	}
}

func (o Options) validate() error {
	if o.Tolerance <= 0 {
		return errors.New("tolerance must be positive")
	}
	if o.MaxIterations <= 0 {
		return errors.New("max iterations must be positive")
	}
	if o.Damping <= 0 || o.Damping >= 1 {
		return errors.New("damping must be in (0, 1)")
	}
	switch o.LinearSolver {
	case "lu", "qr":
	default:
		return fmt.Errorf("unknown linear solver %q", o.LinearSolver)
	}
	return nil
}

// Result reports the final iterate of a solve.
type Result struct {
	Status       Status
	X            []float64
	ResidualNorm float64
	Iterations   int
}

// Solver is the simultaneous-solve interface the plant model depends on.
type Solver interface {
	Solve(ctx context.Context, p Problem, x0 []float64, opts Options) (Result, error)
}

// Advisor re-exports the scaling boundary for convenience.
type Advisor = scaling.Advisor
