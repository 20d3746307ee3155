package solver

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/dd0wney/flowsim/pkg/logging"
	"github.com/dd0wney/flowsim/pkg/metrics"
	"github.com/dd0wney/flowsim/pkg/scaling"
)

// Newton is a damped Newton iteration with a finite-difference Jacobian.
// Scale factors from the advisor condition the linear system; bounds are
// enforced by clipping with a small interior push.
type Newton struct {
	log     logging.Logger
	reg     *metrics.Registry
	advisor scaling.Advisor
}

// NewtonOption configures a Newton solver.
type NewtonOption func(*Newton)

// WithLogger sets the structured logger.
func WithLogger(l logging.Logger) NewtonOption {
	return func(n *Newton) { n.log = l }
}

// WithMetrics sets the metrics registry.
func WithMetrics(r *metrics.Registry) NewtonOption {
	return func(n *Newton) { n.reg = r }
}

// WithAdvisor sets the scaling advisor. Defaults to magnitude scaling.
func WithAdvisor(a scaling.Advisor) NewtonOption {
	return func(n *Newton) { n.advisor = a }
}

// NewNewton creates a Newton solver.
func NewNewton(opts ...NewtonOption) *Newton {
	n := &Newton{
		log:     logging.NewNopLogger(),
		advisor: scaling.NewMagnitudeAdvisor(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Solve iterates from x0 until the scaled residual norm meets the
// tolerance. Nonconvergence is reported in the result status, not as an
// error; errors are reserved for invalid problems and residual panics.
func (n *Newton) Solve(ctx context.Context, p Problem, x0 []float64, opts Options) (Result, error) {
	if err := opts.validate(); err != nil {
		return Result{Status: NumericalError}, err
	}
	dim := len(x0)
	if dim == 0 {
		return Result{Status: Converged}, nil
	}
	if p.Residual == nil {
		return Result{Status: NumericalError}, fmt.Errorf("problem has no residual function")
	}

	start := time.Now()
	x := make([]float64, dim)
	copy(x, x0)
	n.clip(x, p, opts)

	r := make([]float64, dim)
	rTrial := make([]float64, dim)
	xTrial := make([]float64, dim)

	finish := func(status Status, iter int, norm float64) (Result, error) {
		res := Result{Status: status, X: x, ResidualNorm: norm, Iterations: iter}
		if n.reg != nil {
			n.reg.RecordSolve(status.String(), iter, norm, time.Since(start))
		}
		n.log.Info("simultaneous solve finished",
			logging.String("status", status.String()),
			logging.Int("iterations", iter),
			logging.Float64("residual_norm", norm))
		return res, nil
	}

	if err := p.Residual(x, r); err != nil {
		return Result{Status: NumericalError, X: x}, fmt.Errorf("residual at start: %w", err)
	}

	// Scale factors are advised once from the starting point and held
	// fixed: re-advising each iteration would renormalize the residual
	// norm and defeat the convergence test.
	factors := n.advisor.Advise(p.Names, x, r)

	for iter := 0; iter < opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return Result{Status: NumericalError, X: x, Iterations: iter},
				fmt.Errorf("solve cancelled: %w", err)
		}

		norm := scaledNorm(r, factors.Residual)
		if !isFinite(norm) {
			return finish(NumericalError, iter, norm)
		}
		if norm < opts.Tolerance {
			return finish(Converged, iter, norm)
		}

		jac, err := n.jacobian(p, x, r, rTrial, xTrial)
		if err != nil {
			return Result{Status: NumericalError, X: x, Iterations: iter},
				fmt.Errorf("jacobian at iteration %d: %w", iter, err)
		}

		step, ok := n.solveLinear(jac, r, factors, opts)
		if !ok {
			return finish(NumericalError, iter, norm)
		}

		// Backtracking line search on the scaled residual norm.
		alpha := 1.0
		improved := false
		for alpha > 1e-10 {
			for i := range x {
				xTrial[i] = x[i] + alpha*step[i]
			}
			n.clip(xTrial, p, opts)
			if err := p.Residual(xTrial, rTrial); err == nil {
				trialNorm := scaledNorm(rTrial, factors.Residual)
				if isFinite(trialNorm) && trialNorm < norm {
					copy(x, xTrial)
					copy(r, rTrial)
					improved = true
					break
				}
			}
			alpha *= opts.Damping
		}
		if !improved {
			return finish(Infeasible, iter, norm)
		}

		n.log.Debug("newton step accepted",
			logging.Int("iteration", iter),
			logging.Float64("alpha", alpha),
			logging.Float64("residual_norm", scaledNorm(r, factors.Residual)))
	}

	return finish(MaxIterationsExceeded, opts.MaxIterations, scaledNorm(r, factors.Residual))
}

// jacobian builds the dense forward-difference Jacobian at x given r(x).
func (n *Newton) jacobian(p Problem, x, r, rPert, xPert []float64) (*mat.Dense, error) {
	dim := len(x)
	jac := mat.NewDense(dim, dim, nil)
	copy(xPert, x)
	for j := 0; j < dim; j++ {
		h := 1e-7 * math.Max(math.Abs(x[j]), 1)
		xPert[j] = x[j] + h
		if err := p.Residual(xPert, rPert); err != nil {
			return nil, err
		}
		for i := 0; i < dim; i++ {
			jac.Set(i, j, (rPert[i]-r[i])/h)
		}
		xPert[j] = x[j]
	}
	if n.reg != nil {
		n.reg.SolverJacobianEvals.Inc()
	}
	return jac, nil
}

// solveLinear solves the scaled system J dx = -r with the configured
// factorization, then unscales the step.
func (n *Newton) solveLinear(jac *mat.Dense, r []float64, f scaling.Factors, opts Options) ([]float64, bool) {
	dim := len(r)

	// Scale: rows by residual factors, columns by inverse variable factors.
	scaled := mat.NewDense(dim, dim, nil)
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			scaled.Set(i, j, jac.At(i, j)*f.Residual[i]/f.Variable[j])
		}
	}
	rhs := mat.NewVecDense(dim, nil)
	for i := 0; i < dim; i++ {
		rhs.SetVec(i, -r[i]*f.Residual[i])
	}

	sol := mat.NewVecDense(dim, nil)
	var err error
	switch opts.LinearSolver {
	case "qr":
		var qr mat.QR
		qr.Factorize(scaled)
		err = qr.SolveVecTo(sol, false, rhs)
	default:
		var lu mat.LU
		lu.Factorize(scaled)
		err = lu.SolveVecTo(sol, false, rhs)
	}
	if err != nil {
		n.log.Warn("linear solve failed", logging.Error(err))
		return nil, false
	}

	step := make([]float64, dim)
	for j := 0; j < dim; j++ {
		step[j] = sol.AtVec(j) / f.Variable[j]
		if !isFinite(step[j]) {
			return nil, false
		}
	}
	return step, true
}

// clip pushes an iterate strictly inside its bounds.
func (n *Newton) clip(x []float64, p Problem, opts Options) {
	push := opts.BoundPush
	if p.Lower != nil {
		for i := range x {
			if x[i] < p.Lower[i] {
				x[i] = p.Lower[i] + push
			}
		}
	}
	if p.Upper != nil {
		for i := range x {
			if x[i] > p.Upper[i] {
				x[i] = p.Upper[i] - push
			}
		}
	}
}

func scaledNorm(r, factors []float64) float64 {
	maxAbs := 0.0
	for i, v := range r {
		if a := math.Abs(v * factors[i]); a > maxAbs {
			maxAbs = a
		}
	}
	return maxAbs
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
