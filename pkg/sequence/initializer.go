// Package sequence implements the flow-network initializer: tear-guess
// registration, topological order computation over the torn graph, exact
// state propagation along arcs, and the sequential node-by-node estimation
// pass that produces a feasible starting point for a simultaneous solve.
package sequence

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/flowsim/pkg/logging"
	"github.com/dd0wney/flowsim/pkg/metrics"
	"github.com/dd0wney/flowsim/pkg/network"
	"github.com/dd0wney/flowsim/pkg/stream"
)

// Phase is the lifecycle state of one initialization cycle.
type Phase int

const (
	// PhaseNotStarted means no valid order exists yet.
	PhaseNotStarted Phase = iota
	// PhaseOrderComputed means a topological order is cached for the
	// current topology and Run may proceed.
	PhaseOrderComputed
	// PhaseRunning means a sequential pass is in progress.
	PhaseRunning
	// PhaseConverged means the last pass visited every node successfully.
	PhaseConverged
	// PhaseFailed means the last pass halted on a local failure. Recovery
	// is operator-driven: adjust guesses, recompute the order, run again.
	PhaseFailed
)

// String returns the string representation of a phase
func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseOrderComputed:
		return "order_computed"
	case PhaseRunning:
		return "running"
	case PhaseConverged:
		return "converged"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Initializer drives sequential initialization of one flowsheet. It is
// single-threaded: one pass at a time, with concurrent Run calls rejected
// rather than queued.
type Initializer struct {
	fs  *network.Flowsheet
	log logging.Logger
	reg *metrics.Registry

	phase        Phase
	order        []string
	orderVersion uint64
	running      atomic.Bool

	lastReport Report
}

// Report summarizes one sequential pass.
type Report struct {
	RunID        string
	Phase        Phase
	NodesVisited int
	Propagations int
	Duration     time.Duration
	FailedNode   string
}

// Option configures an Initializer.
type Option func(*Initializer)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(l logging.Logger) Option {
	return func(i *Initializer) { i.log = l }
}

// WithMetrics sets the metrics registry to record runs into.
func WithMetrics(r *metrics.Registry) Option {
	return func(i *Initializer) { i.reg = r }
}

// New creates an initializer over a flowsheet.
func New(fs *network.Flowsheet, opts ...Option) *Initializer {
	i := &Initializer{
		fs:  fs,
		log: logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Flowsheet returns the underlying graph. Topology edits made through it
// (units added, arcs activated or deactivated) invalidate the cached order.
func (i *Initializer) Flowsheet() *network.Flowsheet { return i.fs }

// Phase returns the current lifecycle phase.
func (i *Initializer) Phase() Phase {
	if i.phase == PhaseOrderComputed && i.orderVersion != i.fs.Version() {
		return PhaseNotStarted
	}
	return i.phase
}

// Order returns a copy of the cached initialization order.
func (i *Initializer) Order() []string {
	out := make([]string, len(i.order))
	copy(out, i.order)
	return out
}

// LastReport returns the summary of the most recent pass.
func (i *Initializer) LastReport() Report { return i.lastReport }

// RegisterTearGuess fixes the destination port of a tear arc with an
// operator-supplied stream guess. The guess must carry a complete
// composition over the destination's component set; it is validated before
// any numeric work happens.
func (i *Initializer) RegisterTearGuess(arcName string, guess stream.State) error {
	a, err := i.fs.Arc(arcName)
	if err != nil {
		return err
	}
	if !a.Tear {
		return fmt.Errorf("arc %q is not a tear arc; guesses apply only to tears", arcName)
	}
	if err := i.fs.FixPortState(a.Dest, guess); err != nil {
		return fmt.Errorf("tear guess for arc %q: %w", arcName, err)
	}
	i.log.Debug("tear guess registered",
		logging.Arc(arcName),
		logging.Float64("flow", guess.Flow),
		logging.Float64("temperature", guess.Temperature),
		logging.Float64("pressure", guess.Pressure))
	return nil
}

// ComputeOrder derives the node visitation order for the current topology:
// a topological sort of the graph with tear arcs and deactivated arcs
// removed. If a cycle survives tear removal the returned *CyclicGraphError
// names it; the error is never retried automatically.
func (i *Initializer) ComputeOrder() error {
	if i.running.Load() {
		return ErrAlreadyRunning
	}
	order, err := computeTopologicalOrder(i.fs)
	if err != nil {
		i.log.Error("order computation failed", logging.Error(err))
		return err
	}
	i.order = order
	i.orderVersion = i.fs.Version()
	i.phase = PhaseOrderComputed
	if i.reg != nil {
		i.reg.InitOrderRecomputes.Inc()
	}
	i.log.Info("initialization order computed", logging.Count(len(order)))
	return nil
}

// Propagate copies the state at an arc's source port to its destination
// port, exactly. Tear arcs are never auto-propagated; inactive arcs and
// unpopulated sources are errors. Repeating a propagation is a no-op.
func (i *Initializer) Propagate(arcName string) error {
	a, err := i.fs.Arc(arcName)
	if err != nil {
		return err
	}
	return i.propagate(a)
}

func (i *Initializer) propagate(a *network.Arc) error {
	if a.Tear {
		return fmt.Errorf("arc %q: %w", a.Name, ErrTearPropagation)
	}
	if !a.Active() {
		return fmt.Errorf("arc %q: %w", a.Name, ErrInactiveArc)
	}
	s, ok, err := i.fs.PortState(a.Source)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("arc %q: %w", a.Name, ErrSourceNotInitialized)
	}
	if err := i.fs.SetPortState(a.Dest, s); err != nil {
		return fmt.Errorf("arc %q: %w", a.Name, err)
	}
	if i.reg != nil {
		i.reg.InitPropagationsTotal.Inc()
	}
	return nil
}

// checkTearGuesses verifies that every active tear arc has a fixed
// destination state before a pass starts.
func (i *Initializer) checkTearGuesses() error {
	for _, a := range i.fs.Arcs() {
		if !a.Tear || !a.Active() {
			continue
		}
		p, err := i.fs.Port(a.Dest)
		if err != nil {
			return err
		}
		if _, ok := p.State(); !ok || !p.Fixed() {
			return &MissingTearGuessError{Arc: a.Name}
		}
	}
	return nil
}

// Run executes one sequential pass: visit each node in the computed order,
// estimate its outlet states from whatever inlet states are available, and
// propagate along outgoing active regular arcs. The first local failure
// halts the pass with no rollback. Port states are the only thing mutated.
func (i *Initializer) Run(ctx context.Context) error {
	if !i.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer i.running.Store(false)

	switch i.phase {
	case PhaseFailed:
		return ErrRunFailed
	case PhaseOrderComputed, PhaseConverged:
		// A converged graph may be re-run; the pass is a fixed point.
	default:
		return ErrOrderNotComputed
	}
	if i.orderVersion != i.fs.Version() {
		return ErrStaleOrder
	}
	if err := i.checkTearGuesses(); err != nil {
		return err
	}

	runID := uuid.NewString()
	log := i.log.With(logging.String("run_id", runID))
	start := time.Now()
	i.phase = PhaseRunning
	report := Report{RunID: runID}

	fail := func(err error) error {
		i.phase = PhaseFailed
		report.Phase = PhaseFailed
		report.Duration = time.Since(start)
		i.lastReport = report
		if i.reg != nil {
			i.reg.RecordInitRun("failed", report.Duration)
		}
		log.Error("initialization pass failed", logging.Error(err))
		return err
	}

	log.Info("initialization pass started", logging.Count(len(i.order)))

	for _, nodeName := range i.order {
		if err := ctx.Err(); err != nil {
			return fail(fmt.Errorf("pass cancelled before node %q: %w", nodeName, err))
		}
		n, err := i.fs.Node(nodeName)
		if err != nil {
			return fail(err)
		}

		in := make(map[string]stream.State)
		for _, p := range n.Inlets() {
			if s, ok := p.State(); ok {
				in[p.Name] = s
			}
		}

		t0 := time.Now()
		out, err := n.Unit.Estimate(in)
		if i.reg != nil {
			i.reg.RecordNodeEstimate(nodeName, time.Since(t0))
		}
		if err != nil {
			return fail(&LocalInfeasibilityError{Node: nodeName, Err: err})
		}
		report.NodesVisited++

		for _, p := range n.Outlets() {
			s, ok := out[p.Name]
			if !ok {
				continue
			}
			if err := s.Validate(); err != nil {
				return fail(&LocalInfeasibilityError{
					Node: nodeName,
					Err:  fmt.Errorf("outlet %q: %w", p.Name, err),
				})
			}
			if p.Fixed() {
				continue
			}
			ref := network.PortRef{Node: nodeName, Port: p.Name}
			if err := i.fs.SetPortState(ref, s); err != nil {
				return fail(err)
			}
		}

		for _, a := range i.fs.Outgoing(nodeName) {
			if a.Tear {
				continue
			}
			dest, err := i.fs.Port(a.Dest)
			if err != nil {
				return fail(err)
			}
			if dest.Fixed() {
				continue
			}
			if _, ok, _ := i.fs.PortState(a.Source); !ok {
				continue
			}
			if err := i.propagate(a); err != nil {
				return fail(err)
			}
			report.Propagations++
		}

		log.Debug("node initialized", logging.NodeName(nodeName))
	}

	i.phase = PhaseConverged
	report.Phase = PhaseConverged
	report.Duration = time.Since(start)
	i.lastReport = report
	if i.reg != nil {
		i.reg.RecordInitRun("converged", report.Duration)
	}
	log.Info("initialization pass converged",
		logging.Count(report.NodesVisited),
		logging.Latency(report.Duration))
	return nil
}
