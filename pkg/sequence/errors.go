package sequence

import (
	"errors"
	"fmt"
	"strings"
)

// Topology and run errors surfaced by the initializer. None of these are
// retried automatically: recovery is an operator adjusting tear guesses or
// the stage sequence and starting a fresh order/run cycle.
var (
	// ErrTearPropagation is returned when Propagate is called on a tear
	// arc. Tear destinations carry operator guesses and are never
	// auto-propagated.
	ErrTearPropagation = errors.New("tear arcs are not auto-propagated")

	// ErrInactiveArc is returned when Propagate is called on an arc that
	// is currently deactivated.
	ErrInactiveArc = errors.New("arc is deactivated")

	// ErrSourceNotInitialized is returned when an arc's source port has no
	// state to propagate yet.
	ErrSourceNotInitialized = errors.New("source port has no state")

	// ErrOrderNotComputed is returned when Run is invoked before a
	// successful ComputeOrder for the current topology.
	ErrOrderNotComputed = errors.New("initialization order not computed")

	// ErrStaleOrder is returned when the topology changed after the last
	// ComputeOrder.
	ErrStaleOrder = errors.New("topology changed since order was computed; recompute")

	// ErrAlreadyRunning is returned on re-entrant Run calls. The
	// initializer is deliberately not reentrant.
	ErrAlreadyRunning = errors.New("initialization already in progress on this graph")

	// ErrRunFailed is returned when Run is invoked after a failed run
	// without recomputing the order first.
	ErrRunFailed = errors.New("previous run failed; adjust guesses and recompute the order")
)

// CyclicGraphError reports that removing the declared tear arcs did not
// yield an acyclic graph. It names at least one remaining cycle so the
// operator can fix the tear selection; it is never retried automatically.
type CyclicGraphError struct {
	Cycle []string // node names along one remaining cycle
}

func (e *CyclicGraphError) Error() string {
	return fmt.Sprintf("graph is cyclic after tear removal; remaining cycle: %s",
		strings.Join(e.Cycle, " -> "))
}

// MissingTearGuessError reports a tear arc whose destination has no
// operator-supplied guess. Detected before any numeric work.
type MissingTearGuessError struct {
	Arc string
}

func (e *MissingTearGuessError) Error() string {
	return fmt.Sprintf("tear arc %q has no registered guess", e.Arc)
}

// LocalInfeasibilityError reports that a node's local-initialize step could
// not satisfy its own relations. The run halts rather than propagating a
// garbage state forward.
type LocalInfeasibilityError struct {
	Node string
	Err  error
}

func (e *LocalInfeasibilityError) Error() string {
	return fmt.Sprintf("local initialization of node %q failed: %v", e.Node, e.Err)
}

func (e *LocalInfeasibilityError) Unwrap() error { return e.Err }
