// Package network holds the explicit flowsheet graph: unit-operation nodes,
// the ports they own, and the directed stream arcs connecting them. The
// graph is a plain registry built once per model; nothing here is attached
// dynamically to a shared model object, and a running initialization treats
// the topology as immutable.
package network

import (
	"fmt"

	"github.com/dd0wney/flowsim/pkg/stream"
)

// Unit is the local-initialize capability of a unit operation: given the
// states available on its inlet ports, estimate the states of its outlet
// ports. A unit may substitute internal guesses for missing inlets, and it
// must report local infeasibility instead of returning a garbage state.
type Unit interface {
	Name() string
	Inlets() []string
	Outlets() []string
	Estimate(in map[string]stream.State) (map[string]stream.State, error)
}

// Port is a named connection point owned by exactly one node. It holds the
// stream state at that point once populated. Fixed ports (feeds, tear
// guesses) are operator-set and are never overwritten by propagation.
type Port struct {
	Name  string
	Node  string
	state *stream.State
	fixed bool
}

// State returns the port state and whether it has been populated.
func (p *Port) State() (stream.State, bool) {
	if p.state == nil {
		return stream.State{}, false
	}
	return p.state.Clone(), true
}

// Fixed reports whether the port state is operator-fixed.
func (p *Port) Fixed() bool { return p.fixed }

// Node is one unit operation in the flowsheet with its owned ports.
type Node struct {
	Name    string
	Unit    Unit
	inlets  []*Port
	outlets []*Port
}

// Inlets returns the node's inlet ports in declaration order.
func (n *Node) Inlets() []*Port { return n.inlets }

// Outlets returns the node's outlet ports in declaration order.
func (n *Node) Outlets() []*Port { return n.outlets }

// PortRef names one port on one node.
type PortRef struct {
	Node string
	Port string
}

func (r PortRef) String() string { return r.Node + "." + r.Port }

// Arc is a directed connection from an outlet port to an inlet port. Arcs
// carry no state: propagation copies the source port state onto the
// destination port. A tear arc breaks a recycle loop; its destination is
// supplied as an operator guess and the arc imposes no ordering constraint.
// Inactive arcs are temporarily disconnected during staged initialization.
type Arc struct {
	Name   string
	Source PortRef
	Dest   PortRef
	Tear   bool
	active bool
}

// Active reports whether the arc currently participates in ordering and
// propagation.
func (a *Arc) Active() bool { return a.active }

// Flowsheet is the graph registry: nodes, ports and arcs addressed by name.
// Insertion order is preserved so that order computation and reporting are
// deterministic.
type Flowsheet struct {
	Name string

	nodes     map[string]*Node
	nodeOrder []string
	arcs      map[string]*Arc
	arcOrder  []string

	// version increments on every topology change so cached
	// initialization orders can detect staleness.
	version uint64
}

// New creates an empty flowsheet.
func New(name string) *Flowsheet {
	return &Flowsheet{
		Name:  name,
		nodes: make(map[string]*Node),
		arcs:  make(map[string]*Arc),
	}
}

// Version returns the topology version, incremented by every structural
// change (node added, arc added, arc activated or deactivated).
func (f *Flowsheet) Version() uint64 { return f.version }

// AddUnit registers a unit operation as a node, creating one port per
// declared inlet and outlet.
func (f *Flowsheet) AddUnit(u Unit) (*Node, error) {
	name := u.Name()
	if name == "" {
		return nil, fmt.Errorf("unit has no name")
	}
	if _, exists := f.nodes[name]; exists {
		return nil, fmt.Errorf("node %q already registered", name)
	}
	n := &Node{Name: name, Unit: u}
	for _, p := range u.Inlets() {
		n.inlets = append(n.inlets, &Port{Name: p, Node: name})
	}
	for _, p := range u.Outlets() {
		n.outlets = append(n.outlets, &Port{Name: p, Node: name})
	}
	f.nodes[name] = n
	f.nodeOrder = append(f.nodeOrder, name)
	f.version++
	return n, nil
}

// Node returns a registered node.
func (f *Flowsheet) Node(name string) (*Node, error) {
	n, ok := f.nodes[name]
	if !ok {
		return nil, fmt.Errorf("node %q not registered", name)
	}
	return n, nil
}

// Nodes returns all nodes in registration order.
func (f *Flowsheet) Nodes() []*Node {
	out := make([]*Node, 0, len(f.nodeOrder))
	for _, name := range f.nodeOrder {
		out = append(out, f.nodes[name])
	}
	return out
}

// Connect adds a regular arc from an outlet port to an inlet port.
func (f *Flowsheet) Connect(name string, source, dest PortRef) (*Arc, error) {
	return f.connect(name, source, dest, false)
}

// ConnectTear adds a tear arc. Tear arcs impose no ordering constraint and
// are never auto-propagated; the destination port is fixed from an operator
// guess before initialization.
func (f *Flowsheet) ConnectTear(name string, source, dest PortRef) (*Arc, error) {
	return f.connect(name, source, dest, true)
}

func (f *Flowsheet) connect(name string, source, dest PortRef, tear bool) (*Arc, error) {
	if _, exists := f.arcs[name]; exists {
		return nil, fmt.Errorf("arc %q already registered", name)
	}
	if _, err := f.outletPort(source); err != nil {
		return nil, fmt.Errorf("arc %q source: %w", name, err)
	}
	if _, err := f.inletPort(dest); err != nil {
		return nil, fmt.Errorf("arc %q destination: %w", name, err)
	}
	for _, other := range f.arcOrder {
		a := f.arcs[other]
		if a.Dest == dest {
			return nil, fmt.Errorf("arc %q: destination %s already fed by arc %q", name, dest, other)
		}
	}
	a := &Arc{Name: name, Source: source, Dest: dest, Tear: tear, active: true}
	f.arcs[name] = a
	f.arcOrder = append(f.arcOrder, name)
	f.version++
	return a, nil
}

// Arc returns a registered arc.
func (f *Flowsheet) Arc(name string) (*Arc, error) {
	a, ok := f.arcs[name]
	if !ok {
		return nil, fmt.Errorf("arc %q not registered", name)
	}
	return a, nil
}

// Arcs returns all arcs in registration order.
func (f *Flowsheet) Arcs() []*Arc {
	out := make([]*Arc, 0, len(f.arcOrder))
	for _, name := range f.arcOrder {
		out = append(out, f.arcs[name])
	}
	return out
}

// Outgoing returns the active arcs leaving a node, in registration order.
func (f *Flowsheet) Outgoing(node string) []*Arc {
	var out []*Arc
	for _, name := range f.arcOrder {
		a := f.arcs[name]
		if a.active && a.Source.Node == node {
			out = append(out, a)
		}
	}
	return out
}

// Incoming returns the active arcs entering a node, in registration order.
func (f *Flowsheet) Incoming(node string) []*Arc {
	var out []*Arc
	for _, name := range f.arcOrder {
		a := f.arcs[name]
		if a.active && a.Dest.Node == node {
			out = append(out, a)
		}
	}
	return out
}

// Deactivate disconnects an arc for staged initialization. The arc stops
// constraining the order and stops propagating.
func (f *Flowsheet) Deactivate(arcName string) error {
	a, err := f.Arc(arcName)
	if err != nil {
		return err
	}
	if a.active {
		a.active = false
		f.version++
	}
	return nil
}

// Activate reconnects a previously deactivated arc.
func (f *Flowsheet) Activate(arcName string) error {
	a, err := f.Arc(arcName)
	if err != nil {
		return err
	}
	if !a.active {
		a.active = true
		f.version++
	}
	return nil
}

func (f *Flowsheet) inletPort(ref PortRef) (*Port, error) {
	n, err := f.Node(ref.Node)
	if err != nil {
		return nil, err
	}
	for _, p := range n.inlets {
		if p.Name == ref.Port {
			return p, nil
		}
	}
	return nil, fmt.Errorf("node %q has no inlet port %q", ref.Node, ref.Port)
}

func (f *Flowsheet) outletPort(ref PortRef) (*Port, error) {
	n, err := f.Node(ref.Node)
	if err != nil {
		return nil, err
	}
	for _, p := range n.outlets {
		if p.Name == ref.Port {
			return p, nil
		}
	}
	return nil, fmt.Errorf("node %q has no outlet port %q", ref.Node, ref.Port)
}

// Port resolves a port reference, searching inlets then outlets.
func (f *Flowsheet) Port(ref PortRef) (*Port, error) {
	if p, err := f.inletPort(ref); err == nil {
		return p, nil
	}
	return f.outletPort(ref)
}

// SetPortState populates a port with a state. Fixed ports reject updates;
// use ReleasePort first if the fix is being staged away.
func (f *Flowsheet) SetPortState(ref PortRef, s stream.State) error {
	p, err := f.Port(ref)
	if err != nil {
		return err
	}
	if p.fixed {
		return fmt.Errorf("port %s is fixed; release it before overwriting", ref)
	}
	c := s.Clone()
	p.state = &c
	return nil
}

// FixPortState populates a port and marks it operator-fixed. Used for feed
// specifications and tear guesses.
func (f *Flowsheet) FixPortState(ref PortRef, s stream.State) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("fixing port %s: %w", ref, err)
	}
	p, err := f.Port(ref)
	if err != nil {
		return err
	}
	c := s.Clone()
	p.state = &c
	p.fixed = true
	return nil
}

// ReleasePort clears the fixed flag, leaving the current state in place as
// an ordinary value that later passes may overwrite.
func (f *Flowsheet) ReleasePort(ref PortRef) error {
	p, err := f.Port(ref)
	if err != nil {
		return err
	}
	p.fixed = false
	return nil
}

// PortState returns the state at a port.
func (f *Flowsheet) PortState(ref PortRef) (stream.State, bool, error) {
	p, err := f.Port(ref)
	if err != nil {
		return stream.State{}, false, err
	}
	s, ok := p.State()
	return s, ok, nil
}

// Statistics summarizes the graph.
type Statistics struct {
	NodeCount     int
	ArcCount      int
	TearArcCount  int
	InactiveArcs  int
	PopulatedPort int
}

// GetStatistics counts nodes, arcs and populated ports.
func (f *Flowsheet) GetStatistics() Statistics {
	st := Statistics{NodeCount: len(f.nodes), ArcCount: len(f.arcs)}
	for _, name := range f.arcOrder {
		a := f.arcs[name]
		if a.Tear {
			st.TearArcCount++
		}
		if !a.active {
			st.InactiveArcs++
		}
	}
	for _, name := range f.nodeOrder {
		n := f.nodes[name]
		for _, p := range n.inlets {
			if p.state != nil {
				st.PopulatedPort++
			}
		}
		for _, p := range n.outlets {
			if p.state != nil {
				st.PopulatedPort++
			}
		}
	}
	return st
}
