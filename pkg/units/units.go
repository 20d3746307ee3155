// Package units implements the local-initialize capabilities of the plant's
// unit operations. Each unit estimates its outlet streams from whatever
// inlet streams are available, using simple closed-form relations; the
// estimates only need to be good enough to seed the simultaneous solve.
package units

import (
	"fmt"

	"github.com/dd0wney/flowsim/pkg/stream"
)

// Inlet and outlet port names shared by single-stream units.
const (
	PortIn  = "in"
	PortOut = "out"
)

func requireInlet(in map[string]stream.State, port string) (stream.State, error) {
	s, ok := in[port]
	if !ok {
		return stream.State{}, fmt.Errorf("inlet %q has no state", port)
	}
	return s, nil
}

// Feed is a fixed source stream.
type Feed struct {
	FeedName string
	State    stream.State
}

func (f *Feed) Name() string      { return f.FeedName }
func (f *Feed) Inlets() []string  { return nil }
func (f *Feed) Outlets() []string { return []string{PortOut} }

func (f *Feed) Estimate(in map[string]stream.State) (map[string]stream.State, error) {
	if err := f.State.Validate(); err != nil {
		return nil, fmt.Errorf("feed specification: %w", err)
	}
	return map[string]stream.State{PortOut: f.State.Clone()}, nil
}

// Sink terminates a stream.
type Sink struct {
	SinkName string
}

func (s *Sink) Name() string      { return s.SinkName }
func (s *Sink) Inlets() []string  { return []string{PortIn} }
func (s *Sink) Outlets() []string { return nil }

func (s *Sink) Estimate(in map[string]stream.State) (map[string]stream.State, error) {
	return map[string]stream.State{}, nil
}
