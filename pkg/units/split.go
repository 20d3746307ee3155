package units

import (
	"fmt"
	"math"

	"github.com/dd0wney/flowsim/pkg/stream"
	"github.com/dd0wney/flowsim/pkg/thermo"
)

// Splitter divides a stream into outlets at fixed overall fractions.
// Composition, temperature and pressure pass through unchanged.
type Splitter struct {
	UnitName string
	// Fractions maps outlet port name to its share of the inlet flow.
	// The shares must sum to 1.
	Fractions map[string]float64

	order []string
}

// NewSplitter creates a splitter with a deterministic outlet order.
func NewSplitter(name string, outlets []string, fractions []float64) (*Splitter, error) {
	if len(outlets) != len(fractions) {
		return nil, fmt.Errorf("splitter %q: %d outlets but %d fractions",
			name, len(outlets), len(fractions))
	}
	total := 0.0
	m := make(map[string]float64, len(outlets))
	for i, out := range outlets {
		if fractions[i] < 0 {
			return nil, fmt.Errorf("splitter %q: negative fraction on %q", name, out)
		}
		m[out] = fractions[i]
		total += fractions[i]
	}
	if math.Abs(total-1) > 1e-9 {
		return nil, fmt.Errorf("splitter %q: fractions sum to %g, want 1", name, total)
	}
	return &Splitter{UnitName: name, Fractions: m, order: append([]string(nil), outlets...)}, nil
}

func (sp *Splitter) Name() string      { return sp.UnitName }
func (sp *Splitter) Inlets() []string  { return []string{PortIn} }
func (sp *Splitter) Outlets() []string { return sp.order }

func (sp *Splitter) Estimate(in map[string]stream.State) (map[string]stream.State, error) {
	s, err := requireInlet(in, PortIn)
	if err != nil {
		return nil, err
	}
	out := make(map[string]stream.State, len(sp.order))
	for _, port := range sp.order {
		branch := s.Clone()
		branch.Flow = s.Flow * sp.Fractions[port]
		out[port] = branch
	}
	return out, nil
}

// Separator splits a stream per component: each species goes to the
// product outlet at its own fraction, with the remainder to the reject
// outlet. Models the air separation unit.
type Separator struct {
	UnitName string
	// ProductFraction maps species to the share sent to PortProduct.
	// Species absent from the map go entirely to PortReject.
	ProductFraction map[string]float64
}

// Separator port names.
const (
	PortProduct = "product"
	PortReject  = "reject"
)

func (sep *Separator) Name() string      { return sep.UnitName }
func (sep *Separator) Inlets() []string  { return []string{PortIn} }
func (sep *Separator) Outlets() []string { return []string{PortProduct, PortReject} }

func (sep *Separator) Estimate(in map[string]stream.State) (map[string]stream.State, error) {
	s, err := requireInlet(in, PortIn)
	if err != nil {
		return nil, err
	}

	prodFlows := make(map[string]float64, len(s.Basis.Species))
	rejFlows := make(map[string]float64, len(s.Basis.Species))
	prodTotal, rejTotal := 0.0, 0.0
	for _, sp := range s.Basis.Species {
		f, ok := sep.ProductFraction[sp]
		if !ok {
			f = 0
		}
		if f < 0 || f > 1 {
			return nil, fmt.Errorf("split fraction %g for %s out of [0, 1]", f, sp)
		}
		n := s.ComponentFlow(sp)
		prodFlows[sp] = n * f
		rejFlows[sp] = n * (1 - f)
		prodTotal += prodFlows[sp]
		rejTotal += rejFlows[sp]
	}
	if prodTotal <= 0 || rejTotal <= 0 {
		return nil, fmt.Errorf("split sends no material to one outlet (product %g, reject %g)",
			prodTotal, rejTotal)
	}

	product := s.Clone()
	product.Flow = prodTotal
	reject := s.Clone()
	reject.Flow = rejTotal
	for _, sp := range s.Basis.Species {
		product.MoleFrac[sp] = prodFlows[sp] / prodTotal
		reject.MoleFrac[sp] = rejFlows[sp] / rejTotal
	}
	return map[string]stream.State{PortProduct: product, PortReject: reject}, nil
}

// Mixer combines inlet streams by material and enthalpy balance. The
// outlet pressure is the lowest inlet pressure; all inlets must share one
// component basis.
type Mixer struct {
	UnitName   string
	InletPorts []string
}

func (m *Mixer) Name() string      { return m.UnitName }
func (m *Mixer) Inlets() []string  { return m.InletPorts }
func (m *Mixer) Outlets() []string { return []string{PortOut} }

func (m *Mixer) Estimate(in map[string]stream.State) (map[string]stream.State, error) {
	var streams []stream.State
	for _, port := range m.InletPorts {
		if s, ok := in[port]; ok {
			streams = append(streams, s)
		}
	}
	if len(streams) == 0 {
		return nil, fmt.Errorf("no inlet stream available")
	}

	basis := streams[0].Basis
	totalFlow := 0.0
	totalEnthalpy := 0.0
	minPressure := math.Inf(1)
	flows := make(map[string]float64, len(basis.Species))
	for _, s := range streams {
		if s.Basis.Name != basis.Name {
			return nil, fmt.Errorf("inlet bases differ: %s vs %s", s.Basis.Name, basis.Name)
		}
		totalFlow += s.Flow
		totalEnthalpy += s.Flow * thermo.MixtureEnthalpy(s.MoleFrac, s.Temperature)
		if s.Pressure < minPressure {
			minPressure = s.Pressure
		}
		for _, sp := range basis.Species {
			flows[sp] += s.ComponentFlow(sp)
		}
	}
	if totalFlow <= 0 {
		return nil, fmt.Errorf("mixed flow is %g", totalFlow)
	}

	comp := make(map[string]float64, len(basis.Species))
	for _, sp := range basis.Species {
		comp[sp] = flows[sp] / totalFlow
	}
	t, err := thermo.TemperatureFromEnthalpy(comp, totalEnthalpy/totalFlow, streams[0].Temperature)
	if err != nil {
		return nil, err
	}

	out := stream.New(basis, totalFlow, t, minPressure, comp)
	return map[string]stream.State{PortOut: out}, nil
}

// Translator changes a stream's component basis, dropping species the
// target basis lacks and renormalizing.
type Translator struct {
	UnitName string
	Target   stream.ComponentSet
}

func (tr *Translator) Name() string      { return tr.UnitName }
func (tr *Translator) Inlets() []string  { return []string{PortIn} }
func (tr *Translator) Outlets() []string { return []string{PortOut} }

func (tr *Translator) Estimate(in map[string]stream.State) (map[string]stream.State, error) {
	s, err := requireInlet(in, PortIn)
	if err != nil {
		return nil, err
	}
	out := s.Translate(tr.Target)
	if out.Flow <= 0 && s.Flow > 0 {
		return nil, fmt.Errorf("no material survives translation to basis %q", tr.Target.Name)
	}
	return map[string]stream.State{PortOut: out}, nil
}
