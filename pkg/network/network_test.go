package network

import (
	"testing"

	"github.com/dd0wney/flowsim/pkg/stream"
)

// stubUnit is a minimal Unit for graph tests: it copies its first inlet to
// every outlet, or emits a canned state when it has no inlets.
type stubUnit struct {
	name    string
	inlets  []string
	outlets []string
	out     stream.State
}

func (u *stubUnit) Name() string      { return u.name }
func (u *stubUnit) Inlets() []string  { return u.inlets }
func (u *stubUnit) Outlets() []string { return u.outlets }

func (u *stubUnit) Estimate(in map[string]stream.State) (map[string]stream.State, error) {
	src := u.out
	for _, s := range in {
		src = s
		break
	}
	out := make(map[string]stream.State, len(u.outlets))
	for _, p := range u.outlets {
		out[p] = src.Clone()
	}
	return out, nil
}

func testState() stream.State {
	return stream.New(stream.Hydrogen, 100, 300, 1e5, map[string]float64{"H2": 0.1, "H2O": 0.9})
}

func newStub(name string, inlets, outlets []string) *stubUnit {
	return &stubUnit{name: name, inlets: inlets, outlets: outlets, out: testState()}
}

// TestAddUnit_CreatesPorts tests node and port registration
func TestAddUnit_CreatesPorts(t *testing.T) {
	fs := New("test")

	n, err := fs.AddUnit(newStub("mixer", []string{"water", "recycle"}, []string{"outlet"}))
	if err != nil {
		t.Fatalf("AddUnit failed: %v", err)
	}
	if len(n.Inlets()) != 2 || len(n.Outlets()) != 1 {
		t.Errorf("port counts = (%d, %d), want (2, 1)", len(n.Inlets()), len(n.Outlets()))
	}
}

// TestAddUnit_DuplicateName tests registration conflicts
func TestAddUnit_DuplicateName(t *testing.T) {
	fs := New("test")
	fs.AddUnit(newStub("a", nil, []string{"outlet"}))

	if _, err := fs.AddUnit(newStub("a", nil, []string{"outlet"})); err == nil {
		t.Error("duplicate node name should be rejected")
	}
}

// TestConnect_ValidatesPorts tests arc endpoint checks
func TestConnect_ValidatesPorts(t *testing.T) {
	fs := New("test")
	fs.AddUnit(newStub("a", nil, []string{"outlet"}))
	fs.AddUnit(newStub("b", []string{"inlet"}, nil))

	if _, err := fs.Connect("s01", PortRef{"a", "outlet"}, PortRef{"b", "inlet"}); err != nil {
		t.Fatalf("valid connection failed: %v", err)
	}
	if _, err := fs.Connect("s02", PortRef{"a", "nope"}, PortRef{"b", "inlet"}); err == nil {
		t.Error("unknown source port should be rejected")
	}
	if _, err := fs.Connect("s03", PortRef{"a", "outlet"}, PortRef{"b", "inlet"}); err == nil {
		t.Error("double-feeding an inlet port should be rejected")
	}
}

// TestDeactivate_Activate tests staged disconnection bookkeeping
func TestDeactivate_Activate(t *testing.T) {
	fs := New("test")
	fs.AddUnit(newStub("a", nil, []string{"outlet"}))
	fs.AddUnit(newStub("b", []string{"inlet"}, nil))
	fs.Connect("s01", PortRef{"a", "outlet"}, PortRef{"b", "inlet"})

	v := fs.Version()
	if err := fs.Deactivate("s01"); err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}
	if fs.Version() == v {
		t.Error("deactivation should bump the topology version")
	}
	if got := fs.Outgoing("a"); len(got) != 0 {
		t.Errorf("deactivated arc still listed among outgoing: %d", len(got))
	}

	fs.Activate("s01")
	if got := fs.Outgoing("a"); len(got) != 1 {
		t.Errorf("reactivated arc missing from outgoing: %d", len(got))
	}
}

// TestFixPortState_RejectsOverwrite tests the fixed-port contract
func TestFixPortState_RejectsOverwrite(t *testing.T) {
	fs := New("test")
	fs.AddUnit(newStub("b", []string{"inlet"}, nil))
	ref := PortRef{"b", "inlet"}

	if err := fs.FixPortState(ref, testState()); err != nil {
		t.Fatalf("FixPortState failed: %v", err)
	}
	if err := fs.SetPortState(ref, testState()); err == nil {
		t.Error("fixed port should refuse SetPortState")
	}

	fs.ReleasePort(ref)
	if err := fs.SetPortState(ref, testState()); err != nil {
		t.Errorf("released port should accept updates: %v", err)
	}
}

// TestFixPortState_ValidatesComposition tests guess validation on fix
func TestFixPortState_ValidatesComposition(t *testing.T) {
	fs := New("test")
	fs.AddUnit(newStub("b", []string{"inlet"}, nil))

	bad := stream.New(stream.Hydrogen, 100, 300, 1e5, map[string]float64{"H2": 0.6, "H2O": 0.6})
	if err := fs.FixPortState(PortRef{"b", "inlet"}, bad); err == nil {
		t.Error("guess with fractions summing to 1.2 should be rejected")
	}
}

// TestPortState_CloneIsolation tests that readers cannot mutate graph state
func TestPortState_CloneIsolation(t *testing.T) {
	fs := New("test")
	fs.AddUnit(newStub("b", []string{"inlet"}, nil))
	ref := PortRef{"b", "inlet"}
	fs.FixPortState(ref, testState())

	s, ok, _ := fs.PortState(ref)
	if !ok {
		t.Fatal("port should be populated")
	}
	s.MoleFrac["H2"] = 0.99

	again, _, _ := fs.PortState(ref)
	if again.MoleFrac["H2"] != 0.1 {
		t.Error("mutating a returned state leaked into the graph")
	}
}

// TestGetStatistics tests the summary counts
func TestGetStatistics(t *testing.T) {
	fs := New("test")
	fs.AddUnit(newStub("a", []string{"recycle"}, []string{"outlet"}))
	fs.AddUnit(newStub("b", []string{"inlet"}, []string{"outlet"}))
	fs.Connect("s01", PortRef{"a", "outlet"}, PortRef{"b", "inlet"})
	fs.ConnectTear("t01", PortRef{"b", "outlet"}, PortRef{"a", "recycle"})

	st := fs.GetStatistics()
	if st.NodeCount != 2 || st.ArcCount != 2 || st.TearArcCount != 1 {
		t.Errorf("statistics = %+v", st)
	}
}
