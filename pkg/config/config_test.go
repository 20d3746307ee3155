package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestDefault_IsValid tests that the reference configuration passes its own
// validation
func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if len(cfg.Guesses) != 4 {
		t.Errorf("expected 4 tear guesses, got %d", len(cfg.Guesses))
	}
	for _, arc := range []string{"t_preheat", "t_steam", "t_fuel_recycle", "t_sweep"} {
		if _, ok := cfg.Guesses[arc]; !ok {
			t.Errorf("default config should guess tear %q", arc)
		}
	}
}

// TestLoad_PartialOverride tests that a partial YAML file only overrides
// what it mentions
func TestLoad_PartialOverride(t *testing.T) {
	cfg, err := Load([]byte(`
name: override-run
solver:
  tolerance: 1.0e-6
  max_iterations: 50
  linear_solver: qr
  damping: 0.5
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "override-run" {
		t.Errorf("name = %q", cfg.Name)
	}
	if cfg.Solver.Tolerance != 1e-6 || cfg.Solver.MaxIterations != 50 {
		t.Errorf("solver override lost: %+v", cfg.Solver)
	}
	if cfg.Solver.LinearSolver != "qr" {
		t.Errorf("linear solver = %q", cfg.Solver.LinearSolver)
	}
	// Untouched sections keep their defaults.
	if cfg.Plant.CellVoltage != 1.28 {
		t.Errorf("cell voltage default lost: %g", cfg.Plant.CellVoltage)
	}
	if cfg.Feeds.NaturalGas.Flow != 380 {
		t.Errorf("NG feed default lost: %g", cfg.Feeds.NaturalGas.Flow)
	}
}

// TestLoad_RejectsBadValues tests tag-level validation failures
func TestLoad_RejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"negative tolerance", "solver:\n  tolerance: -1.0e-7"},
		{"unknown linear solver", "solver:\n  linear_solver: ma27"},
		{"conversion over one", "plant:\n  steam_conversion: 1.2"},
		{"zero cell voltage", "plant:\n  cell_voltage: 0"},
		{"bad log level", "log_level: chatty"},
		{"sub-stoichiometric oxygen", "plant:\n  excess_oxygen: 0.8"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load([]byte(tc.yaml)); err == nil {
				t.Errorf("expected validation error for %q", tc.yaml)
			}
		})
	}
}

// TestLoad_RejectsBadGuessComposition tests the cross-field stream checks
func TestLoad_RejectsBadGuessComposition(t *testing.T) {
	_, err := Load([]byte(`
tear_guesses:
  t_preheat:
    basis: air
    flow: 6000
    temperature: 700
    pressure: 1.04e5
    composition:
      O2: 0.5
      N2: 0.9
`))
	if err == nil {
		t.Fatal("composition summing to 1.4 should be rejected")
	}
	if !strings.Contains(err.Error(), "t_preheat") {
		t.Errorf("error should name the offending guess: %v", err)
	}
}

// TestLoad_RejectsBadGuessArcName tests that guess keys must be legal arc
// identifiers, not just well-formed streams
func TestLoad_RejectsBadGuessArcName(t *testing.T) {
	_, err := Load([]byte(`
tear_guesses:
  T_Preheat:
    basis: water
    flow: 2000
    temperature: 600
    pressure: 1.1e5
    composition:
      H2O: 1
`))
	if err == nil {
		t.Fatal("uppercase guess key should be rejected")
	}
	if !strings.Contains(err.Error(), "T_Preheat") {
		t.Errorf("error should name the offending guess: %v", err)
	}
}

// TestLoad_RejectsUnknownBasis tests basis name resolution
func TestLoad_RejectsUnknownBasis(t *testing.T) {
	_, err := Load([]byte(`
feeds:
  air:
    basis: flue_gas
    flow: 5000
    temperature: 330
    pressure: 1.01325e5
    composition:
      O2: 1
`))
	if err == nil {
		t.Fatal("unknown basis should be rejected")
	}
}

// TestStreamSpec_State tests resolution into a stream state
func TestStreamSpec_State(t *testing.T) {
	spec := StreamSpec{
		Basis: "hydrogen", Flow: 40, Temperature: 1073.15, Pressure: 1.1e5,
		Composition: map[string]float64{"H2": 0.77, "H2O": 0.23},
	}
	st, err := spec.State()
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if st.Basis.Name != "hydrogen" || st.Flow != 40 {
		t.Errorf("unexpected state: %+v", st)
	}
	if math.Abs(st.MoleFrac["H2"]-0.77) > 1e-12 {
		t.Errorf("H2 fraction = %g", st.MoleFrac["H2"])
	}

	// Species outside the basis fail state validation.
	spec.Composition = map[string]float64{"CH4": 1}
	if _, err := spec.State(); err == nil {
		t.Error("species outside the basis should be rejected")
	}
}

// TestSolverConfig_Options tests the conversion to solver options
func TestSolverConfig_Options(t *testing.T) {
	opts := Default().Solver.Options()
	if opts.Tolerance != 1e-7 || opts.MaxIterations != 200 {
		t.Errorf("unexpected options: %+v", opts)
	}
	if opts.BoundPush != 1e-12 || opts.LinearSolver != "lu" || opts.Damping != 0.5 {
		t.Errorf("unexpected options: %+v", opts)
	}
}

// TestLoadFile_RoundTrip tests reading a config from disk
func TestLoadFile_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	body := "name: file-run\nplant:\n  co2_capture_fraction: 0.9\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Name != "file-run" || cfg.Plant.CO2CaptureFraction != 0.9 {
		t.Errorf("unexpected config: name=%q capture=%g", cfg.Name, cfg.Plant.CO2CaptureFraction)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("missing file should error")
	}
}
