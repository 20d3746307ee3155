package validation

import (
	"errors"
	"strings"
	"testing"
)

// TestConfigValidator_Required tests the empty-string check
func TestConfigValidator_Required(t *testing.T) {
	cv := NewConfigValidator("RunConfig")
	if cv.Required("name", "").Error() == nil {
		t.Error("empty required field should fail")
	}
	if NewConfigValidator("RunConfig").Required("name", "soec-coproduction").HasErrors() {
		t.Error("non-empty field should pass")
	}
}

// TestConfigValidator_IntChecks tests the integer validators
func TestConfigValidator_IntChecks(t *testing.T) {
	cv := NewConfigValidator("SolverConfig")
	cv.Positive("max_iterations", 0).
		NonNegative("restarts", -1).
		RangeInt("tear_count", 6, 1, 4)
	if len(cv.Errors()) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(cv.Errors()), cv.Errors())
	}

	cv = NewConfigValidator("SolverConfig")
	cv.Positive("max_iterations", 200).
		NonNegative("restarts", 0).
		RangeInt("tear_count", 4, 1, 4)
	if cv.HasErrors() {
		t.Errorf("valid solver ints rejected: %v", cv.Error())
	}
}

// TestConfigValidator_FloatChecks tests the float validators on typical
// stream quantities
func TestConfigValidator_FloatChecks(t *testing.T) {
	cases := []struct {
		name  string
		apply func(cv *ConfigValidator)
		bad   bool
	}{
		{"zero flow", func(cv *ConfigValidator) { cv.PositiveFloat("flow", 0) }, true},
		{"negative pressure", func(cv *ConfigValidator) { cv.PositiveFloat("pressure", -1e5) }, true},
		{"real temperature", func(cv *ConfigValidator) { cv.PositiveFloat("temperature", 1073.15) }, false},
		{"negative duty", func(cv *ConfigValidator) { cv.NonNegativeFloat("duty", -3.2) }, true},
		{"zero duty", func(cv *ConfigValidator) { cv.NonNegativeFloat("duty", 0) }, false},
		{"voltage below window", func(cv *ConfigValidator) { cv.RangeFloat("cell_voltage", 0.4, 0.8, 1.6) }, true},
		{"voltage in window", func(cv *ConfigValidator) { cv.RangeFloat("cell_voltage", 1.28, 0.8, 1.6) }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cv := NewConfigValidator("PlantConfig")
			tc.apply(cv)
			if tc.bad && !cv.HasErrors() {
				t.Error("expected a validation error")
			}
			if !tc.bad && cv.HasErrors() {
				t.Errorf("unexpected error: %v", cv.Error())
			}
		})
	}
}

// TestConfigValidator_Fraction tests the [0, 1] window used by split ratios
func TestConfigValidator_Fraction(t *testing.T) {
	for _, v := range []float64{0, 0.75, 1} {
		if NewConfigValidator("PlantConfig").Fraction("steam_conversion", v).HasErrors() {
			t.Errorf("fraction %g should be legal", v)
		}
	}
	for _, v := range []float64{-0.1, 1.2} {
		if !NewConfigValidator("PlantConfig").Fraction("steam_conversion", v).HasErrors() {
			t.Errorf("fraction %g should be rejected", v)
		}
	}
}

// TestConfigValidator_OneOf tests the enumeration check
func TestConfigValidator_OneOf(t *testing.T) {
	solvers := []string{"lu", "qr"}
	if !NewConfigValidator("SolverConfig").OneOf("linear_solver", "ma27", solvers).HasErrors() {
		t.Error("unknown linear solver should fail")
	}
	if NewConfigValidator("SolverConfig").OneOf("linear_solver", "qr", solvers).HasErrors() {
		t.Error("known linear solver should pass")
	}
}

// TestConfigValidator_Custom tests error wrapping through Custom
func TestConfigValidator_Custom(t *testing.T) {
	inner := errors.New("composition sums to 1.4")
	cv := NewConfigValidator("RunConfig")
	cv.Custom("tear_guesses.t_preheat", func() error { return inner })

	err := cv.Error()
	if !errors.Is(err, inner) {
		t.Fatalf("Custom should wrap the inner error, got %v", err)
	}
	if !strings.Contains(err.Error(), "RunConfig.tear_guesses.t_preheat") {
		t.Errorf("error should carry the field path: %v", err)
	}

	if NewConfigValidator("RunConfig").Custom("ok", func() error { return nil }).HasErrors() {
		t.Error("passing custom check should not record an error")
	}
}

// TestConfigValidator_When tests conditional validation
func TestConfigValidator_When(t *testing.T) {
	cv := NewConfigValidator("SnapshotConfig")
	cv.When(true, func(v *ConfigValidator) {
		v.Required("dir", "")
	})
	if !cv.HasErrors() {
		t.Error("nested check should run when the condition holds")
	}

	cv = NewConfigValidator("SnapshotConfig")
	cv.When(false, func(v *ConfigValidator) {
		v.Required("dir", "")
	})
	if cv.HasErrors() {
		t.Error("nested check must not run when the condition is false")
	}
}

// TestConfigValidator_Validate tests error folding
func TestConfigValidator_Validate(t *testing.T) {
	if err := NewConfigValidator("RunConfig").Validate(); err != nil {
		t.Errorf("clean validator should fold to nil, got %v", err)
	}

	one := NewConfigValidator("RunConfig").Required("name", "")
	if err := one.Validate(); err == nil || !strings.Contains(err.Error(), "RunConfig.name") {
		t.Errorf("single failure should surface directly: %v", err)
	}

	many := NewConfigValidator("RunConfig").
		Required("name", "").
		PositiveFloat("feeds.air.flow", 0).
		Fraction("plant.steam_conversion", 1.5)
	err := many.Validate()
	if err == nil || !strings.Contains(err.Error(), "3 errors") {
		t.Errorf("folded error should count the failures: %v", err)
	}
}

// TestDefaultHelpers tests the fallback and clamping helpers
func TestDefaultHelpers(t *testing.T) {
	if DefaultOr("", "snapshots") != "snapshots" {
		t.Error("empty string should take the default")
	}
	if DefaultOr("runs", "snapshots") != "runs" {
		t.Error("set string should survive")
	}

	if DefaultOrFloat(0, 1e-7) != 1e-7 {
		t.Error("zero tolerance should take the default")
	}
	if DefaultOrFloat(-1, 1e-7) != 1e-7 {
		t.Error("negative tolerance should take the default")
	}
	if DefaultOrFloat(1e-9, 1e-7) != 1e-9 {
		t.Error("set tolerance should survive")
	}

	for _, tc := range []struct{ value, min, max, want float64 }{
		{0.5, 0, 1, 0.5},
		{-0.2, 0, 1, 0},
		{1.4, 0, 1, 1},
	} {
		if got := ClampFloat(tc.value, tc.min, tc.max); got != tc.want {
			t.Errorf("ClampFloat(%g, %g, %g) = %g, want %g",
				tc.value, tc.min, tc.max, got, tc.want)
		}
	}
}

// runSection is a minimal self-checking config for ValidateConfig.
type runSection struct {
	Name      string
	Tolerance float64
}

func (c *runSection) Validate() error {
	return NewConfigValidator("runSection").
		Required("name", c.Name).
		PositiveFloat("tolerance", c.Tolerance).
		Validate()
}

// TestValidateConfig tests the Validatable entry point
func TestValidateConfig(t *testing.T) {
	if err := ValidateConfig(&runSection{Name: "reference", Tolerance: 1e-7}); err != nil {
		t.Errorf("valid section rejected: %v", err)
	}
	if err := ValidateConfig(&runSection{}); err == nil {
		t.Error("invalid section should fail")
	}
	if err := ValidateConfig(nil); err == nil {
		t.Error("nil config should fail")
	}
}
