// Package config loads and validates run configuration: feed
// specifications, tear guesses, plant parameters and solver options. The
// staged initialization sequence is configuration data; nothing here is
// inferred from the flowsheet.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/flowsim/pkg/solver"
	"github.com/dd0wney/flowsim/pkg/stream"
	"github.com/dd0wney/flowsim/pkg/validation"
)

var validate = validator.New()

// StreamSpec is a stream state in configuration form.
type StreamSpec struct {
	Basis       string             `yaml:"basis" validate:"required,oneof=fuel_gas air hydrogen pure_hydrogen water co2_h2o"`
	Flow        float64            `yaml:"flow" validate:"gt=0"`
	Temperature float64            `yaml:"temperature" validate:"gt=0"`
	Pressure    float64            `yaml:"pressure" validate:"gt=0"`
	Composition map[string]float64 `yaml:"composition" validate:"required"`
}

// basisByName maps configuration names to component sets.
func basisByName(name string) (stream.ComponentSet, error) {
	switch name {
	case "fuel_gas":
		return stream.FuelGas, nil
	case "air":
		return stream.Air, nil
	case "hydrogen":
		return stream.Hydrogen, nil
	case "pure_hydrogen":
		return stream.PureHydrogen, nil
	case "water":
		return stream.Water, nil
	case "co2_h2o":
		return stream.CO2H2O, nil
	}
	return stream.ComponentSet{}, fmt.Errorf("unknown component basis %q", name)
}

// State resolves the declared stream into a validated state.
func (s StreamSpec) State() (stream.State, error) {
	basis, err := basisByName(s.Basis)
	if err != nil {
		return stream.State{}, err
	}
	st := stream.New(basis, s.Flow, s.Temperature, s.Pressure, s.Composition)
	if err := st.Validate(); err != nil {
		return stream.State{}, err
	}
	return st, nil
}

// FeedsConfig holds the plant boundary streams.
type FeedsConfig struct {
	Air        StreamSpec `yaml:"air"`
	NaturalGas StreamSpec `yaml:"natural_gas"`
	SweepAir   StreamSpec `yaml:"sweep_air"`
	FeedWater  StreamSpec `yaml:"feed_water"`
}

// PlantConfig holds unit-operation parameters.
type PlantConfig struct {
	SteamConversion     float64 `yaml:"steam_conversion" validate:"gt=0,lt=1"`
	CellVoltage         float64 `yaml:"cell_voltage" validate:"gt=0"`
	OperatingTemp       float64 `yaml:"operating_temperature" validate:"gt=0"`
	OxygenCrossover     float64 `yaml:"oxygen_crossover" validate:"gt=0"`
	FuelRecycleFraction float64 `yaml:"fuel_recycle_fraction" validate:"gte=0,lt=1"`
	SweepPurgeFraction  float64 `yaml:"sweep_purge_fraction" validate:"gte=0,lt=1"`
	BoilerDutyFraction  float64 `yaml:"boiler_duty_fraction" validate:"gte=0,lt=1"`
	CO2CaptureFraction  float64 `yaml:"co2_capture_fraction" validate:"gt=0,lte=1"`
	ExcessOxygen        float64 `yaml:"excess_oxygen" validate:"gte=1"`
}

// SolverConfig mirrors solver.Options in configuration form.
type SolverConfig struct {
	Tolerance     float64 `yaml:"tolerance" validate:"gt=0"`
	MaxIterations int     `yaml:"max_iterations" validate:"gt=0"`
	BoundPush     float64 `yaml:"bound_push" validate:"gte=0"`
	LinearSolver  string  `yaml:"linear_solver" validate:"oneof=lu qr"`
	Damping       float64 `yaml:"damping" validate:"gt=0,lt=1"`
}

// Options converts to the solver's per-call options value.
func (s SolverConfig) Options() solver.Options {
	return solver.Options{
		Tolerance:     s.Tolerance,
		MaxIterations: s.MaxIterations,
		BoundPush:     s.BoundPush,
		LinearSolver:  s.LinearSolver,
		Damping:       s.Damping,
	}
}

// SnapshotConfig controls converged-state snapshots.
type SnapshotConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Dir      string `yaml:"dir"`
	S3Bucket string `yaml:"s3_bucket"`
	S3Prefix string `yaml:"s3_prefix"`
}

// Config is the full run configuration.
type Config struct {
	Name     string                `yaml:"name" validate:"required"`
	LogLevel string                `yaml:"log_level" validate:"oneof=debug info warn error"`
	Feeds    FeedsConfig           `yaml:"feeds"`
	Plant    PlantConfig           `yaml:"plant"`
	Guesses  map[string]StreamSpec `yaml:"tear_guesses" validate:"required,min=1"`
	Solver   SolverConfig          `yaml:"solver"`
	Snapshot SnapshotConfig        `yaml:"snapshot"`
}

// Default returns the reference plant configuration.
func Default() Config {
	return Config{
		Name:     "soec-coproduction",
		LogLevel: "info",
		Feeds: FeedsConfig{
			Air: StreamSpec{
				Basis: "air", Flow: 5000, Temperature: 330, Pressure: 1.01325e5,
				Composition: map[string]float64{
					"O2": 0.2074, "H2O": 0.0099, "CO2": 0.0003, "N2": 0.7732, "Ar": 0.0092,
				},
			},
			NaturalGas: StreamSpec{
				Basis: "fuel_gas", Flow: 380, Temperature: 330, Pressure: 1.04e5,
				Composition: map[string]float64{
					"CH4": 0.931, "C2H6": 0.032, "C3H8": 0.007, "C4H10": 0.004,
					"O2": 1e-5, "H2O": 1e-5, "CO2": 0.01, "N2": 0.01597, "Ar": 1e-5,
				},
			},
			SweepAir: StreamSpec{
				Basis: "air", Flow: 3000, Temperature: 330, Pressure: 1.01325e5,
				Composition: map[string]float64{
					"O2": 0.2074, "H2O": 0.0099, "CO2": 0.0003, "N2": 0.7732, "Ar": 0.0092,
				},
			},
			FeedWater: StreamSpec{
				Basis: "water", Flow: 2000, Temperature: 310, Pressure: 1.01325e5,
				Composition: map[string]float64{"H2O": 1},
			},
		},
		Plant: PlantConfig{
			SteamConversion:     0.75,
			CellVoltage:         1.28,
			OperatingTemp:       1073.15,
			OxygenCrossover:     0.25,
			FuelRecycleFraction: 0.02,
			SweepPurgeFraction:  0.0001,
			BoilerDutyFraction:  0.75,
			CO2CaptureFraction:  0.95,
			ExcessOxygen:        1.09,
		},
		Guesses: map[string]StreamSpec{
			"t_preheat": {
				Basis: "fuel_gas", Flow: 6000, Temperature: 700, Pressure: 1.04e5,
				Composition: map[string]float64{
					"O2": 0.055, "H2O": 0.33, "CO2": 0.345, "N2": 0.25, "Ar": 0.02,
				},
			},
			"t_steam": {
				Basis: "water", Flow: 2000, Temperature: 600, Pressure: 1.1e5,
				Composition: map[string]float64{"H2O": 1},
			},
			"t_fuel_recycle": {
				Basis: "hydrogen", Flow: 40, Temperature: 1073.15, Pressure: 1.1e5,
				Composition: map[string]float64{"H2": 0.77, "H2O": 0.23},
			},
			"t_sweep": {
				Basis: "air", Flow: 3100, Temperature: 1073.15, Pressure: 1.1e5,
				Composition: map[string]float64{
					"O2": 0.30, "H2O": 0.01, "CO2": 0.0003, "N2": 0.6807, "Ar": 0.009,
				},
			},
		},
		Solver: SolverConfig{
			Tolerance:     1e-7,
			MaxIterations: 200,
			BoundPush:     1e-12,
			LinearSolver:  "lu",
			Damping:       0.5,
		},
		Snapshot: SnapshotConfig{
			Enabled: false,
			Dir:     "snapshots",
		},
	}
}

// Load parses YAML over the defaults, so partial files only override what
// they mention.
func Load(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile reads and parses a YAML config file.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return Load(data)
}

// Validate checks struct tags, then the cross-field constraints the tags
// cannot express.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	cv := validation.NewConfigValidator("Config")
	for name, spec := range map[string]StreamSpec{
		"feeds.air":         c.Feeds.Air,
		"feeds.natural_gas": c.Feeds.NaturalGas,
		"feeds.sweep_air":   c.Feeds.SweepAir,
		"feeds.feed_water":  c.Feeds.FeedWater,
	} {
		spec := spec
		cv.Custom(name, func() error {
			_, err := spec.State()
			return err
		})
	}
	for arc, spec := range c.Guesses {
		arc, spec := arc, spec
		cv.Custom("tear_guesses."+arc, func() error {
			if err := validation.ValidateGuessRequest(&validation.GuessRequest{
				Arc:         arc,
				Flow:        spec.Flow,
				Temperature: spec.Temperature,
				Pressure:    spec.Pressure,
				Composition: spec.Composition,
			}); err != nil {
				return err
			}
			_, err := spec.State()
			return err
		})
	}
	return cv.Validate()
}
