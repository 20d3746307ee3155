// Package plant assembles the power and hydrogen co-production flowsheet:
// an oxy-fired combustor raising steam for a solid-oxide electrolysis
// stack, with air separation, sweep-air recuperation, hydrogen compression
// and CO2 processing trains around it. The package owns the topology and
// the staged initialization sequence; the numerical work lives in the
// sequence and solver packages.
package plant

import (
	"context"
	"fmt"

	"github.com/dd0wney/flowsim/pkg/config"
	"github.com/dd0wney/flowsim/pkg/network"
	"github.com/dd0wney/flowsim/pkg/sequence"
	"github.com/dd0wney/flowsim/pkg/stream"
	"github.com/dd0wney/flowsim/pkg/thermo"
	"github.com/dd0wney/flowsim/pkg/units"
)

// Tear arc names. The guesses in the run configuration key on these.
const (
	TearPreheat     = "t_preheat"
	TearSteam       = "t_steam"
	TearFuelRecycle = "t_fuel_recycle"
	TearSweep       = "t_sweep"
)

// Arcs toggled by the staged sequence.
const (
	ArcH2Product = "s_h2_product"
	ArcFlueOut   = "s_flue_out"
)

// Stage names.
const (
	StageCore   = "core"
	StageTrains = "product_trains"
)

// ASU separation fractions per species to the oxygen product.
var asuSplit = map[string]float64{
	"O2": 0.9691,
	"N2": 0.0005,
	"Ar": 0.0673,
}

// Plant is the built flowsheet plus handles on the units whose duties and
// powers feed the results summary.
type Plant struct {
	fs  *network.Flowsheet
	cfg config.Config

	stack     *units.SOECStack
	combustor *units.StoichiometricReactor
	feedPump  *units.Pump
	hrsg      *units.Heater

	extended bool
}

// Flowsheet returns the underlying graph.
func (p *Plant) Flowsheet() *network.Flowsheet { return p.fs }

// Config returns the run configuration the plant was built from.
func (p *Plant) Config() config.Config { return p.cfg }

// Extended reports whether the product trains have been added.
func (p *Plant) Extended() bool { return p.extended }

// Build assembles the core flowsheet: ASU, oxy-combustor, steam generation,
// SOEC stack and sweep loop. The hydrogen compression and CO2 trains are
// added later by Extend, after the core has been initialized.
func Build(cfg config.Config) (*Plant, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	airState, err := cfg.Feeds.Air.State()
	if err != nil {
		return nil, fmt.Errorf("air feed: %w", err)
	}
	ngState, err := cfg.Feeds.NaturalGas.State()
	if err != nil {
		return nil, fmt.Errorf("natural gas feed: %w", err)
	}
	sweepState, err := cfg.Feeds.SweepAir.State()
	if err != nil {
		return nil, fmt.Errorf("sweep air feed: %w", err)
	}
	waterState, err := cfg.Feeds.FeedWater.State()
	if err != nil {
		return nil, fmt.Errorf("feed water: %w", err)
	}
	waterState.Phase = stream.Liquid

	// Size the ASU air draw so the oxygen product meets the combustor's
	// stoichiometric demand at the configured excess.
	o2Demand := 0.0
	for _, sp := range ngState.Basis.Species {
		o2Demand += ngState.ComponentFlow(sp) * thermo.OxygenDemand(sp)
	}
	o2Recovery := airState.MoleFrac["O2"] * asuSplit["O2"]
	if o2Recovery <= 0 {
		return nil, fmt.Errorf("air feed carries no recoverable oxygen")
	}
	airState.Flow = o2Demand * cfg.Plant.ExcessOxygen / o2Recovery

	p := &Plant{fs: network.New(cfg.Name), cfg: cfg}

	p.combustor = &units.StoichiometricReactor{UnitName: "oxycombustor"}
	p.combustor.ExportedDuty = cfg.Plant.BoilerDutyFraction * p.combustor.HeatRelease(ngState)

	p.stack = &units.SOECStack{
		UnitName:             "soec",
		CellVoltage:          cfg.Plant.CellVoltage,
		OperatingTemperature: cfg.Plant.OperatingTemp,
		Conversion:           cfg.Plant.SteamConversion,
		OxygenCrossover:      cfg.Plant.OxygenCrossover,
	}
	p.feedPump = &units.Pump{UnitName: "feed_pump", OutletPressure: 1.1e5, Efficiency: 0.85}

	preheatSplit, err := units.NewSplitter("preheat_split",
		[]string{"to_o2", "to_ng"}, []float64{0.6, 0.4})
	if err != nil {
		return nil, err
	}
	steamSplit, err := units.NewSplitter("steam_split",
		[]string{"to_soec", "blowdown"}, []float64{0.9999, 0.0001})
	if err != nil {
		return nil, err
	}
	spltf1, err := units.NewSplitter("spltf1",
		[]string{"product", "recycle"},
		[]float64{1 - cfg.Plant.FuelRecycleFraction, cfg.Plant.FuelRecycleFraction})
	if err != nil {
		return nil, err
	}
	splta1, err := units.NewSplitter("splta1",
		[]string{"to_recuperator", "purge"},
		[]float64{1 - cfg.Plant.SweepPurgeFraction, cfg.Plant.SweepPurgeFraction})
	if err != nil {
		return nil, err
	}

	unitList := []network.Unit{
		// Air separation train.
		&units.Feed{FeedName: "air_feed", State: airState},
		&units.Compressor{UnitName: "cmp01", OutletPressure: 111422, Efficiency: 0.84},
		&units.Heater{UnitName: "ic01", OutletTemperature: 310.93, PressureDrop: 3447},
		&units.Compressor{UnitName: "cmp02", OutletPressure: 130686, Efficiency: 0.84},
		&units.Heater{UnitName: "ic02", OutletTemperature: 310.93, PressureDrop: 3447},
		&units.Separator{UnitName: "asu", ProductFraction: asuSplit},
		&units.Sink{SinkName: "n2_sink"},

		// Fuel preparation and oxy-combustion.
		&units.Feed{FeedName: "ng_feed", State: ngState},
		&units.HeatExchanger{UnitName: "o2_preheater", Spec: units.ApproachAtHotInlet, Approach: 30},
		&units.HeatExchanger{UnitName: "ng_preheater", Spec: units.ApproachAtHotInlet, Approach: 30},
		&units.Translator{UnitName: "tx_o2", Target: stream.FuelGas},
		&units.Mixer{UnitName: "oxy_mixer", InletPorts: []string{"ng", "o2"}},
		p.combustor,

		// Flue-gas heat recovery into the steam loop.
		&units.HeatExchanger{UnitName: "bhx2", Spec: units.ColdOutletTemperature, Target: cfg.Plant.OperatingTemp},
		&units.HeatExchanger{UnitName: "bhx1", Spec: units.ApproachAtHotOutlet, Approach: 100},
		preheatSplit,
		&units.Mixer{UnitName: "flue_mixer", InletPorts: []string{"o2_side", "ng_side"}},
		&units.Sink{SinkName: "flue_sink"},

		// Steam generation and the SOEC fuel loop.
		&units.Feed{FeedName: "water_feed", State: waterState},
		p.feedPump,
		steamSplit,
		&units.Sink{SinkName: "blowdown_sink"},
		&units.Translator{UnitName: "tx_steam", Target: stream.Hydrogen},
		&units.Mixer{UnitName: "fuel_mixer", InletPorts: []string{"steam", "recycle"}},
		p.stack,
		spltf1,
		&units.Sink{SinkName: "h2_sink"},

		// Sweep air loop.
		&units.Feed{FeedName: "sweep_feed", State: sweepState},
		&units.Compressor{UnitName: "blower", OutletPressure: 1.1e5, Efficiency: 0.8},
		&units.HeatExchanger{UnitName: "sweep_recuperator", Spec: units.ApproachAtHotInlet, Approach: 50},
		&units.Heater{UnitName: "sweep_heater", OutletTemperature: cfg.Plant.OperatingTemp},
		splta1,
		&units.Sink{SinkName: "purge_sink"},
		&units.Sink{SinkName: "sweep_sink"},
	}
	for _, u := range unitList {
		if _, err := p.fs.AddUnit(u); err != nil {
			return nil, err
		}
	}

	type conn struct {
		name   string
		source network.PortRef
		dest   network.PortRef
		tear   bool
	}
	conns := []conn{
		// ASU train.
		{"s_air", ref("air_feed", units.PortOut), ref("cmp01", units.PortIn), false},
		{"s_cmp01", ref("cmp01", units.PortOut), ref("ic01", units.PortIn), false},
		{"s_ic01", ref("ic01", units.PortOut), ref("cmp02", units.PortIn), false},
		{"s_cmp02", ref("cmp02", units.PortOut), ref("ic02", units.PortIn), false},
		{"s_ic02", ref("ic02", units.PortOut), ref("asu", units.PortIn), false},
		{"s_asu_n2", ref("asu", units.PortReject), ref("n2_sink", units.PortIn), false},
		{"s_asu_o2", ref("asu", units.PortProduct), ref("o2_preheater", units.PortColdIn), false},

		// Fuel preparation.
		{"s_ng", ref("ng_feed", units.PortOut), ref("ng_preheater", units.PortColdIn), false},
		{"s_o2_hot", ref("o2_preheater", units.PortColdOut), ref("tx_o2", units.PortIn), false},
		{"s_o2_fuel", ref("tx_o2", units.PortOut), ref("oxy_mixer", "o2"), false},
		{"s_ng_hot", ref("ng_preheater", units.PortColdOut), ref("oxy_mixer", "ng"), false},
		{"s_comb_feed", ref("oxy_mixer", units.PortOut), ref("oxycombustor", units.PortIn), false},

		// Flue gas through the boiler exchangers, torn at the preheat split.
		{"s_flue_hot", ref("oxycombustor", units.PortOut), ref("bhx2", units.PortHotIn), false},
		{"s_bhx2_hot", ref("bhx2", units.PortHotOut), ref("bhx1", units.PortHotIn), false},
		{TearPreheat, ref("bhx1", units.PortHotOut), ref("preheat_split", units.PortIn), true},
		{"s_preheat_o2", ref("preheat_split", "to_o2"), ref("o2_preheater", units.PortHotIn), false},
		{"s_preheat_ng", ref("preheat_split", "to_ng"), ref("ng_preheater", units.PortHotIn), false},
		{"s_flue_o2", ref("o2_preheater", units.PortHotOut), ref("flue_mixer", "o2_side"), false},
		{"s_flue_ng", ref("ng_preheater", units.PortHotOut), ref("flue_mixer", "ng_side"), false},
		{ArcFlueOut, ref("flue_mixer", units.PortOut), ref("flue_sink", units.PortIn), false},

		// Steam raising, torn between economizer and superheater.
		{"s_water", ref("water_feed", units.PortOut), ref("feed_pump", units.PortIn), false},
		{"s_bfw", ref("feed_pump", units.PortOut), ref("bhx1", units.PortColdIn), false},
		{TearSteam, ref("bhx1", units.PortColdOut), ref("bhx2", units.PortColdIn), true},
		{"s_steam", ref("bhx2", units.PortColdOut), ref("steam_split", units.PortIn), false},
		{"s_blowdown", ref("steam_split", "blowdown"), ref("blowdown_sink", units.PortIn), false},
		{"s_steam_soec", ref("steam_split", "to_soec"), ref("tx_steam", units.PortIn), false},
		{"s_steam_fuel", ref("tx_steam", units.PortOut), ref("fuel_mixer", "steam"), false},

		// SOEC fuel loop, torn at the recycle.
		{"s_fuel", ref("fuel_mixer", units.PortOut), ref("soec", units.PortFuelIn), false},
		{"s_fuel_out", ref("soec", units.PortFuelOut), ref("spltf1", units.PortIn), false},
		{TearFuelRecycle, ref("spltf1", "recycle"), ref("fuel_mixer", "recycle"), true},
		{ArcH2Product, ref("spltf1", "product"), ref("h2_sink", units.PortIn), false},

		// Sweep loop, torn at the recuperator hot inlet.
		{"s_sweep", ref("sweep_feed", units.PortOut), ref("blower", units.PortIn), false},
		{"s_blower", ref("blower", units.PortOut), ref("sweep_recuperator", units.PortColdIn), false},
		{"s_sweep_warm", ref("sweep_recuperator", units.PortColdOut), ref("sweep_heater", units.PortIn), false},
		{"s_sweep_hot", ref("sweep_heater", units.PortOut), ref("soec", units.PortAirIn), false},
		{"s_sweep_out", ref("soec", units.PortAirOut), ref("splta1", units.PortIn), false},
		{TearSweep, ref("splta1", "to_recuperator"), ref("sweep_recuperator", units.PortHotIn), true},
		{"s_purge", ref("splta1", "purge"), ref("purge_sink", units.PortIn), false},
		{"s_sweep_spent", ref("sweep_recuperator", units.PortHotOut), ref("sweep_sink", units.PortIn), false},
	}
	for _, c := range conns {
		if c.tear {
			_, err = p.fs.ConnectTear(c.name, c.source, c.dest)
		} else {
			_, err = p.fs.Connect(c.name, c.source, c.dest)
		}
		if err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Extend adds the hydrogen compression and CO2 processing trains after the
// core flowsheet has been built and initialized. The new units hang off the
// existing product ports; the staged sequence then deactivates the core sink
// arcs and recomputes the order.
func (p *Plant) Extend() error {
	if p.extended {
		return fmt.Errorf("product trains already added")
	}

	p.hrsg = &units.Heater{UnitName: "hrsg", OutletTemperature: 405}

	unitList := []network.Unit{
		// Hydrogen drying and compression to pipeline pressure.
		&units.Heater{UnitName: "product_cooler", OutletTemperature: 320},
		&units.Flash{UnitName: "h2_flash", Temperature: 320, Pressure: 1.05e5},
		&units.Sink{SinkName: "knockout_sink"},
		&units.Translator{UnitName: "tx_h2", Target: stream.PureHydrogen},
		&units.Compressor{UnitName: "hcmp01", OutletPressure: 40e5, Efficiency: 0.9},
		&units.Heater{UnitName: "hic01", OutletTemperature: 320},
		&units.Compressor{UnitName: "hcmp02", OutletPressure: 80e5, Efficiency: 0.9},
		&units.Heater{UnitName: "hic02", OutletTemperature: 320},
		&units.Compressor{UnitName: "hcmp03", OutletPressure: 160e5, Efficiency: 0.9},
		&units.Heater{UnitName: "hic03", OutletTemperature: 320},
		&units.Compressor{UnitName: "hcmp04", OutletPressure: 320e5, Efficiency: 0.9},
		&units.Sink{SinkName: "h2_product_sink"},

		// Flue heat recovery, condensation and CO2 processing.
		p.hrsg,
		&units.Heater{UnitName: "condenser", OutletTemperature: 310.9},
		&units.CPU{UnitName: "cpu", CaptureFraction: p.cfg.Plant.CO2CaptureFraction},
		&units.Sink{SinkName: "co2_sink"},
		&units.Sink{SinkName: "co2_water_sink"},
		&units.Sink{SinkName: "vent_sink"},
	}
	for _, u := range unitList {
		if _, err := p.fs.AddUnit(u); err != nil {
			return err
		}
	}

	type conn struct {
		name   string
		source network.PortRef
		dest   network.PortRef
	}
	conns := []conn{
		{"s_h2_raw", ref("spltf1", "product"), ref("product_cooler", units.PortIn)},
		{"s_h2_cool", ref("product_cooler", units.PortOut), ref("h2_flash", units.PortIn)},
		{"s_knockout", ref("h2_flash", units.PortLiquid), ref("knockout_sink", units.PortIn)},
		{"s_h2_dry", ref("h2_flash", units.PortVapor), ref("tx_h2", units.PortIn)},
		{"s_h2_c1", ref("tx_h2", units.PortOut), ref("hcmp01", units.PortIn)},
		{"s_h2_i1", ref("hcmp01", units.PortOut), ref("hic01", units.PortIn)},
		{"s_h2_c2", ref("hic01", units.PortOut), ref("hcmp02", units.PortIn)},
		{"s_h2_i2", ref("hcmp02", units.PortOut), ref("hic02", units.PortIn)},
		{"s_h2_c3", ref("hic02", units.PortOut), ref("hcmp03", units.PortIn)},
		{"s_h2_i3", ref("hcmp03", units.PortOut), ref("hic03", units.PortIn)},
		{"s_h2_c4", ref("hic03", units.PortOut), ref("hcmp04", units.PortIn)},
		{"s_h2_product", ref("hcmp04", units.PortOut), ref("h2_product_sink", units.PortIn)},

		{"s_flue_hrsg", ref("flue_mixer", units.PortOut), ref("hrsg", units.PortIn)},
		{"s_hrsg_out", ref("hrsg", units.PortOut), ref("condenser", units.PortIn)},
		{"s_cond_out", ref("condenser", units.PortOut), ref("cpu", units.PortIn)},
		{"s_co2", ref("cpu", units.PortCO2), ref("co2_sink", units.PortIn)},
		{"s_co2_water", ref("cpu", units.PortWater), ref("co2_water_sink", units.PortIn)},
		{"s_vent", ref("cpu", units.PortVent), ref("vent_sink", units.PortIn)},
	}
	for _, c := range conns {
		if _, err := p.fs.Connect(c.name, c.source, c.dest); err != nil {
			return err
		}
	}

	p.extended = true
	return nil
}

// Stages returns the staged initialization sequence for the current
// topology: the core stage first, then the product-trains stage once Extend
// has run.
func (p *Plant) Stages() []sequence.Stage {
	stages := []sequence.Stage{{Name: StageCore, Solve: true}}
	if p.extended {
		stages = append(stages, sequence.Stage{
			Name:       StageTrains,
			Deactivate: []string{ArcH2Product, ArcFlueOut},
		})
	}
	return stages
}

// RegisterGuesses registers every tear guess from the run configuration on
// the initializer.
func (p *Plant) RegisterGuesses(init *sequence.Initializer) error {
	for _, arcName := range []string{TearPreheat, TearSteam, TearFuelRecycle, TearSweep} {
		spec, ok := p.cfg.Guesses[arcName]
		if !ok {
			return fmt.Errorf("no tear guess configured for arc %q", arcName)
		}
		guess, err := spec.State()
		if err != nil {
			return fmt.Errorf("tear guess %q: %w", arcName, err)
		}
		if err := init.RegisterTearGuess(arcName, guess); err != nil {
			return err
		}
	}
	return nil
}

// Initialize runs the full staged sequence: register guesses, initialize
// the core, extend with the product trains, and initialize again with the
// core sinks decoupled. The returned initializer is converged on success.
func (p *Plant) Initialize(ctx context.Context, opts ...sequence.Option) (*sequence.Initializer, error) {
	init := sequence.New(p.fs, opts...)
	if err := p.RegisterGuesses(init); err != nil {
		return nil, err
	}
	if err := init.ApplyStage(ctx, sequence.Stage{Name: StageCore, Solve: true}); err != nil {
		return nil, err
	}
	if !p.extended {
		if err := p.Extend(); err != nil {
			return nil, err
		}
	}
	if err := init.ApplyStage(ctx, sequence.Stage{
		Name:       StageTrains,
		Deactivate: []string{ArcH2Product, ArcFlueOut},
	}); err != nil {
		return nil, err
	}
	return init, nil
}

// portState reads a populated port state or errors.
func (p *Plant) portState(node, port string) (stream.State, error) {
	s, ok, err := p.fs.PortState(ref(node, port))
	if err != nil {
		return stream.State{}, err
	}
	if !ok {
		return stream.State{}, fmt.Errorf("port %s.%s not initialized", node, port)
	}
	return s, nil
}

func ref(node, port string) network.PortRef {
	return network.PortRef{Node: node, Port: port}
}
