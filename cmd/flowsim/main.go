package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/dd0wney/flowsim/pkg/config"
	"github.com/dd0wney/flowsim/pkg/logging"
	"github.com/dd0wney/flowsim/pkg/metrics"
	"github.com/dd0wney/flowsim/pkg/plant"
	"github.com/dd0wney/flowsim/pkg/sequence"
	"github.com/dd0wney/flowsim/pkg/snapshot"
	"github.com/dd0wney/flowsim/pkg/solver"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (default: built-in reference case)")
	closeTears := flag.Bool("close-tears", true, "Drive the tear streams to a converged fixed point")
	flag.Parse()

	fmt.Println("🏭 FlowSim - SOEC plant initializer")

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadFile(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		fmt.Printf("📄 Config loaded from %s\n", *configPath)
	} else {
		fmt.Println("📄 Using built-in reference case")
	}

	logger := logging.NewJSONLogger(os.Stderr, logging.ParseLevel(cfg.LogLevel))
	registry := metrics.DefaultRegistry()

	// Build the flowsheet
	p, err := plant.Build(cfg)
	if err != nil {
		log.Fatalf("Failed to build plant: %v", err)
	}
	stats := p.Flowsheet().GetStatistics()
	fmt.Printf("✅ Flowsheet built: %d nodes, %d arcs (%d tears)\n",
		stats.NodeCount, stats.ArcCount, stats.TearArcCount)

	ctx := context.Background()

	// Staged sequential initialization
	fmt.Println("\n⚙️  Running staged initialization...")
	init, err := p.Initialize(ctx,
		sequence.WithLogger(logger),
		sequence.WithMetrics(registry))
	if err != nil {
		log.Fatalf("Initialization failed: %v", err)
	}
	fmt.Printf("  Phase: %s\n", init.Phase())

	// Tear closure
	if *closeTears {
		fmt.Println("\n🔁 Closing tear streams...")
		tc, err := plant.NewTearClosure(init,
			plant.TearPreheat, plant.TearSteam, plant.TearFuelRecycle, plant.TearSweep)
		if err != nil {
			log.Fatalf("Failed to set up tear closure: %v", err)
		}
		newton := solver.NewNewton(
			solver.WithLogger(logger),
			solver.WithMetrics(registry))
		res, err := tc.Solve(ctx, newton, cfg.Solver.Options())
		if err != nil {
			log.Fatalf("Tear closure failed: %v", err)
		}
		fmt.Printf("  Converged in %d iterations (residual %.3e)\n",
			res.Iterations, res.ResidualNorm)
	}

	// Results
	summary, err := p.Summarize()
	if err != nil {
		log.Fatalf("Failed to summarize: %v", err)
	}
	registry.PlantH2ProductionRate.Set(summary.HydrogenRate)
	registry.PlantNetPowerWatts.Set(summary.NetPower)

	fmt.Println("\n📈 Plant summary:")
	fmt.Printf("  Hydrogen product:   %.1f mol/s (%.2f kg/s)\n", summary.HydrogenRate, summary.HydrogenMass)
	fmt.Printf("  Stack power:        %.1f MW\n", summary.StackPower/1e6)
	fmt.Printf("  Compression power:  %.1f MW\n", summary.CompressionPower/1e6)
	fmt.Printf("  Pump power:         %.2f MW\n", summary.PumpPower/1e6)
	fmt.Printf("  Steam cycle power:  %.1f MW\n", summary.SteamCyclePower/1e6)
	fmt.Printf("  Net power:          %.1f MW\n", summary.NetPower/1e6)
	fmt.Printf("  Fuel HHV input:     %.1f MW\n", summary.FuelHHVInput/1e6)
	fmt.Printf("  CO2 captured:       %.2f kg/s (vented %.3f kg/s)\n", summary.CO2Captured, summary.CO2Vented)
	fmt.Printf("  Efficiency (HHV):   %.1f%%\n", summary.Efficiency*100)

	// Snapshot
	if cfg.Snapshot.Enabled {
		fmt.Println("\n💾 Writing snapshot...")
		opts := []snapshot.StoreOption{
			snapshot.WithLogger(logger),
			snapshot.WithMetrics(registry),
		}
		if cfg.Snapshot.S3Bucket != "" {
			archiver, err := snapshot.NewS3Archiver(ctx,
				cfg.Snapshot.S3Bucket, cfg.Snapshot.S3Prefix,
				os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY"))
			if err != nil {
				log.Fatalf("Failed to set up snapshot archiver: %v", err)
			}
			opts = append(opts, snapshot.WithArchiver(archiver))
		}
		store := snapshot.NewStore(cfg.Snapshot.Dir, opts...)
		runID := uuid.NewString()
		path, err := store.Write(ctx, p.Flowsheet(), runID)
		if err != nil {
			log.Fatalf("Failed to write snapshot: %v", err)
		}
		fmt.Printf("  ✅ Snapshot saved: %s\n", path)
	}

	fmt.Println("\n✨ Initialization complete")
}
