package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/flowsim/pkg/config"
	"github.com/dd0wney/flowsim/pkg/health"
	"github.com/dd0wney/flowsim/pkg/logging"
	"github.com/dd0wney/flowsim/pkg/metrics"
	"github.com/dd0wney/flowsim/pkg/network"
	"github.com/dd0wney/flowsim/pkg/plant"
	"github.com/dd0wney/flowsim/pkg/sequence"
	"github.com/dd0wney/flowsim/pkg/server"
	"github.com/dd0wney/flowsim/pkg/snapshot"
	"github.com/dd0wney/flowsim/pkg/solver"
	"github.com/dd0wney/flowsim/pkg/stream"
)

type resultsServer struct {
	plant     *plant.Plant
	init      *sequence.Initializer
	closure   solver.Result
	closed    bool
	registry  *metrics.Registry
	store     *snapshot.Store
	startTime time.Time
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config (default: built-in reference case)")
	port := flag.Int("port", 8080, "Server port")
	closeTears := flag.Bool("close-tears", true, "Drive the tear streams to a converged fixed point")
	flag.Parse()

	log.Printf("🏭 FlowSim results server starting...")

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadFile(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		log.Printf("📄 Config: %s", *configPath)
	}

	logger := logging.NewJSONLogger(os.Stderr, logging.ParseLevel(cfg.LogLevel))
	registry := metrics.DefaultRegistry()

	p, err := plant.Build(cfg)
	if err != nil {
		log.Fatalf("Failed to build plant: %v", err)
	}

	ctx := context.Background()
	init, err := p.Initialize(ctx,
		sequence.WithLogger(logger),
		sequence.WithMetrics(registry))
	if err != nil {
		log.Fatalf("Initialization failed: %v", err)
	}

	rs := &resultsServer{
		plant:     p,
		init:      init,
		registry:  registry,
		store:     snapshot.NewStore(cfg.Snapshot.Dir, snapshot.WithLogger(logger), snapshot.WithMetrics(registry)),
		startTime: time.Now(),
	}

	if *closeTears {
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
		rs.closure = res
		rs.closed = true
		log.Printf("✅ Tear streams closed in %d iterations", res.Iterations)
	}

	// Health checks
	hc := health.NewHealthChecker("flowsim")
	hc.RegisterCheck("flowsheet", health.FlowsheetCheck(func() (string, int, int) {
		st := p.Flowsheet().GetStatistics()
		return rs.init.Phase().String(), st.PopulatedPort, st.TearArcCount
	}))
	hc.RegisterCheck("tear_closure", health.TearClosureCheck(func() (bool, float64, int) {
		return rs.closure.Status == solver.Converged, rs.closure.ResidualNorm, rs.closure.Iterations
	}))
	hc.RegisterCheck("snapshot_dir", health.SnapshotDirCheck(cfg.Snapshot.Dir))
	hc.RegisterCheck("memory", health.MemoryCheck(func() (uint64, uint64) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		return m.Alloc, m.Sys
	}))
	hc.RegisterLivenessCheck("server", func() health.Check {
		return health.SimpleCheck("server")
	})
	hc.RegisterReadinessCheck("flowsheet", func() health.Check {
		if rs.init.Phase() == sequence.PhaseConverged {
			return health.SimpleCheck("flowsheet")
		}
		return health.Check{Name: "flowsheet", Status: health.StatusUnhealthy, Message: "Not converged"}
	})

	mux := http.NewServeMux()

	// Result endpoints
	mux.HandleFunc("GET /summary", rs.summary)
	mux.HandleFunc("GET /stats", rs.stats)
	mux.HandleFunc("GET /ports/{node}/{port}", rs.portState)
	mux.HandleFunc("POST /snapshot", rs.writeSnapshot)

	// Admin endpoints
	mux.HandleFunc("GET /health", hc.HTTPHandler())
	mux.HandleFunc("GET /ready", hc.ReadinessHandler())
	mux.HandleFunc("GET /live", hc.LivenessHandler())
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry.GetPrometheusRegistry(), promhttp.HandlerOpts{}))

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("✅ Server listening on %s", addr)
	log.Printf("📊 Health check: http://localhost%s/health", addr)

	gs := server.NewGracefulServer(addr, loggingMiddleware(mux))
	if err := gs.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.RequestURI, time.Since(start))
	})
}

func (rs *resultsServer) summary(w http.ResponseWriter, r *http.Request) {
	sum, err := rs.plant.Summarize()
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	rs.registry.PlantH2ProductionRate.Set(sum.HydrogenRate)
	rs.registry.PlantNetPowerWatts.Set(sum.NetPower)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"hydrogen_rate_mol_s":   sum.HydrogenRate,
		"hydrogen_mass_kg_s":    sum.HydrogenMass,
		"stack_power_w":         sum.StackPower,
		"compression_power_w":   sum.CompressionPower,
		"pump_power_w":          sum.PumpPower,
		"steam_cycle_power_w":   sum.SteamCyclePower,
		"net_power_w":           sum.NetPower,
		"fuel_hhv_input_w":      sum.FuelHHVInput,
		"co2_captured_kg_s":     sum.CO2Captured,
		"co2_vented_kg_s":       sum.CO2Vented,
		"efficiency_hhv":        sum.Efficiency,
		"tear_closure_applied":  rs.closed,
		"closure_residual_norm": rs.closure.ResidualNorm,
	})
}

func (rs *resultsServer) stats(w http.ResponseWriter, r *http.Request) {
	st := rs.plant.Flowsheet().GetStatistics()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"phase":           rs.init.Phase().String(),
		"uptime":          time.Since(rs.startTime).String(),
		"nodes":           st.NodeCount,
		"arcs":            st.ArcCount,
		"tear_arcs":       st.TearArcCount,
		"inactive_arcs":   st.InactiveArcs,
		"populated_ports": st.PopulatedPort,
	})
}

func (rs *resultsServer) portState(w http.ResponseWriter, r *http.Request) {
	ref := network.PortRef{Node: r.PathValue("node"), Port: r.PathValue("port")}
	s, ok, err := rs.plant.Flowsheet().PortState(ref)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if !ok {
		http.Error(w, fmt.Sprintf("port %s not initialized", ref), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stateToJSON(s))
}

func (rs *resultsServer) writeSnapshot(w http.ResponseWriter, r *http.Request) {
	runID := strings.ReplaceAll(time.Now().UTC().Format("20060102T150405.000"), ".", "")
	path, err := rs.store.Write(r.Context(), rs.plant.Flowsheet(), runID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "success",
		"path":   path,
	})
}

func stateToJSON(s stream.State) map[string]any {
	return map[string]any{
		"basis":         s.Basis.Name,
		"flow_mol_s":    s.Flow,
		"temperature_k": s.Temperature,
		"pressure_pa":   s.Pressure,
		"phase":         s.Phase.String(),
		"mole_frac":     s.MoleFrac,
	}
}
