package e2e

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/flowsim/pkg/config"
	"github.com/dd0wney/flowsim/pkg/network"
	"github.com/dd0wney/flowsim/pkg/plant"
	"github.com/dd0wney/flowsim/pkg/sequence"
	"github.com/dd0wney/flowsim/pkg/snapshot"
	"github.com/dd0wney/flowsim/pkg/units"
)

// TestReferenceCaseWorkflow tests the complete pipeline on the built-in
// reference case: build, staged initialization with product trains, summary
// quantities, and a snapshot round trip.
func TestReferenceCaseWorkflow(t *testing.T) {
	ctx := context.Background()

	t.Log("=== E2E Test: Reference Case Workflow ===")

	// Step 1: Config
	t.Log("Step 1: Validating the built-in reference case...")
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	t.Logf("✓ Config %q valid with %d tear guesses", cfg.Name, len(cfg.Guesses))

	// Step 2: Build
	t.Log("Step 2: Building the plant...")
	p, err := plant.Build(cfg)
	require.NoError(t, err)
	stats := p.Flowsheet().GetStatistics()
	assert.GreaterOrEqual(t, stats.NodeCount, 30, "Plant should have the full unit roster")
	assert.Equal(t, 4, stats.TearArcCount, "All four recycle tears should be declared")
	t.Logf("✓ Flowsheet: %d nodes, %d arcs", stats.NodeCount, stats.ArcCount)

	// Step 3: Staged initialization, core plus product trains
	t.Log("Step 3: Running staged initialization...")
	init, err := p.Initialize(ctx)
	require.NoError(t, err)
	require.Equal(t, sequence.PhaseConverged, init.Phase())
	require.True(t, p.Extended(), "Product trains should be built and initialized")
	t.Logf("✓ Initialization phase: %s", init.Phase())

	// Step 4: Key states
	t.Log("Step 4: Checking key port states...")
	h2, ok, err := p.Flowsheet().PortState(network.PortRef{Node: "hcmp04", Port: units.PortOut})
	require.NoError(t, err)
	require.True(t, ok, "H2 train outlet should be populated")
	assert.InDelta(t, 320e5, h2.Pressure, 1, "H2 product should reach 320 bar")
	assert.InDelta(t, 1.0, h2.MoleFrac["H2"], 1e-9, "H2 product should be dry")

	flue, ok, err := p.Flowsheet().PortState(network.PortRef{Node: "cpu", Port: units.PortCO2})
	require.NoError(t, err)
	require.True(t, ok, "CPU capture outlet should be populated")
	assert.Greater(t, flue.Flow, 0.0, "Capture stream should carry CO2")

	// Step 5: Summary
	t.Log("Step 5: Summarizing...")
	sum, err := p.Summarize()
	require.NoError(t, err)
	assert.Greater(t, sum.HydrogenRate, 0.0)
	assert.Greater(t, sum.StackPower, 0.0)
	assert.Greater(t, sum.Efficiency, 0.0)
	assert.Less(t, sum.Efficiency, 1.0)
	t.Logf("✓ H2 %.1f mol/s, stack %.1f MW, efficiency %.1f%%",
		sum.HydrogenRate, sum.StackPower/1e6, sum.Efficiency*100)

	// Step 6: Snapshot round trip
	t.Log("Step 6: Snapshot round trip...")
	store := snapshot.NewStore(t.TempDir())
	path, err := store.Write(ctx, p.Flowsheet(), "e2e")
	require.NoError(t, err)
	snap, err := snapshot.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, p.Flowsheet().GetStatistics().PopulatedPort, len(snap.Ports),
		"Snapshot should capture every populated port")

	fresh, err := plant.Build(cfg)
	require.NoError(t, err)
	_, err = fresh.Initialize(ctx)
	require.NoError(t, err)
	require.NoError(t, snapshot.Restore(fresh.Flowsheet(), snap))

	restored, ok, err := fresh.Flowsheet().PortState(network.PortRef{Node: "hcmp04", Port: units.PortOut})
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, restored.Equal(h2), "Restored state should match the captured one exactly")

	t.Log("=== E2E workflow complete ===")
}

// TestStagedReinitializationWorkflow tests that the product trains can be
// decoupled and re-coupled through stages without invalidating the core.
func TestStagedReinitializationWorkflow(t *testing.T) {
	ctx := context.Background()

	cfg := config.Default()
	p, err := plant.Build(cfg)
	require.NoError(t, err)

	init, err := p.Initialize(ctx)
	require.NoError(t, err)
	require.Equal(t, sequence.PhaseConverged, init.Phase())

	// Decouple the H2 train, rerun, recouple.
	decouple := sequence.Stage{
		Name:       "decouple_h2_train",
		Deactivate: []string{"s_h2_raw"},
	}
	require.NoError(t, init.ApplyStage(ctx, decouple))
	assert.Equal(t, sequence.PhaseConverged, init.Phase())

	recouple := sequence.Stage{
		Name:     "recouple_h2_train",
		Activate: []string{"s_h2_raw"},
	}
	require.NoError(t, init.ApplyStage(ctx, recouple))
	assert.Equal(t, sequence.PhaseConverged, init.Phase())

	h2, ok, err := p.Flowsheet().PortState(network.PortRef{Node: "hcmp04", Port: units.PortOut})
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 1.0, h2.MoleFrac["H2"], 1e-9)
}
