package health

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Common health check functions

// SimpleCheck creates a simple health check that always returns healthy
func SimpleCheck(name string) Check {
	return Check{
		Name:        name,
		Status:      StatusHealthy,
		LastChecked: time.Now(),
	}
}

// FlowsheetCheck reports on the initialization state of the flowsheet. An
// initialization that has failed marks the service unhealthy; one that has
// not yet converged is degraded.
func FlowsheetCheck(getState func() (phase string, populatedPorts, tearArcs int)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "flowsheet",
			Details: make(map[string]any),
		}

		phase, populated, tears := getState()

		check.Details["phase"] = phase
		check.Details["populated_ports"] = populated
		check.Details["tear_arcs"] = tears

		switch phase {
		case "failed":
			check.Status = StatusUnhealthy
			check.Message = "Initialization failed"
		case "converged":
			check.Status = StatusHealthy
			check.Message = "Flowsheet initialized"
		default:
			check.Status = StatusDegraded
			check.Message = fmt.Sprintf("Initialization in phase %s", phase)
		}

		return check
	}
}

// TearClosureCheck reports on the last simultaneous solve over the tear
// streams.
func TearClosureCheck(getState func() (converged bool, residualNorm float64, iterations int)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "tear_closure",
			Details: make(map[string]any),
		}

		converged, norm, iters := getState()

		check.Details["converged"] = converged
		check.Details["residual_norm"] = norm
		check.Details["iterations"] = iters

		if iters == 0 {
			// Closure not requested - sequential estimates only
			check.Status = StatusHealthy
			check.Message = "Sequential initialization only"
		} else if !converged {
			check.Status = StatusDegraded
			check.Message = "Tear streams not closed"
		} else {
			check.Status = StatusHealthy
			check.Message = "Tear streams closed"
		}

		return check
	}
}

// SnapshotDirCheck verifies the snapshot directory is writable.
func SnapshotDirCheck(dir string) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "snapshot_dir",
			Details: map[string]any{"dir": dir},
		}

		if dir == "" {
			check.Status = StatusHealthy
			check.Message = "Snapshots disabled"
			return check
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}
		probe := filepath.Join(dir, ".health_probe")
		if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
			return check
		}
		os.Remove(probe)

		check.Status = StatusHealthy
		check.Message = "Snapshot directory writable"
		return check
	}
}

// MemoryCheck creates a health check for memory usage
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "memory",
			Details: make(map[string]any),
		}

		alloc, sys := getUsage()

		check.Details["alloc_bytes"] = alloc
		check.Details["sys_bytes"] = sys

		// Consider degraded if allocated memory > 90% of system memory
		usagePercent := float64(alloc) / float64(sys) * 100

		if usagePercent > 90 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}

		return check
	}
}
