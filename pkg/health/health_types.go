package health

import (
	"sync"
	"time"
)

// Status grades a component from fully operational to failed.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Check is the result of probing one component.
type Check struct {
	Name        string         `json:"name"`
	Status      Status         `json:"status"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	LastChecked time.Time      `json:"last_checked"`
	Duration    time.Duration  `json:"duration_ms"`
}

// CheckFunc produces a Check on demand. Implementations must be safe to
// call from concurrent HTTP handlers.
type CheckFunc func() Check

// HealthChecker runs registered checks and aggregates their statuses.
// Readiness and liveness keep separate check sets so a degraded flowsheet
// does not get the process restarted.
type HealthChecker struct {
	service     string
	startTime   time.Time
	mu          sync.RWMutex
	checks      map[string]CheckFunc
	readyChecks map[string]CheckFunc
	liveChecks  map[string]CheckFunc
}

// Response is the aggregate reported on the health endpoints.
type Response struct {
	Service   string           `json:"service"`
	Status    Status           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Checks    map[string]Check `json:"checks"`
	Uptime    time.Duration    `json:"uptime_seconds"`
}
