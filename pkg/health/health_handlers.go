package health

import (
	"encoding/json"
	"net/http"
)

// writeResponse encodes a response, mapping its status to an HTTP code. When
// binary is set, anything short of healthy is a 503; otherwise degraded still
// answers 200 so orchestrators keep routing while operators investigate.
func writeResponse(w http.ResponseWriter, resp Response, binary bool) {
	w.Header().Set("Content-Type", "application/json")

	code := http.StatusOK
	if resp.Status == StatusUnhealthy || (binary && resp.Status != StatusHealthy) {
		code = http.StatusServiceUnavailable
	}
	w.WriteHeader(code)

	json.NewEncoder(w).Encode(resp)
}

// HTTPHandler serves the general health endpoint.
func (hc *HealthChecker) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, hc.Check(), false)
	}
}

// ReadinessHandler serves the readiness endpoint.
func (hc *HealthChecker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, hc.CheckReadiness(), true)
	}
}

// LivenessHandler serves the liveness endpoint.
func (hc *HealthChecker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, hc.CheckLiveness(), true)
	}
}
