package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/provisionworks/orchard/internal/errors"
)

// HealthChecker probes one dependency of the service.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// HealthCheckerFunc adapts a function to HealthChecker.
type HealthCheckerFunc func(ctx context.Context) error

func (f HealthCheckerFunc) CheckHealth(ctx context.Context) error {
	return f(ctx)
}

// HealthResponse is the body of a successful health probe.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

// checkTimeout bounds each registered checker individually so one hung
// dependency cannot stall the whole probe.
const checkTimeout = 5 * time.Second

// HealthManager aggregates registered checkers into liveness, readiness
// and overall health probes.
type HealthManager struct {
	version string

	mu       sync.RWMutex
	checkers map[string]HealthChecker
}

func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		version:  version,
		checkers: make(map[string]HealthChecker),
	}
}

// RegisterChecker adds a named dependency probe. Re-registering a name
// replaces the previous checker.
func (m *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers[name] = checker
}

func (m *HealthManager) runChecks(ctx context.Context) map[string]string {
	m.mu.RLock()
	names := make([]string, 0, len(m.checkers))
	checkers := make(map[string]HealthChecker, len(m.checkers))
	for name, c := range m.checkers {
		names = append(names, name)
		checkers[name] = c
	}
	m.mu.RUnlock()

	results := make(map[string]string, len(names))
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := checkers[name].CheckHealth(checkCtx)
		cancel()

		switch {
		case err == nil:
			results[name] = "healthy"
		case errors.Is(err, context.DeadlineExceeded):
			results[name] = "timeout"
		default:
			results[name] = "unhealthy"
		}
	}
	return results
}

// determineOverallStatus folds individual check states into one service
// status. Timeouts degrade the service rather than failing it outright.
func (m *HealthManager) determineOverallStatus(checks map[string]string) string {
	status := "healthy"
	for _, state := range checks {
		switch state {
		case "unhealthy":
			return "unhealthy"
		case "timeout":
			status = "degraded"
		}
	}
	return status
}

// HealthHandler reports aggregate service health. Unhealthy services
// respond 503 with the per-check states in the error details.
func (m *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	checks := m.runChecks(r.Context())
	status := m.determineOverallStatus(checks)

	if status == "unhealthy" {
		respondWithError(w, r, &apperrors.HTTPError{
			Status:  http.StatusServiceUnavailable,
			Code:    "SERVICE_UNAVAILABLE",
			Message: "one or more health checks failed",
			Details: map[string]any{"checks": checks},
		})
		return
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:  status,
		Version: m.version,
		Checks:  checks,
	})
}

// LivenessHandler reports that the process is up. It never runs
// dependency checks.
func (m *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ReadinessHandler reports whether the service can take traffic.
func (m *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	checks := m.runChecks(r.Context())
	if m.determineOverallStatus(checks) == "unhealthy" {
		respondWithError(w, r, &apperrors.HTTPError{
			Status:  http.StatusServiceUnavailable,
			Code:    "SERVICE_UNAVAILABLE",
			Message: "service is not ready",
			Details: map[string]any{"checks": checks},
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// StartupHandler reports whether startup has completed. Identical to
// readiness here; kept separate so orchestrators can probe them with
// different policies.
func (m *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	m.ReadinessHandler(w, r)
}

var (
	globalHealthManager *HealthManager
	globalHealthMu      sync.RWMutex
)

// InitHealthManager installs the process-wide health manager used by
// the package-level handler functions.
func InitHealthManager(version string) *HealthManager {
	globalHealthMu.Lock()
	defer globalHealthMu.Unlock()
	globalHealthManager = NewHealthManager(version)
	return globalHealthManager
}

// GetHealthManager returns the process-wide health manager, or nil if
// InitHealthManager has not run.
func GetHealthManager() *HealthManager {
	globalHealthMu.RLock()
	defer globalHealthMu.RUnlock()
	return globalHealthManager
}

func withGlobalManager(w http.ResponseWriter, r *http.Request, fn func(*HealthManager, http.ResponseWriter, *http.Request)) {
	manager := GetHealthManager()
	if manager == nil {
		respondWithError(w, r, &apperrors.HTTPError{
			Status:  http.StatusServiceUnavailable,
			Code:    "SERVICE_UNAVAILABLE",
			Message: "health manager not initialized",
		})
		return
	}
	fn(manager, w, r)
}

// HealthHandler serves /health via the global manager.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	withGlobalManager(w, r, (*HealthManager).HealthHandler)
}

// LivenessHandler serves /health/live via the global manager.
func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	withGlobalManager(w, r, (*HealthManager).LivenessHandler)
}

// ReadinessHandler serves /health/ready via the global manager.
func ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	withGlobalManager(w, r, (*HealthManager).ReadinessHandler)
}

// StartupHandler serves /health/startup via the global manager.
func StartupHandler(w http.ResponseWriter, r *http.Request) {
	withGlobalManager(w, r, (*HealthManager).StartupHandler)
}
