// Package health serves liveness and readiness probes for the tank server.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"
)

// HealthCheck is one component's readiness test.
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthStatus is the aggregated result of every check.
type HealthStatus struct {
	Status string                     `json:"status"`
	Checks map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth is the result of a single check.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthChecker runs registered checks.
type HealthChecker struct {
	checks map[string]HealthCheck
	mu     sync.RWMutex
}

// NewHealthChecker creates a new health checker instance.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks: make(map[string]HealthCheck),
	}
}

// AddCheck registers a check, replacing any check with the same name.
func (hc *HealthChecker) AddCheck(check HealthCheck) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[check.Name()] = check
}

// RemoveCheck removes a health check by name.
func (hc *HealthChecker) RemoveCheck(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	delete(hc.checks, name)
}

// Names lists the registered checks in sorted order.
func (hc *HealthChecker) Names() []string {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	names := make([]string, 0, len(hc.checks))
	for name := range hc.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckHealth runs every check. The result is healthy only if all pass.
func (hc *HealthChecker) CheckHealth(ctx context.Context) HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	status := HealthStatus{
		Status: "healthy",
		Checks: make(map[string]ComponentHealth, len(hc.checks)),
	}
	for name, check := range hc.checks {
		if err := check.Check(ctx); err != nil {
			status.Status = "unhealthy"
			status.Checks[name] = ComponentHealth{Status: "unhealthy", Message: err.Error()}
			continue
		}
		status.Checks[name] = ComponentHealth{Status: "healthy"}
	}
	return status
}

// LivenessHandler answers 200 while the process can serve HTTP at all.
func (hc *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

// ReadinessHandler answers 200 when every check passes and 503 otherwise.
func (hc *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := hc.CheckHealth(ctx)

	w.Header().Set("Content-Type", "application/json")
	if health.Status == "healthy" {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(health)
}

// Handler routes /health to the liveness probe and /ready to readiness.
func (hc *HealthChecker) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", hc.LivenessHandler)
	mux.HandleFunc("GET /ready", hc.ReadinessHandler)
	return mux
}

// TickLoopHealthCheck fails when the game loop has not completed a tick
// recently.
type TickLoopHealthCheck struct {
	lastTick func() time.Time
	maxAge   time.Duration
	now      func() time.Time
}

// NewTickLoopHealthCheck creates a check that tolerates maxAge between ticks.
func NewTickLoopHealthCheck(lastTick func() time.Time, maxAge time.Duration) *TickLoopHealthCheck {
	return &TickLoopHealthCheck{lastTick: lastTick, maxAge: maxAge, now: time.Now}
}

// Name returns the name of this health check.
func (t *TickLoopHealthCheck) Name() string {
	return "game_loop"
}

// Check verifies the last tick is recent enough.
func (t *TickLoopHealthCheck) Check(ctx context.Context) error {
	last := t.lastTick()
	if last.IsZero() {
		return fmt.Errorf("game loop has not ticked yet")
	}
	if age := t.now().Sub(last); age > t.maxAge {
		return fmt.Errorf("last tick was %v ago (max %v)", age.Round(time.Millisecond), t.maxAge)
	}
	return nil
}

// NetworkHealthCheck fails while the UDP socket is not bound.
type NetworkHealthCheck struct {
	listenerAddr func() string
}

// NewNetworkHealthCheck creates a check over the bound socket address.
func NewNetworkHealthCheck(listenerAddr func() string) *NetworkHealthCheck {
	return &NetworkHealthCheck{listenerAddr: listenerAddr}
}

// Name returns the name of this health check.
func (n *NetworkHealthCheck) Name() string {
	return "network"
}

// Check verifies that the socket is bound.
func (n *NetworkHealthCheck) Check(ctx context.Context) error {
	if n.listenerAddr() == "" {
		return fmt.Errorf("udp socket is not bound")
	}
	return nil
}

// MemoryHealthCheck fails when heap usage exceeds a limit.
type MemoryHealthCheck struct {
	maxMemoryMB    int64
	getMemoryUsage func() int64
}

// NewMemoryHealthCheck creates a health check for memory usage.
func NewMemoryHealthCheck(maxMemoryMB int64, getMemoryUsage func() int64) *MemoryHealthCheck {
	return &MemoryHealthCheck{
		maxMemoryMB:    maxMemoryMB,
		getMemoryUsage: getMemoryUsage,
	}
}

// Name returns the name of this health check.
func (m *MemoryHealthCheck) Name() string {
	return "memory"
}

// Check verifies that memory usage is within acceptable limits.
func (m *MemoryHealthCheck) Check(ctx context.Context) error {
	currentMB := m.getMemoryUsage()
	if currentMB > m.maxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", currentMB, m.maxMemoryMB)
	}
	return nil
}

// HeapUsageMB reports the current heap allocation in megabytes.
func HeapUsageMB() int64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return int64(m.HeapAlloc / (1024 * 1024))
}
