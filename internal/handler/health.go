package handler

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	checks map[string]HealthChecker
}

// NewHealthHandler creates a new HealthHandler. A nil store or cache is
// reported as "not configured".
func NewHealthHandler(store, cache HealthChecker) *HealthHandler {
	return &HealthHandler{checks: map[string]HealthChecker{
		"store": store,
		"redis": cache,
	}}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz reports liveness. It never checks dependencies.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz reports readiness. The store is required; redis only fails
// readiness when it is configured and unreachable.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make(map[string]string, len(h.checks))
		g       errgroup.Group
	)
	record := func(name, status string) {
		mu.Lock()
		results[name] = status
		mu.Unlock()
	}

	// Checks run concurrently.
	for name, checker := range h.checks {
		if checker == nil {
			record(name, "not configured")
			if name == "store" {
				g.Go(func() error { return errors.New("store not configured") })
			}
			continue
		}
		g.Go(func() error {
			if err := checker.Ping(ctx); err != nil {
				record(name, "error: "+err.Error())
				return err
			}
			record(name, "ok")
			return nil
		})
	}
	healthy := g.Wait() == nil

	if !healthy {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Checks: results})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Checks: results})
}
