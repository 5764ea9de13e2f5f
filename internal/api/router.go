package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/econet-bridge/internal/bridges/econet"
)

// healthCheckTimeout bounds each component check in /health.
const healthCheckTimeout = 3 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)

	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/system", s.handleSystem)
		r.Get("/snapshot", s.handleSnapshot)

		r.Route("/sensors", func(r chi.Router) {
			r.Get("/", s.handleListSensors)
			r.Get("/stats", s.handleSensorStats)
			r.Get("/{id}", s.handleGetSensor)
		})
	})

	return r
}

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Bridge       string            `json:"bridge,omitempty"`
	BridgeReason string            `json:"bridge_reason,omitempty"`
	Checks       map[string]string `json:"checks,omitempty"`
}

// handleHealth runs the component checks. Any failing check or an
// unhealthy bridge turns the response into 503 with status "degraded".
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Version: s.version}

	if len(s.checks) > 0 {
		resp.Checks = make(map[string]string, len(s.checks))
		names := make([]string, 0, len(s.checks))
		for name := range s.checks {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			err := s.checks[name].HealthCheck(ctx)
			cancel()
			if err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				continue
			}
			resp.Checks[name] = "ok"
		}
	}

	if s.bridge != nil {
		status, reason := s.bridge.Health()
		resp.Bridge = string(status)
		resp.BridgeReason = reason
		if status != econet.HealthHealthy && status != econet.HealthStarting {
			resp.Status = "degraded"
		}
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// SnapshotResponse is the body of GET /api/v1/snapshot.
type SnapshotResponse struct {
	LastUpdate  *time.Time       `json:"last_update,omitempty"`
	UpdateCount uint64           `json:"update_count"`
	Snapshot    *econet.Snapshot `json:"snapshot"`
}

// handleSnapshot returns the raw controller snapshot the bridge holds.
func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	if s.bridge == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "bridge not running")
		return
	}

	coord := s.bridge.Coordinator()
	resp := SnapshotResponse{
		UpdateCount: coord.UpdateCount(),
		Snapshot:    coord.Data(),
	}
	if last := coord.LastUpdate(); !last.IsZero() {
		resp.LastUpdate = &last
	}
	writeJSON(w, http.StatusOK, resp)
}
