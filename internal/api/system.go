package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/econet-bridge/internal/entity"
)

// SystemMetrics is the body of GET /api/v1/system.
type SystemMetrics struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	Bridge        *BridgeMetrics `json:"bridge,omitempty"`
	Sensors       entity.Stats   `json:"sensors"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// BridgeMetrics contains econet bridge statistics.
type BridgeMetrics struct {
	MQTTConnected     bool       `json:"mqtt_connected"`
	Ready             bool       `json:"ready"`
	Status            string     `json:"status"`
	Entities          int        `json:"entities"`
	SnapshotsReceived uint64     `json:"snapshots_received"`
	SnapshotsRejected uint64     `json:"snapshots_rejected"`
	StateWrites       uint64     `json:"state_writes"`
	PublishErrors     uint64     `json:"publish_errors"`
	LastSnapshot      *time.Time `json:"last_snapshot,omitempty"`
}

// handleSystem returns runtime, bridge and registry statistics.
func (s *Server) handleSystem(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Sensors: s.registry.GetStats(),
	}

	if s.bridge != nil {
		stats := s.bridge.GetMetrics()
		metrics.Bridge = &BridgeMetrics{
			MQTTConnected:     stats.Connected,
			Ready:             stats.Ready,
			Status:            stats.Status,
			Entities:          stats.Entities,
			SnapshotsReceived: stats.SnapshotsReceived,
			SnapshotsRejected: stats.SnapshotsRejected,
			StateWrites:       stats.StateWrites,
			PublishErrors:     stats.PublishErrors,
		}
		if !stats.LastSnapshot.IsZero() {
			last := stats.LastSnapshot
			metrics.Bridge.LastSnapshot = &last
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
