package econet

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Default health reporting settings.
const (
	defaultHealthInterval = 30 * time.Second
	defaultStaleAfter     = 5 * time.Minute
)

// HealthReporter manages periodic health status reporting.
// It publishes health messages to MQTT at regular intervals.
type HealthReporter struct {
	bridgeID   string
	instanceID string
	version    string
	startTime  time.Time
	interval   time.Duration
	staleAfter time.Duration
	publisher  Publisher
	snapshots  SnapshotSource

	// Entity count (updated externally)
	entityCount   int
	entityCountMu sync.RWMutex

	// Shutdown coordination
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// SnapshotSource reports snapshot arrival for health evaluation.
// *DataCoordinator implements it.
type SnapshotSource interface {
	LastUpdate() time.Time
	UpdateCount() uint64
}

// HealthReporterConfig holds configuration for the health reporter.
type HealthReporterConfig struct {
	// BridgeID is the bridge identifier for health messages.
	BridgeID string

	// InstanceID distinguishes restarts of the same bridge.
	InstanceID string

	// Version is the bridge software version.
	Version string

	// Interval is how often to publish health status.
	// Default: 30 seconds.
	Interval time.Duration

	// StaleAfter is how old the last snapshot may be before the bridge
	// reports degraded. Default: 5 minutes.
	StaleAfter time.Duration

	// Publisher is the MQTT client for publishing messages.
	Publisher Publisher

	// Snapshots reports when the last snapshot arrived.
	Snapshots SnapshotSource
}

// NewHealthReporter creates a new health reporter.
//
// Parameters:
//   - cfg: Configuration for the health reporter
//
// Returns:
//   - *HealthReporter: Ready to start (call Start to begin reporting)
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	staleAfter := cfg.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}

	return &HealthReporter{
		bridgeID:   cfg.BridgeID,
		instanceID: cfg.InstanceID,
		version:    cfg.Version,
		startTime:  time.Now(),
		interval:   interval,
		staleAfter: staleAfter,
		publisher:  cfg.Publisher,
		snapshots:  cfg.Snapshots,
		done:       make(chan struct{}),
	}
}

// Start begins periodic health reporting. Call Stop to shut down.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop stops health reporting and publishes a final "stopping" status.
// Safe to call multiple times.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		//nolint:errcheck // Best-effort during shutdown
		h.publishStatus(HealthStopping, "")
	})
}

// SetEntityCount updates the managed entity count.
func (h *HealthReporter) SetEntityCount(count int) {
	h.entityCountMu.Lock()
	h.entityCount = count
	h.entityCountMu.Unlock()
}

// SetLogger sets the logger for this reporter.
func (h *HealthReporter) SetLogger(logger Logger) {
	h.loggerMu.Lock()
	h.logger = logger
	h.loggerMu.Unlock()
}

// PublishStarting publishes a "starting" status.
func (h *HealthReporter) PublishStarting() error {
	return h.publishStatus(HealthStarting, "bridge starting")
}

// PublishNow publishes the current health status immediately.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.Status()
	return h.publishStatus(status, reason)
}

// LWTPayload returns the Last Will and Testament message payload.
func (h *HealthReporter) LWTPayload() ([]byte, error) {
	return json.Marshal(NewLWTMessage(h.bridgeID))
}

// LWTTopic returns the topic for the Last Will and Testament.
func (h *HealthReporter) LWTTopic() string {
	return HealthTopic()
}

func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				h.logError("failed to publish health", err)
			}
		}
	}
}

// Status evaluates the current bridge status and the reason for it.
func (h *HealthReporter) Status() (HealthStatus, string) {
	if h.publisher == nil || !h.publisher.IsConnected() {
		return HealthDegraded, "MQTT disconnected"
	}
	if h.snapshots == nil || h.snapshots.UpdateCount() == 0 {
		return HealthStarting, "waiting for first snapshot"
	}
	if age := time.Since(h.snapshots.LastUpdate()); age > h.staleAfter {
		return HealthDegraded, "snapshot stale for " + age.Truncate(time.Second).String()
	}
	return HealthHealthy, ""
}

// Message builds the health message for status without publishing it.
func (h *HealthReporter) Message(status HealthStatus, reason string) HealthMessage {
	msg := NewHealthMessage(h.bridgeID, h.instanceID, h.version, status, h.startTime)
	msg.Reason = reason

	h.entityCountMu.RLock()
	msg.EntitiesManaged = h.entityCount
	h.entityCountMu.RUnlock()

	if h.snapshots != nil {
		msg.SnapshotsReceived = h.snapshots.UpdateCount()
		if last := h.snapshots.LastUpdate(); !last.IsZero() {
			lastUTC := last.UTC()
			msg.LastSnapshot = &lastUTC
		}
	}
	return msg
}

func (h *HealthReporter) publishStatus(status HealthStatus, reason string) error {
	if h.publisher == nil {
		return nil
	}

	payload, err := json.Marshal(h.Message(status, reason))
	if err != nil {
		return err
	}

	return h.publisher.Publish(HealthTopic(), payload, 1, true)
}

func (h *HealthReporter) logError(msg string, err error) {
	h.loggerMu.RLock()
	logger := h.logger
	h.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
