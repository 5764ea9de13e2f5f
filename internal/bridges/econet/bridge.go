package econet

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Logger is the logging interface used by this package.
// *logging.Logger satisfies it.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

func loggerOrNoop(l Logger) Logger {
	if l == nil {
		return noopLogger{}
	}
	return l
}

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// BridgeConfig holds the settings the bridge needs from configuration.
type BridgeConfig struct {
	// BridgeID identifies this bridge in health messages. Default: "econet".
	BridgeID string

	// EntryID identifies the configuration entry.
	EntryID string

	// InstanceID distinguishes restarts in health messages.
	InstanceID string

	// Version is the bridge software version.
	Version string

	// Controller identifies the ecoNET300.
	Controller ControllerInfo

	// SnapshotTopic is where the poller publishes snapshots.
	// Default: graylogic/ingest/econet
	SnapshotTopic string

	// DiscoveryPrefix is the Home Assistant discovery root.
	DiscoveryPrefix string

	// HealthInterval is how often health is published.
	HealthInterval time.Duration

	// StaleAfter is the snapshot age at which health becomes degraded.
	StaleAfter time.Duration

	// Tables overrides the metadata catalogue. Nil means DefaultTables.
	Tables *Tables
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// Config is the bridge configuration.
	Config BridgeConfig

	// MQTTClient is the MQTT client implementation.
	MQTTClient MQTTClient

	// Observers are notified of entity registration and state writes
	// (entity registry, InfluxDB history, Prometheus metrics).
	Observers []Observer

	// Logger is optional structured logger.
	Logger Logger
}

// Bridge receives ecoNET snapshots over MQTT, creates the sensor entities on
// the first snapshot and keeps them updated on every later one.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	cfg         BridgeConfig
	mqtt        MQTTClient
	coordinator *DataCoordinator
	platform    *Platform
	health      *HealthReporter

	setupOnce sync.Once
	ready     atomic.Bool
	rejected  atomic.Uint64

	// Shutdown coordination
	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc

	logger   Logger
	loggerMu sync.RWMutex
}

// NewBridge creates a new bridge instance.
// Call Start() to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Config.Controller.UID == "" {
		return nil, fmt.Errorf("controller uid is required")
	}

	cfg := opts.Config
	if cfg.BridgeID == "" {
		cfg.BridgeID = Protocol
	}
	if cfg.SnapshotTopic == "" {
		cfg.SnapshotTopic = IngestTopic()
	}

	ctx, ctxCancel := context.WithCancel(context.Background())
	coordinator := NewDataCoordinator()

	b := &Bridge{
		cfg:         cfg,
		mqtt:        opts.MQTTClient,
		coordinator: coordinator,
		ctx:         ctx,
		ctxCancel:   ctxCancel,
		logger:      opts.Logger,
	}

	b.platform = NewPlatform(ctx, PlatformOptions{
		Publisher:       opts.MQTTClient,
		DiscoveryPrefix: cfg.DiscoveryPrefix,
		ControllerUID:   cfg.Controller.UID,
		Observers:       opts.Observers,
		Logger:          opts.Logger,
	})

	b.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:   cfg.BridgeID,
		InstanceID: cfg.InstanceID,
		Version:    cfg.Version,
		Interval:   cfg.HealthInterval,
		StaleAfter: cfg.StaleAfter,
		Publisher:  opts.MQTTClient,
		Snapshots:  coordinator,
	})
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

// Start subscribes to the snapshot topic and starts health reporting.
// Entities are created when the first snapshot arrives.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	topic := b.cfg.SnapshotTopic
	if err := b.mqtt.Subscribe(topic, 1, b.handleMQTTMessage); err != nil {
		return fmt.Errorf("subscribe to snapshots: %w", err)
	}
	b.logInfo("subscribed to snapshots", "topic", topic)

	b.health.Start(ctx)

	b.logInfo("bridge started",
		"bridge_id", b.cfg.BridgeID,
		"controller_uid", b.cfg.Controller.UID)

	return nil
}

// Stop gracefully shuts down the bridge.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.ctxCancel()
		b.platform.Close()
		b.health.Stop()
		b.logInfo("bridge stopped")
	})
}

// Entry returns the setup entry shared by the factories.
func (b *Bridge) Entry() Entry {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	return Entry{
		ID:          b.cfg.EntryID,
		Coordinator: b.coordinator,
		Controller:  b.cfg.Controller,
		Tables:      b.cfg.Tables,
		Logger:      logger,
	}
}

// Coordinator returns the bridge's snapshot coordinator.
func (b *Bridge) Coordinator() *DataCoordinator {
	return b.coordinator
}

// Platform returns the host platform holding the registered sensors.
func (b *Bridge) Platform() *Platform {
	return b.platform
}

// Sensors returns the registered sensors.
func (b *Bridge) Sensors() []*Sensor {
	return b.platform.Sensors()
}

// Ready reports whether entities have been set up.
func (b *Bridge) Ready() bool {
	return b.ready.Load()
}

// Health returns the current health status and reason.
func (b *Bridge) Health() (HealthStatus, string) {
	return b.health.Status()
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()

	if b.health != nil {
		b.health.SetLogger(logger)
	}
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logError(msg string, err error) {
	b.loggerMu.RLock()
	logger := b.logger
	b.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}

// BridgeMetrics contains metrics data for the API metrics endpoint.
type BridgeMetrics struct {
	Connected         bool
	Ready             bool
	Status            string
	Entities          int
	SnapshotsReceived uint64
	SnapshotsRejected uint64
	StateWrites       uint64
	PublishErrors     uint64
	LastSnapshot      time.Time
}

// GetMetrics returns current bridge metrics.
func (b *Bridge) GetMetrics() BridgeMetrics {
	status, _ := b.health.Status()
	stats := b.platform.Stats()
	return BridgeMetrics{
		Connected:         b.mqtt.IsConnected(),
		Ready:             b.ready.Load(),
		Status:            string(status),
		Entities:          stats.Entities,
		SnapshotsReceived: b.coordinator.UpdateCount(),
		SnapshotsRejected: b.rejected.Load(),
		StateWrites:       stats.StateWrites,
		PublishErrors:     stats.PublishErrors,
		LastSnapshot:      b.coordinator.LastUpdate(),
	}
}
