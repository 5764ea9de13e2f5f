package econet

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Publisher is the MQTT side of the platform.
type Publisher interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Reading is one written sensor value, as handed to observers.
type Reading struct {
	UniqueID    string
	Key         string
	Kind        Kind
	SubIndex    int
	Value       any
	Unit        string
	DeviceClass string
	Timestamp   time.Time
}

// Observer receives entity lifecycle events from the platform.
// Implementations persist entities, record history or export metrics.
// They must not block for long: they run on the snapshot ingest goroutine.
type Observer interface {
	// EntityAdded is called once per registered entity.
	EntityAdded(ctx context.Context, s *Sensor)

	// StateWritten is called after every state change.
	StateWritten(ctx context.Context, r Reading)
}

// PlatformOptions configures a Platform.
type PlatformOptions struct {
	// Publisher publishes discovery and state messages. Optional.
	Publisher Publisher

	// DiscoveryPrefix is the discovery topic root. Default: "homeassistant".
	DiscoveryPrefix string

	// ControllerUID is the controller uid used in discovery node ids.
	ControllerUID string

	// Observers are notified of entity registration and state writes.
	Observers []Observer

	// Logger is optional.
	Logger Logger
}

// Platform is the host that owns registered sensors. It publishes a
// retained discovery config for each entity on registration and a state
// message on every SyncState.
//
// Thread Safety: All methods are safe for concurrent use.
type Platform struct {
	publisher       Publisher
	discoveryPrefix string
	controllerUID   string
	observers       []Observer
	logger          Logger

	// ctx is the platform lifetime context passed to observers.
	ctx context.Context

	sensors []*Sensor
	byID    map[string]*Sensor
	mu      sync.RWMutex

	stateWrites   atomic.Uint64
	publishErrors atomic.Uint64
}

// PlatformStats contains counters for the metrics endpoint.
type PlatformStats struct {
	Entities      int
	StateWrites   uint64
	PublishErrors uint64
}

// NewPlatform creates a platform bound to ctx.
func NewPlatform(ctx context.Context, opts PlatformOptions) *Platform {
	prefix := opts.DiscoveryPrefix
	if prefix == "" {
		prefix = DefaultDiscoveryPrefix
	}
	return &Platform{
		publisher:       opts.Publisher,
		discoveryPrefix: prefix,
		controllerUID:   opts.ControllerUID,
		observers:       opts.Observers,
		logger:          loggerOrNoop(opts.Logger),
		ctx:             ctx,
		byID:            make(map[string]*Sensor),
	}
}

// AddEntities registers sensors with the platform. It satisfies
// AddEntitiesFunc. Each new sensor gets a discovery config, is announced to
// observers and is then attached, which performs its initial sync. Sensors
// whose unique id is already registered are ignored.
func (p *Platform) AddEntities(sensors []*Sensor) {
	added := 0
	for _, s := range sensors {
		id := s.UniqueID()

		p.mu.Lock()
		if _, exists := p.byID[id]; exists {
			p.mu.Unlock()
			p.logger.Warn("entity already registered", "unique_id", id)
			continue
		}
		p.byID[id] = s
		p.sensors = append(p.sensors, s)
		p.mu.Unlock()

		if err := p.publishDiscovery(s); err != nil {
			p.publishErrors.Add(1)
			p.logger.Error("failed to publish discovery", "unique_id", id, "error", err)
		}

		for _, o := range p.observers {
			o.EntityAdded(p.ctx, s)
		}

		s.AttachTo(p)
		added++
	}

	p.logger.Info("entities registered", "added", added, "total", p.Count())
}

// WriteState publishes the sensor's current value and notifies observers.
// It implements StateWriter.
func (p *Platform) WriteState(s *Sensor) {
	p.stateWrites.Add(1)

	msg := NewStateMessage(s)
	if err := p.publishJSON(StateTopic(msg.UniqueID), msg); err != nil {
		p.publishErrors.Add(1)
		p.logger.Debug("state publish skipped", "unique_id", msg.UniqueID, "reason", err.Error())
	}

	desc := s.Descriptor()
	r := Reading{
		UniqueID:    msg.UniqueID,
		Key:         msg.Key,
		Kind:        msg.Kind,
		SubIndex:    s.SubIndex(),
		Value:       msg.Value,
		Unit:        desc.Unit,
		DeviceClass: desc.DeviceClass,
		Timestamp:   msg.Timestamp,
	}
	for _, o := range p.observers {
		o.StateWritten(p.ctx, r)
	}
}

// Sensors returns the registered sensors in registration order.
func (p *Platform) Sensors() []*Sensor {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Sensor, len(p.sensors))
	copy(out, p.sensors)
	return out
}

// Sensor returns the sensor with the given unique id.
func (p *Platform) Sensor(uniqueID string) (*Sensor, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.byID[uniqueID]
	return s, ok
}

// Count returns the number of registered sensors.
func (p *Platform) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.sensors)
}

// Stats returns platform counters.
func (p *Platform) Stats() PlatformStats {
	return PlatformStats{
		Entities:      p.Count(),
		StateWrites:   p.stateWrites.Load(),
		PublishErrors: p.publishErrors.Load(),
	}
}

// RepublishDiscovery re-sends every discovery config, e.g. after the broker
// connection is re-established or Home Assistant restarts.
func (p *Platform) RepublishDiscovery() error {
	var firstErr error
	for _, s := range p.Sensors() {
		if err := p.publishDiscovery(s); err != nil {
			p.publishErrors.Add(1)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Close detaches every sensor from the coordinator.
func (p *Platform) Close() {
	for _, s := range p.Sensors() {
		s.Detach()
	}
}

func (p *Platform) publishDiscovery(s *Sensor) error {
	topic := DiscoveryTopic(p.discoveryPrefix, p.controllerUID, s.UniqueID())
	return p.publishJSON(topic, NewDiscoveryConfig(s))
}

// publishJSON marshals v and publishes it retained at QoS 1.
func (p *Platform) publishJSON(topic string, v any) error {
	if p.publisher == nil {
		return nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", topic, err)
	}
	if !p.publisher.IsConnected() {
		return ErrNotConnected
	}
	if err := p.publisher.Publish(topic, payload, 1, true); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}
