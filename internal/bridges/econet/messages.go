package econet

import (
	"fmt"
	"strings"
	"time"
)

// MQTT message types published by the ecoNET bridge.

// Protocol is the protocol identifier used in topics and state messages.
const Protocol = "econet"

// DefaultDiscoveryPrefix is the Home Assistant discovery topic root.
const DefaultDiscoveryPrefix = "homeassistant"

// DiscoveryConfig is the retained MQTT discovery payload for one sensor.
// Topic: {discovery_prefix}/sensor/{node_id}/{object_id}/config
type DiscoveryConfig struct {
	Name                      string     `json:"name"`
	UniqueID                  string     `json:"unique_id"`
	ObjectID                  string     `json:"object_id"`
	StateTopic                string     `json:"state_topic"`
	ValueTemplate             string     `json:"value_template"`
	AvailabilityTopic         string     `json:"availability_topic"`
	AvailabilityTemplate      string     `json:"availability_template"`
	UnitOfMeasurement         string     `json:"unit_of_measurement,omitempty"`
	DeviceClass               string     `json:"device_class,omitempty"`
	StateClass                string     `json:"state_class,omitempty"`
	EntityCategory            string     `json:"entity_category,omitempty"`
	Icon                      string     `json:"icon,omitempty"`
	SuggestedDisplayPrecision *int       `json:"suggested_display_precision,omitempty"`
	Options                   []string   `json:"options,omitempty"`
	Device                    DeviceInfo `json:"device"`
}

// StateMessage is published whenever a sensor value changes.
// Topic: graylogic/state/econet/{unique_id}
// QoS: 1, Retained: Yes
type StateMessage struct {
	// UniqueID is the entity identifier ("<uid>-<key>").
	UniqueID string `json:"unique_id"`

	// Key is the ecoNET register key.
	Key string `json:"key"`

	// Kind is the device kind (controller, mixer, lambda).
	Kind Kind `json:"kind"`

	// Mixer is the mixer number for mixer sensors.
	Mixer int `json:"mixer,omitempty"`

	// Timestamp is when the value was stored (UTC).
	Timestamp time.Time `json:"timestamp"`

	// Value is the transformed sensor value.
	Value any `json:"value"`

	// Unit is the unit of measurement, if any.
	Unit string `json:"unit,omitempty"`

	// Protocol is always "econet".
	Protocol string `json:"protocol"`
}

// HealthStatus represents the operational status of the bridge.
type HealthStatus string

const (
	// HealthHealthy indicates snapshots are arriving.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded indicates MQTT is down or snapshots are stale.
	HealthDegraded HealthStatus = "degraded"

	// HealthOffline indicates the bridge disconnected (from LWT).
	HealthOffline HealthStatus = "offline"

	// HealthStarting indicates the bridge is waiting for its first snapshot.
	HealthStarting HealthStatus = "starting"

	// HealthStopping indicates the bridge is shutting down.
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage reports the bridge's operational status.
// Topic: graylogic/health/econet
// QoS: 1, Retained: Yes
type HealthMessage struct {
	Bridge            string       `json:"bridge"`
	InstanceID        string       `json:"instance_id,omitempty"`
	Timestamp         time.Time    `json:"timestamp"`
	Status            HealthStatus `json:"status"`
	Version           string       `json:"version,omitempty"`
	UptimeSeconds     int64        `json:"uptime_seconds"`
	EntitiesManaged   int          `json:"entities_managed"`
	SnapshotsReceived uint64       `json:"snapshots_received"`
	LastSnapshot      *time.Time   `json:"last_snapshot,omitempty"`
	Reason            string       `json:"reason,omitempty"`
}

// NewStateMessage creates the state message for a sensor's current value.
func NewStateMessage(s *Sensor) StateMessage {
	value, _ := s.Value()
	msg := StateMessage{
		UniqueID:  s.UniqueID(),
		Key:       s.Key(),
		Kind:      s.Kind(),
		Timestamp: s.UpdatedAt(),
		Value:     value,
		Unit:      s.Descriptor().Unit,
		Protocol:  Protocol,
	}
	if s.Kind() == KindMixer {
		msg.Mixer = s.SubIndex()
	}
	return msg
}

// NewDiscoveryConfig creates the discovery payload for a sensor.
func NewDiscoveryConfig(s *Sensor) DiscoveryConfig {
	desc := s.Descriptor()
	cfg := DiscoveryConfig{
		Name:                 HumanizeKey(desc.TranslationKey),
		UniqueID:             s.UniqueID(),
		ObjectID:             SanitizeTopicSegment(s.UniqueID()),
		StateTopic:           StateTopic(s.UniqueID()),
		ValueTemplate:        "{{ value_json.value }}",
		AvailabilityTopic:    HealthTopic(),
		AvailabilityTemplate: "{{ 'offline' if value_json.status in ['offline', 'stopping'] else 'online' }}",
		UnitOfMeasurement:    desc.Unit,
		DeviceClass:          desc.DeviceClass,
		StateClass:           desc.StateClass,
		EntityCategory:       desc.EntityCategory,
		Icon:                 desc.Icon,
		Options:              desc.Options,
		Device:               s.DeviceInfo(),
	}
	if desc.Precision > 0 {
		precision := desc.Precision
		cfg.SuggestedDisplayPrecision = &precision
	}
	return cfg
}

// NewHealthMessage creates a health status message.
func NewHealthMessage(bridgeID, instanceID, version string, status HealthStatus, startTime time.Time) HealthMessage {
	return HealthMessage{
		Bridge:        bridgeID,
		InstanceID:    instanceID,
		Timestamp:     time.Now().UTC(),
		Status:        status,
		Version:       version,
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
	}
}

// NewLWTMessage creates the Last Will and Testament message.
func NewLWTMessage(bridgeID string) HealthMessage {
	return HealthMessage{
		Bridge:    bridgeID,
		Timestamp: time.Now().UTC(),
		Status:    HealthOffline,
		Reason:    "unexpected_disconnect",
	}
}

// Topic helpers

const (
	// TopicPrefix is the base topic for all Gray Logic messages.
	TopicPrefix = "graylogic"
)

// StateTopic returns the MQTT topic for a sensor's state.
// Example: graylogic/state/econet/abc123-tempCO
func StateTopic(uniqueID string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, Protocol, SanitizeTopicSegment(uniqueID))
}

// HealthTopic returns the MQTT topic for bridge health.
// Example: graylogic/health/econet
func HealthTopic() string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, Protocol)
}

// IngestTopic returns the default topic the poller publishes snapshots to.
// Example: graylogic/ingest/econet
func IngestTopic() string {
	return fmt.Sprintf("%s/ingest/%s", TopicPrefix, Protocol)
}

// DiscoveryTopic returns the Home Assistant discovery topic for a sensor.
// Example: homeassistant/sensor/econet300_abc123/abc123-tempCO/config
func DiscoveryTopic(prefix, uid, uniqueID string) string {
	if prefix == "" {
		prefix = DefaultDiscoveryPrefix
	}
	node := SanitizeTopicSegment(Domain + "_" + uid)
	return fmt.Sprintf("%s/sensor/%s/%s/config", prefix, node, SanitizeTopicSegment(uniqueID))
}

// SanitizeTopicSegment replaces characters that are not allowed in a
// discovery node or object id with underscores.
func SanitizeTopicSegment(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// HumanizeKey turns a snake_case translation key into a display name:
// "temp_flue_gas" becomes "Temp flue gas".
func HumanizeKey(key string) string {
	s := strings.ReplaceAll(key, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
