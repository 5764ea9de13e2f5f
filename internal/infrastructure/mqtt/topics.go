package mqtt

import "fmt"

// Topic prefixes used on the bus.
//
// Bridge topics use the flat scheme graylogic/{category}/{protocol}/{id},
// matching the econet bridge's messages.go.
const (
	// TopicPrefixBridge is the base for all bridge topics.
	TopicPrefixBridge = "graylogic"

	// TopicPrefixSystem is the base for per-client system topics.
	TopicPrefixSystem = "graylogic/system"

	// DefaultDiscoveryPrefix is the Home Assistant discovery root.
	DefaultDiscoveryPrefix = "homeassistant"
)

// Topics provides builders for the MQTT topics this process touches.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.State("econet", "abc123-tempCO")
//	// Returns: "graylogic/state/econet/abc123-tempCO"
type Topics struct{}

// State returns the topic for an entity's state.
//
// Example: graylogic/state/econet/abc123-tempCO
func (Topics) State(protocol, id string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefixBridge, protocol, id)
}

// Health returns the topic for bridge health status.
//
// Example: graylogic/health/econet
func (Topics) Health(protocol string) string {
	return fmt.Sprintf("%s/health/%s", TopicPrefixBridge, protocol)
}

// Ingest returns the topic the external poller publishes snapshots to.
//
// Example: graylogic/ingest/econet
func (Topics) Ingest(protocol string) string {
	return fmt.Sprintf("%s/ingest/%s", TopicPrefixBridge, protocol)
}

// Discovery returns a Home Assistant discovery config topic.
// An empty prefix means DefaultDiscoveryPrefix.
//
// Example: homeassistant/sensor/econet300_abc123/abc123-tempCO/config
func (Topics) Discovery(prefix, component, nodeID, objectID string) string {
	if prefix == "" {
		prefix = DefaultDiscoveryPrefix
	}
	return fmt.Sprintf("%s/%s/%s/%s/config", prefix, component, nodeID, objectID)
}

// ClientStatus returns the online/offline topic for one MQTT client.
//
// Example: graylogic/system/status/econet-bridge
func (Topics) ClientStatus(clientID string) string {
	return fmt.Sprintf("%s/status/%s", TopicPrefixSystem, clientID)
}

// AllStates returns a pattern matching every entity state of a protocol.
//
// Pattern: graylogic/state/econet/+
func (Topics) AllStates(protocol string) string {
	return fmt.Sprintf("%s/state/%s/+", TopicPrefixBridge, protocol)
}

// AllHealth returns a pattern matching all bridge health updates.
//
// Pattern: graylogic/health/+
func (Topics) AllHealth() string {
	return fmt.Sprintf("%s/health/+", TopicPrefixBridge)
}
