package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/econet-bridge/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for initial connection.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 1000 // milliseconds

	defaultKeepAlive = 60 * time.Second

	maxQoS = 2

	tlsMinVersion = tls.VersionTLS12
)

// Will is the Last Will and Testament registered with the broker.
type Will struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

// ConnectOption customises Connect.
type ConnectOption func(*connectSettings)

type connectSettings struct {
	will   *Will
	logger Logger
}

// WithWill replaces the default per-client offline will with the given
// topic and payload. The will is published retained at QoS 1.
func WithWill(topic string, payload []byte) ConnectOption {
	return func(s *connectSettings) {
		s.will = &Will{Topic: topic, Payload: payload, QoS: 1, Retained: true}
	}
}

// WithLogger sets the logger before the first connection attempt so
// reconnect events are not lost.
func WithLogger(logger Logger) ConnectOption {
	return func(s *connectSettings) {
		s.logger = logger
	}
}

// buildClientOptions creates paho MQTT options from the bridge config.
//
// This configures:
//   - Broker URL (tcp:// or ssl:// based on TLS setting)
//   - Client ID and credentials
//   - Auto-reconnect with exponential backoff
//   - Clean session mode
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port))
	opts.SetClientID(cfg.Broker.ClientID)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second)
	opts.SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second)

	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}

	return opts
}

// configureWill registers the Last Will. Without an explicit will the
// client's own status topic receives an unexpected_disconnect payload.
func configureWill(opts *pahomqtt.ClientOptions, clientID string, will *Will) {
	if will == nil {
		will = &Will{
			Topic:    Topics{}.ClientStatus(clientID),
			Payload:  []byte(buildStatusPayload(clientID, "offline", "unexpected_disconnect")),
			QoS:      1,
			Retained: true,
		}
	}
	opts.SetBinaryWill(will.Topic, will.Payload, will.QoS, will.Retained)
}

// buildStatusPayload creates the JSON payload for client status messages.
// An empty reason is omitted.
func buildStatusPayload(clientID, status, reason string) string {
	ts := time.Now().UTC().Format(time.RFC3339)
	if reason == "" {
		return fmt.Sprintf(`{"status":%q,"client_id":%q,"timestamp":%q}`, status, clientID, ts)
	}
	return fmt.Sprintf(`{"status":%q,"client_id":%q,"reason":%q,"timestamp":%q}`, status, clientID, reason, ts)
}
