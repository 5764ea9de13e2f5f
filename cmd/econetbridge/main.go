// econetbridge exposes an ecoNET300 boiler controller as Home Assistant
// sensors over MQTT.
//
// A poller publishes controller snapshots (regParams, sysParams and
// paramsEdits) to the ingest topic. The bridge builds sensor entities from
// the first snapshot, announces them through MQTT discovery and publishes
// state on every later snapshot. Sensor records are kept in SQLite, history
// optionally goes to InfluxDB and the HTTP API serves status and Prometheus
// metrics.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/econet-bridge/internal/api"
	"github.com/nerrad567/econet-bridge/internal/bridges/econet"
	"github.com/nerrad567/econet-bridge/internal/entity"
	"github.com/nerrad567/econet-bridge/internal/infrastructure/config"
	"github.com/nerrad567/econet-bridge/internal/infrastructure/database"
	"github.com/nerrad567/econet-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/econet-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/econet-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/econet-bridge/internal/metrics"
	"github.com/nerrad567/econet-bridge/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting econet bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	registry := entity.NewRegistry(entity.NewSQLiteRepository(db.DB))
	registry.SetLogger(log.Component("entity"))
	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading sensor registry: %w", refreshErr)
	}
	log.Info("sensor registry initialised", "sensors", registry.Count())

	bridgeCfg := bridgeConfig(cfg)
	will, err := json.Marshal(econet.NewLWTMessage(bridgeCfg.BridgeID))
	if err != nil {
		return fmt.Errorf("encoding last will: %w", err)
	}

	mqttClient, err := mqtt.Connect(cfg.MQTT,
		mqtt.WithWill(econet.HealthTopic(), will),
		mqtt.WithLogger(log.Component("mqtt")),
	)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(promRegistry)

	observers := []econet.Observer{
		entity.NewObserver(registry, bridgeCfg.EntryID),
		collector,
	}
	if influxClient != nil {
		observers = append(observers, &influxObserver{client: influxClient})
	}

	bridge, err := econet.NewBridge(econet.BridgeOptions{
		Config:     bridgeCfg,
		MQTTClient: &mqttBridgeAdapter{client: mqttClient},
		Observers:  observers,
		Logger:     log.Component("econet"),
	})
	if err != nil {
		return fmt.Errorf("creating econet bridge: %w", err)
	}
	collector.WatchBridge(bridge.GetMetrics)

	// A broker restarted without persistence has lost the retained configs.
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected, republishing discovery")
		if pubErr := bridge.Platform().RepublishDiscovery(); pubErr != nil {
			log.Warn("republishing discovery failed", "error", pubErr)
		}
	})

	if startErr := bridge.Start(ctx); startErr != nil {
		return fmt.Errorf("starting econet bridge: %w", startErr)
	}
	defer func() {
		log.Info("stopping econet bridge")
		bridge.Stop()
	}()

	if cfg.API.Enabled {
		checks := map[string]api.HealthChecker{
			"database": db,
			"mqtt":     mqttClient,
		}
		if influxClient != nil {
			checks["influxdb"] = influxClient
		}

		server, apiErr := api.New(api.Deps{
			Config:   cfg.API,
			Logger:   log.Component("api"),
			Registry: registry,
			Bridge:   bridge,
			Checks:   checks,
			Gatherer: promRegistry,
			Version:  version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := server.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for snapshots", "topic", bridgeCfg.SnapshotTopic)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	// Deferred calls run in reverse: API, bridge, InfluxDB, MQTT, database.
	return nil
}

// getConfigPath returns the configuration file path.
// Uses ECONET_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("ECONET_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// bridgeConfig maps the econet section of the configuration onto the
// bridge's own settings.
func bridgeConfig(cfg *config.Config) econet.BridgeConfig {
	return econet.BridgeConfig{
		BridgeID:   econet.Protocol,
		EntryID:    cfg.Econet.EntryID,
		InstanceID: uuid.NewString(),
		Version:    version,
		Controller: econet.ControllerInfo{
			UID:             cfg.Econet.UID,
			Host:            cfg.Econet.Host,
			Model:           cfg.Econet.Model,
			ModelID:         cfg.Econet.ModelID,
			SoftwareVersion: cfg.Econet.SoftwareVersion,
			HardwareVersion: cfg.Econet.HardwareVersion,
		},
		SnapshotTopic:   cfg.Econet.SnapshotTopic,
		DiscoveryPrefix: cfg.Econet.DiscoveryPrefix,
		HealthInterval:  cfg.GetHealthInterval(),
		StaleAfter:      cfg.GetStaleAfter(),
	}
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to the econet
// bridge's MQTTClient interface. The difference is the Subscribe handler:
// - Infrastructure mqtt: func(topic, payload []byte) error
// - econet bridge expects: func(topic, payload []byte)
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

// Publish implements econet.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements econet.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// IsConnected implements econet.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}

// influxWriter is the part of the InfluxDB client the observer uses.
type influxWriter interface {
	WriteSensorReading(r influxdb.SensorReading) bool
}

// influxObserver records every state write as an InfluxDB point.
type influxObserver struct {
	client influxWriter
}

// EntityAdded implements econet.Observer. History starts with the first state.
func (o *influxObserver) EntityAdded(context.Context, *econet.Sensor) {}

// StateWritten implements econet.Observer.
func (o *influxObserver) StateWritten(_ context.Context, r econet.Reading) {
	o.client.WriteSensorReading(influxdb.SensorReading{
		UniqueID:    r.UniqueID,
		Key:         r.Key,
		Kind:        string(r.Kind),
		SubIndex:    r.SubIndex,
		Unit:        r.Unit,
		DeviceClass: r.DeviceClass,
		Value:       r.Value,
		Timestamp:   r.Timestamp,
	})
}
