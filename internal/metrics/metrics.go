// Package metrics exports ecoNET sensor values and bridge counters to
// Prometheus.
//
// A Collector is an econet.Observer: every state write updates a gauge
// labelled with the sensor's unique id, key, kind, mixer number and unit.
// Enum sensors (operation mode, on/off flags) are exported as a state-set
// gauge, 1 for the current state.
package metrics

import (
	"context"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nerrad567/econet-bridge/internal/bridges/econet"
)

const namespace = "econet"

// Collector holds the Prometheus metrics for one bridge.
type Collector struct {
	sensorValue   *prometheus.GaugeVec
	sensorState   *prometheus.GaugeVec
	stateWrites   *prometheus.CounterVec
	entities      *prometheus.GaugeVec
	lastTimestamp *prometheus.GaugeVec

	registerer prometheus.Registerer

	// lastState remembers the exported enum label per sensor so the
	// previous series can be removed on change.
	lastState map[string]string
	mu        sync.Mutex
}

var _ econet.Observer = (*Collector)(nil)

// NewCollector creates the sensor metrics and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		sensorValue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sensor_value",
				Help:      "Current numeric value of an ecoNET sensor.",
			},
			[]string{"unique_id", "key", "kind", "mixer", "unit"},
		),
		sensorState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sensor_state",
				Help:      "Current state of an enum ecoNET sensor; 1 for the active state.",
			},
			[]string{"unique_id", "key", "state"},
		),
		stateWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "state_writes_total",
				Help:      "Sensor state writes by device kind.",
			},
			[]string{"kind"},
		),
		entities: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "entities",
				Help:      "Registered sensor entities by device kind.",
			},
			[]string{"kind"},
		),
		lastTimestamp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sensor_last_update_timestamp_seconds",
				Help:      "Unix time of the last state write of a sensor.",
			},
			[]string{"unique_id"},
		),
		registerer: reg,
		lastState:  make(map[string]string),
	}

	reg.MustRegister(c.sensorValue, c.sensorState, c.stateWrites, c.entities, c.lastTimestamp)
	return c
}

// EntityAdded counts the new entity.
func (c *Collector) EntityAdded(_ context.Context, s *econet.Sensor) {
	c.entities.WithLabelValues(string(s.Kind())).Inc()
}

// StateWritten exports the reading.
func (c *Collector) StateWritten(_ context.Context, r econet.Reading) {
	c.stateWrites.WithLabelValues(string(r.Kind)).Inc()
	if !r.Timestamp.IsZero() {
		c.lastTimestamp.WithLabelValues(r.UniqueID).Set(float64(r.Timestamp.UnixNano()) / 1e9)
	}

	switch v := r.Value.(type) {
	case string:
		c.setState(r.UniqueID, r.Key, v)
	default:
		value, ok := numeric(v)
		if !ok {
			return
		}
		c.sensorValue.WithLabelValues(r.UniqueID, r.Key, string(r.Kind), mixerLabel(r.SubIndex), r.Unit).Set(value)
	}
}

func (c *Collector) setState(uniqueID, key, state string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.lastState[uniqueID]; ok && prev != state {
		c.sensorState.DeleteLabelValues(uniqueID, key, prev)
	}
	c.lastState[uniqueID] = state
	c.sensorState.WithLabelValues(uniqueID, key, state).Set(1)
}

// WatchBridge exports the bridge's ingest and publish counters. stats is
// called on every scrape.
func (c *Collector) WatchBridge(stats func() econet.BridgeMetrics) {
	boolGauge := func(b bool) float64 {
		if b {
			return 1
		}
		return 0
	}

	c.registerer.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_received_total",
			Help:      "Controller snapshots accepted from the ingest topic.",
		}, func() float64 { return float64(stats().SnapshotsReceived) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_rejected_total",
			Help:      "Ingest payloads that failed to decode.",
		}, func() float64 { return float64(stats().SnapshotsRejected) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed discovery or state publishes.",
		}, func() float64 { return float64(stats().PublishErrors) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bridge_ready",
			Help:      "1 once the first snapshot has created the entities.",
		}, func() float64 { return boolGauge(stats().Ready) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mqtt_connected",
			Help:      "1 while the MQTT client is connected.",
		}, func() float64 { return boolGauge(stats().Connected) }),
	)
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func mixerLabel(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}
