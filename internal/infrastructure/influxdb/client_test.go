package influxdb_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/econet-bridge/internal/infrastructure/config"
	"github.com/nerrad567/econet-bridge/internal/infrastructure/influxdb"
)

// testConfig returns a configuration for a local dev InfluxDB.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "econet-dev-token",
		Org:           "econet",
		Bucket:        "sensors",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// connectOrSkip connects to the local InfluxDB or skips the test.
func connectOrSkip(t *testing.T, cfg config.InfluxDBConfig) *influxdb.Client {
	t.Helper()
	client, err := influxdb.Connect(cfg)
	if err != nil {
		if os.Getenv("RUN_INTEGRATION") != "" {
			t.Fatalf("Connect() error = %v", err)
		}
		t.Skipf("InfluxDB not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func tagMap(p *write.Point) map[string]string {
	tags := make(map[string]string)
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	return tags
}

func fieldMap(p *write.Point) map[string]interface{} {
	fields := make(map[string]interface{})
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	return fields
}

// =============================================================================
// Point construction
// =============================================================================

func TestNewSensorPoint(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		reading    influxdb.SensorReading
		wantFields map[string]interface{}
		wantTags   map[string]string
	}{
		{
			name: "numeric controller sensor",
			reading: influxdb.SensorReading{
				UniqueID: "abc123-tempCO", Key: "tempCO", Kind: "controller",
				Unit: "°C", DeviceClass: "temperature", Value: 55.5, Timestamp: ts,
			},
			wantFields: map[string]interface{}{"value": 55.5},
			wantTags: map[string]string{
				"unique_id": "abc123-tempCO", "key": "tempCO", "kind": "controller",
				"unit": "°C", "device_class": "temperature",
			},
		},
		{
			name: "mixer tag",
			reading: influxdb.SensorReading{
				UniqueID: "abc123-mixerTemp2", Key: "mixerTemp2", Kind: "mixer",
				SubIndex: 2, Value: 41.0, Timestamp: ts,
			},
			wantFields: map[string]interface{}{"value": 41.0},
			wantTags: map[string]string{
				"unique_id": "abc123-mixerTemp2", "key": "mixerTemp2", "kind": "mixer", "mixer": "2",
			},
		},
		{
			name: "enum state",
			reading: influxdb.SensorReading{
				UniqueID: "abc123-mode", Key: "mode", Kind: "controller", Value: "heating", Timestamp: ts,
			},
			wantFields: map[string]interface{}{"state": "heating"},
			wantTags:   map[string]string{"unique_id": "abc123-mode", "key": "mode", "kind": "controller"},
		},
		{
			name: "boolean",
			reading: influxdb.SensorReading{
				UniqueID: "abc123-pump", Key: "pump", Kind: "controller", Value: true, Timestamp: ts,
			},
			wantFields: map[string]interface{}{"value": 1.0},
			wantTags:   map[string]string{"unique_id": "abc123-pump", "key": "pump", "kind": "controller"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := influxdb.NewSensorPoint(tt.reading)
			if p == nil {
				t.Fatal("NewSensorPoint() = nil")
			}
			if p.Name() != influxdb.SensorMeasurement {
				t.Errorf("Name() = %q, want %q", p.Name(), influxdb.SensorMeasurement)
			}
			if !p.Time().Equal(ts) {
				t.Errorf("Time() = %v, want %v", p.Time(), ts)
			}

			fields := fieldMap(p)
			if len(fields) != len(tt.wantFields) {
				t.Errorf("fields = %v, want %v", fields, tt.wantFields)
			}
			for k, want := range tt.wantFields {
				if fields[k] != want {
					t.Errorf("field %s = %v, want %v", k, fields[k], want)
				}
			}

			tags := tagMap(p)
			if len(tags) != len(tt.wantTags) {
				t.Errorf("tags = %v, want %v", tags, tt.wantTags)
			}
			for k, want := range tt.wantTags {
				if tags[k] != want {
					t.Errorf("tag %s = %q, want %q", k, tags[k], want)
				}
			}
		})
	}
}

func TestNewSensorPoint_Unrecordable(t *testing.T) {
	for _, value := range []any{nil, []int{1}, map[string]any{}} {
		if p := influxdb.NewSensorPoint(influxdb.SensorReading{Key: "x", Value: value}); p != nil {
			t.Errorf("NewSensorPoint(%v) = %v, want nil", value, p)
		}
	}
}

func TestNewSensorPoint_DefaultsTimestamp(t *testing.T) {
	before := time.Now()
	p := influxdb.NewSensorPoint(influxdb.SensorReading{Key: "tempCO", Value: 1.0})
	if p.Time().Before(before) {
		t.Errorf("Time() = %v, want >= %v", p.Time(), before)
	}
}

// =============================================================================
// Client behaviour without a server
// =============================================================================

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_InvalidURL(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:59999"

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestClose_Nil(t *testing.T) {
	client := &influxdb.Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on zero client error = %v", err)
	}
}

func TestWriteSensorReading_NotConnected(t *testing.T) {
	client := &influxdb.Client{}
	if client.WriteSensorReading(influxdb.SensorReading{Key: "tempCO", Value: 1.0}) {
		t.Error("WriteSensorReading() = true on disconnected client")
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

// =============================================================================
// Live server tests
// =============================================================================

func TestConnect_DefaultBatchSettings(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = -5
	cfg.FlushInterval = 0

	client := connectOrSkip(t, cfg)
	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect() with default batch settings")
	}
}

func TestHealthCheck(t *testing.T) {
	client := connectOrSkip(t, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	cancelled, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	if err := client.HealthCheck(cancelled); err == nil {
		t.Error("HealthCheck() should fail for a cancelled context")
	}
}

func TestWriteSensorReading(t *testing.T) {
	client := connectOrSkip(t, testConfig())

	writeErrs := make(chan error, 10)
	client.SetOnError(func(err error) { writeErrs <- err })

	ok := client.WriteSensorReading(influxdb.SensorReading{
		UniqueID: "test-tempCO", Key: "tempCO", Kind: "controller", Unit: "°C", Value: 55.5,
	})
	if !ok {
		t.Fatal("WriteSensorReading() = false")
	}
	client.WritePoint("econet_bridge", map[string]string{"bridge": "test"}, map[string]interface{}{"entities": 3})
	client.Flush()

	select {
	case err := <-writeErrs:
		t.Errorf("async write error: %v", err)
	default:
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	client.Flush()
}
