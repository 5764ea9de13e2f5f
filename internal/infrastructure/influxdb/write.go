package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// SensorMeasurement is the measurement holding sensor history.
const SensorMeasurement = "econet_sensor"

// SensorReading is one sensor state as recorded in InfluxDB.
type SensorReading struct {
	UniqueID    string
	Key         string
	Kind        string
	SubIndex    int
	Unit        string
	DeviceClass string
	Value       any
	Timestamp   time.Time
}

// NewSensorPoint converts a reading into a line-protocol point.
//
// Numeric values are written to the "value" field as float64 and booleans
// as 0/1. Strings (enum states such as "heating") go to the "state" field.
// A nil or unsupported value yields nil. Tags carry the unique id, key and
// kind, plus mixer, unit and device_class when set.
func NewSensorPoint(r SensorReading) *write.Point {
	fields := sensorFields(r.Value)
	if fields == nil {
		return nil
	}

	tags := map[string]string{
		"unique_id": r.UniqueID,
		"key":       r.Key,
		"kind":      r.Kind,
	}
	if r.SubIndex > 0 {
		tags["mixer"] = strconv.Itoa(r.SubIndex)
	}
	if r.Unit != "" {
		tags["unit"] = r.Unit
	}
	if r.DeviceClass != "" {
		tags["device_class"] = r.DeviceClass
	}

	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return write.NewPoint(SensorMeasurement, tags, fields, ts)
}

func sensorFields(value any) map[string]interface{} {
	switch v := value.(type) {
	case float64:
		return map[string]interface{}{"value": v}
	case float32:
		return map[string]interface{}{"value": float64(v)}
	case int:
		return map[string]interface{}{"value": float64(v)}
	case int64:
		return map[string]interface{}{"value": float64(v)}
	case bool:
		if v {
			return map[string]interface{}{"value": 1.0}
		}
		return map[string]interface{}{"value": 0.0}
	case string:
		return map[string]interface{}{"state": v}
	default:
		return nil
	}
}

// WriteSensorReading records a sensor state. The write is non-blocking and
// batched. Readings without a recordable value are dropped.
//
// Returns:
//   - bool: true if a point was queued
func (c *Client) WriteSensorReading(r SensorReading) bool {
	if !c.IsConnected() {
		return false
	}

	point := NewSensorPoint(r)
	if point == nil {
		return false
	}
	c.writeAPI.WritePoint(point)
	return true
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Example:
//
//	client.WritePoint("econet_bridge",
//	    map[string]string{"bridge": "econet"},
//	    map[string]interface{}{"entities": 31, "snapshots": 1200})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point with a specific timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
