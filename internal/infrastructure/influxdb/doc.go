// Package influxdb records ecoNET sensor history in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library: connection
// management, batched non-blocking writes of the econet_sensor
// measurement, and health checks.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteSensorReading(influxdb.SensorReading{
//	    UniqueID: "abc123-tempCO",
//	    Key:      "tempCO",
//	    Kind:     "controller",
//	    Unit:     "°C",
//	    Value:    55.5,
//	})
//
// Writes are batched according to batch_size and flush_interval; write
// failures arrive asynchronously through SetOnError.
package influxdb
