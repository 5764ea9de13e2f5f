// Package api implements the read-only HTTP API of the econet bridge.
//
// Endpoints:
//   - GET /api/v1/health: bridge status plus database, MQTT and InfluxDB checks
//   - GET /api/v1/sensors: registered sensors with their last value (?kind=mixer)
//   - GET /api/v1/sensors/stats: sensor counts per kind
//   - GET /api/v1/sensors/{id}: one sensor by unique id
//   - GET /api/v1/snapshot: the controller snapshot currently held
//   - GET /api/v1/system: runtime, bridge and registry statistics
//   - GET /metrics: Prometheus exposition
//
// The server follows the same lifecycle as the other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
