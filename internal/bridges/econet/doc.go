// Package econet implements the ecoNET300 heating-controller bridge.
//
// The bridge consumes telemetry snapshots produced by an external poller of a
// PLUM ecoNET300 controller and exposes every resolvable register as a typed
// sensor entity on the Gray Logic MQTT bus.
//
// # Architecture
//
//	┌──────────────┐  snapshot  ┌────────────────┐  discovery/state  ┌──────────────┐
//	│ ecoNET poller│───────────►│  econet Bridge │──────────────────►│  MQTT / Core │
//	└──────────────┘    MQTT    │  (this pkg)    │                   └──────────────┘
//	                            └────────────────┘
//
// A snapshot carries three parameter maps:
//
//   - regParams: live register values
//   - sysParams: system parameters (firmware versions, controller identity)
//   - paramsEdits: editable settings (only consulted on state refresh)
//
// # Entities
//
// Sensors are created once, when the first snapshot arrives, by three
// factories:
//
//   - CreateControllerSensors: the fixed controller key set
//   - CreateMixerSensors: one entity per mixer circuit whose registers are present
//   - CreateLambdaSensors: lambda probe values (scaled by 1/10), only when
//     the lambda module reports a firmware version
//
// Every entity carries a SensorDescriptor built from static lookup tables
// (unit, device class, precision, icon, category, state class, transform).
// Keys that do not resolve to a value at creation time are skipped with a
// warning and never become entities.
//
// # Thread Safety
//
// The coordinator and sensors are safe for concurrent use. Listener
// notification happens sequentially on the goroutine that calls
// Coordinator.Update.
package econet
