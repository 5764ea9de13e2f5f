// Package mqtt provides the MQTT client used by the ecoNET bridge.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Retained publishing of discovery, state and health messages
//   - The snapshot ingest subscription, restored after reconnects
//   - A Last Will so subscribers notice when the bridge dies
//
// # Architecture
//
// The bridge never talks to the heating controller. An external poller
// publishes ecoNET snapshots to the ingest topic; this process turns them
// into sensor entities and publishes the results back to the bus.
//
//	ecoNET poller -> MQTT broker -> econetbridge -> MQTT broker -> Home Assistant
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, mqtt.WithWill(topic, payload))
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.Ingest("econet"), 1,
//	    func(topic string, payload []byte) error {
//	        return bridge.HandleSnapshot(topic, payload)
//	    })
package mqtt
