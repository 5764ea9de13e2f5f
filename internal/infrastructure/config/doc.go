// Package config handles loading and validating the ecoNET bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with ECONET_* environment variables
//   - Validation of required fields (all failures reported together)
//   - Default value handling, including a generated entry id
//
// Security Considerations:
//   - MQTT passwords and InfluxDB tokens should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Econet.UID)
package config
