// Package config handles loading and validating the Domintell bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of gateways and persistence files
//   - Default value handling
//
// A gateways entry may be written as a single mapping or as a list.
// Persistence files must either be set on every gateway or on none;
// unset files default to <bridge.data_dir>/domintell<N>.db.
//
// Security Considerations:
//   - Broker credentials and InfluxDB tokens should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Domintell.Gateways[0].Device)
package config
