// Package config handles loading and validating authgate configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (JWT secret, Redis and MQTT passwords) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//   - A missing JWT secret is fatal: the process refuses to start
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Redis.Addr)
package config
