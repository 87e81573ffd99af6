// Package logging provides structured logging for authgate.
//
// It wraps log/slog so every component logs with the same handler,
// level filter and default fields (service, version).
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting service", "port", 8080)
//	logger.With("component", "registry").Warn("redis unavailable", "error", err)
//
// # Security
//
// Never log passwords, signing secrets or bearer tokens. Email addresses
// attached to failed logins go through MaskEmail first.
package logging
