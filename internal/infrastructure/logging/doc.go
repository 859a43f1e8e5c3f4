// Package logging provides structured logging for the Domintell bridge.
//
// Every log entry carries the service name and build version. Subsystems
// derive child loggers with Component, so a single gateway's traffic can
// be filtered by its "component" and "gateway" fields:
//
//	logger := logging.New(cfg.Logging, version)
//	gwLog := logger.Component("domintell").With("gateway", "192.168.1.50:5003")
//	gwLog.Debug("frame received", "line", line)
//
// Configuration:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Never log broker passwords or InfluxDB tokens.
package logging
