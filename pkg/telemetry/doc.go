// Package telemetry provides observability for the proxy.
//
// # Components
//
//   - logging: structured slog setup with credential redaction
//   - metrics: Prometheus metrics collection and exposition
//
// # Usage
//
//	logger, err := logging.New(&cfg.Telemetry.Logging)
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
// Logging always redacts bearer tokens and API keys: the proxy's whole job
// is handling other people's credentials, and none of them belong in logs.
package telemetry
