package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "0.0.0.0:3000"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 5 * time.Minute
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// Upstream defaults
	DefaultURLTemplate    = "https://gateway.ai.cloudflare.com/v1/%s/%s"
	DefaultCompatSuffix   = "/compat"
	DefaultVersionPrefix  = "/v1"
	DefaultRequestTimeout = 5 * time.Minute
	DefaultStreamPacing   = 30 * time.Millisecond
	DefaultProbeURL       = "https://gateway.ai.cloudflare.com"

	// Audit defaults
	DefaultAuditSQLitePath    = "data/audit.db"
	DefaultAuditBufferSize    = 1000
	DefaultAuditRetentionDays = 30
	DefaultAuditPruneSchedule = "0 3 * * *"

	// Telemetry defaults
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "mamba"

	// Security defaults
	DefaultTLSCertFile = "cert.pem"
	DefaultTLSKeyFile  = "key.pem"

	// Reload defaults
	DefaultReloadDebounce = 200 * time.Millisecond
)

// ApplyDefaults fills in default values for all unset configuration fields.
// It never overrides a value explicitly set in the configuration file.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	// Upstream defaults
	if cfg.Upstream.URLTemplate == "" {
		cfg.Upstream.URLTemplate = DefaultURLTemplate
	}
	if cfg.Upstream.CompatSuffix == "" {
		cfg.Upstream.CompatSuffix = DefaultCompatSuffix
	}
	if cfg.Upstream.VersionPrefix == "" {
		cfg.Upstream.VersionPrefix = DefaultVersionPrefix
	}
	if cfg.Upstream.RequestTimeout == 0 {
		cfg.Upstream.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Upstream.StreamPacing == 0 {
		cfg.Upstream.StreamPacing = DefaultStreamPacing
	}
	if cfg.Upstream.ProbeURL == "" {
		cfg.Upstream.ProbeURL = DefaultProbeURL
	}

	// Audit defaults
	if cfg.Audit.SQLitePath == "" {
		cfg.Audit.SQLitePath = DefaultAuditSQLitePath
	}
	if cfg.Audit.BufferSize == 0 {
		cfg.Audit.BufferSize = DefaultAuditBufferSize
	}
	if cfg.Audit.RetentionDays == 0 {
		cfg.Audit.RetentionDays = DefaultAuditRetentionDays
	}
	if cfg.Audit.PruneSchedule == "" {
		cfg.Audit.PruneSchedule = DefaultAuditPruneSchedule
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.DurationBuckets) == 0 {
		// Buffered upstream responses routinely take seconds.
		cfg.Telemetry.Metrics.DurationBuckets = []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0}
	}

	// Security defaults
	if cfg.Security.TLS.CertFile == "" {
		cfg.Security.TLS.CertFile = DefaultTLSCertFile
	}
	if cfg.Security.TLS.KeyFile == "" {
		cfg.Security.TLS.KeyFile = DefaultTLSKeyFile
	}

	// Reload defaults
	if cfg.Reload.Debounce == 0 {
		cfg.Reload.Debounce = DefaultReloadDebounce
	}
}
