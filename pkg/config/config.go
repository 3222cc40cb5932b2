package config

import "time"

// Config is the root configuration structure for Mamba.
// It contains all configuration sections for the proxy server, upstream
// gateway, provider key pools, auditing, telemetry, and security settings.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, and header limits.
	Server ServerConfig `yaml:"server"`

	// Upstream contains configuration for the remote AI gateway: the URL
	// template, path rewriting, request timeout, and stream pacing.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Gateways is the ordered list of gateway credentials used for
	// round-robin rotation. At least one entry is required.
	Gateways []GatewayConfig `yaml:"gateways"`

	// Providers maps provider names (e.g. "openai", "anthropic") to their
	// API key pools. Providers without keys participate in no rotation.
	Providers map[string]ProviderConfig `yaml:"providers"`

	// Audit contains configuration for the SQLite request audit log.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry contains observability configuration: logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Security contains TLS settings for the listener.
	Security SecurityConfig `yaml:"security"`

	// Reload contains configuration-file watch settings for hot reload of
	// the gateway and provider lists.
	Reload ReloadConfig `yaml:"reload"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port". Default: "0.0.0.0:3000"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body. Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. Synthesized streams pace their frames, so this must comfortably
	// exceed the longest expected stream. Default: 5m
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout. Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers. Default: 1MB
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// UpstreamConfig contains configuration for the remote AI gateway.
type UpstreamConfig struct {
	// URLTemplate is the gateway base URL pattern. It must contain two %s
	// verbs which are substituted with the account and gateway identifiers.
	// Default: "https://gateway.ai.cloudflare.com/v1/%s/%s"
	URLTemplate string `yaml:"url_template"`

	// CompatSuffix is the fixed path segment inserted between the gateway
	// base URL and the rewritten request path.
	// Default: "/compat"
	CompatSuffix string `yaml:"compat_suffix"`

	// VersionPrefix is the inbound path prefix stripped before the path is
	// appended to the upstream URL. Default: "/v1"
	VersionPrefix string `yaml:"version_prefix"`

	// RequestTimeout is the total timeout for one upstream call, including
	// reading the full response body. Default: 5m
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// StreamPacing is the artificial delay between synthesized stream
	// frames. It only shapes perceived delivery; correctness never depends
	// on it. Default: 30ms
	StreamPacing time.Duration `yaml:"stream_pacing"`

	// ProbeURL is the URL used by reachability probes.
	// Default: "https://gateway.ai.cloudflare.com"
	ProbeURL string `yaml:"probe_url"`

	// ProbeSchedule is a cron expression for periodic reachability probes.
	// Empty disables periodic probing. Default: "" (disabled)
	ProbeSchedule string `yaml:"probe_schedule"`
}

// GatewayConfig is one gateway credential entry.
type GatewayConfig struct {
	// AccountID is the account identifier substituted into the URL template.
	AccountID string `yaml:"account_id"`

	// GatewayID is the gateway identifier within the account.
	GatewayID string `yaml:"gateway_id"`

	// Token is the gateway-level bearer token sent in the
	// cf-aig-authorization header.
	Token string `yaml:"token"`
}

// ProviderConfig contains the per-provider API key pool.
type ProviderConfig struct {
	// APIKeys is the ordered key list rotated per request. An empty list
	// means the client's own credentials pass through untouched.
	APIKeys []string `yaml:"api_keys"`

	// TestModel is the model used by the connectivity test harness for
	// this provider. Optional.
	TestModel string `yaml:"test_model"`
}

// AuditConfig contains configuration for the request audit log.
type AuditConfig struct {
	// Enabled controls whether forwarded requests are recorded.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// SQLitePath is the audit database file path.
	// Default: "data/audit.db"
	SQLitePath string `yaml:"sqlite_path"`

	// BufferSize is the async recorder queue length. Records are dropped
	// (and counted) when the queue is full. Default: 1000
	BufferSize int `yaml:"buffer_size"`

	// RetentionDays is how long audit records are kept. Default: 30
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is a cron expression for retention pruning.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string `yaml:"prune_schedule"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the log output format: "json" or "text". Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether the metrics endpoint is served.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the metrics endpoint path. Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name namespace. Default: "mamba"
	Namespace string `yaml:"namespace"`

	// DurationBuckets are the histogram buckets for forward latency in
	// seconds. Defaults are tuned for buffered LLM responses.
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// SecurityConfig contains security-related configuration.
type SecurityConfig struct {
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig contains TLS listener settings.
type TLSConfig struct {
	// Enabled controls whether the server terminates TLS itself.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile is the PEM certificate path. Default: "cert.pem"
	CertFile string `yaml:"cert_file"`

	// KeyFile is the PEM private key path. Default: "key.pem"
	KeyFile string `yaml:"key_file"`
}

// ReloadConfig contains configuration-file watching settings.
type ReloadConfig struct {
	// Watch enables hot reload of the gateway and provider lists when the
	// configuration file changes. Rotation counters reset on reload.
	// Default: false
	Watch bool `yaml:"watch"`

	// Debounce is the quiet period after a file event before reloading.
	// Default: 200ms
	Debounce time.Duration `yaml:"debounce"`
}
