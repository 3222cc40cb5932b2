package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g. "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateUpstream(&cfg.Upstream)...)
	errs = append(errs, validateGateways(cfg.Gateways)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateSecurity(&cfg.Security)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid address %q: must be host:port", cfg.ListenAddress),
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "must not be negative",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "must not be negative",
		})
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "must not be negative",
		})
	}

	return errs
}

func validateUpstream(cfg *UpstreamConfig) []FieldError {
	var errs []FieldError

	if n := strings.Count(cfg.URLTemplate, "%s"); n != 2 {
		errs = append(errs, FieldError{
			Field:   "upstream.url_template",
			Message: fmt.Sprintf("template must contain exactly two %%s verbs, found %d", n),
		})
	}
	if !strings.HasPrefix(cfg.URLTemplate, "http://") && !strings.HasPrefix(cfg.URLTemplate, "https://") {
		errs = append(errs, FieldError{
			Field:   "upstream.url_template",
			Message: "template must start with http:// or https://",
		})
	}
	if cfg.CompatSuffix != "" && !strings.HasPrefix(cfg.CompatSuffix, "/") {
		errs = append(errs, FieldError{
			Field:   "upstream.compat_suffix",
			Message: "must start with /",
		})
	}
	if cfg.VersionPrefix != "" && !strings.HasPrefix(cfg.VersionPrefix, "/") {
		errs = append(errs, FieldError{
			Field:   "upstream.version_prefix",
			Message: "must start with /",
		})
	}
	if cfg.StreamPacing < 0 {
		errs = append(errs, FieldError{
			Field:   "upstream.stream_pacing",
			Message: "must not be negative",
		})
	}
	if cfg.ProbeSchedule != "" {
		if _, err := cron.ParseStandard(cfg.ProbeSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "upstream.probe_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

func validateGateways(gateways []GatewayConfig) []FieldError {
	var errs []FieldError

	// Rotation is undefined over an empty list; refuse to start.
	if len(gateways) == 0 {
		errs = append(errs, FieldError{
			Field:   "gateways",
			Message: "at least one gateway is required",
		})
		return errs
	}

	for i, gw := range gateways {
		if gw.AccountID == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("gateways[%d].account_id", i),
				Message: "account id is required",
			})
		}
		if gw.GatewayID == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("gateways[%d].gateway_id", i),
				Message: "gateway id is required",
			})
		}
		if gw.Token == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("gateways[%d].token", i),
				Message: "token is required",
			})
		}
	}

	return errs
}

func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError

	if !cfg.Enabled {
		return nil
	}

	if cfg.SQLitePath == "" {
		errs = append(errs, FieldError{
			Field:   "audit.sqlite_path",
			Message: "path is required when audit is enabled",
		})
	}
	if cfg.BufferSize < 0 {
		errs = append(errs, FieldError{
			Field:   "audit.buffer_size",
			Message: "must not be negative",
		})
	}
	if cfg.RetentionDays < 0 {
		errs = append(errs, FieldError{
			Field:   "audit.retention_days",
			Message: "must not be negative",
		})
	}
	if cfg.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "audit.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid level %q: must be debug, info, warn, or error", cfg.Logging.Level),
		})
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid format %q: must be json or text", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "must start with /",
		})
	}

	return errs
}

func validateSecurity(cfg *SecurityConfig) []FieldError {
	var errs []FieldError

	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" {
			errs = append(errs, FieldError{
				Field:   "security.tls.cert_file",
				Message: "cert file is required when TLS is enabled",
			})
		}
		if cfg.TLS.KeyFile == "" {
			errs = append(errs, FieldError{
				Field:   "security.tls.key_file",
				Message: "key file is required when TLS is enabled",
			})
		}
	}

	return errs
}
