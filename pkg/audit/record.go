// Package audit records forwarded requests to a local SQLite log.
//
// Auditing is strictly out-of-band: records are queued to an asynchronous
// recorder and a full queue drops the record rather than slowing the
// forwarding path. Request and response bodies are never stored, only
// routing metadata.
package audit

import "time"

// Record is one forwarded request's audit entry.
type Record struct {
	// RequestID is the per-request correlation ID.
	RequestID string

	// Method and Path describe the inbound request line.
	Method string
	Path   string

	// GatewayIndex is the rotation position of the selected gateway.
	GatewayIndex int

	// GatewayAccount identifies the selected gateway credential. The token
	// itself is never recorded.
	GatewayAccount string
	GatewayID      string

	// Provider is the provider attributed from the model field, if any.
	Provider string

	// Streamed reports whether the response was delivered as a synthesized
	// stream.
	Streamed bool

	// UpstreamStatus is the upstream HTTP status, or 0 when the upstream
	// was unreachable.
	UpstreamStatus int

	// RequestBytes and ResponseBytes are body sizes; the bodies themselves
	// are never stored.
	RequestBytes  int
	ResponseBytes int

	// Duration is the end-to-end forward time.
	Duration time.Duration

	// Error is the proxy-originated error code, empty on success.
	Error string

	// StartedAt is when the proxy began handling the request.
	StartedAt time.Time
}
