// Package proxy implements the forwarding core: credential selection,
// request rewriting, the upstream round trip, and response delivery.
package proxy

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"mamba-hq/mamba/pkg/audit"
	"mamba-hq/mamba/pkg/config"
	"mamba-hq/mamba/pkg/proxy/middleware"
	"mamba-hq/mamba/pkg/proxy/stream"
	"mamba-hq/mamba/pkg/proxy/types"
	"mamba-hq/mamba/pkg/rotation"
	"mamba-hq/mamba/pkg/telemetry/metrics"
)

// gatewayAuthHeader carries the gateway-level bearer token upstream.
const gatewayAuthHeader = "cf-aig-authorization"

// Forwarder handles every proxied request: it buffers the inbound body,
// selects the next gateway credential, rewrites and forwards the request,
// buffers the upstream response, and delivers it either verbatim or as a
// synthesized SSE stream.
type Forwarder struct {
	client      *http.Client
	holder      *rotation.Holder
	upstream    config.UpstreamConfig
	synthesizer *stream.Synthesizer
	metrics     *metrics.Collector
	audit       *audit.Recorder
	logger      *slog.Logger
}

// NewForwarder creates a forwarder reading rotation state through holder.
// The metrics collector and audit recorder may be nil.
func NewForwarder(holder *rotation.Holder, upstream config.UpstreamConfig, collector *metrics.Collector, recorder *audit.Recorder, logger *slog.Logger) *Forwarder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{
		// Timeout bounds the whole exchange; body reads included.
		client:      &http.Client{Timeout: upstream.RequestTimeout},
		holder:      holder,
		upstream:    upstream,
		synthesizer: stream.New(upstream.StreamPacing, logger),
		metrics:     collector,
		audit:       recorder,
		logger:      logger.With("component", "proxy.forwarder"),
	}
}

// ServeHTTP implements the forwarding flow for one request.
func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	requestID := middleware.GetRequestID(r.Context())

	body, err := io.ReadAll(r.Body)
	if err != nil {
		f.logger.Warn("failed to read request body",
			"request_id", requestID,
			"error", err,
		)
		if f.metrics != nil {
			f.metrics.RecordProxyError(types.CodeBodyReadFailed)
		}
		f.writeError(w, bodyReadError(err))
		return
	}

	inspected := inspectBody(body)
	state := f.holder.Load()
	selection := state.Next()
	gatewayLabel := selection.Credential.AccountID + "/" + selection.Credential.GatewayID

	outReq, err := f.buildUpstreamRequest(r, selection, state, inspected)
	if err != nil {
		// Only a malformed configured URL reaches here.
		f.logger.Error("failed to build upstream request",
			"request_id", requestID,
			"error", err,
		)
		f.writeError(w, types.NewServerError("failed to build upstream request"))
		return
	}

	resp, err := f.client.Do(outReq)
	if err != nil {
		f.finish(w, r, forwardResult{
			requestID: requestID,
			selection: selection,
			gateway:   gatewayLabel,
			inspected: inspected,
			started:   started,
			errResp:   upstreamError(err, types.CodeUpstreamUnreachable),
		})
		return
	}
	defer resp.Body.Close()

	upstreamBody, err := io.ReadAll(resp.Body)
	if err != nil {
		f.finish(w, r, forwardResult{
			requestID: requestID,
			selection: selection,
			gateway:   gatewayLabel,
			inspected: inspected,
			started:   started,
			errResp:   upstreamError(err, types.CodeUpstreamReadFailed),
		})
		return
	}

	f.finish(w, r, forwardResult{
		requestID: requestID,
		selection: selection,
		gateway:   gatewayLabel,
		inspected: inspected,
		started:   started,
		status:    resp.StatusCode,
		header:    resp.Header,
		body:      upstreamBody,
	})
}

// forwardResult carries everything finish needs to deliver the response and
// record the outcome. Exactly one of errResp and body/status is set.
type forwardResult struct {
	requestID string
	selection rotation.Selection
	gateway   string
	inspected inspectedBody
	started   time.Time

	status int
	header http.Header
	body   []byte

	errResp *types.ErrorResponse
}

// finish delivers the response, then records metrics and the audit row.
func (f *Forwarder) finish(w http.ResponseWriter, r *http.Request, res forwardResult) {
	duration := time.Since(res.started)

	var status int
	var errCode string
	streamed := false

	switch {
	case res.errResp != nil:
		status = res.errResp.Error.HTTPStatusCode()
		errCode = res.errResp.Error.Code
		f.logger.Error("upstream request failed",
			"request_id", res.requestID,
			"gateway", res.gateway,
			"code", errCode,
			"error", res.errResp.Error.Message,
		)
		f.writeError(w, res.errResp)

	case res.inspected.wantStream:
		status = res.status
		streamed = true
		frames := f.synthesizer.ServeResponse(w, r, res.status, res.body)
		if f.metrics != nil {
			f.metrics.RecordSynthesizedFrames(frames)
		}

	default:
		status = res.status
		copyFilteredHeaders(w.Header(), res.header)
		w.WriteHeader(res.status)
		if _, err := w.Write(res.body); err != nil {
			f.logger.Debug("client disconnected during response write",
				"request_id", res.requestID,
			)
		}
	}

	if f.metrics != nil {
		f.metrics.RecordForward(res.gateway, statusClass(status), streamed, duration)
		if errCode != "" {
			f.metrics.RecordProxyError(errCode)
		}
	}

	if f.audit != nil {
		upstreamStatus := status
		if res.errResp != nil {
			upstreamStatus = 0
		}
		f.audit.Enqueue(&audit.Record{
			RequestID:      res.requestID,
			Method:         r.Method,
			Path:           r.URL.Path,
			GatewayIndex:   res.selection.Index,
			GatewayAccount: res.selection.Credential.AccountID,
			GatewayID:      res.selection.Credential.GatewayID,
			Provider:       res.inspected.provider,
			Streamed:       streamed,
			UpstreamStatus: upstreamStatus,
			RequestBytes:   len(res.inspected.payload),
			ResponseBytes:  len(res.body),
			Duration:       duration,
			Error:          errCode,
			StartedAt:      res.started,
		})
	}
}

// buildUpstreamRequest constructs the rewritten outbound request.
func (f *Forwarder) buildUpstreamRequest(r *http.Request, selection rotation.Selection, state *rotation.State, inspected inspectedBody) (*http.Request, error) {
	url := f.upstreamURL(selection.Credential, r)

	outReq, err := http.NewRequestWithContext(r.Context(), r.Method, url, bytes.NewReader(inspected.payload))
	if err != nil {
		return nil, fmt.Errorf("building upstream request: %w", err)
	}

	copyFilteredHeaders(outReq.Header, r.Header)

	// The gateway token always comes from rotation, replacing whatever the
	// client sent in this header.
	outReq.Header.Set(gatewayAuthHeader, "Bearer "+selection.Credential.Token)

	// Provider credentials are substituted only when a key pool exists for
	// the attributed provider; otherwise the client's Authorization header
	// passes through untouched.
	if inspected.provider != "" {
		if key, ok := state.NextKey(inspected.provider); ok {
			outReq.Header.Set("Authorization", "Bearer "+key)
		}
	}

	return outReq, nil
}

// upstreamURL builds the outbound URL: the credential's base URL, the compat
// suffix, and the inbound path with the version prefix stripped. The query
// string is preserved verbatim.
func (f *Forwarder) upstreamURL(cred rotation.Credential, r *http.Request) string {
	path := r.URL.Path
	if f.upstream.VersionPrefix != "" {
		path = strings.TrimPrefix(path, f.upstream.VersionPrefix)
	}

	url := cred.BaseURL(f.upstream.URLTemplate) + f.upstream.CompatSuffix + path
	if r.URL.RawQuery != "" {
		url += "?" + r.URL.RawQuery
	}
	return url
}

// writeError writes a proxy-originated error envelope.
func (f *Forwarder) writeError(w http.ResponseWriter, errResp *types.ErrorResponse) {
	if err := WriteErrorResponse(w, errResp); err != nil {
		f.logger.Debug("failed to write error response", "error", err)
	}
}

// statusClass collapses a status code to its class label ("2xx", "4xx").
func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
