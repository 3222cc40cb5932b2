// Package metrics provides Prometheus instrumentation for the proxy.
package metrics

import (
	"time"

	"mamba-hq/mamba/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns the Prometheus registry and all proxy metrics.
//
// Metrics:
//   - mamba_forwards_total: forwarded requests by gateway index, status class, streamed
//   - mamba_forward_duration_seconds: end-to-end forward latency histogram
//   - mamba_synthesized_frames_total: SSE frames fabricated for streaming clients
//   - mamba_proxy_errors_total: proxy-originated errors by code
//   - mamba_upstream_reachable: reachability gauge set by probes (1=reachable)
//   - mamba_audit_records_dropped_total: audit records dropped on queue overflow
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	forwardsTotal       *prometheus.CounterVec
	forwardDuration     *prometheus.HistogramVec
	synthesizedFrames   prometheus.Counter
	proxyErrorsTotal    *prometheus.CounterVec
	upstreamReachable   prometheus.Gauge
	auditRecordsDropped prometheus.Counter
}

// NewCollector creates a metrics collector backed by its own registry.
// If registry is nil a fresh one is created, keeping the process's default
// registry (and its Go runtime collectors) out of the exposition.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = "mamba"
	}
	if len(cfg.DurationBuckets) == 0 {
		// Buffered completions routinely take seconds; extend well past the
		// default bucket ceiling.
		cfg.DurationBuckets = []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0, 120.0}
	}

	c := &Collector{
		config:   cfg,
		registry: registry,

		forwardsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "forwards_total",
				Help:      "Total number of requests forwarded upstream",
			},
			[]string{"gateway", "status_class", "streamed"},
		),

		forwardDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "forward_duration_seconds",
				Help:      "End-to-end duration of forwarded requests in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"gateway"},
		),

		synthesizedFrames: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "synthesized_frames_total",
				Help:      "Total number of SSE frames synthesized for streaming clients",
			},
		),

		proxyErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "proxy_errors_total",
				Help:      "Total number of proxy-originated error responses",
			},
			[]string{"code"},
		),

		upstreamReachable: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "upstream_reachable",
				Help:      "Whether the upstream gateway answered the last reachability probe (1=yes)",
			},
		),

		auditRecordsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "audit_records_dropped_total",
				Help:      "Total number of audit records dropped because the queue was full",
			},
		),
	}

	registry.MustRegister(
		c.forwardsTotal,
		c.forwardDuration,
		c.synthesizedFrames,
		c.proxyErrorsTotal,
		c.upstreamReachable,
		c.auditRecordsDropped,
	)

	return c
}

// RecordForward records one completed forward.
//
// Parameters:
//   - gateway: the selected gateway identifier (account/gateway pair)
//   - statusClass: "2xx", "4xx", "5xx" derived from the upstream status
//   - streamed: whether the response was delivered as a synthesized stream
//   - duration: end-to-end time including upstream call and body buffering
func (c *Collector) RecordForward(gateway, statusClass string, streamed bool, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	streamedLabel := "false"
	if streamed {
		streamedLabel = "true"
	}
	c.forwardsTotal.WithLabelValues(gateway, statusClass, streamedLabel).Inc()
	c.forwardDuration.WithLabelValues(gateway).Observe(duration.Seconds())
}

// RecordSynthesizedFrames adds to the fabricated-frame count.
func (c *Collector) RecordSynthesizedFrames(n int) {
	if !c.config.Enabled || n <= 0 {
		return
	}
	c.synthesizedFrames.Add(float64(n))
}

// RecordProxyError records a proxy-originated error by machine code.
func (c *Collector) RecordProxyError(code string) {
	if !c.config.Enabled {
		return
	}
	c.proxyErrorsTotal.WithLabelValues(code).Inc()
}

// SetUpstreamReachable updates the reachability gauge. Probe results never
// influence routing; they are informational only.
func (c *Collector) SetUpstreamReachable(reachable bool) {
	if !c.config.Enabled {
		return
	}
	if reachable {
		c.upstreamReachable.Set(1)
	} else {
		c.upstreamReachable.Set(0)
	}
}

// RecordAuditDrop counts one audit record dropped on queue overflow.
func (c *Collector) RecordAuditDrop() {
	if !c.config.Enabled {
		return
	}
	c.auditRecordsDropped.Inc()
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
