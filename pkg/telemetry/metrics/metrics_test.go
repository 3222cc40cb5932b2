package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mamba-hq/mamba/pkg/config"
)

func enabledConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:   true,
		Namespace: "mamba",
	}
}

// scrape runs one exposition pass through the collector's handler.
func scrape(t *testing.T, c *Collector) string {
	t.Helper()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	c.Handler().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("scrape status = %d, want 200", rec.Code)
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("reading scrape body: %v", err)
	}
	return string(body)
}

func TestRecordForwardExposed(t *testing.T) {
	c := NewCollector(enabledConfig(), nil)
	c.RecordForward("acct/gw-0", "2xx", true, 1200*time.Millisecond)
	c.RecordForward("acct/gw-0", "2xx", true, 800*time.Millisecond)
	c.RecordForward("acct/gw-1", "5xx", false, 50*time.Millisecond)

	body := scrape(t, c)
	if !strings.Contains(body, `mamba_forwards_total{gateway="acct/gw-0",status_class="2xx",streamed="true"} 2`) {
		t.Errorf("missing streamed forward count:\n%s", body)
	}
	if !strings.Contains(body, `mamba_forwards_total{gateway="acct/gw-1",status_class="5xx",streamed="false"} 1`) {
		t.Errorf("missing error forward count:\n%s", body)
	}
	if !strings.Contains(body, `mamba_forward_duration_seconds_count{gateway="acct/gw-0"} 2`) {
		t.Errorf("missing duration histogram count:\n%s", body)
	}
}

func TestDisabledCollectorRecordsNothing(t *testing.T) {
	cfg := enabledConfig()
	cfg.Enabled = false
	c := NewCollector(cfg, nil)

	c.RecordForward("acct/gw-0", "2xx", false, time.Second)
	c.RecordSynthesizedFrames(10)
	c.RecordProxyError("upstream_unreachable")
	c.RecordAuditDrop()

	body := scrape(t, c)
	if strings.Contains(body, "mamba_forwards_total{") {
		t.Errorf("disabled collector exposed forward samples:\n%s", body)
	}
}

func TestUpstreamReachableGauge(t *testing.T) {
	c := NewCollector(enabledConfig(), nil)

	c.SetUpstreamReachable(true)
	if body := scrape(t, c); !strings.Contains(body, "mamba_upstream_reachable 1") {
		t.Errorf("gauge not set to 1:\n%s", body)
	}

	c.SetUpstreamReachable(false)
	if body := scrape(t, c); !strings.Contains(body, "mamba_upstream_reachable 0") {
		t.Errorf("gauge not set to 0:\n%s", body)
	}
}

func TestSynthesizedFramesAndDrops(t *testing.T) {
	c := NewCollector(enabledConfig(), nil)
	c.RecordSynthesizedFrames(6)
	c.RecordSynthesizedFrames(0)
	c.RecordSynthesizedFrames(-1)
	c.RecordAuditDrop()
	c.RecordProxyError("body_read_failed")

	body := scrape(t, c)
	if !strings.Contains(body, "mamba_synthesized_frames_total 6") {
		t.Errorf("frame counter wrong:\n%s", body)
	}
	if !strings.Contains(body, "mamba_audit_records_dropped_total 1") {
		t.Errorf("drop counter wrong:\n%s", body)
	}
	if !strings.Contains(body, `mamba_proxy_errors_total{code="body_read_failed"} 1`) {
		t.Errorf("error counter wrong:\n%s", body)
	}
}
