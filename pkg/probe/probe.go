// Package probe checks upstream gateway reachability.
//
// Probe results are reported through logs and the reachability gauge only.
// They never influence routing: rotation stays strictly positional, and a
// gateway that fails a probe keeps receiving its share of traffic.
package probe

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ReachabilityReporter receives probe outcomes. The metrics collector
// satisfies this.
type ReachabilityReporter interface {
	SetUpstreamReachable(reachable bool)
}

// Prober issues HEAD requests against the upstream base URL.
type Prober struct {
	url      string
	schedule string
	client   *http.Client
	reporter ReachabilityReporter
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
}

// New creates a prober for the given URL. The reporter may be nil.
func New(url, schedule string, reporter ReachabilityReporter) *Prober {
	return &Prober{
		url:      url,
		schedule: schedule,
		client:   &http.Client{Timeout: 10 * time.Second},
		reporter: reporter,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "probe"),
	}
}

// Check performs one reachability probe. Any HTTP response counts as
// reachable; only transport failures do not.
func (p *Prober) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return fmt.Errorf("building probe request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.report(false)
		return fmt.Errorf("upstream unreachable: %w", err)
	}
	resp.Body.Close()

	p.report(true)
	p.logger.Debug("upstream probe succeeded", "url", p.url, "status", resp.StatusCode)
	return nil
}

// Start runs one immediate probe, then schedules periodic probes if a
// schedule is configured. The startup probe result is logged, not fatal:
// the proxy serves traffic regardless.
func (p *Prober) Start(ctx context.Context) error {
	if err := p.Check(ctx); err != nil {
		p.logger.Warn("startup reachability probe failed", "url", p.url, "error", err)
	} else {
		p.logger.Info("upstream reachable", "url", p.url)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.schedule == "" {
		return nil
	}

	if _, err := cron.ParseStandard(p.schedule); err != nil {
		return fmt.Errorf("invalid probe schedule %q: %w", p.schedule, err)
	}

	_, err := p.cron.AddFunc(p.schedule, func() {
		probeCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := p.Check(probeCtx); err != nil {
			p.logger.Warn("periodic reachability probe failed", "url", p.url, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule probes: %w", err)
	}

	p.cron.Start()
	p.running = true
	p.logger.Info("reachability prober started", "schedule", p.schedule)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()

	return nil
}

// Stop stops the periodic prober.
func (p *Prober) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cron != nil && p.running {
		<-p.cron.Stop().Done()
		p.running = false
		p.logger.Info("reachability prober stopped")
	}
}

func (p *Prober) report(reachable bool) {
	if p.reporter != nil {
		p.reporter.SetUpstreamReachable(reachable)
	}
}
