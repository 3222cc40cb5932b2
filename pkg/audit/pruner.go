package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// PrunerConfig controls retention pruning.
type PrunerConfig struct {
	// RetentionDays is how long records are kept.
	RetentionDays int

	// Schedule is a standard cron expression. Empty disables scheduling.
	Schedule string
}

// Pruner deletes audit records past the retention window on a cron schedule.
type Pruner struct {
	store   *Store
	config  *PrunerConfig
	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	running bool
}

// NewPruner creates a retention pruner for the given store.
func NewPruner(store *Store, config *PrunerConfig) *Pruner {
	return &Pruner{
		store:  store,
		config: config,
		cron:   cron.New(),
		logger: slog.Default().With("component", "audit.pruner"),
	}
}

// Prune deletes records older than the retention window and returns the
// number deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -p.config.RetentionDays)
	return p.store.DeleteBefore(ctx, cutoff)
}

// Start schedules periodic pruning. If the schedule is empty the pruner
// does nothing. The scheduler stops when ctx is cancelled.
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.config.Schedule == "" {
		p.logger.Info("prune schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(p.config.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", p.config.Schedule, err)
	}

	_, err := p.cron.AddFunc(p.config.Schedule, func() {
		p.runPruning(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	p.cron.Start()
	p.running = true

	p.logger.Info("audit retention scheduler started",
		"schedule", p.config.Schedule,
		"retention_days", p.config.RetentionDays,
	)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()

	return nil
}

// runPruning executes one pruning cycle.
func (p *Pruner) runPruning(ctx context.Context) {
	deleted, err := p.Prune(ctx)
	if err != nil {
		p.logger.Error("scheduled audit pruning failed", "error", err)
		return
	}

	if deleted > 0 {
		p.logger.Info("scheduled audit pruning completed", "deleted_count", deleted)
	} else {
		p.logger.Debug("scheduled audit pruning completed, no records deleted")
	}
}

// Stop stops the scheduler and waits for any running job to complete.
func (p *Pruner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cron != nil && p.running {
		ctx := p.cron.Stop()
		<-ctx.Done()
		p.running = false
		p.logger.Info("audit retention scheduler stopped")
	}
}

// IsRunning reports whether the scheduler is active.
func (p *Pruner) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
