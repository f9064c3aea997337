package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cuotas/internal/core"
)

// PeriodProcessorConfig holds configuration for the period processor
type PeriodProcessorConfig struct {
	// Interval is how often calendars are extended and statuses refreshed (default: 1h)
	Interval time.Duration
}

// DefaultPeriodProcessorConfig returns sensible defaults
func DefaultPeriodProcessorConfig() PeriodProcessorConfig {
	return PeriodProcessorConfig{Interval: time.Hour}
}

// PeriodResult summarizes one processing run.
type PeriodResult struct {
	Created   int
	Refreshed int
}

// PeriodProcessor keeps every member's calendar generated up to the horizon
// and the cached statuses current, so readers that skip the service still see
// fresh data.
type PeriodProcessor struct {
	service *Service
	config  PeriodProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewPeriodProcessor(service *Service, config PeriodProcessorConfig) *PeriodProcessor {
	if config.Interval <= 0 {
		config.Interval = DefaultPeriodProcessorConfig().Interval
	}
	return &PeriodProcessor{service: service, config: config}
}

// Process ensures periods for all members and refreshes cached statuses as of now.
func (p *PeriodProcessor) Process(ctx context.Context, now time.Time) (PeriodResult, error) {
	if p.service == nil || p.service.store == nil {
		return PeriodResult{}, fmt.Errorf("processor not properly initialized")
	}
	today := core.DateOf(now)

	slog.InfoContext(ctx, "Processing member periods",
		"processing_date", today.String())

	var res PeriodResult
	created, ensureErr := p.service.ensureAll(ctx, today)
	res.Created = created

	periods, err := p.service.store.ListAllPeriods(ctx)
	if err != nil {
		return res, core.Remote("list periods", err)
	}
	res.Refreshed = p.service.refreshStatuses(ctx, periods, today)

	slog.InfoContext(ctx, "Period processing complete",
		"created", res.Created,
		"refreshed", res.Refreshed,
		"total_checked", len(periods))

	return res, ensureErr
}

// Start begins the processing loop. Returns an error if already running.
func (p *PeriodProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("period processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stop, done := p.stopCh, p.doneCh
	p.mu.Unlock()

	go p.runLoop(ctx, stop, done)

	slog.InfoContext(ctx, "Period processor started", "interval", p.config.Interval)
	return nil
}

// Stop signals the loop and waits for it to finish. Only the first of
// concurrent Stop calls closes the loop; the others return at once.
func (p *PeriodProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	stop, done := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stop)

	select {
	case <-done:
		slog.InfoContext(ctx, "Period processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Period processor stop timed out")
		return ctx.Err()
	}
	return nil
}

func (p *PeriodProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *PeriodProcessor) runLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	p.runOnce(ctx)

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *PeriodProcessor) runOnce(ctx context.Context) {
	if _, err := p.Process(ctx, p.service.now()); err != nil {
		slog.ErrorContext(ctx, "Period processing failed", "error", err)
	}
}
