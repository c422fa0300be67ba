// Package scheduler runs background work once per active tenant on a fixed
// interval.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TenantProvider lists the tenants a pass should visit
type TenantProvider interface {
	ActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// TenantTask is the work done for one tenant in a pass
type TenantTask func(ctx context.Context, tenantID uuid.UUID) error

// TenantLoopConfig holds configuration for a tenant loop
type TenantLoopConfig struct {
	// Name labels log lines, e.g. "print-dispatch"
	Name string

	// Interval is the delay between the end of one pass and the next
	Interval time.Duration

	// TaskTimeout bounds a single tenant's task
	TaskTimeout time.Duration

	// Concurrency is how many tenants are worked on at once
	Concurrency int
}

// DefaultTenantLoopConfig returns default configuration
func DefaultTenantLoopConfig(name string) TenantLoopConfig {
	return TenantLoopConfig{
		Name:        name,
		Interval:    2 * time.Second,
		TaskTimeout: 30 * time.Second,
		Concurrency: 4,
	}
}

// Validate checks the configuration
func (c TenantLoopConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if c.TaskTimeout <= 0 {
		return fmt.Errorf("%w: task timeout must be positive", ErrInvalidConfig)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// PassStats summarizes one pass
type PassStats struct {
	Tenants  int
	Failed   int
	Duration time.Duration
}

// TenantLoop runs a task for every active tenant, pass after pass. A failing
// tenant is logged and does not stop the others.
type TenantLoop struct {
	config  TenantLoopConfig
	tenants TenantProvider
	task    TenantTask
	logger  *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	inPass    atomic.Bool
}

// NewTenantLoop creates a new tenant loop
func NewTenantLoop(config TenantLoopConfig, tenants TenantProvider, task TenantTask, logger *zap.Logger) (*TenantLoop, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &TenantLoop{
		config:  config,
		tenants: tenants,
		task:    task,
		logger:  logger.With(zap.String("loop", config.Name)),
	}, nil
}

// Start starts the loop in the background
func (l *TenantLoop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.isRunning {
		l.mu.Unlock()
		return nil
	}
	l.isRunning = true
	l.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel

	l.wg.Add(1)
	go l.runLoop(ctx)

	l.logger.Info("Tenant loop started",
		zap.Duration("interval", l.config.Interval),
		zap.Int("concurrency", l.config.Concurrency),
	)
	return nil
}

// Stop cancels the loop and waits for the current pass to finish
func (l *TenantLoop) Stop(ctx context.Context) error {
	l.mu.Lock()
	if !l.isRunning {
		l.mu.Unlock()
		return nil
	}
	l.isRunning = false
	l.mu.Unlock()

	if l.cancel != nil {
		l.cancel()
	}

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		l.logger.Info("Tenant loop stopped")
		return nil
	case <-ctx.Done():
		l.logger.Warn("Tenant loop stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the loop was started and not stopped
func (l *TenantLoop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isRunning
}

func (l *TenantLoop) runLoop(ctx context.Context) {
	defer l.wg.Done()

	timer := time.NewTimer(l.config.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if _, err := l.RunOnce(ctx); err != nil && ctx.Err() == nil {
				l.logger.Error("Tenant pass failed", zap.Error(err))
			}
			timer.Reset(l.config.Interval)
		}
	}
}

// RunOnce visits every active tenant once. It returns an error only when the
// tenant list could not be read or another pass is still running; task
// failures are counted in the stats.
func (l *TenantLoop) RunOnce(ctx context.Context) (PassStats, error) {
	if !l.inPass.CompareAndSwap(false, true) {
		return PassStats{}, ErrAlreadyRunning
	}
	defer l.inPass.Store(false)

	start := time.Now()
	ids, err := l.tenants.ActiveTenantIDs(ctx)
	if err != nil {
		return PassStats{}, fmt.Errorf("list active tenants: %w", err)
	}

	var failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.config.Concurrency)
	for _, id := range ids {
		g.Go(func() error {
			taskCtx, cancel := context.WithTimeout(gctx, l.config.TaskTimeout)
			defer cancel()
			if err := l.task(taskCtx, id); err != nil {
				failed.Add(1)
				l.logger.Warn("Tenant task failed",
					zap.String("tenant_id", id.String()),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	stats := PassStats{Tenants: len(ids), Failed: int(failed.Load()), Duration: time.Since(start)}
	l.logger.Debug("Tenant pass finished",
		zap.Int("tenants", stats.Tenants),
		zap.Int("failed", stats.Failed),
		zap.Duration("duration", stats.Duration),
	)
	return stats, nil
}
