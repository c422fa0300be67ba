package event

import (
	"context"
	"sync"
	"time"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OutboxProcessorConfig holds configuration for the outbox processor
type OutboxProcessorConfig struct {
	BatchSize        int
	PollInterval     time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
	ClaimLease       time.Duration
}

// DefaultOutboxProcessorConfig returns default configuration
func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     2 * time.Second,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
		ClaimLease:       5 * time.Minute,
	}
}

// DeliveryObserver is told about every delivery attempt
type DeliveryObserver interface {
	OutboxDelivered(ctx context.Context, eventType string)
	OutboxFailed(ctx context.Context, eventType string, dead bool)
}

// OutboxProcessor relays committed outbox entries to the event bus. An entry
// is marked SENT only after every handler on the bus succeeded, so consumers
// see each event at least once. A claim that is never settled, because the
// process died mid-delivery, expires after ClaimLease and the entry is
// delivered again.
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	eventBus   shared.EventBus
	serializer *EventSerializer
	config     OutboxProcessorConfig
	logger     *zap.Logger
	observer   DeliveryObserver

	trigger chan struct{}
	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewOutboxProcessor creates a new outbox processor
func NewOutboxProcessor(
	repo shared.OutboxRepository,
	eventBus shared.EventBus,
	serializer *EventSerializer,
	config OutboxProcessorConfig,
	logger *zap.Logger,
) *OutboxProcessor {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultOutboxProcessorConfig().BatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultOutboxProcessorConfig().PollInterval
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultOutboxProcessorConfig().CleanupInterval
	}
	if config.ClaimLease <= 0 {
		config.ClaimLease = DefaultOutboxProcessorConfig().ClaimLease
	}
	return &OutboxProcessor{
		repo:       repo,
		eventBus:   eventBus,
		serializer: serializer,
		config:     config,
		logger:     logger,
		trigger:    make(chan struct{}, 1),
	}
}

// WithObserver attaches a delivery observer, typically business metrics
func (p *OutboxProcessor) WithObserver(o DeliveryObserver) *OutboxProcessor {
	p.observer = o
	return p
}

// Trigger asks the relay to poll now instead of waiting for the next tick.
// It never blocks; triggers that arrive while one is pending coalesce.
func (p *OutboxProcessor) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Start starts the background processing
func (p *OutboxProcessor) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	p.wg.Add(1)
	go p.processLoop(ctx)

	if p.config.CleanupEnabled {
		p.wg.Add(1)
		go p.cleanupLoop(ctx)
	}

	p.logger.Info("outbox processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
	)
	return nil
}

// Stop gracefully stops the processor
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *OutboxProcessor) processLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-p.trigger:
		}
		p.ProcessOnce(ctx)
	}
}

// ProcessOnce releases expired claims, then delivers one batch of pending
// entries and one batch of entries whose backoff has expired. It returns the
// number delivered.
func (p *OutboxProcessor) ProcessOnce(ctx context.Context) int {
	delivered := 0

	if released, err := p.repo.ReleaseStale(ctx, time.Now().Add(-p.config.ClaimLease)); err != nil {
		p.logger.Error("failed to release stale claims", zap.Error(err))
	} else if released > 0 {
		p.logger.Warn("released stale outbox claims", zap.Int64("count", released))
	}

	pending, err := p.repo.FindPending(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.Error("failed to find pending entries", zap.Error(err))
		return 0
	}
	delivered += p.processEntries(ctx, pending)

	retryable, err := p.repo.FindRetryable(ctx, time.Now(), p.config.BatchSize)
	if err != nil {
		p.logger.Error("failed to find retryable entries", zap.Error(err))
		return delivered
	}
	return delivered + p.processEntries(ctx, retryable)
}

func (p *OutboxProcessor) processEntries(ctx context.Context, entries []*shared.OutboxEntry) int {
	if len(entries) == 0 {
		return 0
	}
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}

	claimed, err := p.repo.MarkProcessing(ctx, ids)
	if err != nil {
		p.logger.Error("failed to mark entries as processing", zap.Error(err))
		return 0
	}

	delivered := 0
	for i, entry := range claimed {
		if ctx.Err() != nil {
			p.release(ctx, claimed[i:]...)
			break
		}
		if p.processEntry(ctx, entry) {
			delivered++
		}
	}
	return delivered
}

// processEntry delivers one claimed entry. Delivery is bounded by the claim
// lease, and the outcome is written even when ctx was cancelled meanwhile.
func (p *OutboxProcessor) processEntry(ctx context.Context, entry *shared.OutboxEntry) bool {
	deliverCtx, cancel := context.WithTimeout(ctx, p.config.ClaimLease)
	defer cancel()

	event, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err == nil {
		err = p.eventBus.Publish(deliverCtx, event)
	}
	if err != nil {
		if ctx.Err() != nil {
			// shutdown interrupted the handlers; this is not the event's fault
			p.release(ctx, entry)
			return false
		}
		p.fail(ctx, entry, err)
		return false
	}

	entry.MarkSent()
	if err := p.repo.Update(context.WithoutCancel(ctx), entry); err != nil {
		// the claim expires after ClaimLease and the entry is delivered again
		p.logger.Error("failed to mark entry as sent",
			zap.String("event_id", entry.EventID.String()),
			zap.Error(err),
		)
		return false
	}
	if p.observer != nil {
		p.observer.OutboxDelivered(ctx, entry.EventType)
	}
	p.logger.Debug("event relayed",
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
	)
	return true
}

func (p *OutboxProcessor) fail(ctx context.Context, entry *shared.OutboxEntry, cause error) {
	entry.MarkFailed(cause.Error())

	fields := []zap.Field{
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
		zap.String("tenant_id", entry.TenantID.String()),
		zap.Int("retry_count", entry.RetryCount),
		zap.Error(cause),
	}
	if entry.IsDead() {
		p.logger.Warn("event moved to dead letter queue", append(fields,
			zap.String("aggregate_type", entry.AggregateType),
			zap.String("aggregate_id", entry.AggregateID.String()),
		)...)
	} else {
		p.logger.Error("failed to relay event", fields...)
	}

	if p.observer != nil {
		p.observer.OutboxFailed(ctx, entry.EventType, entry.IsDead())
	}
	if err := p.repo.Update(context.WithoutCancel(ctx), entry); err != nil {
		p.logger.Error("failed to update entry", zap.Error(err))
	}
}

// release hands interrupted claims back to the queue without spending an attempt
func (p *OutboxProcessor) release(ctx context.Context, entries ...*shared.OutboxEntry) {
	store := context.WithoutCancel(ctx)
	for _, entry := range entries {
		if err := entry.Release(); err != nil {
			continue
		}
		if err := p.repo.Update(store, entry); err != nil {
			p.logger.Error("failed to release outbox entry",
				zap.String("event_id", entry.EventID.String()),
				zap.Error(err),
			)
			continue
		}
		p.logger.Info("outbox delivery interrupted, entry released",
			zap.String("event_id", entry.EventID.String()),
			zap.String("event_type", entry.EventType),
		)
	}
}

func (p *OutboxProcessor) cleanupLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Cleanup(ctx)
		}
	}
}

// Cleanup removes SENT entries older than the retention window
func (p *OutboxProcessor) Cleanup(ctx context.Context) int64 {
	cutoff := time.Now().Add(-p.config.CleanupRetention)
	deleted, err := p.repo.DeleteSentBefore(ctx, cutoff)
	if err != nil {
		p.logger.Error("failed to cleanup old entries", zap.Error(err))
		return 0
	}
	if deleted > 0 {
		p.logger.Info("cleaned up old outbox entries",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
	return deleted
}
