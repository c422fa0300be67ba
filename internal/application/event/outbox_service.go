package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ScopeBinder attaches scope to ctx for the storage layer and returns the
// function that releases it
type ScopeBinder func(ctx context.Context, scope shared.Scope) (context.Context, func())

// OutboxService handles outbox administration. Every call needs the
// outbox admin permission and only sees entries of the caller's tenant.
type OutboxService struct {
	repo    shared.OutboxRepository
	bind    ScopeBinder
	trigger func()
	logger  *zap.Logger
}

// NewOutboxService creates a new outbox service. trigger, when not nil, wakes
// the relay after entries are put back in the queue.
func NewOutboxService(
	repo shared.OutboxRepository,
	bind ScopeBinder,
	trigger func(),
	logger *zap.Logger,
) *OutboxService {
	return &OutboxService{
		repo:    repo,
		bind:    bind,
		trigger: trigger,
		logger:  logger,
	}
}

// OutboxEntryDTO represents an outbox entry data transfer object
type OutboxEntryDTO struct {
	ID            uuid.UUID  `json:"id"`
	TenantID      uuid.UUID  `json:"tenant_id"`
	EventID       uuid.UUID  `json:"event_id"`
	EventType     string     `json:"event_type"`
	AggregateID   uuid.UUID  `json:"aggregate_id"`
	AggregateType string     `json:"aggregate_type"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
	LastError     string     `json:"last_error,omitempty"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// OutboxFilter represents filter for querying outbox entries
type OutboxFilter struct {
	Page     int `form:"page,omitempty" binding:"omitempty,min=1"`
	PageSize int `form:"page_size,omitempty" binding:"omitempty,min=1,max=100"`
}

// OutboxListResult represents paginated outbox entry list result
type OutboxListResult struct {
	Entries    []OutboxEntryDTO `json:"entries"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

// OutboxStatsDTO represents outbox statistics
type OutboxStatsDTO struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

func (s *OutboxService) enter(ctx context.Context, scope shared.Scope) (context.Context, func(), error) {
	if err := scope.Validate(); err != nil {
		return nil, nil, err
	}
	if err := scope.Authorize(shared.PermissionAdminOutbox); err != nil {
		return nil, nil, err
	}
	ctx, release := s.bind(ctx, scope)
	return ctx, release, nil
}

// ListDead retrieves dead letter entries with pagination
func (s *OutboxService) ListDead(ctx context.Context, scope shared.Scope, filter OutboxFilter) (*OutboxListResult, error) {
	ctx, release, err := s.enter(ctx, scope)
	if err != nil {
		return nil, err
	}
	defer release()

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	entries, total, err := s.repo.FindDead(ctx, page, pageSize)
	if err != nil {
		s.logger.Error("Failed to find dead letter entries", zap.Error(err))
		return nil, fmt.Errorf("list dead outbox entries: %w", err)
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	entryDTOs := make([]OutboxEntryDTO, len(entries))
	for i, entry := range entries {
		entryDTOs[i] = toOutboxEntryDTO(entry)
	}

	return &OutboxListResult{
		Entries:    entryDTOs,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Get retrieves a single outbox entry by ID
func (s *OutboxService) Get(ctx context.Context, scope shared.Scope, id uuid.UUID) (*OutboxEntryDTO, error) {
	ctx, release, err := s.enter(ctx, scope)
	if err != nil {
		return nil, err
	}
	defer release()

	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toOutboxEntryDTO(entry)
	return &dto, nil
}

// RetryDead puts a dead entry back in the queue
func (s *OutboxService) RetryDead(ctx context.Context, scope shared.Scope, id uuid.UUID) (*OutboxEntryDTO, error) {
	ctx, release, err := s.enter(ctx, scope)
	if err != nil {
		return nil, err
	}
	defer release()

	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := entry.ResetForRetry(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, entry); err != nil {
		s.logger.Error("Failed to update outbox entry", zap.Error(err), zap.String("id", id.String()))
		return nil, fmt.Errorf("retry outbox entry %s: %w", id, err)
	}

	s.logger.Info("Dead letter entry reset for retry",
		zap.String("id", id.String()),
		zap.String("event_type", entry.EventType),
		zap.String("actor_id", scope.ActorID.String()),
	)
	s.wake()

	dto := toOutboxEntryDTO(entry)
	return &dto, nil
}

// RetryAllDead resets every dead entry of the caller's tenant. Reset entries
// leave the DEAD set, so each pass reads the first page again until a pass
// makes no progress.
func (s *OutboxService) RetryAllDead(ctx context.Context, scope shared.Scope) (int64, error) {
	ctx, release, err := s.enter(ctx, scope)
	if err != nil {
		return 0, err
	}
	defer release()

	var count int64
	for {
		entries, _, err := s.repo.FindDead(ctx, 1, maxPageSize)
		if err != nil {
			s.logger.Error("Failed to find dead letter entries", zap.Error(err))
			return count, fmt.Errorf("list dead outbox entries: %w", err)
		}

		var reset int
		for _, entry := range entries {
			if err := entry.ResetForRetry(); err != nil {
				continue
			}
			if err := s.repo.Update(ctx, entry); err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					continue
				}
				s.logger.Error("Failed to update outbox entry", zap.Error(err), zap.String("id", entry.ID.String()))
				return count, fmt.Errorf("retry outbox entry %s: %w", entry.ID, err)
			}
			reset++
		}
		count += int64(reset)

		if reset == 0 || len(entries) < maxPageSize {
			break
		}
	}

	s.logger.Info("Retried dead letter entries",
		zap.Int64("count", count),
		zap.String("tenant_id", scope.TenantID.String()),
	)
	if count > 0 {
		s.wake()
	}
	return count, nil
}

// Stats returns outbox entry counts per status
func (s *OutboxService) Stats(ctx context.Context, scope shared.Scope) (*OutboxStatsDTO, error) {
	ctx, release, err := s.enter(ctx, scope)
	if err != nil {
		return nil, err
	}
	defer release()

	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("Failed to get outbox stats", zap.Error(err))
		return nil, fmt.Errorf("count outbox entries: %w", err)
	}

	var total int64
	for _, count := range counts {
		total += count
	}

	return &OutboxStatsDTO{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
		Total:      total,
	}, nil
}

func (s *OutboxService) wake() {
	if s.trigger != nil {
		s.trigger()
	}
}

func toOutboxEntryDTO(entry *shared.OutboxEntry) OutboxEntryDTO {
	return OutboxEntryDTO{
		ID:            entry.ID,
		TenantID:      entry.TenantID,
		EventID:       entry.EventID,
		EventType:     entry.EventType,
		AggregateID:   entry.AggregateID,
		AggregateType: entry.AggregateType,
		Status:        string(entry.Status),
		RetryCount:    entry.RetryCount,
		MaxRetries:    entry.MaxRetries,
		LastError:     entry.LastError,
		NextRetryAt:   entry.NextRetryAt,
		ProcessedAt:   entry.ProcessedAt,
		CreatedAt:     entry.CreatedAt,
		UpdatedAt:     entry.UpdatedAt,
	}
}
