package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/idempotency"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/persistence/models"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errLedgerEntryNotFound = shared.NewDomainError(shared.ErrNotFound.Code, "Idempotency key not recorded")

// GormIdempotencyLedger implements idempotency.Ledger on the idempotency_keys table
type GormIdempotencyLedger struct {
	db *gorm.DB
}

// NewGormIdempotencyLedger creates a new GormIdempotencyLedger
func NewGormIdempotencyLedger(db *gorm.DB) *GormIdempotencyLedger {
	return &GormIdempotencyLedger{db: db}
}

// Record inserts entry with ON CONFLICT DO NOTHING. When another writer got
// there first the insert blocks until that writer commits, then the committed
// entry is read back and returned as a replay.
func (l *GormIdempotencyLedger) Record(ctx context.Context, entry *idempotency.Entry) (*idempotency.Entry, bool, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, false, err
	}
	entry.TenantID = tenantID

	result := tenant.DB(ctx, l.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(models.IdempotencyKeyModelFromDomain(entry))
	if result.Error != nil {
		return nil, false, fmt.Errorf("record idempotency key: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return entry, false, nil
	}

	existing, err := l.Find(ctx, entry.Class, entry.Key)
	if err != nil {
		return nil, false, err
	}
	return existing, true, nil
}

// Find returns the recorded entry for (class, key) in the bound tenant
func (l *GormIdempotencyLedger) Find(ctx context.Context, class idempotency.Class, key string) (*idempotency.Entry, error) {
	var model models.IdempotencyKeyModel
	err := tenant.DB(ctx, l.db).
		Where("class = ? AND idempotency_key = ?", class, key).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errLedgerEntryNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

var _ idempotency.Ledger = (*GormIdempotencyLedger)(nil)
