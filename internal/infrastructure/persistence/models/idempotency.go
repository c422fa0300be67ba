package models

import (
	"time"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/idempotency"
	"github.com/google/uuid"
)

// IdempotencyKeyModel is one ledger row. The composite primary key makes a
// key unique per tenant and operation class.
type IdempotencyKeyModel struct {
	TenantID   uuid.UUID         `gorm:"type:uuid;primaryKey"`
	Class      idempotency.Class `gorm:"type:varchar(20);primaryKey"`
	Key        string            `gorm:"column:idempotency_key;type:varchar(128);primaryKey"`
	ResourceID uuid.UUID         `gorm:"type:uuid;not null"`
	Outcome    []byte            `gorm:"type:jsonb;not null"`
	CreatedAt  time.Time         `gorm:"not null"`
}

func (IdempotencyKeyModel) TableName() string {
	return "idempotency_keys"
}

func (IdempotencyKeyModel) TenantOwned() {}

func (m *IdempotencyKeyModel) ToDomain() *idempotency.Entry {
	return &idempotency.Entry{
		TenantID:   m.TenantID,
		Class:      m.Class,
		Key:        m.Key,
		ResourceID: m.ResourceID,
		Outcome:    m.Outcome,
		CreatedAt:  m.CreatedAt,
	}
}

func IdempotencyKeyModelFromDomain(e *idempotency.Entry) *IdempotencyKeyModel {
	return &IdempotencyKeyModel{
		TenantID:   e.TenantID,
		Class:      e.Class,
		Key:        e.Key,
		ResourceID: e.ResourceID,
		Outcome:    e.Outcome,
		CreatedAt:  e.CreatedAt,
	}
}
