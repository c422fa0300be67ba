package models

import (
	"time"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/payment"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentModel is the GORM model for the payments table. (tenant_id,
// idempotency_key) is unique: a key can create at most one payment.
type PaymentModel struct {
	AggregateModel
	TenantID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_payments_tenant_key,priority:1"`
	OrderID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Method         payment.Method  `gorm:"type:varchar(20);not null"`
	Status         payment.Status  `gorm:"type:varchar(20);not null;index"`
	IdempotencyKey string          `gorm:"type:varchar(128);not null;uniqueIndex:uq_payments_tenant_key,priority:2"`
	RegisterID     *uuid.UUID      `gorm:"type:uuid"`
	Change         decimal.Decimal `gorm:"column:change_amount;type:decimal(18,2);not null"`
	TenderedBy     uuid.UUID       `gorm:"type:uuid;not null"`
	CompletedAt    *time.Time
	VoidedAt       *time.Time
	VoidReason     string `gorm:"type:varchar(500)"`
}

func (PaymentModel) TableName() string {
	return "payments"
}

func (PaymentModel) TenantOwned() {}

func (m *PaymentModel) ToDomain() *payment.Payment {
	return &payment.Payment{
		TenantAggregateRoot: shared.TenantAggregateRoot{
			BaseAggregateRoot: shared.BaseAggregateRoot{
				BaseEntity: m.BaseModel.ToDomain(),
				Version:    m.Version,
			},
			TenantID: m.TenantID,
		},
		OrderID:        m.OrderID,
		Amount:         m.Amount,
		Method:         m.Method,
		Status:         m.Status,
		IdempotencyKey: m.IdempotencyKey,
		RegisterID:     m.RegisterID,
		Change:         m.Change,
		TenderedBy:     m.TenderedBy,
		CompletedAt:    m.CompletedAt,
		VoidedAt:       m.VoidedAt,
		VoidReason:     m.VoidReason,
	}
}

func PaymentModelFromDomain(p *payment.Payment) *PaymentModel {
	m := &PaymentModel{
		TenantID:       p.TenantID,
		OrderID:        p.OrderID,
		Amount:         p.Amount,
		Method:         p.Method,
		Status:         p.Status,
		IdempotencyKey: p.IdempotencyKey,
		RegisterID:     p.RegisterID,
		Change:         p.Change,
		TenderedBy:     p.TenderedBy,
		CompletedAt:    p.CompletedAt,
		VoidedAt:       p.VoidedAt,
		VoidReason:     p.VoidReason,
	}
	m.fromEntity(p.BaseEntity)
	m.Version = p.Version
	return m
}

// PaymentVoidAuditModel is the append-only trail of payment voids
type PaymentVoidAuditModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	PaymentID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderID        uuid.UUID       `gorm:"type:uuid;not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Method         payment.Method  `gorm:"type:varchar(20);not null"`
	PreviousStatus payment.Status  `gorm:"type:varchar(20);not null"`
	Reason         string          `gorm:"type:varchar(500);not null"`
	VoidedBy       uuid.UUID       `gorm:"type:uuid;not null"`
	VoidedAt       time.Time       `gorm:"not null"`
}

func (PaymentVoidAuditModel) TableName() string {
	return "payment_void_audits"
}

func (PaymentVoidAuditModel) TenantOwned() {}

func PaymentVoidAuditModelFromDomain(a *payment.VoidAudit) *PaymentVoidAuditModel {
	return &PaymentVoidAuditModel{
		ID:             a.ID,
		TenantID:       a.TenantID,
		PaymentID:      a.PaymentID,
		OrderID:        a.OrderID,
		Amount:         a.Amount,
		Method:         a.Method,
		PreviousStatus: a.PreviousStatus,
		Reason:         a.Reason,
		VoidedBy:       a.VoidedBy,
		VoidedAt:       a.VoidedAt,
	}
}
