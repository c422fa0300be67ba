package models

import (
	"time"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/cashregister"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CashSessionModel is the GORM model for the cash_sessions table. At most one
// OPEN session per register is enforced by a partial unique index in the
// PostgreSQL migration.
type CashSessionModel struct {
	TenantAggregateModel
	RegisterID       uuid.UUID                  `gorm:"type:uuid;not null;index"`
	EmployeeID       uuid.UUID                  `gorm:"type:uuid;not null"`
	Status           cashregister.SessionStatus `gorm:"type:varchar(20);not null"`
	OpeningAmount    decimal.Decimal            `gorm:"type:decimal(18,2);not null"`
	DepositsTotal    decimal.Decimal            `gorm:"type:decimal(18,2);not null"`
	SalesTotal       decimal.Decimal            `gorm:"type:decimal(18,2);not null"`
	WithdrawalsTotal decimal.Decimal            `gorm:"type:decimal(18,2);not null"`
	ExpectedClose    *decimal.Decimal           `gorm:"type:decimal(18,2)"`
	ActualClose      *decimal.Decimal           `gorm:"type:decimal(18,2)"`
	Variance         *decimal.Decimal           `gorm:"type:decimal(18,2)"`
	OpenedAt         time.Time                  `gorm:"not null"`
	ClosedAt         *time.Time
}

func (CashSessionModel) TableName() string {
	return "cash_sessions"
}

func (m *CashSessionModel) ToDomain() *cashregister.Session {
	return &cashregister.Session{
		TenantAggregateRoot: m.ToDomainRoot(),
		RegisterID:          m.RegisterID,
		EmployeeID:          m.EmployeeID,
		Status:              m.Status,
		OpeningAmount:       m.OpeningAmount,
		DepositsTotal:       m.DepositsTotal,
		SalesTotal:          m.SalesTotal,
		WithdrawalsTotal:    m.WithdrawalsTotal,
		ExpectedClose:       m.ExpectedClose,
		ActualClose:         m.ActualClose,
		Variance:            m.Variance,
		OpenedAt:            m.OpenedAt,
		ClosedAt:            m.ClosedAt,
	}
}

func CashSessionModelFromDomain(s *cashregister.Session) *CashSessionModel {
	m := &CashSessionModel{
		RegisterID:       s.RegisterID,
		EmployeeID:       s.EmployeeID,
		Status:           s.Status,
		OpeningAmount:    s.OpeningAmount,
		DepositsTotal:    s.DepositsTotal,
		SalesTotal:       s.SalesTotal,
		WithdrawalsTotal: s.WithdrawalsTotal,
		ExpectedClose:    s.ExpectedClose,
		ActualClose:      s.ActualClose,
		Variance:         s.Variance,
		OpenedAt:         s.OpenedAt,
		ClosedAt:         s.ClosedAt,
	}
	m.TenantAggregateModel.FromDomain(s.TenantAggregateRoot)
	return m
}

// CashMovementModel is one append-only drawer journal entry. (tenant_id,
// payment_id) is unique, so a payment produces at most one SALE; rows without
// a payment are unaffected because NULLs never collide.
type CashMovementModel struct {
	ID         uuid.UUID                 `gorm:"type:uuid;primaryKey"`
	TenantID   uuid.UUID                 `gorm:"type:uuid;not null;uniqueIndex:uq_cash_movements_tenant_payment,priority:1"`
	SessionID  uuid.UUID                 `gorm:"type:uuid;not null;index"`
	RegisterID uuid.UUID                 `gorm:"type:uuid;not null"`
	Type       cashregister.MovementType `gorm:"type:varchar(20);not null"`
	Amount     decimal.Decimal           `gorm:"type:decimal(18,2);not null"`
	PaymentID  *uuid.UUID                `gorm:"type:uuid;uniqueIndex:uq_cash_movements_tenant_payment,priority:2"`
	Note       string                    `gorm:"type:varchar(500)"`
	CreatedBy  uuid.UUID                 `gorm:"type:uuid;not null"`
	CreatedAt  time.Time                 `gorm:"not null"`
}

func (CashMovementModel) TableName() string {
	return "cash_movements"
}

func (CashMovementModel) TenantOwned() {}

func (m *CashMovementModel) ToDomain() *cashregister.Movement {
	return &cashregister.Movement{
		ID:         m.ID,
		TenantID:   m.TenantID,
		SessionID:  m.SessionID,
		RegisterID: m.RegisterID,
		Type:       m.Type,
		Amount:     m.Amount,
		PaymentID:  m.PaymentID,
		Note:       m.Note,
		CreatedBy:  m.CreatedBy,
		CreatedAt:  m.CreatedAt,
	}
}

func CashMovementModelFromDomain(mv *cashregister.Movement) *CashMovementModel {
	return &CashMovementModel{
		ID:         mv.ID,
		TenantID:   mv.TenantID,
		SessionID:  mv.SessionID,
		RegisterID: mv.RegisterID,
		Type:       mv.Type,
		Amount:     mv.Amount,
		PaymentID:  mv.PaymentID,
		Note:       mv.Note,
		CreatedBy:  mv.CreatedBy,
		CreatedAt:  mv.CreatedAt,
	}
}
