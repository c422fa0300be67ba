package payment

import (
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const AggregateTypePayment = "Payment"

const (
	EventTypePaymentCompleted = "PaymentCompleted"
	EventTypePaymentVoided    = "PaymentVoided"
)

// PaymentCompletedEvent drives the cash drawer: CASH payments become one SALE
// movement on the register's open session.
type PaymentCompletedEvent struct {
	shared.BaseDomainEvent
	PaymentID  uuid.UUID       `json:"payment_id"`
	OrderID    uuid.UUID       `json:"order_id"`
	Amount     decimal.Decimal `json:"amount"`
	Change     decimal.Decimal `json:"change"`
	Method     Method          `json:"method"`
	RegisterID *uuid.UUID      `json:"register_id,omitempty"`
	TenderedBy uuid.UUID       `json:"tendered_by"`
}

func NewPaymentCompletedEvent(p *Payment) *PaymentCompletedEvent {
	return &PaymentCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentCompleted, AggregateTypePayment, p.ID, p.TenantID),
		PaymentID:       p.ID,
		OrderID:         p.OrderID,
		Amount:          p.Amount,
		Change:          p.Change,
		Method:          p.Method,
		RegisterID:      p.RegisterID,
		TenderedBy:      p.TenderedBy,
	}
}

// Retained is the amount that stays in the drawer
func (e *PaymentCompletedEvent) Retained() decimal.Decimal {
	return e.Amount.Sub(e.Change)
}

// PaymentVoidedEvent is raised when a payment is voided
type PaymentVoidedEvent struct {
	shared.BaseDomainEvent
	PaymentID uuid.UUID       `json:"payment_id"`
	OrderID   uuid.UUID       `json:"order_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	VoidedBy  uuid.UUID       `json:"voided_by"`
}

func NewPaymentVoidedEvent(p *Payment, voidedBy uuid.UUID) *PaymentVoidedEvent {
	return &PaymentVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentVoided, AggregateTypePayment, p.ID, p.TenantID),
		PaymentID:       p.ID,
		OrderID:         p.OrderID,
		Amount:          p.Amount,
		Reason:          p.VoidReason,
		VoidedBy:        voidedBy,
	}
}
