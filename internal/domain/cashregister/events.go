package cashregister

import (
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const AggregateTypeCashSession = "CashSession"

const EventTypeCashSessionClosed = "CashSessionClosed"

// CashSessionClosedEvent is the closing record read by fiscal export
type CashSessionClosedEvent struct {
	shared.BaseDomainEvent
	SessionID  uuid.UUID       `json:"session_id"`
	RegisterID uuid.UUID       `json:"register_id"`
	EmployeeID uuid.UUID       `json:"employee_id"`
	Expected   decimal.Decimal `json:"expected"`
	Actual     decimal.Decimal `json:"actual"`
	Variance   decimal.Decimal `json:"variance"`
}

func NewCashSessionClosedEvent(s *Session) *CashSessionClosedEvent {
	return &CashSessionClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCashSessionClosed, AggregateTypeCashSession, s.ID, s.TenantID),
		SessionID:       s.ID,
		RegisterID:      s.RegisterID,
		EmployeeID:      s.EmployeeID,
		Expected:        *s.ExpectedClose,
		Actual:          *s.ActualClose,
		Variance:        *s.Variance,
	}
}
