package cashregister

import (
	"time"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/cashregister"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OpenSessionRequest starts a drawer shift. EmployeeID defaults to the actor.
type OpenSessionRequest struct {
	RegisterID    uuid.UUID       `json:"register_id" binding:"required"`
	EmployeeID    *uuid.UUID      `json:"employee_id"`
	OpeningAmount decimal.Decimal `json:"opening_amount" binding:"money"`
}

// MovementRequest is a manual deposit or withdrawal
type MovementRequest struct {
	ExpectedVersion int             `json:"expected_version" binding:"required,min=1"`
	Amount          decimal.Decimal `json:"amount" binding:"money"`
	Note            string          `json:"note" binding:"max=255"`
}

type CloseSessionRequest struct {
	ExpectedVersion int             `json:"expected_version" binding:"required,min=1"`
	ActualAmount    decimal.Decimal `json:"actual_amount" binding:"money"`
}

// SessionResponse is the API view of a cash session
type SessionResponse struct {
	ID               uuid.UUID        `json:"id"`
	RegisterID       uuid.UUID        `json:"register_id"`
	EmployeeID       uuid.UUID        `json:"employee_id"`
	Status           string           `json:"status"`
	OpeningAmount    decimal.Decimal  `json:"opening_amount"`
	DepositsTotal    decimal.Decimal  `json:"deposits_total"`
	SalesTotal       decimal.Decimal  `json:"sales_total"`
	WithdrawalsTotal decimal.Decimal  `json:"withdrawals_total"`
	ExpectedCash     decimal.Decimal  `json:"expected_cash"`
	ActualClose      *decimal.Decimal `json:"actual_close,omitempty"`
	Variance         *decimal.Decimal `json:"variance,omitempty"`
	Version          int              `json:"version"`
	OpenedAt         time.Time        `json:"opened_at"`
	ClosedAt         *time.Time       `json:"closed_at,omitempty"`
}

type MovementResponse struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	PaymentID *uuid.UUID      `json:"payment_id,omitempty"`
	Note      string          `json:"note,omitempty"`
	CreatedBy uuid.UUID       `json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
}

func ToSessionResponse(s *cashregister.Session) *SessionResponse {
	expected := s.ExpectedCash()
	if s.ExpectedClose != nil {
		expected = *s.ExpectedClose
	}
	return &SessionResponse{
		ID:               s.ID,
		RegisterID:       s.RegisterID,
		EmployeeID:       s.EmployeeID,
		Status:           string(s.Status),
		OpeningAmount:    s.OpeningAmount,
		DepositsTotal:    s.DepositsTotal,
		SalesTotal:       s.SalesTotal,
		WithdrawalsTotal: s.WithdrawalsTotal,
		ExpectedCash:     expected,
		ActualClose:      s.ActualClose,
		Variance:         s.Variance,
		Version:          s.Version,
		OpenedAt:         s.OpenedAt,
		ClosedAt:         s.ClosedAt,
	}
}

func ToMovementResponse(m *cashregister.Movement) MovementResponse {
	return MovementResponse{
		ID:        m.ID,
		Type:      string(m.Type),
		Amount:    m.Amount,
		PaymentID: m.PaymentID,
		Note:      m.Note,
		CreatedBy: m.CreatedBy,
		CreatedAt: m.CreatedAt,
	}
}
