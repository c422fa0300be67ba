package cashregister

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType classifies a drawer journal entry
type MovementType string

const (
	MovementOpening    MovementType = "OPENING"
	MovementSale       MovementType = "SALE"
	MovementDeposit    MovementType = "DEPOSIT"
	MovementWithdrawal MovementType = "WITHDRAWAL"
	MovementClosing    MovementType = "CLOSING"
)

func (t MovementType) IsValid() bool {
	switch t {
	case MovementOpening, MovementSale, MovementDeposit, MovementWithdrawal, MovementClosing:
		return true
	}
	return false
}

// Movement is immutable once written. SALE movements carry the payment id;
// (tenant, payment) is unique across the journal.
type Movement struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	SessionID  uuid.UUID
	RegisterID uuid.UUID
	Type       MovementType
	Amount     decimal.Decimal
	PaymentID  *uuid.UUID
	Note       string
	CreatedBy  uuid.UUID
	CreatedAt  time.Time
}
