package order

import (
	"time"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Line is one item on an order. Station names the kitchen station whose
// printer receives the line; empty means the tenant's default printer.
type Line struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Name       string
	Station    string
	Quantity   int
	UnitPrice  decimal.Decimal
	Notes      []string
	Status     LineStatus
	VoidReason string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func newLine(orderID, menuItemID uuid.UUID, name, station string, quantity int, unitPrice decimal.Decimal, notes []string) (*Line, error) {
	if name == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Line name cannot be empty")
	}
	if err := validateQuantityAndPrice(quantity, unitPrice); err != nil {
		return nil, err
	}
	now := time.Now()
	return &Line{
		ID:         uuid.New(),
		OrderID:    orderID,
		MenuItemID: menuItemID,
		Name:       name,
		Station:    station,
		Quantity:   quantity,
		UnitPrice:  valueobject.RoundMoney(unitPrice),
		Notes:      notes,
		Status:     LineStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func validateQuantityAndPrice(quantity int, unitPrice decimal.Decimal) error {
	if quantity <= 0 {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "Unit price cannot be negative")
	}
	return nil
}

// Amount is quantity × unit price. Voided lines contribute nothing.
func (l *Line) Amount() decimal.Decimal {
	if l.Status == LineStatusVoided {
		return decimal.Zero
	}
	return valueobject.LineAmount(l.Quantity, l.UnitPrice)
}

func (l *Line) IsPending() bool   { return l.Status == LineStatusPending }
func (l *Line) IsConfirmed() bool { return l.Status == LineStatusConfirmed }
func (l *Line) IsVoided() bool    { return l.Status == LineStatusVoided }

func (l *Line) void(reason string) {
	l.Status = LineStatusVoided
	l.VoidReason = reason
	l.UpdatedAt = time.Now()
}
