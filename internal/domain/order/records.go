package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Consumption records one confirmed line for sales reporting. It is created
// in the same transaction that confirms the order and is never updated.
type Consumption struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	OrderID    uuid.UUID
	LineID     uuid.UUID
	SiteID     uuid.UUID
	MenuItemID uuid.UUID
	Name       string
	Quantity   int
	UnitPrice  decimal.Decimal
	Amount     decimal.Decimal
	ConsumedAt time.Time
}

// WasteRecord keeps food that was prepared but voided after confirmation
type WasteRecord struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	OrderID      uuid.UUID
	LineID       uuid.UUID
	MenuItemID   uuid.UUID
	Name         string
	Quantity     int
	Amount       decimal.Decimal
	Reason       string
	AuthorizedBy uuid.UUID
	RecordedAt   time.Time
}
