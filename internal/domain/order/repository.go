package order

import (
	"context"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// ListFilter narrows order listings
type ListFilter struct {
	shared.Filter
	SiteID *uuid.UUID
	Status *Status
}

// Repository persists orders for the tenant bound to ctx.
// Save is guarded: it succeeds only if the stored version still equals
// expectedVersion and fails with shared.ErrConcurrentModification otherwise.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindAll(ctx context.Context, filter ListFilter) ([]*Order, int64, error)
	Create(ctx context.Context, o *Order) error
	Save(ctx context.Context, o *Order, expectedVersion int) error
	SaveConsumptions(ctx context.Context, consumptions []Consumption) error
	SaveWaste(ctx context.Context, waste *WasteRecord) error
	FindConsumptions(ctx context.Context, orderID uuid.UUID) ([]Consumption, error)
}
