package payment

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists payments for the tenant bound to ctx
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]*Payment, error)
	// Save is guarded by expectedVersion
	Save(ctx context.Context, p *Payment, expectedVersion int) error
	SaveVoidAudit(ctx context.Context, audit *VoidAudit) error
}
