package cashregister

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists sessions and their journal for the tenant bound to ctx
type Repository interface {
	Create(ctx context.Context, s *Session, opening *Movement) error
	FindByID(ctx context.Context, id uuid.UUID) (*Session, error)
	// FindOpenByRegister returns shared.ErrNotFound when the register has no open session
	FindOpenByRegister(ctx context.Context, registerID uuid.UUID) (*Session, error)
	// Save is guarded by expectedVersion
	Save(ctx context.Context, s *Session, expectedVersion int) error
	AppendMovement(ctx context.Context, m *Movement) error
	// InsertSale appends a SALE movement unless one exists for the payment.
	// It reports whether a row was written.
	InsertSale(ctx context.Context, m *Movement) (bool, error)
	ListMovements(ctx context.Context, sessionID uuid.UUID) ([]*Movement, error)
}
