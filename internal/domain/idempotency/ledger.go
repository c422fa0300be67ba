// Package idempotency defines the durable ledger of operation keys. A key is
// unique per tenant and operation class, and the entry is written in the same
// storage transaction as the effect it protects.
package idempotency

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// Class separates key spaces so a payment key can never collide with a
// print dedupe key
type Class string

const (
	ClassPayment Class = "PAYMENT"
	ClassPrint   Class = "PRINT"
)

func (c Class) IsValid() bool {
	return c == ClassPayment || c == ClassPrint
}

// Entry is a recorded key and the outcome of the operation it protected
type Entry struct {
	TenantID   uuid.UUID
	Class      Class
	Key        string
	ResourceID uuid.UUID
	Outcome    json.RawMessage
	CreatedAt  time.Time
}

// NewEntry marshals outcome into a ledger entry
func NewEntry(tenantID uuid.UUID, class Class, key string, resourceID uuid.UUID, outcome any) (*Entry, error) {
	if !class.IsValid() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Unknown idempotency class: "+string(class))
	}
	if key == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Idempotency key is required")
	}
	raw, err := json.Marshal(outcome)
	if err != nil {
		return nil, fmt.Errorf("marshal idempotency outcome: %w", err)
	}
	return &Entry{
		TenantID:   tenantID,
		Class:      class,
		Key:        key,
		ResourceID: resourceID,
		Outcome:    raw,
		CreatedAt:  time.Now(),
	}, nil
}

// Decode unmarshals the stored outcome into v
func (e *Entry) Decode(v any) error {
	if err := json.Unmarshal(e.Outcome, v); err != nil {
		return fmt.Errorf("decode idempotency outcome: %w", err)
	}
	return nil
}

// Ledger records keys for the tenant bound to ctx.
//
// Record stores entry and returns (entry, false) when the key is new. When
// the key already exists it stores nothing and returns the existing entry
// with replay set to true; that case is a normal result, not an error.
type Ledger interface {
	Record(ctx context.Context, entry *Entry) (stored *Entry, replay bool, err error)
	Find(ctx context.Context, class Class, key string) (*Entry, error)
}
