// Package unitofwork defines the transactional boundary application services
// run in. One Execute call is one unit of work: the scope is bound when it
// starts, every repository shares one storage transaction, domain events are
// written to the outbox in that transaction, and the binding is released when
// Execute returns, whatever the outcome.
package unitofwork

import (
	"context"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/cashregister"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/idempotency"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/order"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/payment"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/printing"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
)

// TransactionScope runs fn in one storage transaction under scope. The ctx
// passed to fn carries the binding; repositories must be called with it.
type TransactionScope interface {
	Execute(ctx context.Context, scope shared.Scope, fn func(ctx context.Context, repos Repositories) error) error
}

// Repositories are bound to the transaction of the current unit of work
type Repositories interface {
	Orders() order.Repository
	Payments() payment.Repository
	CashSessions() cashregister.Repository
	Printers() printing.PrinterRepository
	PrintJobs() printing.JobRepository
	Ledger() idempotency.Ledger
	Events() EventRecorder
}

// EventRecorder captures domain events into the outbox of the current transaction
type EventRecorder interface {
	Record(ctx context.Context, events ...shared.DomainEvent) error
}

// RecordEvents moves the pending events of each aggregate into the outbox
func RecordEvents(ctx context.Context, repos Repositories, aggregates ...shared.AggregateRoot) error {
	var events []shared.DomainEvent
	for _, a := range aggregates {
		events = append(events, a.GetDomainEvents()...)
	}
	if len(events) == 0 {
		return nil
	}
	if err := repos.Events().Record(ctx, events...); err != nil {
		return err
	}
	for _, a := range aggregates {
		a.ClearDomainEvents()
	}
	return nil
}
