package persistence

import (
	"context"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/application/unitofwork"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/cashregister"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/idempotency"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/order"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/payment"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/printing"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
)

// GormTransactionScope implements unitofwork.TransactionScope using GORM
// transactions
type GormTransactionScope struct {
	db       *gorm.DB
	outbox   shared.OutboxEventSaver
	onCommit []func()
}

// NewGormTransactionScope creates a new GormTransactionScope. outbox writes
// recorded events inside the transaction.
func NewGormTransactionScope(db *gorm.DB, outbox shared.OutboxEventSaver) *GormTransactionScope {
	return &GormTransactionScope{db: db, outbox: outbox}
}

// OnCommit registers fn to run after a unit of work that recorded events has
// committed. The outbox relay uses it to skip its poll delay.
func (s *GormTransactionScope) OnCommit(fn func()) {
	s.onCommit = append(s.onCommit, fn)
}

// Execute binds scope, runs fn in a transaction and releases the binding on
// every path, including a panic inside fn.
func (s *GormTransactionScope) Execute(ctx context.Context, scope shared.Scope, fn func(ctx context.Context, repos unitofwork.Repositories) error) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	ctx, release := tenant.Bind(ctx, scope)
	defer release()

	var recorded bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &gormTransactionalRepositories{tx: tx, outbox: s.outbox, recorded: &recorded})
	})
	if err != nil {
		return err
	}
	if recorded {
		for _, hook := range s.onCommit {
			hook()
		}
	}
	return nil
}

// gormTransactionalRepositories provides access to all repositories within a transaction
type gormTransactionalRepositories struct {
	tx       *gorm.DB
	outbox   shared.OutboxEventSaver
	recorded *bool
}

func (r *gormTransactionalRepositories) Orders() order.Repository {
	return NewGormOrderRepository(r.tx)
}

func (r *gormTransactionalRepositories) Payments() payment.Repository {
	return NewGormPaymentRepository(r.tx)
}

func (r *gormTransactionalRepositories) CashSessions() cashregister.Repository {
	return NewGormCashSessionRepository(r.tx)
}

func (r *gormTransactionalRepositories) Printers() printing.PrinterRepository {
	return NewGormPrinterRepository(r.tx)
}

func (r *gormTransactionalRepositories) PrintJobs() printing.JobRepository {
	return NewGormPrintJobRepository(r.tx)
}

func (r *gormTransactionalRepositories) Ledger() idempotency.Ledger {
	return NewGormIdempotencyLedger(r.tx)
}

func (r *gormTransactionalRepositories) Events() unitofwork.EventRecorder {
	return r
}

// Record writes events to the outbox inside the transaction
func (r *gormTransactionalRepositories) Record(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	if err := r.outbox.SaveEvents(ctx, r.tx, events...); err != nil {
		return err
	}
	*r.recorded = true
	return nil
}

var _ unitofwork.TransactionScope = (*GormTransactionScope)(nil)
var _ unitofwork.Repositories = (*gormTransactionalRepositories)(nil)
