package cashregister

import (
	"context"
	"fmt"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/application/unitofwork"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/payment"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"go.uber.org/zap"
)

// CashMovementRecorder books completed CASH payments as SALE movements on the
// open session of the tendering register. The journal's (tenant, payment)
// uniqueness makes redelivery a no-op.
type CashMovementRecorder struct {
	tx     unitofwork.TransactionScope
	logger *zap.Logger
}

func NewCashMovementRecorder(tx unitofwork.TransactionScope, logger *zap.Logger) *CashMovementRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CashMovementRecorder{tx: tx, logger: logger}
}

func (r *CashMovementRecorder) Name() string { return "cash-movement-recorder" }

func (r *CashMovementRecorder) EventTypes() []string {
	return []string{payment.EventTypePaymentCompleted}
}

// Handle returns an error when the register has no open session, which leaves
// the outbox entry to be retried until the operator opens one or it goes dead.
func (r *CashMovementRecorder) Handle(ctx context.Context, evt shared.DomainEvent) error {
	completed, ok := evt.(*payment.PaymentCompletedEvent)
	if !ok {
		return fmt.Errorf("cash movement recorder: unexpected event %T", evt)
	}
	if completed.Method != payment.MethodCash || completed.RegisterID == nil {
		return nil
	}

	scope := shared.NewScope(completed.TenantID(), completed.TenderedBy)
	var inserted bool
	err := r.tx.Execute(ctx, scope, func(ctx context.Context, repos unitofwork.Repositories) error {
		session, err := repos.CashSessions().FindOpenByRegister(ctx, *completed.RegisterID)
		if err != nil {
			return fmt.Errorf("register %s: %w", completed.RegisterID, err)
		}
		expected := session.Version
		sale, err := session.RecordSale(completed.PaymentID, completed.Retained(), completed.TenderedBy)
		if err != nil {
			return err
		}
		inserted, err = repos.CashSessions().InsertSale(ctx, sale)
		if err != nil || !inserted {
			return err
		}
		return repos.CashSessions().Save(ctx, session, expected)
	})
	if err != nil {
		r.logger.Warn("cash sale not recorded",
			zap.String("tenant_id", scope.TenantID.String()),
			zap.String("payment_id", completed.PaymentID.String()),
			zap.Error(err),
		)
		return err
	}
	if inserted {
		r.logger.Debug("cash sale recorded",
			zap.String("payment_id", completed.PaymentID.String()),
			zap.String("amount", completed.Retained().StringFixed(2)),
		)
	}
	return nil
}

var _ shared.EventHandler = (*CashMovementRecorder)(nil)
