// Package payment applies tenders to orders exactly once per idempotency key
package payment

import (
	"context"
	"errors"
	"time"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/application/unitofwork"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/idempotency"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/order"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/payment"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// PaymentService processes and voids payments. One ProcessPayment call is one
// unit of work: the ledger lookup, the payment, the order closure, the
// PaymentCompleted outbox entry and the ledger entry commit together or not
// at all.
type PaymentService struct {
	tx      unitofwork.TransactionScope
	metrics *telemetry.BusinessMetrics
	logger  *zap.Logger
}

// PaymentServiceOption configures a PaymentService
type PaymentServiceOption func(*PaymentService)

func WithMetrics(m *telemetry.BusinessMetrics) PaymentServiceOption {
	return func(s *PaymentService) { s.metrics = m }
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(tx unitofwork.TransactionScope, logger *zap.Logger, opts ...PaymentServiceOption) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &PaymentService{tx: tx, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessPayment completes a payment against an order and closes the order
// once completed payments cover its total. A retry with a key that was
// already used returns the recorded result with Replayed set and changes
// nothing, even when the retry carries a different amount.
func (s *PaymentService) ProcessPayment(ctx context.Context, scope shared.Scope, req ProcessPaymentRequest) (result *PaymentResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "process",
		telemetry.AttrTenantID.String(scope.TenantID.String()),
		attribute.String(telemetry.SpanAttrOrderID, req.OrderID.String()),
		telemetry.AttrPaymentMethod.String(req.Method),
	)
	defer telemetry.EndSpan(span, &err)
	start := time.Now()

	err = s.tx.Execute(ctx, scope, func(ctx context.Context, repos unitofwork.Repositories) error {
		replayed, err := findRecorded(ctx, repos, req.IdempotencyKey)
		if err != nil || replayed != nil {
			result = replayed
			return err
		}
		result, err = s.apply(ctx, scope, repos, req)
		return err
	})

	if errors.Is(err, payment.ErrDuplicateIdempotencyKey) {
		// a concurrent request with the same key committed first; answer
		// with its outcome
		result, err = s.replay(ctx, scope, req.IdempotencyKey)
	}
	if errors.Is(err, shared.ErrConcurrentModification) {
		s.metrics.OptimisticConflict(ctx, order.AggregateTypeOrder)
	}
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Bool(telemetry.SpanAttrReplay, result.Replayed))
	s.metrics.PaymentDuration(ctx, time.Since(start), result.Replayed)
	if result.Replayed {
		s.metrics.PaymentReplayed(ctx, scope.TenantID.String())
		s.logger.Info("payment replayed from idempotency ledger",
			zap.String("tenant_id", scope.TenantID.String()),
			zap.String("payment_id", result.PaymentID.String()),
		)
		return result, nil
	}

	s.metrics.PaymentProcessed(ctx, scope.TenantID.String(), result.Method)
	if result.OrderClosed {
		s.metrics.OrderClosed(ctx, scope.TenantID.String())
	}
	s.logger.Info("payment processed",
		zap.String("tenant_id", scope.TenantID.String()),
		zap.String("order_id", result.OrderID.String()),
		zap.String("payment_id", result.PaymentID.String()),
		zap.String("amount", result.Amount.StringFixed(2)),
		zap.String("method", result.Method),
		zap.Bool("order_closed", result.OrderClosed),
	)
	return result, nil
}

func (s *PaymentService) apply(ctx context.Context, scope shared.Scope, repos unitofwork.Repositories, req ProcessPaymentRequest) (*PaymentResult, error) {
	p, err := payment.NewPayment(scope, req.OrderID, req.Amount, payment.Method(req.Method), req.IdempotencyKey, req.RegisterID)
	if err != nil {
		return nil, err
	}

	o, err := repos.Orders().FindByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if o.Status != order.StatusOpen && o.Status != order.StatusConfirmed {
		return nil, shared.NewDomainError(shared.CodeInvalidOrderState, "Order is "+o.Status.String())
	}

	existing, err := repos.Payments().FindByOrder(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	paidBefore := payment.SumCompleted(existing)

	if err := p.Complete(o.RemainingDue(paidBefore)); err != nil {
		return nil, err
	}
	if err := repos.Payments().Create(ctx, p); err != nil {
		return nil, err
	}

	paidTotal := paidBefore.Add(p.Amount)
	closed, err := o.ApplyPayment(paidTotal)
	if err != nil {
		return nil, err
	}
	// the order is written even when it stays open so concurrent payments on
	// one order serialize on its version
	if err := repos.Orders().Save(ctx, o, o.Version); err != nil {
		return nil, err
	}
	if err := unitofwork.RecordEvents(ctx, repos, p, o); err != nil {
		return nil, err
	}

	result := &PaymentResult{
		PaymentID:    p.ID,
		OrderID:      o.ID,
		Amount:       p.Amount,
		Method:       p.Method.String(),
		Status:       p.Status.String(),
		Change:       p.Change,
		OrderStatus:  o.Status.String(),
		OrderClosed:  closed,
		PaidTotal:    paidTotal,
		RemainingDue: o.RemainingDue(paidTotal),
	}
	entry, err := idempotency.NewEntry(scope.TenantID, idempotency.ClassPayment, req.IdempotencyKey, p.ID, result)
	if err != nil {
		return nil, err
	}
	_, replay, err := repos.Ledger().Record(ctx, entry)
	if err != nil {
		return nil, err
	}
	if replay {
		// lost the race on the ledger itself; roll back this attempt
		return nil, payment.ErrDuplicateIdempotencyKey
	}
	return result, nil
}

// replay answers a key from the ledger in a fresh unit of work
func (s *PaymentService) replay(ctx context.Context, scope shared.Scope, key string) (*PaymentResult, error) {
	var result *PaymentResult
	err := s.tx.Execute(ctx, scope, func(ctx context.Context, repos unitofwork.Repositories) error {
		recorded, err := findRecorded(ctx, repos, key)
		if err != nil {
			return err
		}
		if recorded == nil {
			return payment.ErrDuplicateIdempotencyKey
		}
		result = recorded
		return nil
	})
	return result, err
}

// findRecorded returns the stored result for key, or nil when the key is new
func findRecorded(ctx context.Context, repos unitofwork.Repositories, key string) (*PaymentResult, error) {
	entry, err := repos.Ledger().Find(ctx, idempotency.ClassPayment, key)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var result PaymentResult
	if err := entry.Decode(&result); err != nil {
		return nil, err
	}
	result.Replayed = true
	return &result, nil
}

// VoidPayment voids a payment. It needs payment:void, writes an audit row and
// never deletes. The order is not reopened.
func (s *PaymentService) VoidPayment(ctx context.Context, scope shared.Scope, paymentID uuid.UUID, req VoidPaymentRequest) (resp *PaymentResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "void",
		telemetry.AttrTenantID.String(scope.TenantID.String()),
		attribute.String(telemetry.SpanAttrPaymentID, paymentID.String()),
	)
	defer telemetry.EndSpan(span, &err)

	if err := scope.Authorize(shared.PermissionVoidPayment); err != nil {
		return nil, err
	}

	err = s.tx.Execute(ctx, scope, func(ctx context.Context, repos unitofwork.Repositories) error {
		p, err := repos.Payments().FindByID(ctx, paymentID)
		if err != nil {
			return err
		}
		expected := p.Version
		audit, err := p.Void(scope, req.Reason)
		if err != nil {
			return err
		}
		if err := repos.Payments().Save(ctx, p, expected); err != nil {
			return err
		}
		if err := repos.Payments().SaveVoidAudit(ctx, audit); err != nil {
			return err
		}
		if err := unitofwork.RecordEvents(ctx, repos, p); err != nil {
			return err
		}
		resp = ToPaymentResponse(p)
		return nil
	})
	if errors.Is(err, shared.ErrConcurrentModification) {
		s.metrics.OptimisticConflict(ctx, payment.AggregateTypePayment)
	}
	if err != nil {
		return nil, err
	}

	s.metrics.PaymentVoided(ctx, scope.TenantID.String())
	s.logger.Warn("payment voided",
		zap.String("tenant_id", scope.TenantID.String()),
		zap.String("payment_id", paymentID.String()),
		zap.String("actor_id", scope.ActorID.String()),
		zap.String("reason", req.Reason),
	)
	return resp, nil
}

// Get returns one payment
func (s *PaymentService) Get(ctx context.Context, scope shared.Scope, paymentID uuid.UUID) (*PaymentResponse, error) {
	var resp *PaymentResponse
	err := s.tx.Execute(ctx, scope, func(ctx context.Context, repos unitofwork.Repositories) error {
		p, err := repos.Payments().FindByID(ctx, paymentID)
		if err != nil {
			return err
		}
		resp = ToPaymentResponse(p)
		return nil
	})
	return resp, err
}

// ListByOrder returns every payment of an order, voided ones included
func (s *PaymentService) ListByOrder(ctx context.Context, scope shared.Scope, orderID uuid.UUID) ([]PaymentResponse, error) {
	var out []PaymentResponse
	err := s.tx.Execute(ctx, scope, func(ctx context.Context, repos unitofwork.Repositories) error {
		if _, err := repos.Orders().FindByID(ctx, orderID); err != nil {
			return err
		}
		payments, err := repos.Payments().FindByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		out = make([]PaymentResponse, 0, len(payments))
		for _, p := range payments {
			out = append(out, *ToPaymentResponse(p))
		}
		return nil
	})
	return out, err
}

// SplitBill divides what is still owed on an order into n shares. Each share
// is then tendered with its own idempotency key.
func (s *PaymentService) SplitBill(ctx context.Context, scope shared.Scope, orderID uuid.UUID, req SplitBillRequest) (*SplitBillResponse, error) {
	var resp *SplitBillResponse
	err := s.tx.Execute(ctx, scope, func(ctx context.Context, repos unitofwork.Repositories) error {
		o, err := repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		payments, err := repos.Payments().FindByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		due := o.RemainingDue(payment.SumCompleted(payments))
		if !due.IsPositive() {
			return shared.NewDomainError(shared.CodeInvalidOrderState, "Nothing left to pay on this order")
		}
		shares, err := payment.SplitAmount(due, req.Shares)
		if err != nil {
			return err
		}
		resp = &SplitBillResponse{OrderID: o.ID, RemainingDue: due, Shares: shares}
		return nil
	})
	return resp, err
}
