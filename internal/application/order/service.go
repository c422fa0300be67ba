// Package order runs order use cases as guarded units of work
package order

import (
	"context"
	"errors"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/application/unitofwork"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/order"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// OrderService creates orders and applies line and lifecycle changes. Every
// mutation names the version it was computed from and fails with
// shared.ErrConcurrentModification when the stored order has moved on.
type OrderService struct {
	tx      unitofwork.TransactionScope
	metrics *telemetry.BusinessMetrics
	logger  *zap.Logger
}

// OrderServiceOption configures an OrderService
type OrderServiceOption func(*OrderService)

func WithMetrics(m *telemetry.BusinessMetrics) OrderServiceOption {
	return func(s *OrderService) { s.metrics = m }
}

// NewOrderService creates a new OrderService
func NewOrderService(tx unitofwork.TransactionScope, logger *zap.Logger, opts ...OrderServiceOption) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &OrderService{tx: tx, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create opens a new order
func (s *OrderService) Create(ctx context.Context, scope shared.Scope, req CreateOrderRequest) (*OrderResponse, error) {
	var tableRef *string
	if req.TableRef != "" {
		tableRef = &req.TableRef
	}

	var resp *OrderResponse
	err := s.tx.Execute(ctx, scope, func(ctx context.Context, repos unitofwork.Repositories) error {
		o, err := order.NewOrder(scope.TenantID, req.SiteID, tableRef)
		if err != nil {
			return err
		}
		if err := repos.Orders().Create(ctx, o); err != nil {
			return err
		}
		resp = ToOrderResponse(o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("order opened",
		zap.String("tenant_id", scope.TenantID.String()),
		zap.String("order_id", resp.ID.String()),
	)
	return resp, nil
}

// Get returns an order of the scope's tenant
func (s *OrderService) Get(ctx context.Context, scope shared.Scope, orderID uuid.UUID) (*OrderResponse, error) {
	var resp *OrderResponse
	err := s.tx.Execute(ctx, scope, func(ctx context.Context, repos unitofwork.Repositories) error {
		o, err := repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		resp = ToOrderResponse(o)
		return nil
	})
	return resp, err
}

// List returns a page of orders and the total count
func (s *OrderService) List(ctx context.Context, scope shared.Scope, req ListOrdersRequest) ([]OrderResponse, int64, error) {
	filter := order.ListFilter{
		Filter: shared.Filter{Page: req.Page, PageSize: req.PageSize, OrderBy: req.SortBy, OrderDir: req.SortDir},
		SiteID: req.SiteID,
	}
	if req.Status != "" {
		status := order.Status(req.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError(shared.ErrInvalidInput.Code, "Unknown order status: "+req.Status)
		}
		filter.Status = &status
	}

	var (
		out   []OrderResponse
		total int64
	)
	err := s.tx.Execute(ctx, scope, func(ctx context.Context, repos unitofwork.Repositories) error {
		orders, n, err := repos.Orders().FindAll(ctx, filter)
		if err != nil {
			return err
		}
		out = make([]OrderResponse, 0, len(orders))
		for _, o := range orders {
			out = append(out, *ToOrderResponse(o))
		}
		total = n
		return nil
	})
	return out, total, err
}

func (s *OrderService) AddLine(ctx context.Context, scope shared.Scope, orderID uuid.UUID, req AddLineRequest) (*OrderResponse, error) {
	return s.mutate(ctx, scope, orderID, req.ExpectedVersion, func(_ context.Context, _ unitofwork.Repositories, o *order.Order) error {
		_, err := o.AddLine(req.MenuItemID, req.Name, req.Station, req.Quantity, req.UnitPrice, req.Notes...)
		return err
	})
}

func (s *OrderService) UpdateLine(ctx context.Context, scope shared.Scope, orderID, lineID uuid.UUID, req UpdateLineRequest) (*OrderResponse, error) {
	return s.mutate(ctx, scope, orderID, req.ExpectedVersion, func(_ context.Context, _ unitofwork.Repositories, o *order.Order) error {
		return o.UpdateLine(lineID, req.Quantity, req.UnitPrice)
	})
}

// VoidLine voids a line that has not reached the kitchen
func (s *OrderService) VoidLine(ctx context.Context, scope shared.Scope, orderID, lineID uuid.UUID, req VoidLineRequest) (*OrderResponse, error) {
	return s.mutate(ctx, scope, orderID, req.ExpectedVersion, func(_ context.Context, _ unitofwork.Repositories, o *order.Order) error {
		return o.VoidLine(lineID, req.Reason)
	})
}

// Confirm sends the pending lines to the kitchen. The consumptions and the
// OrderConfirmed outbox entry commit with the order.
func (s *OrderService) Confirm(ctx context.Context, scope shared.Scope, orderID uuid.UUID, req ConfirmOrderRequest) (resp *OrderResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "confirm",
		telemetry.AttrTenantID.String(scope.TenantID.String()),
		attribute.String(telemetry.SpanAttrOrderID, orderID.String()),
	)
	defer telemetry.EndSpan(span, &err)

	resp, err = s.mutate(ctx, scope, orderID, req.ExpectedVersion, func(ctx context.Context, repos unitofwork.Repositories, o *order.Order) error {
		consumptions, err := o.Confirm()
		if err != nil {
			return err
		}
		return repos.Orders().SaveConsumptions(ctx, consumptions)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.OrderConfirmed(ctx, scope.TenantID.String())
	return resp, nil
}

// VoidLineAfterConfirm voids a line the kitchen already received. It needs
// order:void-confirmed-line and stores a waste record when asked to.
func (s *OrderService) VoidLineAfterConfirm(ctx context.Context, scope shared.Scope, orderID, lineID uuid.UUID, req VoidLineRequest) (*VoidLineResult, error) {
	var wasteID *uuid.UUID
	resp, err := s.mutate(ctx, scope, orderID, req.ExpectedVersion, func(ctx context.Context, repos unitofwork.Repositories, o *order.Order) error {
		waste, err := o.VoidLineAfterConfirm(scope, lineID, req.Reason, req.RecordWaste)
		if err != nil {
			return err
		}
		if waste == nil {
			return nil
		}
		if err := repos.Orders().SaveWaste(ctx, waste); err != nil {
			return err
		}
		wasteID = &waste.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("confirmed line voided",
		zap.String("order_id", orderID.String()),
		zap.String("line_id", lineID.String()),
		zap.String("actor_id", scope.ActorID.String()),
		zap.Bool("waste_recorded", wasteID != nil),
	)
	return &VoidLineResult{Order: resp, WasteID: wasteID}, nil
}

// Void ends the order without payment
func (s *OrderService) Void(ctx context.Context, scope shared.Scope, orderID uuid.UUID, req VoidOrderRequest) (*OrderResponse, error) {
	return s.mutate(ctx, scope, orderID, req.ExpectedVersion, func(_ context.Context, _ unitofwork.Repositories, o *order.Order) error {
		return o.Void(scope, req.Reason)
	})
}

// Consumptions lists what was recorded when the order was confirmed
func (s *OrderService) Consumptions(ctx context.Context, scope shared.Scope, orderID uuid.UUID) ([]ConsumptionResponse, error) {
	var out []ConsumptionResponse
	err := s.tx.Execute(ctx, scope, func(ctx context.Context, repos unitofwork.Repositories) error {
		if _, err := repos.Orders().FindByID(ctx, orderID); err != nil {
			return err
		}
		records, err := repos.Orders().FindConsumptions(ctx, orderID)
		if err != nil {
			return err
		}
		out = make([]ConsumptionResponse, 0, len(records))
		for _, c := range records {
			out = append(out, ConsumptionResponse{
				LineID:     c.LineID,
				MenuItemID: c.MenuItemID,
				Name:       c.Name,
				Quantity:   c.Quantity,
				Amount:     c.Amount,
				ConsumedAt: c.ConsumedAt,
			})
		}
		return nil
	})
	return out, err
}

// mutate loads the order, applies fn and writes it back through the version
// guard together with the events fn raised
func (s *OrderService) mutate(
	ctx context.Context,
	scope shared.Scope,
	orderID uuid.UUID,
	expectedVersion int,
	fn func(ctx context.Context, repos unitofwork.Repositories, o *order.Order) error,
) (*OrderResponse, error) {
	var resp *OrderResponse
	err := s.tx.Execute(ctx, scope, func(ctx context.Context, repos unitofwork.Repositories) error {
		o, err := repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Version != expectedVersion {
			return shared.ErrConcurrentModification
		}
		if err := fn(ctx, repos, o); err != nil {
			return err
		}
		if err := repos.Orders().Save(ctx, o, expectedVersion); err != nil {
			return err
		}
		if err := unitofwork.RecordEvents(ctx, repos, o); err != nil {
			return err
		}
		resp = ToOrderResponse(o)
		return nil
	})
	if errors.Is(err, shared.ErrConcurrentModification) {
		s.metrics.OptimisticConflict(ctx, order.AggregateTypeOrder)
		s.logger.Info("order write rejected by version guard",
			zap.String("order_id", orderID.String()),
			zap.Int("expected_version", expectedVersion),
		)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}
