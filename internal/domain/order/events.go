package order

import (
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeOrder is the aggregate type recorded on order events
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderConfirmed  = "OrderConfirmed"
	EventTypeOrderClosed     = "OrderClosed"
	EventTypeOrderVoided     = "OrderVoided"
	EventTypeOrderLineVoided = "OrderLineVoided"
)

// LineSnapshot is the state of a line at confirmation, as the kitchen sees it
type LineSnapshot struct {
	LineID     uuid.UUID       `json:"line_id"`
	MenuItemID uuid.UUID       `json:"menu_item_id"`
	Name       string          `json:"name"`
	Station    string          `json:"station,omitempty"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Notes      []string        `json:"notes,omitempty"`
}

// OrderConfirmedEvent is raised when pending lines are sent to the kitchen.
// It drives print job materialization.
type OrderConfirmedEvent struct {
	shared.BaseDomainEvent
	OrderID  uuid.UUID      `json:"order_id"`
	SiteID   uuid.UUID      `json:"site_id"`
	TableRef *string        `json:"table_ref,omitempty"`
	Lines    []LineSnapshot `json:"lines"`
}

// NewOrderConfirmedEvent creates a new OrderConfirmedEvent for the given lines
func NewOrderConfirmedEvent(o *Order, lines []*Line) *OrderConfirmedEvent {
	snapshots := make([]LineSnapshot, 0, len(lines))
	for _, l := range lines {
		snapshots = append(snapshots, LineSnapshot{
			LineID:     l.ID,
			MenuItemID: l.MenuItemID,
			Name:       l.Name,
			Station:    l.Station,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
			Notes:      l.Notes,
		})
	}
	return &OrderConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderConfirmed, AggregateTypeOrder, o.ID, o.TenantID),
		OrderID:         o.ID,
		SiteID:          o.SiteID,
		TableRef:        o.TableRef,
		Lines:           snapshots,
	}
}

// OrderClosedEvent is raised when completed payments reach the order total
type OrderClosedEvent struct {
	shared.BaseDomainEvent
	OrderID   uuid.UUID       `json:"order_id"`
	Total     decimal.Decimal `json:"total"`
	PaidTotal decimal.Decimal `json:"paid_total"`
}

func NewOrderClosedEvent(o *Order, paid decimal.Decimal) *OrderClosedEvent {
	return &OrderClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderClosed, AggregateTypeOrder, o.ID, o.TenantID),
		OrderID:         o.ID,
		Total:           o.Total,
		PaidTotal:       paid,
	}
}

// OrderVoidedEvent is raised when the whole order is voided
type OrderVoidedEvent struct {
	shared.BaseDomainEvent
	OrderID  uuid.UUID `json:"order_id"`
	Reason   string    `json:"reason"`
	VoidedBy uuid.UUID `json:"voided_by"`
}

func NewOrderVoidedEvent(o *Order, voidedBy uuid.UUID) *OrderVoidedEvent {
	return &OrderVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderVoided, AggregateTypeOrder, o.ID, o.TenantID),
		OrderID:         o.ID,
		Reason:          o.VoidReason,
		VoidedBy:        voidedBy,
	}
}

// OrderLineVoidedEvent is raised when a confirmed line is voided under authorization
type OrderLineVoidedEvent struct {
	shared.BaseDomainEvent
	OrderID      uuid.UUID `json:"order_id"`
	LineID       uuid.UUID `json:"line_id"`
	Reason       string    `json:"reason"`
	AuthorizedBy uuid.UUID `json:"authorized_by"`
	Wasted       bool      `json:"wasted"`
}

func NewOrderLineVoidedEvent(o *Order, line *Line, authorizedBy uuid.UUID, wasted bool) *OrderLineVoidedEvent {
	return &OrderLineVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderLineVoided, AggregateTypeOrder, o.ID, o.TenantID),
		OrderID:         o.ID,
		LineID:          line.ID,
		Reason:          line.VoidReason,
		AuthorizedBy:    authorizedBy,
		Wasted:          wasted,
	}
}
