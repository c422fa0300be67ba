package order

import (
	"time"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateOrderRequest opens an order at a site. TableRef is empty for delivery.
type CreateOrderRequest struct {
	SiteID   uuid.UUID `json:"site_id" binding:"required"`
	TableRef string    `json:"table_ref" binding:"max=50"`
}

// AddLineRequest appends an item to an OPEN order
type AddLineRequest struct {
	ExpectedVersion int             `json:"expected_version" binding:"required,min=1"`
	MenuItemID      uuid.UUID       `json:"menu_item_id" binding:"required"`
	Name            string          `json:"name" binding:"required,min=1,max=200"`
	Station         string          `json:"station" binding:"max=50"`
	Quantity        int             `json:"quantity" binding:"required,min=1"`
	UnitPrice       decimal.Decimal `json:"unit_price" binding:"money"`
	Notes           []string        `json:"notes"`
}

type UpdateLineRequest struct {
	ExpectedVersion int             `json:"expected_version" binding:"required,min=1"`
	Quantity        int             `json:"quantity" binding:"required,min=1"`
	UnitPrice       decimal.Decimal `json:"unit_price" binding:"money"`
}

// VoidLineRequest voids a line. RecordWaste only applies after confirmation.
type VoidLineRequest struct {
	ExpectedVersion int    `json:"expected_version" binding:"required,min=1"`
	Reason          string `json:"reason" binding:"max=500"`
	RecordWaste     bool   `json:"record_waste"`
}

type ConfirmOrderRequest struct {
	ExpectedVersion int `json:"expected_version" binding:"required,min=1"`
}

type VoidOrderRequest struct {
	ExpectedVersion int    `json:"expected_version" binding:"required,min=1"`
	Reason          string `json:"reason" binding:"required,min=1,max=500"`
}

// ListOrdersRequest filters order listings
type ListOrdersRequest struct {
	SiteID   *uuid.UUID `form:"site_id"`
	Status   string     `form:"status" binding:"omitempty,oneof=OPEN CONFIRMED CLOSED VOIDED"`
	Page     int        `form:"page" binding:"omitempty,min=1"`
	PageSize int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	SortBy   string     `form:"sort_by"`
	SortDir  string     `form:"sort_order" binding:"omitempty,oneof=asc desc ASC DESC"`
}

// OrderResponse is the API view of an order
type OrderResponse struct {
	ID          uuid.UUID       `json:"id"`
	TenantID    uuid.UUID       `json:"tenant_id"`
	SiteID      uuid.UUID       `json:"site_id"`
	TableRef    *string         `json:"table_ref,omitempty"`
	Status      string          `json:"status"`
	Total       decimal.Decimal `json:"total"`
	Version     int             `json:"version"`
	Lines       []LineResponse  `json:"lines"`
	VoidReason  string          `json:"void_reason,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	ConfirmedAt *time.Time      `json:"confirmed_at,omitempty"`
	ClosedAt    *time.Time      `json:"closed_at,omitempty"`
	VoidedAt    *time.Time      `json:"voided_at,omitempty"`
}

type LineResponse struct {
	ID         uuid.UUID       `json:"id"`
	MenuItemID uuid.UUID       `json:"menu_item_id"`
	Name       string          `json:"name"`
	Station    string          `json:"station,omitempty"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Amount     decimal.Decimal `json:"amount"`
	Notes      []string        `json:"notes,omitempty"`
	Status     string          `json:"status"`
	VoidReason string          `json:"void_reason,omitempty"`
}

// ConsumptionResponse is one confirmed line as recorded for reporting
type ConsumptionResponse struct {
	LineID     uuid.UUID       `json:"line_id"`
	MenuItemID uuid.UUID       `json:"menu_item_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	Amount     decimal.Decimal `json:"amount"`
	ConsumedAt time.Time       `json:"consumed_at"`
}

// VoidLineResult carries the updated order and the waste record, if any
type VoidLineResult struct {
	Order   *OrderResponse `json:"order"`
	WasteID *uuid.UUID     `json:"waste_id,omitempty"`
}

// ToOrderResponse converts a domain order
func ToOrderResponse(o *order.Order) *OrderResponse {
	lines := make([]LineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, LineResponse{
			ID:         l.ID,
			MenuItemID: l.MenuItemID,
			Name:       l.Name,
			Station:    l.Station,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
			Amount:     l.Amount(),
			Notes:      l.Notes,
			Status:     string(l.Status),
			VoidReason: l.VoidReason,
		})
	}
	return &OrderResponse{
		ID:          o.ID,
		TenantID:    o.TenantID,
		SiteID:      o.SiteID,
		TableRef:    o.TableRef,
		Status:      o.Status.String(),
		Total:       o.Total,
		Version:     o.Version,
		Lines:       lines,
		VoidReason:  o.VoidReason,
		CreatedAt:   o.CreatedAt,
		ConfirmedAt: o.ConfirmedAt,
		ClosedAt:    o.ClosedAt,
		VoidedAt:    o.VoidedAt,
	}
}
