package models

import (
	"time"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderModel is the GORM model for the orders table
type OrderModel struct {
	TenantAggregateModel
	SiteID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	TableRef    *string         `gorm:"type:varchar(50)"`
	Status      order.Status    `gorm:"type:varchar(20);not null;index"`
	Total       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	VoidReason  string          `gorm:"type:varchar(500)"`
	ConfirmedAt *time.Time
	ClosedAt    *time.Time
	VoidedAt    *time.Time
	Lines       []OrderLineModel `gorm:"foreignKey:OrderID;references:ID"`
}

func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the model and its loaded lines to a domain Order
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		TenantAggregateRoot: m.ToDomainRoot(),
		SiteID:              m.SiteID,
		TableRef:            m.TableRef,
		Status:              m.Status,
		Total:               m.Total,
		VoidReason:          m.VoidReason,
		ConfirmedAt:         m.ConfirmedAt,
		ClosedAt:            m.ClosedAt,
		VoidedAt:            m.VoidedAt,
		Lines:               make([]*order.Line, 0, len(m.Lines)),
	}
	for i := range m.Lines {
		o.Lines = append(o.Lines, m.Lines[i].ToDomain())
	}
	return o
}

// OrderModelFromDomain creates the order model with its lines
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{
		SiteID:      o.SiteID,
		TableRef:    o.TableRef,
		Status:      o.Status,
		Total:       o.Total,
		VoidReason:  o.VoidReason,
		ConfirmedAt: o.ConfirmedAt,
		ClosedAt:    o.ClosedAt,
		VoidedAt:    o.VoidedAt,
		Lines:       OrderLineModelsFromDomain(o.TenantID, o.Lines),
	}
	m.TenantAggregateModel.FromDomain(o.TenantAggregateRoot)
	return m
}

// OrderLineModel is the GORM model for the order_lines table
type OrderLineModel struct {
	ID         uuid.UUID        `gorm:"type:uuid;primaryKey"`
	TenantID   uuid.UUID        `gorm:"type:uuid;not null;index"`
	OrderID    uuid.UUID        `gorm:"type:uuid;not null;index"`
	MenuItemID uuid.UUID        `gorm:"type:uuid;not null"`
	Name       string           `gorm:"type:varchar(200);not null"`
	Station    string           `gorm:"type:varchar(50)"`
	Quantity   int              `gorm:"not null"`
	UnitPrice  decimal.Decimal  `gorm:"type:decimal(18,2);not null"`
	Notes      []string         `gorm:"type:jsonb;serializer:json"`
	Status     order.LineStatus `gorm:"type:varchar(20);not null"`
	VoidReason string           `gorm:"type:varchar(500)"`
	CreatedAt  time.Time        `gorm:"not null"`
	UpdatedAt  time.Time        `gorm:"not null"`
}

func (OrderLineModel) TableName() string {
	return "order_lines"
}

func (OrderLineModel) TenantOwned() {}

func (m *OrderLineModel) ToDomain() *order.Line {
	return &order.Line{
		ID:         m.ID,
		OrderID:    m.OrderID,
		MenuItemID: m.MenuItemID,
		Name:       m.Name,
		Station:    m.Station,
		Quantity:   m.Quantity,
		UnitPrice:  m.UnitPrice,
		Notes:      m.Notes,
		Status:     m.Status,
		VoidReason: m.VoidReason,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// OrderLineModelsFromDomain stamps every line with the owning tenant
func OrderLineModelsFromDomain(tenantID uuid.UUID, lines []*order.Line) []OrderLineModel {
	out := make([]OrderLineModel, 0, len(lines))
	for _, l := range lines {
		out = append(out, OrderLineModel{
			ID:         l.ID,
			TenantID:   tenantID,
			OrderID:    l.OrderID,
			MenuItemID: l.MenuItemID,
			Name:       l.Name,
			Station:    l.Station,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
			Notes:      l.Notes,
			Status:     l.Status,
			VoidReason: l.VoidReason,
			CreatedAt:  l.CreatedAt,
			UpdatedAt:  l.UpdatedAt,
		})
	}
	return out
}

// ConsumptionModel is one confirmed line's stock consumption record
type ConsumptionModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_consumptions_tenant_line,priority:1"`
	OrderID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_consumptions_tenant_line,priority:2"`
	SiteID     uuid.UUID       `gorm:"type:uuid;not null"`
	MenuItemID uuid.UUID       `gorm:"type:uuid;not null"`
	Name       string          `gorm:"type:varchar(200);not null"`
	Quantity   int             `gorm:"not null"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ConsumedAt time.Time       `gorm:"not null"`
}

func (ConsumptionModel) TableName() string {
	return "order_consumptions"
}

func (ConsumptionModel) TenantOwned() {}

func (m *ConsumptionModel) ToDomain() order.Consumption {
	return order.Consumption{
		ID:         m.ID,
		TenantID:   m.TenantID,
		OrderID:    m.OrderID,
		LineID:     m.LineID,
		SiteID:     m.SiteID,
		MenuItemID: m.MenuItemID,
		Name:       m.Name,
		Quantity:   m.Quantity,
		UnitPrice:  m.UnitPrice,
		Amount:     m.Amount,
		ConsumedAt: m.ConsumedAt,
	}
}

func ConsumptionModelFromDomain(c order.Consumption) ConsumptionModel {
	return ConsumptionModel{
		ID:         c.ID,
		TenantID:   c.TenantID,
		OrderID:    c.OrderID,
		LineID:     c.LineID,
		SiteID:     c.SiteID,
		MenuItemID: c.MenuItemID,
		Name:       c.Name,
		Quantity:   c.Quantity,
		UnitPrice:  c.UnitPrice,
		Amount:     c.Amount,
		ConsumedAt: c.ConsumedAt,
	}
}

// WasteRecordModel records a confirmed line voided after preparation started
type WasteRecordModel struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineID       uuid.UUID       `gorm:"type:uuid;not null"`
	MenuItemID   uuid.UUID       `gorm:"type:uuid;not null"`
	Name         string          `gorm:"type:varchar(200);not null"`
	Quantity     int             `gorm:"not null"`
	Amount       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Reason       string          `gorm:"type:varchar(500);not null"`
	AuthorizedBy uuid.UUID       `gorm:"type:uuid;not null"`
	RecordedAt   time.Time       `gorm:"not null"`
}

func (WasteRecordModel) TableName() string {
	return "waste_records"
}

func (WasteRecordModel) TenantOwned() {}

func WasteRecordModelFromDomain(w *order.WasteRecord) *WasteRecordModel {
	return &WasteRecordModel{
		ID:           w.ID,
		TenantID:     w.TenantID,
		OrderID:      w.OrderID,
		LineID:       w.LineID,
		MenuItemID:   w.MenuItemID,
		Name:         w.Name,
		Quantity:     w.Quantity,
		Amount:       w.Amount,
		Reason:       w.Reason,
		AuthorizedBy: w.AuthorizedBy,
		RecordedAt:   w.RecordedAt,
	}
}
