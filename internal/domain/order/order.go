// Package order holds the order aggregate: lines, the OPEN → CONFIRMED →
// CLOSED state machine with VOIDED as the alternate exit, and the records it
// produces on confirmation and authorized voids.
package order

import (
	"time"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the aggregate root for a table or delivery ticket.
// Total always equals the sum of non-voided line amounts.
type Order struct {
	shared.TenantAggregateRoot
	SiteID      uuid.UUID
	TableRef    *string
	Status      Status
	Total       decimal.Decimal
	Lines       []*Line
	VoidReason  string
	ConfirmedAt *time.Time
	ClosedAt    *time.Time
	VoidedAt    *time.Time
}

// NewOrder creates an OPEN order. tableRef is nil for delivery orders.
func NewOrder(tenantID, siteID uuid.UUID, tableRef *string) (*Order, error) {
	if tenantID == uuid.Nil {
		return nil, shared.ErrMissingTenantContext
	}
	if siteID == uuid.Nil {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Site ID cannot be empty")
	}
	if tableRef != nil && *tableRef == "" {
		tableRef = nil
	}
	return &Order{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SiteID:              siteID,
		TableRef:            tableRef,
		Status:              StatusOpen,
		Total:               decimal.Zero,
		Lines:               make([]*Line, 0),
	}, nil
}

func (o *Order) requireStatus(allowed ...Status) error {
	for _, s := range allowed {
		if o.Status == s {
			return nil
		}
	}
	return shared.NewDomainError(shared.CodeInvalidOrderState, "Order is "+o.Status.String())
}

// AddLine appends a PENDING line. OPEN only.
func (o *Order) AddLine(menuItemID uuid.UUID, name, station string, quantity int, unitPrice decimal.Decimal, notes ...string) (*Line, error) {
	if err := o.requireStatus(StatusOpen); err != nil {
		return nil, err
	}
	line, err := newLine(o.ID, menuItemID, name, station, quantity, unitPrice, notes)
	if err != nil {
		return nil, err
	}
	o.Lines = append(o.Lines, line)
	o.recalculateTotal()
	return line, nil
}

// UpdateLine changes quantity and price of a PENDING line. OPEN only.
func (o *Order) UpdateLine(lineID uuid.UUID, quantity int, unitPrice decimal.Decimal) error {
	if err := o.requireStatus(StatusOpen); err != nil {
		return err
	}
	line, err := o.pendingLine(lineID)
	if err != nil {
		return err
	}
	if err := validateQuantityAndPrice(quantity, unitPrice); err != nil {
		return err
	}
	line.Quantity = quantity
	line.UnitPrice = valueobject.RoundMoney(unitPrice)
	line.UpdatedAt = time.Now()
	o.recalculateTotal()
	return nil
}

// VoidLine voids a PENDING line before anything reached the kitchen.
// No permission is needed.
func (o *Order) VoidLine(lineID uuid.UUID, reason string) error {
	if err := o.requireStatus(StatusOpen); err != nil {
		return err
	}
	line, err := o.pendingLine(lineID)
	if err != nil {
		return err
	}
	line.void(reason)
	o.recalculateTotal()
	return nil
}

// Confirm flips every PENDING line to CONFIRMED, returns one Consumption per
// flipped line and raises OrderConfirmed with the line snapshot.
func (o *Order) Confirm() ([]Consumption, error) {
	if err := o.requireStatus(StatusOpen); err != nil {
		return nil, err
	}
	pending := o.PendingLines()
	if len(pending) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidOrderState, "Order has no pending lines to confirm")
	}

	now := time.Now()
	consumptions := make([]Consumption, 0, len(pending))
	for _, l := range pending {
		l.Status = LineStatusConfirmed
		l.UpdatedAt = now
		consumptions = append(consumptions, Consumption{
			ID:         uuid.New(),
			TenantID:   o.TenantID,
			OrderID:    o.ID,
			LineID:     l.ID,
			SiteID:     o.SiteID,
			MenuItemID: l.MenuItemID,
			Name:       l.Name,
			Quantity:   l.Quantity,
			UnitPrice:  l.UnitPrice,
			Amount:     l.Amount(),
			ConsumedAt: now,
		})
	}
	o.Status = StatusConfirmed
	o.ConfirmedAt = &now
	o.Touch()
	o.AddDomainEvent(NewOrderConfirmedEvent(o, pending))
	return consumptions, nil
}

// VoidLineAfterConfirm voids a CONFIRMED line. The acting scope must hold
// PermissionVoidConfirmedLine. When recordWaste is set the prepared food is
// returned as a WasteRecord for the caller to persist.
func (o *Order) VoidLineAfterConfirm(scope shared.Scope, lineID uuid.UUID, reason string, recordWaste bool) (*WasteRecord, error) {
	if err := scope.Authorize(shared.PermissionVoidConfirmedLine); err != nil {
		return nil, err
	}
	if err := o.requireStatus(StatusConfirmed); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Void reason is required")
	}
	line := o.Line(lineID)
	if line == nil {
		return nil, shared.NewDomainError(shared.ErrNotFound.Code, "Order line not found")
	}
	if line.IsVoided() {
		return nil, shared.ErrAlreadyVoided
	}
	if !line.IsConfirmed() {
		return nil, shared.NewDomainError(shared.CodeInvalidOrderState, "Line is not confirmed")
	}

	var waste *WasteRecord
	if recordWaste {
		waste = &WasteRecord{
			ID:           uuid.New(),
			TenantID:     o.TenantID,
			OrderID:      o.ID,
			LineID:       line.ID,
			MenuItemID:   line.MenuItemID,
			Name:         line.Name,
			Quantity:     line.Quantity,
			Amount:       line.Amount(),
			Reason:       reason,
			AuthorizedBy: scope.ActorID,
			RecordedAt:   time.Now(),
		}
	}
	line.void(reason)
	o.recalculateTotal()
	o.Touch()
	o.AddDomainEvent(NewOrderLineVoidedEvent(o, line, scope.ActorID, recordWaste))
	return waste, nil
}

// ApplyPayment takes the cumulative completed-payment total and closes the
// order once it reaches the order total. Overpayment closes; underpayment
// never does. Returns whether this call closed the order.
func (o *Order) ApplyPayment(paidTotal decimal.Decimal) (bool, error) {
	if err := o.requireStatus(StatusOpen, StatusConfirmed); err != nil {
		return false, err
	}
	if paidTotal.LessThan(o.Total) {
		return false, nil
	}
	now := time.Now()
	o.Status = StatusClosed
	o.ClosedAt = &now
	o.Touch()
	o.AddDomainEvent(NewOrderClosedEvent(o, paidTotal))
	return true, nil
}

// Void ends the order without payment. Voiding a CONFIRMED order needs
// PermissionVoidOrder because its lines already reached the kitchen.
func (o *Order) Void(scope shared.Scope, reason string) error {
	if err := o.requireStatus(StatusOpen, StatusConfirmed); err != nil {
		return err
	}
	if o.Status == StatusConfirmed {
		if err := scope.Authorize(shared.PermissionVoidOrder); err != nil {
			return err
		}
	}
	if reason == "" {
		return shared.NewDomainError(shared.ErrInvalidInput.Code, "Void reason is required")
	}
	now := time.Now()
	o.Status = StatusVoided
	o.VoidReason = reason
	o.VoidedAt = &now
	o.Touch()
	o.AddDomainEvent(NewOrderVoidedEvent(o, scope.ActorID))
	return nil
}

// RemainingDue is what is still owed after paid, never negative
func (o *Order) RemainingDue(paid decimal.Decimal) decimal.Decimal {
	return valueobject.PositiveDifference(o.Total, paid)
}

// Line returns the line with id, or nil
func (o *Order) Line(id uuid.UUID) *Line {
	for _, l := range o.Lines {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// PendingLines returns the lines not yet sent to the kitchen
func (o *Order) PendingLines() []*Line {
	var out []*Line
	for _, l := range o.Lines {
		if l.IsPending() {
			out = append(out, l)
		}
	}
	return out
}

func (o *Order) pendingLine(id uuid.UUID) (*Line, error) {
	line := o.Line(id)
	if line == nil {
		return nil, shared.NewDomainError(shared.ErrNotFound.Code, "Order line not found")
	}
	if line.IsVoided() {
		return nil, shared.ErrAlreadyVoided
	}
	if !line.IsPending() {
		return nil, shared.NewDomainError(shared.CodeInvalidOrderState, "Line is already confirmed")
	}
	return line, nil
}

func (o *Order) recalculateTotal() {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Amount())
	}
	o.Total = valueobject.RoundMoney(total)
	o.Touch()
}
