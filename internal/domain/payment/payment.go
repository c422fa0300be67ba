// Package payment holds payments applied to orders, their void audit trail
// and the change and split-bill arithmetic.
package payment

import (
	"time"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Method is the tender type
type Method string

const (
	MethodCash    Method = "CASH"
	MethodCard    Method = "CARD"
	MethodMobile  Method = "MOBILE"
	MethodVoucher Method = "VOUCHER"
)

func (m Method) IsValid() bool {
	switch m {
	case MethodCash, MethodCard, MethodMobile, MethodVoucher:
		return true
	}
	return false
}

func (m Method) String() string { return string(m) }

// Status is the payment lifecycle state
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusVoided    Status = "VOIDED"
)

func (s Status) String() string { return string(s) }

// Payment is an amount tendered against an order. Orders are referenced by id
// only. A payment is never deleted; voiding flips its status.
type Payment struct {
	shared.TenantAggregateRoot
	OrderID        uuid.UUID
	Amount         decimal.Decimal
	Method         Method
	Status         Status
	IdempotencyKey string
	RegisterID     *uuid.UUID
	Change         decimal.Decimal
	TenderedBy     uuid.UUID
	CompletedAt    *time.Time
	VoidedAt       *time.Time
	VoidReason     string
}

// NewPayment builds a PENDING payment and validates its input.
// Amounts are rounded to cents before the positivity check.
func NewPayment(scope shared.Scope, orderID uuid.UUID, amount decimal.Decimal, method Method, idempotencyKey string, registerID *uuid.UUID) (*Payment, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	amount = valueobject.RoundMoney(amount)
	if !amount.IsPositive() {
		return nil, shared.ErrInsufficientAmount
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Unknown payment method: "+method.String())
	}
	if idempotencyKey == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Idempotency key is required")
	}
	if len(idempotencyKey) > MaxIdempotencyKeyLength {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Idempotency key is too long")
	}
	if method == MethodCash && registerID == nil {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Cash payments need a register")
	}
	return &Payment{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(scope.TenantID),
		OrderID:             orderID,
		Amount:              amount,
		Method:              method,
		Status:              StatusPending,
		IdempotencyKey:      idempotencyKey,
		RegisterID:          registerID,
		Change:              decimal.Zero,
		TenderedBy:          scope.ActorID,
	}, nil
}

// ErrDuplicateIdempotencyKey is raised by storage when a concurrent request
// created the payment for the same key first. Services answer it with the
// recorded outcome; callers never see it.
var ErrDuplicateIdempotencyKey = shared.NewDomainError("DUPLICATE_IDEMPOTENCY_KEY", "Idempotency key already used")

// MaxIdempotencyKeyLength bounds caller-supplied keys
const MaxIdempotencyKeyLength = 128

// Complete marks the payment COMPLETED against an order that still owed due
// and raises PaymentCompleted. Change is given for cash only.
func (p *Payment) Complete(due decimal.Decimal) error {
	if p.Status != StatusPending {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "Payment is "+p.Status.String())
	}
	if p.Method == MethodCash {
		p.Change = CalculateChange(due, p.Amount)
	}
	now := time.Now()
	p.Status = StatusCompleted
	p.CompletedAt = &now
	p.Touch()
	p.AddDomainEvent(NewPaymentCompletedEvent(p))
	return nil
}

// Retained is the part of the tender kept in the till: amount minus change
func (p *Payment) Retained() decimal.Decimal {
	return p.Amount.Sub(p.Change)
}

// Void flips a COMPLETED payment to VOIDED and returns the audit record.
// The scope must hold PermissionVoidPayment.
func (p *Payment) Void(scope shared.Scope, reason string) (*VoidAudit, error) {
	if err := scope.Authorize(shared.PermissionVoidPayment); err != nil {
		return nil, err
	}
	if p.Status == StatusVoided {
		return nil, shared.ErrAlreadyVoided
	}
	if reason == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Void reason is required")
	}
	previous := p.Status
	now := time.Now()
	p.Status = StatusVoided
	p.VoidedAt = &now
	p.VoidReason = reason
	p.Touch()
	p.AddDomainEvent(NewPaymentVoidedEvent(p, scope.ActorID))
	return &VoidAudit{
		ID:             uuid.New(),
		TenantID:       p.TenantID,
		PaymentID:      p.ID,
		OrderID:        p.OrderID,
		Amount:         p.Amount,
		Method:         p.Method,
		PreviousStatus: previous,
		Reason:         reason,
		VoidedBy:       scope.ActorID,
		VoidedAt:       now,
	}, nil
}

func (p *Payment) IsCompleted() bool { return p.Status == StatusCompleted }

// VoidAudit is the append-only trace of a payment void
type VoidAudit struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	PaymentID      uuid.UUID
	OrderID        uuid.UUID
	Amount         decimal.Decimal
	Method         Method
	PreviousStatus Status
	Reason         string
	VoidedBy       uuid.UUID
	VoidedAt       time.Time
}

// CalculateChange is max(0, tendered − total). It is only meaningful for cash.
func CalculateChange(total, tendered decimal.Decimal) decimal.Decimal {
	return valueobject.PositiveDifference(tendered, total)
}

// SplitAmount divides a bill into n shares that sum exactly to total; the last
// share carries the rounding remainder.
func SplitAmount(total decimal.Decimal, n int) ([]decimal.Decimal, error) {
	shares, err := valueobject.Split(total, n)
	if err != nil {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, err.Error())
	}
	return shares, nil
}

// SumCompleted adds the amounts of COMPLETED payments
func SumCompleted(payments []*Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		if p.IsCompleted() {
			total = total.Add(p.Amount)
		}
	}
	return total
}
