package payment

import (
	"time"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/payment"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProcessPaymentRequest tenders an amount against an order. The idempotency
// key is chosen by the terminal and reused on every retry of the same tender.
type ProcessPaymentRequest struct {
	OrderID        uuid.UUID       `json:"order_id" binding:"required"`
	Amount         decimal.Decimal `json:"amount" binding:"money"`
	Method         string          `json:"method" binding:"required,oneof=CASH CARD MOBILE VOUCHER"`
	IdempotencyKey string          `json:"idempotency_key" binding:"required,min=1,max=128"`
	RegisterID     *uuid.UUID      `json:"register_id"`
}

type VoidPaymentRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// SplitBillRequest asks how an order's remaining balance divides into shares
type SplitBillRequest struct {
	Shares int `json:"shares" binding:"required,min=1,max=50"`
}

// PaymentResult is the outcome of ProcessPayment. The same value is stored in
// the idempotency ledger and returned, with Replayed set, for retries.
type PaymentResult struct {
	PaymentID    uuid.UUID       `json:"payment_id"`
	OrderID      uuid.UUID       `json:"order_id"`
	Amount       decimal.Decimal `json:"amount"`
	Method       string          `json:"method"`
	Status       string          `json:"status"`
	Change       decimal.Decimal `json:"change"`
	OrderStatus  string          `json:"order_status"`
	OrderClosed  bool            `json:"order_closed"`
	PaidTotal    decimal.Decimal `json:"paid_total"`
	RemainingDue decimal.Decimal `json:"remaining_due"`
	Replayed     bool            `json:"replayed"`
}

// PaymentResponse is the API view of a stored payment
type PaymentResponse struct {
	ID             uuid.UUID       `json:"id"`
	OrderID        uuid.UUID       `json:"order_id"`
	Amount         decimal.Decimal `json:"amount"`
	Method         string          `json:"method"`
	Status         string          `json:"status"`
	Change         decimal.Decimal `json:"change"`
	IdempotencyKey string          `json:"idempotency_key"`
	RegisterID     *uuid.UUID      `json:"register_id,omitempty"`
	Version        int             `json:"version"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	VoidedAt       *time.Time      `json:"voided_at,omitempty"`
	VoidReason     string          `json:"void_reason,omitempty"`
}

// SplitBillResponse lists equal shares of the remaining balance; the last
// share absorbs the rounding remainder
type SplitBillResponse struct {
	OrderID      uuid.UUID         `json:"order_id"`
	RemainingDue decimal.Decimal   `json:"remaining_due"`
	Shares       []decimal.Decimal `json:"shares"`
}

func ToPaymentResponse(p *payment.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:             p.ID,
		OrderID:        p.OrderID,
		Amount:         p.Amount,
		Method:         p.Method.String(),
		Status:         p.Status.String(),
		Change:         p.Change,
		IdempotencyKey: p.IdempotencyKey,
		RegisterID:     p.RegisterID,
		Version:        p.Version,
		CompletedAt:    p.CompletedAt,
		VoidedAt:       p.VoidedAt,
		VoidReason:     p.VoidReason,
	}
}
