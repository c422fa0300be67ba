package handler

import (
	"github.com/fxavier/restaurant-pro-api-sub000/internal/application/payment"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// IdempotencyKeyHeader may carry the tender's idempotency key instead of the
// body field
const IdempotencyKeyHeader = "Idempotency-Key"

// PaymentHandler exposes tendering, voids and bill splitting
type PaymentHandler struct {
	BaseHandler
	paymentService *payment.PaymentService
}

func NewPaymentHandler(paymentService *payment.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// Routes registers /payments and the per-order payment views
func (h *PaymentHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("payments", "")
	g.POST("/payments", h.Process)
	g.GET("/payments/:id", h.Get)
	g.POST("/payments/:id/void", h.Void)
	g.GET("/orders/:id/payments", h.ListByOrder)
	g.POST("/orders/:id/split", h.SplitBill)
	return g
}

// Process tenders a payment. A retry with a known idempotency key answers 200
// with the stored result; a fresh tender answers 201.
func (h *PaymentHandler) Process(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	var req payment.ProcessPaymentRequest
	if key := c.GetHeader(IdempotencyKeyHeader); key != "" {
		req.IdempotencyKey = key
	}
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.paymentService.ProcessPayment(c.Request.Context(), scope, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.Replayed {
		h.Success(c, result)
		return
	}
	h.Created(c, result)
}

func (h *PaymentHandler) Get(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	resp, err := h.paymentService.Get(c.Request.Context(), scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func (h *PaymentHandler) Void(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req payment.VoidPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.paymentService.VoidPayment(c.Request.Context(), scope, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func (h *PaymentHandler) ListByOrder(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	resp, err := h.paymentService.ListByOrder(c.Request.Context(), scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// SplitBill divides the order's remaining balance into equal shares
func (h *PaymentHandler) SplitBill(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req payment.SplitBillRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.paymentService.SplitBill(c.Request.Context(), scope, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
