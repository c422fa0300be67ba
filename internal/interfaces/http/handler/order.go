package handler

import (
	"github.com/fxavier/restaurant-pro-api-sub000/internal/application/order"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// OrderHandler exposes the order lifecycle
type OrderHandler struct {
	BaseHandler
	orderService *order.OrderService
}

func NewOrderHandler(orderService *order.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// Routes returns the /orders route group. Lines are addressed as
// /orders/:id/lines/:line_id.
func (h *OrderHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("orders", "/orders")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("/:id/lines", h.AddLine)
	g.PUT("/:id/lines/:line_id", h.UpdateLine)
	g.POST("/:id/lines/:line_id/void", h.VoidLine)
	g.POST("/:id/lines/:line_id/void-confirmed", h.VoidConfirmedLine)
	g.POST("/:id/confirm", h.Confirm)
	g.POST("/:id/void", h.Void)
	g.GET("/:id/consumptions", h.Consumptions)
	return g
}

func (h *OrderHandler) Create(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	var req order.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.orderService.Create(c.Request.Context(), scope, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

func (h *OrderHandler) Get(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	resp, err := h.orderService.Get(c.Request.Context(), scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List returns a page of orders filtered by site and status
func (h *OrderHandler) List(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	var req order.ListOrdersRequest
	if !h.BindQuery(c, &req) {
		return
	}

	orders, total, err := h.orderService.List(c.Request.Context(), scope, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page := req.Page
	if page < 1 {
		page = 1
	}
	h.SuccessWithMeta(c, orders, total, page, req.PageSize)
}

func (h *OrderHandler) AddLine(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req order.AddLineRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.orderService.AddLine(c.Request.Context(), scope, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func (h *OrderHandler) UpdateLine(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	lineID, ok := h.ParamID(c, "line_id")
	if !ok {
		return
	}
	var req order.UpdateLineRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.orderService.UpdateLine(c.Request.Context(), scope, id, lineID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// VoidLine voids a line of an order that is still OPEN
func (h *OrderHandler) VoidLine(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	lineID, ok := h.ParamID(c, "line_id")
	if !ok {
		return
	}
	var req order.VoidLineRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.orderService.VoidLine(c.Request.Context(), scope, id, lineID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// VoidConfirmedLine voids a line that already went to the kitchen, optionally
// recording waste
func (h *OrderHandler) VoidConfirmedLine(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	lineID, ok := h.ParamID(c, "line_id")
	if !ok {
		return
	}
	var req order.VoidLineRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.orderService.VoidLineAfterConfirm(c.Request.Context(), scope, id, lineID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func (h *OrderHandler) Confirm(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req order.ConfirmOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.orderService.Confirm(c.Request.Context(), scope, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func (h *OrderHandler) Void(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req order.VoidOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.orderService.Void(c.Request.Context(), scope, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func (h *OrderHandler) Consumptions(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	resp, err := h.orderService.Consumptions(c.Request.Context(), scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
