package handler

import (
	"context"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/application/cashregister"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CashSessionHandler exposes the drawer shift of a register
type CashSessionHandler struct {
	BaseHandler
	sessionService *cashregister.SessionService
}

func NewCashSessionHandler(sessionService *cashregister.SessionService) *CashSessionHandler {
	return &CashSessionHandler{sessionService: sessionService}
}

func (h *CashSessionHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("cash-sessions", "/cash-sessions")
	g.POST("", h.Open)
	g.GET("/:id", h.Get)
	g.GET("/:id/movements", h.Movements)
	g.POST("/:id/deposits", h.Deposit)
	g.POST("/:id/withdrawals", h.Withdraw)
	g.POST("/:id/close", h.Close)
	return g
}

func (h *CashSessionHandler) Open(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	var req cashregister.OpenSessionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.sessionService.Open(c.Request.Context(), scope, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

func (h *CashSessionHandler) Get(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	resp, err := h.sessionService.Get(c.Request.Context(), scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func (h *CashSessionHandler) Movements(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	resp, err := h.sessionService.Movements(c.Request.Context(), scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func (h *CashSessionHandler) Deposit(c *gin.Context) {
	h.movement(c, h.sessionService.Deposit)
}

func (h *CashSessionHandler) Withdraw(c *gin.Context) {
	h.movement(c, h.sessionService.Withdraw)
}

type movementFunc = func(ctx context.Context, scope shared.Scope, sessionID uuid.UUID, req cashregister.MovementRequest) (*cashregister.SessionResponse, error)

func (h *CashSessionHandler) movement(c *gin.Context, apply movementFunc) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req cashregister.MovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := apply(c.Request.Context(), scope, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Close counts the drawer and records the variance
func (h *CashSessionHandler) Close(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req cashregister.CloseSessionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.sessionService.Close(c.Request.Context(), scope, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
