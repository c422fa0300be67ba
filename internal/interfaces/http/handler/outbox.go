package handler

import (
	"github.com/fxavier/restaurant-pro-api-sub000/internal/application/event"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// OutboxHandler handles outbox management HTTP requests
type OutboxHandler struct {
	BaseHandler
	outboxService *event.OutboxService
}

// NewOutboxHandler creates a new outbox handler
func NewOutboxHandler(outboxService *event.OutboxService) *OutboxHandler {
	return &OutboxHandler{outboxService: outboxService}
}

// Routes returns the /system/outbox route group
func (h *OutboxHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("outbox", "/system/outbox")
	g.GET("/stats", h.GetStats)
	g.GET("/dead", h.ListDead)
	g.POST("/dead/retry-all", h.RetryAllDead)
	g.GET("/:id", h.GetEntry)
	g.POST("/:id/retry", h.RetryDead)
	return g
}

// ListDead lists the caller's dead letter entries
func (h *OutboxHandler) ListDead(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	var filter event.OutboxFilter
	if !h.BindQuery(c, &filter) {
		return
	}

	result, err := h.outboxService.ListDead(c.Request.Context(), scope, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Entries, result.Total, result.Page, result.PageSize)
}

func (h *OutboxHandler) GetEntry(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	entry, err := h.outboxService.Get(c.Request.Context(), scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// RetryDead puts one dead entry back in the queue
func (h *OutboxHandler) RetryDead(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	entry, err := h.outboxService.RetryDead(c.Request.Context(), scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// RetryAllResponse represents the response for retry all operation
type RetryAllResponse struct {
	Count int64 `json:"count"`
}

func (h *OutboxHandler) RetryAllDead(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}

	count, err := h.outboxService.RetryAllDead(c.Request.Context(), scope)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, RetryAllResponse{Count: count})
}

func (h *OutboxHandler) GetStats(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}

	stats, err := h.outboxService.Stats(c.Request.Context(), scope)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
