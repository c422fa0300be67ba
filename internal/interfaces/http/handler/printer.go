package handler

import (
	"github.com/fxavier/restaurant-pro-api-sub000/internal/application/printing"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// PrinterHandler exposes printer configuration and the kitchen print queue
type PrinterHandler struct {
	BaseHandler
	printerService *printing.PrinterService
	dispatcher     *printing.PrintDispatcher
}

func NewPrinterHandler(printerService *printing.PrinterService, dispatcher *printing.PrintDispatcher) *PrinterHandler {
	return &PrinterHandler{
		printerService: printerService,
		dispatcher:     dispatcher,
	}
}

func (h *PrinterHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("printing", "")
	printers := g.Group("printers", "/printers")
	printers.POST("", h.Configure)
	printers.GET("", h.List)
	printers.POST("/dispatch", h.Dispatch)
	printers.GET("/:id", h.Get)
	printers.PUT("/:id", h.Update)
	printers.PUT("/:id/state", h.SetState)
	printers.POST("/:id/release", h.Release)
	g.GET("/orders/:id/print-jobs", h.JobsForOrder)
	return g
}

func (h *PrinterHandler) Configure(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	var req printing.CreatePrinterRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.printerService.Configure(c.Request.Context(), scope, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

func (h *PrinterHandler) List(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}

	resp, err := h.printerService.List(c.Request.Context(), scope)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func (h *PrinterHandler) Get(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	resp, err := h.printerService.Get(c.Request.Context(), scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func (h *PrinterHandler) Update(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req printing.UpdatePrinterRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.printerService.Update(c.Request.Context(), scope, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// SetState switches the printer between NORMAL, WAIT, IGNORE and REDIRECT.
// Redirect chains that loop back are rejected.
func (h *PrinterHandler) SetState(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}
	var req printing.SetPrinterStateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.printerService.SetState(c.Request.Context(), scope, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ReleaseResponse counts the held jobs put back in the queue
type ReleaseResponse struct {
	Released int `json:"released"`
}

func (h *PrinterHandler) Release(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	n, err := h.dispatcher.Release(c.Request.Context(), scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ReleaseResponse{Released: n})
}

// Dispatch runs one send pass over the caller's pending jobs
func (h *PrinterHandler) Dispatch(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}

	result, err := h.dispatcher.Dispatch(c.Request.Context(), scope)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func (h *PrinterHandler) JobsForOrder(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	resp, err := h.printerService.JobsForOrder(c.Request.Context(), scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
