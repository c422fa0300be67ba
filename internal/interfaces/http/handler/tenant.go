package handler

import (
	"github.com/fxavier/restaurant-pro-api-sub000/internal/application/tenant"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
)

// TenantHandler exposes tenant provisioning to operators
type TenantHandler struct {
	BaseHandler
	provisioning *tenant.ProvisioningService
}

func NewTenantHandler(provisioning *tenant.ProvisioningService) *TenantHandler {
	return &TenantHandler{provisioning: provisioning}
}

func (h *TenantHandler) Routes() *router.DomainGroup {
	g := router.NewDomainGroup("tenants", "/tenants")
	g.POST("", h.Provision)
	g.GET("", h.ListActive)
	g.GET("/:id", h.Get)
	return g
}

func (h *TenantHandler) Provision(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	var req tenant.ProvisionRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.provisioning.Provision(c.Request.Context(), scope, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

func (h *TenantHandler) ListActive(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}

	resp, err := h.provisioning.ListActive(c.Request.Context(), scope)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Get returns a tenant. Tenant users only see their own record.
func (h *TenantHandler) Get(c *gin.Context) {
	scope, ok := h.Scope(c)
	if !ok {
		return
	}
	id, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	resp, err := h.provisioning.Get(c.Request.Context(), scope, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
