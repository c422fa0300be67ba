package tenant

import (
	"time"

	domaintenant "github.com/fxavier/restaurant-pro-api-sub000/internal/domain/tenant"
	"github.com/google/uuid"
)

// ProvisionRequest registers a new tenant
type ProvisionRequest struct {
	Name string `json:"name" binding:"required,max=200"`
	Slug string `json:"slug" binding:"required,max=63"`
}

// TenantResponse is the API view of a tenant
type TenantResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func ToTenantResponse(t *domaintenant.Tenant) *TenantResponse {
	return &TenantResponse{
		ID:        t.ID,
		Name:      t.Name,
		Slug:      t.Slug,
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt,
	}
}
