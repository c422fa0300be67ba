package models

import (
	"time"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/tenant"
	"github.com/google/uuid"
)

// TenantModel is the tenant registry row. It is the only table written
// without a bound tenant, and only through the provisioning path.
type TenantModel struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey"`
	Name      string        `gorm:"type:varchar(200);not null"`
	Slug      string        `gorm:"type:varchar(63);not null;uniqueIndex"`
	Status    tenant.Status `gorm:"type:varchar(20);not null"`
	CreatedAt time.Time     `gorm:"not null"`
	UpdatedAt time.Time     `gorm:"not null"`
}

func (TenantModel) TableName() string {
	return "tenants"
}

func (TenantModel) TenantRegistry() {}

func (m *TenantModel) ToDomain() *tenant.Tenant {
	return &tenant.Tenant{
		ID:        m.ID,
		Name:      m.Name,
		Slug:      m.Slug,
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func TenantModelFromDomain(t *tenant.Tenant) *TenantModel {
	return &TenantModel{
		ID:        t.ID,
		Name:      t.Name,
		Slug:      t.Slug,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}
