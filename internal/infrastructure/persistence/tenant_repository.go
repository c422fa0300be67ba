package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	domaintenant "github.com/fxavier/restaurant-pro-api-sub000/internal/domain/tenant"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTenantRepository implements the tenant registry. Writes succeed only
// under tenant.Provisioning; the registry callbacks reject anything else.
type GormTenantRepository struct {
	db *gorm.DB
}

// NewGormTenantRepository creates a new GormTenantRepository
func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

func (r *GormTenantRepository) Create(ctx context.Context, t *domaintenant.Tenant) error {
	if err := r.db.WithContext(ctx).Create(models.TenantModelFromDomain(t)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewDomainError(shared.ErrAlreadyExists.Code, "Tenant slug is already taken")
		}
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

func (r *GormTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*domaintenant.Tenant, error) {
	var model models.TenantModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(shared.ErrNotFound.Code, "Tenant not found")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

func (r *GormTenantRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.TenantModel{}).
		Where("slug = ?", slug).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListActive returns every ACTIVE tenant ordered by slug
func (r *GormTenantRepository) ListActive(ctx context.Context) ([]*domaintenant.Tenant, error) {
	var rows []models.TenantModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", domaintenant.StatusActive).
		Order("slug ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	tenants := make([]*domaintenant.Tenant, len(rows))
	for i := range rows {
		tenants[i] = rows[i].ToDomain()
	}
	return tenants, nil
}

var _ domaintenant.Repository = (*GormTenantRepository)(nil)
