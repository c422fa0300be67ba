// Package tenant registers tenants. Provisioning is the only write that runs
// without a bound tenant.
package tenant

import (
	"context"
	"strings"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	domaintenant "github.com/fxavier/restaurant-pro-api-sub000/internal/domain/tenant"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProvisioningContext marks ctx as the whitelisted provisioning path
type ProvisioningContext func(ctx context.Context) context.Context

// ProvisioningService creates and lists tenants on behalf of platform operators
type ProvisioningService struct {
	repo         domaintenant.Repository
	provisioning ProvisioningContext
	logger       *zap.Logger
}

func NewProvisioningService(repo domaintenant.Repository, provisioning ProvisioningContext, logger *zap.Logger) *ProvisioningService {
	return &ProvisioningService{
		repo:         repo,
		provisioning: provisioning,
		logger:       logger,
	}
}

// Provision creates an ACTIVE tenant. The slug is unique across the platform.
func (s *ProvisioningService) Provision(ctx context.Context, scope shared.Scope, req ProvisionRequest) (*TenantResponse, error) {
	if err := scope.Authorize(shared.PermissionProvisionTenants); err != nil {
		return nil, err
	}

	t, err := domaintenant.New(strings.TrimSpace(req.Name), strings.ToLower(strings.TrimSpace(req.Slug)))
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsBySlug(ctx, t.Slug)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError(shared.ErrAlreadyExists.Code, "Tenant slug is already taken")
	}

	if err := s.repo.Create(s.provisioning(ctx), t); err != nil {
		return nil, err
	}

	s.logger.Info("Tenant provisioned",
		zap.String("tenant_id", t.ID.String()),
		zap.String("slug", t.Slug),
		zap.String("actor_id", scope.ActorID.String()),
	)
	return ToTenantResponse(t), nil
}

// Get returns a tenant. Operators may read any tenant; everyone else only
// their own.
func (s *ProvisioningService) Get(ctx context.Context, scope shared.Scope, id uuid.UUID) (*TenantResponse, error) {
	if !scope.Has(shared.PermissionProvisionTenants) && scope.TenantID != id {
		return nil, shared.NewDomainError(shared.ErrNotFound.Code, "Tenant not found")
	}
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToTenantResponse(t), nil
}

// ListActive returns every ACTIVE tenant
func (s *ProvisioningService) ListActive(ctx context.Context, scope shared.Scope) ([]*TenantResponse, error) {
	if err := scope.Authorize(shared.PermissionProvisionTenants); err != nil {
		return nil, err
	}
	tenants, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*TenantResponse, len(tenants))
	for i, t := range tenants {
		out[i] = ToTenantResponse(t)
	}
	return out, nil
}

// ActiveTenantIDs lists the tenants background workers iterate over
func (s *ProvisioningService) ActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	tenants, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(tenants))
	for i, t := range tenants {
		ids[i] = t.ID
	}
	return ids, nil
}
