// Package tenant holds the tenant registry entry. Tenants are the one record
// written before any scope exists.
package tenant

import (
	"context"
	"regexp"
	"time"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// Status of a tenant
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}$`)

// Tenant is an isolated customer organization
type Tenant struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New validates and creates an ACTIVE tenant
func New(name, slug string) (*Tenant, error) {
	if name == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Tenant name cannot be empty")
	}
	if !slugPattern.MatchString(slug) {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Tenant slug must be lowercase letters, digits and dashes")
	}
	now := time.Now()
	return &Tenant{
		ID:        uuid.New(),
		Name:      name,
		Slug:      slug,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (t *Tenant) IsActive() bool { return t.Status == StatusActive }

// Repository is the tenant registry. Create requires a provisioning context.
type Repository interface {
	Create(ctx context.Context, t *Tenant) error
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	ExistsBySlug(ctx context.Context, slug string) (bool, error)
	ListActive(ctx context.Context) ([]*Tenant, error)
}
