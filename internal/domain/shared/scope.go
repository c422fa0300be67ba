package shared

import (
	"github.com/google/uuid"
)

// Permission names an elevated capability granted to the acting user.
type Permission string

const (
	PermissionVoidConfirmedLine Permission = "order:void-confirmed-line"
	PermissionVoidOrder         Permission = "order:void"
	PermissionVoidPayment       Permission = "payment:void"
	PermissionManageCash        Permission = "cash:manage"
	PermissionConfigurePrinters Permission = "printer:configure"
	PermissionAdminOutbox       Permission = "outbox:admin"

	// PermissionProvisionTenants is held by platform operators, whose scope
	// carries no tenant
	PermissionProvisionTenants Permission = "tenant:provision"
)

// Scope identifies who acts on behalf of which tenant for one unit of work.
// The authentication collaborator resolves it; the core trusts it for the
// duration of the operation.
type Scope struct {
	TenantID    uuid.UUID
	ActorID     uuid.UUID
	Permissions []Permission
}

// NewScope builds a scope. A nil tenant yields a scope that fails Validate.
func NewScope(tenantID, actorID uuid.UUID, perms ...Permission) Scope {
	return Scope{TenantID: tenantID, ActorID: actorID, Permissions: perms}
}

// Validate fails with ErrMissingTenantContext when no tenant is bound
func (s Scope) Validate() error {
	if s.TenantID == uuid.Nil {
		return ErrMissingTenantContext
	}
	return nil
}

// Has reports whether the actor holds perm
func (s Scope) Has(perm Permission) bool {
	for _, p := range s.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// Authorize fails with ErrForbidden unless the actor holds perm
func (s Scope) Authorize(perm Permission) error {
	if !s.Has(perm) {
		return NewDomainError(ErrForbidden.Code, "Missing permission: "+string(perm))
	}
	return nil
}
