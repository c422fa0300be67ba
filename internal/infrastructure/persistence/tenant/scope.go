// Package tenant binds a shared.Scope to a unit of work and enforces it at the
// storage layer.
//
// A scope is bound once per inbound operation:
//
//	ctx, release := tenant.Bind(ctx, scope)
//	defer release()
//
// Every tenant-owned statement issued with that context gets an explicit
// tenant_id predicate. Statements issued without a bound scope, or after the
// binding was released, fail with shared.ErrMissingTenantContext before they
// reach the database.
package tenant

import (
	"context"
	"sync/atomic"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Column is the tenant discriminator column on every tenant-owned table
const Column = "tenant_id"

type bindingKey struct{}
type provisioningKey struct{}

type binding struct {
	scope    shared.Scope
	released atomic.Bool
}

// Bind attaches scope to ctx. The returned release func ends the binding: any
// later lookup through a context derived from the returned one fails, even if
// that context is still held by a pooled goroutine. release is idempotent.
func Bind(ctx context.Context, scope shared.Scope) (context.Context, func()) {
	b := &binding{scope: scope}
	ctx = context.WithValue(ctx, bindingKey{}, b)
	if scope.TenantID != uuid.Nil {
		ctx, _ = logger.WithTenantID(ctx, logger.FromContext(ctx), scope.TenantID.String())
	}
	return ctx, func() { b.released.Store(true) }
}

// FromContext returns the bound scope or shared.ErrMissingTenantContext
func FromContext(ctx context.Context) (shared.Scope, error) {
	if ctx == nil {
		return shared.Scope{}, shared.ErrMissingTenantContext
	}
	b, ok := ctx.Value(bindingKey{}).(*binding)
	if !ok || b.released.Load() {
		return shared.Scope{}, shared.ErrMissingTenantContext
	}
	if err := b.scope.Validate(); err != nil {
		return shared.Scope{}, err
	}
	return b.scope, nil
}

// TenantID is FromContext narrowed to the tenant identifier
func TenantID(ctx context.Context) (uuid.UUID, error) {
	scope, err := FromContext(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	return scope.TenantID, nil
}

// Provisioning marks ctx as the tenant-creation path. It is the only context
// under which the tenants table may be written; it grants nothing on
// tenant-owned tables.
func Provisioning(ctx context.Context) context.Context {
	return context.WithValue(ctx, provisioningKey{}, true)
}

// IsProvisioning reports whether ctx was produced by Provisioning
func IsProvisioning(ctx context.Context) bool {
	v, _ := ctx.Value(provisioningKey{}).(bool)
	return v
}

// Scoped adds the tenant predicate for tenantID
func Scoped(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(predicate(tenantID))
	}
}

func predicate(tenantID uuid.UUID) clause.Expression {
	return clause.Eq{Column: clause.Column{Table: clause.CurrentTable, Name: Column}, Value: tenantID}
}

// DB returns db bound to ctx and filtered by the bound tenant. Without a
// binding the returned handle carries ErrMissingTenantContext, so any
// statement built on it fails without touching the database.
func DB(ctx context.Context, db *gorm.DB) *gorm.DB {
	tx := db.WithContext(ctx)
	tenantID, err := TenantID(ctx)
	if err != nil {
		_ = tx.AddError(err)
		return tx
	}
	return tx.Scopes(Scoped(tenantID))
}
