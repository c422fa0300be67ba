package tenant

import (
	"context"
	"reflect"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// Owned is implemented by persistence models whose rows belong to one tenant.
// Statements against these tables cannot run without a bound scope.
type Owned interface {
	TenantOwned()
}

// Provisioned is implemented by the tenants table model. Writes to it are
// accepted only under a Provisioning context.
type Provisioned interface {
	TenantRegistry()
}

// ErrTenantMismatch is returned when a row is created for a tenant other than
// the bound one
var ErrTenantMismatch = shared.NewDomainError(shared.ErrForbidden.Code, "Row belongs to a different tenant than the bound scope")

var errProvisioningOnly = shared.NewDomainError(shared.ErrForbidden.Code, "Tenant registry can only be written by provisioning")

// Enforce registers gorm callbacks that make unscoped access to tenant-owned
// tables structurally impossible:
//   - SELECT, UPDATE, DELETE and row queries get a tenant_id = ? predicate for
//     the bound tenant, or fail with ErrMissingTenantContext
//   - INSERT stamps the bound tenant on zero tenant ids and rejects rows
//     stamped with another tenant
//   - writes to the tenant registry require a Provisioning context
//
// Raw SQL without a model is not inspected and must carry its own predicate.
func Enforce(db *gorm.DB) error {
	cb := db.Callback()
	if err := cb.Query().Before("gorm:query").Register("tenant:query", scopeFilter); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register("tenant:row", scopeFilter); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("tenant:update", scopeWrite); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("tenant:delete", scopeWrite); err != nil {
		return err
	}
	return cb.Create().Before("gorm:create").Register("tenant:create", stampCreate)
}

func scopeFilter(db *gorm.DB) {
	if db.Error != nil || !isOwned(db.Statement) {
		return
	}
	addPredicate(db)
}

func scopeWrite(db *gorm.DB) {
	if db.Error != nil {
		return
	}
	if isProvisioned(db.Statement) {
		if !IsProvisioning(statementContext(db)) {
			_ = db.AddError(errProvisioningOnly)
		}
		return
	}
	if isOwned(db.Statement) {
		addPredicate(db)
	}
}

func addPredicate(db *gorm.DB) {
	tenantID, err := TenantID(statementContext(db))
	if err != nil {
		_ = db.AddError(err)
		return
	}
	if hasTenantPredicate(db.Statement, tenantID) {
		return
	}
	db.Statement.AddClause(clause.Where{Exprs: []clause.Expression{predicate(tenantID)}})
}

func stampCreate(db *gorm.DB) {
	if db.Error != nil {
		return
	}
	ctx := statementContext(db)
	if isProvisioned(db.Statement) {
		if !IsProvisioning(ctx) {
			_ = db.AddError(errProvisioningOnly)
		}
		return
	}
	if !isOwned(db.Statement) {
		return
	}
	tenantID, err := TenantID(ctx)
	if err != nil {
		_ = db.AddError(err)
		return
	}
	field := db.Statement.Schema.LookUpField(Column)
	if field == nil {
		return
	}

	rv := db.Statement.ReflectValue
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := stampRow(ctx, field, reflect.Indirect(rv.Index(i)), tenantID); err != nil {
				_ = db.AddError(err)
				return
			}
		}
	case reflect.Struct:
		if err := stampRow(ctx, field, rv, tenantID); err != nil {
			_ = db.AddError(err)
		}
	}
}

func stampRow(ctx context.Context, field *schema.Field, row reflect.Value, tenantID uuid.UUID) error {
	value, zero := field.ValueOf(ctx, row)
	if zero {
		return field.Set(ctx, row, tenantID)
	}
	if id, ok := value.(uuid.UUID); ok && id != tenantID {
		return ErrTenantMismatch
	}
	return nil
}

func statementContext(db *gorm.DB) context.Context {
	if db.Statement.Context != nil {
		return db.Statement.Context
	}
	return context.Background()
}

func isOwned(stmt *gorm.Statement) bool {
	return modelImplements[Owned](stmt)
}

func isProvisioned(stmt *gorm.Statement) bool {
	return modelImplements[Provisioned](stmt)
}

func modelImplements[T any](stmt *gorm.Statement) bool {
	if stmt.Schema == nil || stmt.Schema.ModelType == nil {
		return false
	}
	_, ok := reflect.New(stmt.Schema.ModelType).Interface().(T)
	return ok
}

// hasTenantPredicate reports whether the WHERE clause already pins the table
// to tenantID with an equality on the tenant column. Any other tenant
// condition is left alone and the bound predicate is added on top of it.
func hasTenantPredicate(stmt *gorm.Statement, tenantID uuid.UUID) bool {
	c, ok := stmt.Clauses["WHERE"]
	if !ok {
		return false
	}
	where, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	for _, expr := range where.Exprs {
		eq, ok := expr.(clause.Eq)
		if !ok || !columnIsTenant(eq.Column) {
			continue
		}
		if id, ok := eq.Value.(uuid.UUID); ok && id == tenantID {
			return true
		}
	}
	return false
}

func columnIsTenant(col any) bool {
	switch c := col.(type) {
	case clause.Column:
		return c.Name == Column
	case string:
		return c == Column
	}
	return false
}
