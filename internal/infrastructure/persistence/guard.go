package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GuardedUpdate writes values to the tenant's row id in a single statement
//
//	UPDATE t SET ..., version = version + 1 WHERE id = ? AND version = ? AND tenant_id = ?
//
// and fails with shared.ErrConcurrentModification when no row matched. It
// never retries; callers reload and decide. values must not contain version.
func GuardedUpdate(ctx context.Context, db *gorm.DB, model any, id uuid.UUID, expectedVersion int, values map[string]any) error {
	assignments := make(map[string]any, len(values)+2)
	for k, v := range values {
		assignments[k] = v
	}
	assignments["version"] = gorm.Expr("version + 1")
	if _, ok := assignments["updated_at"]; !ok {
		assignments["updated_at"] = time.Now()
	}

	result := tenant.DB(ctx, db).
		Model(model).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(assignments)
	if result.Error != nil {
		return fmt.Errorf("guarded update of %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrentModification
	}
	return nil
}
