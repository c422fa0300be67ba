package persistence

import (
	"context"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/order"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const guardedOrderUpdate = `UPDATE "orders" SET .*"version"=version \+ 1.* WHERE \(id = \$\d+ AND version = \$\d+\) AND "orders"."tenant_id" = \$\d+`

func TestGuardedUpdate_SingleStatementWithTenantPredicate(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	ctx := bound(t, uuid.New())
	id := uuid.New()

	mock.ExpectExec(guardedOrderUpdate).WillReturnResult(sqlmock.NewResult(0, 1))

	err := GuardedUpdate(ctx, db.DB, &models.OrderModel{}, id, 3, map[string]any{"status": order.StatusConfirmed})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuardedUpdate_StaleVersion(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	mock.ExpectExec(guardedOrderUpdate).WillReturnResult(sqlmock.NewResult(0, 0))

	err := GuardedUpdate(bound(t, uuid.New()), db.DB, &models.OrderModel{}, uuid.New(), 1, map[string]any{"status": order.StatusVoided})
	assert.ErrorIs(t, err, shared.ErrConcurrentModification)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuardedUpdate_WithoutScopeNeverReachesDatabase(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	err := GuardedUpdate(context.Background(), db.DB, &models.OrderModel{}, uuid.New(), 1, map[string]any{"status": order.StatusVoided})
	assert.ErrorIs(t, err, shared.ErrMissingTenantContext)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuardedUpdate_ConcurrentWritersOneWins(t *testing.T) {
	db := newSQLiteDB(t)
	tenantID := uuid.New()
	ctx := bound(t, tenantID)
	repo := NewGormOrderRepository(db)

	o, err := order.NewOrder(tenantID, uuid.New(), nil)
	require.NoError(t, err)
	_, err = o.AddLine(uuid.New(), "Soup", "kitchen", 1, money("6.50"))
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, o))

	const writers = 2
	errs := make([]error, writers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			copyOf, err := repo.FindByID(ctx, o.ID)
			if err != nil {
				errs[i] = err
				return
			}
			errs[i] = repo.Save(ctx, copyOf, 1)
		}(i)
	}
	close(start)
	wg.Wait()

	var won, conflicted int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case assert.ErrorIs(t, err, shared.ErrConcurrentModification):
			conflicted++
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, conflicted)

	stored, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.GetVersion(), "final version is initial + 1")
}
