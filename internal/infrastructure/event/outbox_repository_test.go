package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestGormOutboxRepository_ClaimUsesSkipLocked(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}),
		&gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "outbox_events" WHERE .*status IN.* FOR UPDATE SKIP LOCKED`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}))
	mock.ExpectCommit()

	claimed, err := NewGormOutboxRepository(db).MarkProcessing(context.Background(), []uuid.UUID{uuid.New()})
	require.NoError(t, err)
	assert.Empty(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormOutboxRepository_PendingAndClaim(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()

	first := newTestEvent(testEventType, uuid.New())
	seedOutbox(t, db, 0, first)
	time.Sleep(2 * time.Millisecond)
	seedOutbox(t, db, 0, newTestEvent(testEventType, uuid.New()))

	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.EventID(), pending[0].EventID, "oldest first")
	assert.Equal(t, shared.DefaultMaxRetries, pending[0].MaxRetries)

	ids := []uuid.UUID{pending[0].ID, pending[1].ID}
	claimed, err := repo.MarkProcessing(ctx, ids)
	require.NoError(t, err)
	assert.Len(t, claimed, 2)
	for _, e := range claimed {
		assert.Equal(t, shared.OutboxStatusProcessing, e.Status)
	}

	again, err := repo.MarkProcessing(ctx, ids)
	require.NoError(t, err)
	assert.Empty(t, again, "an entry is claimed once")
}

func TestGormOutboxRepository_ReleaseStale(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()

	seedOutbox(t, db, 3, newTestEvent(testEventType, uuid.New()))
	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	claimed, err := repo.MarkProcessing(ctx, []uuid.UUID{pending[0].ID})
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	released, err := repo.ReleaseStale(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Zero(t, released, "a fresh claim is left alone")

	released, err = repo.ReleaseStale(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)

	again, err := repo.MarkProcessing(ctx, []uuid.UUID{pending[0].ID})
	require.NoError(t, err)
	require.Len(t, again, 1, "a released entry can be claimed again")
	assert.Zero(t, again[0].RetryCount)
}

func TestGormOutboxRepository_RetryLifecycle(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()

	seedOutbox(t, db, 2, newTestEvent(testEventType, uuid.New()))
	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	entry := pending[0]

	entry.MarkFailed("timeout")
	require.NoError(t, repo.Update(ctx, entry))

	due, err := repo.FindRetryable(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, due, "backoff has not expired")

	due, err = repo.FindRetryable(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, 1, due[0].RetryCount)
	assert.Equal(t, "timeout", due[0].LastError)

	entry.MarkFailed("timeout again")
	require.NoError(t, repo.Update(ctx, entry))

	dead, total, err := repo.FindDead(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, dead, 1)
	assert.True(t, dead[0].IsDead())

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[shared.OutboxStatusDead])
}

func TestGormOutboxRepository_DeleteSentBefore(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormOutboxRepository(db)
	ctx := context.Background()

	seedOutbox(t, db, 0, newTestEvent(testEventType, uuid.New()), newTestEvent(testEventType, uuid.New()))
	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	pending[0].MarkSent()
	require.NoError(t, repo.Update(ctx, pending[0]))

	deleted, err := repo.DeleteSentBefore(ctx, time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted, "only SENT rows are removed")

	_, err = repo.FindByID(ctx, pending[0].ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = repo.FindByID(ctx, pending[1].ID)
	assert.NoError(t, err)
}

func TestGormOutboxRepository_BoundScopeNarrowsToTenant(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormOutboxRepository(db)

	mine, theirs := uuid.New(), uuid.New()
	seedOutbox(t, db, 0, newTestEvent(testEventType, mine), newTestEvent(testEventType, theirs))

	ctx, release := tenant.Bind(context.Background(), shared.NewScope(mine, uuid.New()))
	defer release()

	pending, err := repo.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, mine, pending[0].TenantID)

	all, err := repo.FindPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, all, 2, "the relay sees every tenant")

	var foreign *shared.OutboxEntry
	for _, e := range all {
		if e.TenantID == theirs {
			foreign = e
		}
	}
	require.NotNil(t, foreign)
	_, err = repo.FindByID(ctx, foreign.ID)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
	foreign.MarkSent()
	assert.ErrorIs(t, repo.Update(ctx, foreign), shared.ErrNotFound)
}
