package tenant

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type ownedRow struct {
	ID       uuid.UUID `gorm:"type:text;primaryKey"`
	TenantID uuid.UUID `gorm:"type:text;index"`
	Name     string
}

func (ownedRow) TableName() string { return "owned_rows" }
func (ownedRow) TenantOwned()      {}

type registryRow struct {
	ID   uuid.UUID `gorm:"type:text;primaryKey"`
	Name string
}

func (registryRow) TableName() string { return "registry_rows" }
func (registryRow) TenantRegistry()   {}

type relayRow struct {
	ID       uuid.UUID `gorm:"type:text;primaryKey"`
	TenantID uuid.UUID `gorm:"type:text"`
}

func (relayRow) TableName() string { return "relay_rows" }

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	require.NoError(t, err)
	require.NoError(t, Enforce(db))
	return db, mock
}

func setupSQLite(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&ownedRow{}, &registryRow{}, &relayRow{}))
	require.NoError(t, Enforce(db))
	return db
}

func bind(t *testing.T, tenantID uuid.UUID) context.Context {
	ctx, release := Bind(context.Background(), shared.NewScope(tenantID, uuid.New()))
	t.Cleanup(release)
	return ctx
}

func TestEnforce_AddsTenantPredicate(t *testing.T) {
	db, mock := setupMockDB(t)
	tenantID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "owned_rows" WHERE name = $1 AND "owned_rows"."tenant_id" = $2`)).
		WithArgs("a", tenantID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name"}))

	var rows []ownedRow
	err := db.WithContext(bind(t, tenantID)).Where("name = ?", "a").Find(&rows).Error
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnforce_DoesNotDuplicateScopedPredicate(t *testing.T) {
	db, mock := setupMockDB(t)
	tenantID := uuid.New()
	ctx := bind(t, tenantID)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "owned_rows" WHERE "owned_rows"."tenant_id" = $1`)).
		WithArgs(tenantID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	var n int64
	require.NoError(t, DB(ctx, db).Model(&ownedRow{}).Count(&n).Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnforce_ForeignTenantPredicateStillNarrowed(t *testing.T) {
	db, mock := setupMockDB(t)
	bound, other := uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "owned_rows" WHERE "owned_rows"."tenant_id" = $1 AND "owned_rows"."tenant_id" = $2`)).
		WithArgs(other, bound).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name"}))

	var rows []ownedRow
	err := db.WithContext(bind(t, bound)).Scopes(Scoped(other)).Find(&rows).Error
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnforce_MissingScopeNeverReachesDatabase(t *testing.T) {
	db, mock := setupMockDB(t)

	var rows []ownedRow
	err := db.WithContext(context.Background()).Find(&rows).Error
	assert.ErrorIs(t, err, shared.ErrMissingTenantContext)

	err = db.WithContext(context.Background()).Model(&ownedRow{}).Where("id = ?", uuid.New()).Update("name", "x").Error
	assert.ErrorIs(t, err, shared.ErrMissingTenantContext)

	err = db.WithContext(context.Background()).Where("id = ?", uuid.New()).Delete(&ownedRow{}).Error
	assert.ErrorIs(t, err, shared.ErrMissingTenantContext)

	err = db.WithContext(context.Background()).Create(&ownedRow{ID: uuid.New()}).Error
	assert.ErrorIs(t, err, shared.ErrMissingTenantContext)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnforce_ReleasedBindingFails(t *testing.T) {
	db, mock := setupMockDB(t)
	ctx, release := Bind(context.Background(), shared.NewScope(uuid.New(), uuid.New()))
	release()

	var rows []ownedRow
	err := db.WithContext(ctx).Find(&rows).Error
	assert.ErrorIs(t, err, shared.ErrMissingTenantContext)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_WithoutScope(t *testing.T) {
	db, mock := setupMockDB(t)

	var rows []relayRow
	err := DB(context.Background(), db).Find(&rows).Error
	assert.ErrorIs(t, err, shared.ErrMissingTenantContext)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnforce_CreateStampsBoundTenant(t *testing.T) {
	db := setupSQLite(t)
	tenantID := uuid.New()
	ctx := bind(t, tenantID)

	rows := []ownedRow{{ID: uuid.New(), Name: "a"}, {ID: uuid.New(), Name: "b"}}
	require.NoError(t, db.WithContext(ctx).Create(&rows).Error)
	assert.Equal(t, tenantID, rows[0].TenantID)
	assert.Equal(t, tenantID, rows[1].TenantID)

	single := ownedRow{ID: uuid.New(), TenantID: tenantID}
	require.NoError(t, db.WithContext(ctx).Create(&single).Error)
}

func TestEnforce_CreateRejectsForeignTenant(t *testing.T) {
	db := setupSQLite(t)
	ctx := bind(t, uuid.New())

	err := db.WithContext(ctx).Create(&ownedRow{ID: uuid.New(), TenantID: uuid.New()}).Error
	assert.ErrorIs(t, err, ErrTenantMismatch)

	var n int64
	require.NoError(t, db.WithContext(ctx).Model(&ownedRow{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestEnforce_TenantIsolation(t *testing.T) {
	db := setupSQLite(t)
	a, b := uuid.New(), uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			owner := a
			if i%2 == 1 {
				owner = b
			}
			ctx, release := Bind(context.Background(), shared.NewScope(owner, uuid.New()))
			defer release()
			assert.NoError(t, db.WithContext(ctx).Create(&ownedRow{ID: uuid.New(), Name: owner.String()}).Error)
		}(i)
	}
	wg.Wait()

	for _, id := range []uuid.UUID{a, b} {
		var rows []ownedRow
		require.NoError(t, db.WithContext(bind(t, id)).Find(&rows).Error)
		assert.Len(t, rows, 10)
		for _, r := range rows {
			assert.Equal(t, id, r.TenantID)
		}
	}

	var victim ownedRow
	require.NoError(t, db.WithContext(bind(t, a)).First(&victim).Error)

	res := db.WithContext(bind(t, b)).Model(&ownedRow{}).Where("id = ?", victim.ID).Update("name", "stolen")
	require.NoError(t, res.Error)
	assert.Zero(t, res.RowsAffected)

	res = db.WithContext(bind(t, b)).Where("id = ?", victim.ID).Delete(&ownedRow{})
	require.NoError(t, res.Error)
	assert.Zero(t, res.RowsAffected)
}

func TestEnforce_RegistryWritesRequireProvisioning(t *testing.T) {
	db := setupSQLite(t)

	err := db.WithContext(bind(t, uuid.New())).Create(&registryRow{ID: uuid.New(), Name: "x"}).Error
	assert.ErrorContains(t, err, "provisioning")

	row := registryRow{ID: uuid.New(), Name: "Casa Lisboa"}
	require.NoError(t, db.WithContext(Provisioning(context.Background())).Create(&row).Error)

	err = db.WithContext(context.Background()).Model(&row).Update("name", "renamed").Error
	assert.ErrorContains(t, err, "provisioning")

	var got registryRow
	require.NoError(t, db.WithContext(context.Background()).First(&got, "id = ?", row.ID).Error)
	assert.Equal(t, "Casa Lisboa", got.Name)
}

func TestEnforce_UnmarkedModelsPassThrough(t *testing.T) {
	db := setupSQLite(t)

	require.NoError(t, db.WithContext(context.Background()).Create(&relayRow{ID: uuid.New(), TenantID: uuid.New()}).Error)
	var rows []relayRow
	require.NoError(t, db.WithContext(context.Background()).Find(&rows).Error)
	assert.Len(t, rows, 1)
}
