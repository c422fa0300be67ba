// Package testutil wires the transactional core on an in-memory sqlite
// database for application-level tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/cache"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/event"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/persistence"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/persistence/tenant"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Harness is one isolated core: database, unit of work, outbox and relay
type Harness struct {
	DB         *gorm.DB
	Tx         *persistence.GormTransactionScope
	Bus        *event.InMemoryEventBus
	Outbox     *event.GormOutboxRepository
	Serializer *event.EventSerializer
	Relay      *event.OutboxProcessor
	Markers    *cache.InMemoryIdempotencyStore
	Logger     *zap.Logger
}

// NewHarness opens a private in-memory database with the full schema. A
// single connection keeps concurrent goroutines on the same database and
// serializes their transactions.
func NewHarness(t *testing.T) *Harness {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := persistence.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Discard,
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, persistence.AutoMigrate(db.DB))

	return newHarness(t, db.DB)
}

func newHarness(t *testing.T, db *gorm.DB) *Harness {
	t.Helper()
	logger := zap.NewNop()
	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)

	bus := event.NewInMemoryEventBus(logger)
	outbox := event.NewGormOutboxRepository(db)
	markers := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = markers.Close() })

	cfg := event.DefaultOutboxProcessorConfig()
	cfg.CleanupEnabled = false

	return &Harness{
		DB:         db,
		Tx:         persistence.NewGormTransactionScope(db, event.NewOutboxPublisher(serializer, 3)),
		Bus:        bus,
		Outbox:     outbox,
		Serializer: serializer,
		Relay:      event.NewOutboxProcessor(outbox, bus, serializer, cfg, logger),
		Markers:    markers,
		Logger:     logger,
	}
}

// Subscribe registers handler behind the idempotent wrapper, as the server does
func (h *Harness) Subscribe(handler shared.EventHandler) {
	h.Bus.Subscribe(event.NewIdempotentHandler(handler, h.Markers, h.Logger))
}

// Deliver runs the relay until no pending entry is left and returns how many
// entries were delivered
func (h *Harness) Deliver(t *testing.T) int {
	t.Helper()
	total := 0
	for i := 0; i < 10; i++ {
		n := h.Relay.ProcessOnce(context.Background())
		if n == 0 {
			return total
		}
		total += n
	}
	t.Fatalf("outbox did not drain")
	return total
}

// Redeliver resets every SENT entry to PENDING and relays them again,
// simulating a relay that crashed before recording delivery
func (h *Harness) Redeliver(t *testing.T) int {
	t.Helper()
	require.NoError(t, h.DB.Model(&models.OutboxEntryModel{}).
		Where("status = ?", shared.OutboxStatusSent).
		Update("status", shared.OutboxStatusPending).Error)
	return h.Deliver(t)
}

// Count returns the rows of model visible to scope
func (h *Harness) Count(t *testing.T, scope shared.Scope, model any, where ...any) int64 {
	t.Helper()
	ctx, release := tenant.Bind(context.Background(), scope)
	defer release()

	query := tenant.DB(ctx, h.DB).Model(model)
	if len(where) > 0 {
		query = query.Where(where[0], where[1:]...)
	}
	var n int64
	require.NoError(t, query.Count(&n).Error)
	return n
}

// NewTenant provisions a tenant row and returns a scope for it holding perms
func (h *Harness) NewTenant(t *testing.T, perms ...shared.Permission) shared.Scope {
	t.Helper()
	id := uuid.New()
	ctx := tenant.Provisioning(context.Background())
	require.NoError(t, h.DB.WithContext(ctx).Create(&models.TenantModel{
		ID:     id,
		Name:   "Tenant " + id.String()[:8],
		Slug:   "t-" + id.String()[:8],
		Status: "ACTIVE",
	}).Error)
	return shared.NewScope(id, uuid.New(), perms...)
}

// AllPermissions is every elevated permission, for supervisor scopes
func AllPermissions() []shared.Permission {
	return []shared.Permission{
		shared.PermissionVoidConfirmedLine,
		shared.PermissionVoidOrder,
		shared.PermissionVoidPayment,
		shared.PermissionManageCash,
		shared.PermissionConfigurePrinters,
		shared.PermissionAdminOutbox,
	}
}

// Money parses a decimal literal and fails the test on bad input
func Money(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}
