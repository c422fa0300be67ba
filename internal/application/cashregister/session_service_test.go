package cashregister

import (
	"context"
	"testing"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/cashregister"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/persistence/models"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionService(t *testing.T) (*SessionService, *testutil.Harness) {
	t.Helper()
	h := testutil.NewHarness(t)
	return NewSessionService(h.Tx, h.Logger), h
}

func openSession(t *testing.T, svc *SessionService, scope shared.Scope, registerID uuid.UUID, amount string) *SessionResponse {
	t.Helper()
	s, err := svc.Open(context.Background(), scope, OpenSessionRequest{
		RegisterID:    registerID,
		OpeningAmount: testutil.Money(t, amount),
	})
	require.NoError(t, err)
	return s
}

func TestSessionService_OpenOnePerRegister(t *testing.T) {
	svc, h := newSessionService(t)
	scope := h.NewTenant(t)
	register := uuid.New()

	s := openSession(t, svc, scope, register, "100.00")
	assert.Equal(t, "OPEN", s.Status)
	assert.Equal(t, scope.ActorID, s.EmployeeID)
	assert.True(t, testutil.Money(t, "100.00").Equal(s.ExpectedCash))

	_, err := svc.Open(context.Background(), scope, OpenSessionRequest{RegisterID: register})
	assert.ErrorIs(t, err, cashregister.ErrSessionAlreadyOpen)

	other := openSession(t, svc, scope, uuid.New(), "0")
	assert.NotEqual(t, s.ID, other.ID)

	movements, err := svc.Movements(context.Background(), scope, s.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, "OPENING", movements[0].Type)
}

func TestSessionService_DepositWithdrawClose(t *testing.T) {
	svc, h := newSessionService(t)
	scope := h.NewTenant(t, shared.PermissionManageCash)
	ctx := context.Background()
	s := openSession(t, svc, scope, uuid.New(), "100.00")

	s, err := svc.Deposit(ctx, scope, s.ID, MovementRequest{ExpectedVersion: s.Version, Amount: testutil.Money(t, "50.00")})
	require.NoError(t, err)
	s, err = svc.Withdraw(ctx, scope, s.ID, MovementRequest{ExpectedVersion: s.Version, Amount: testutil.Money(t, "30.00"), Note: "bank drop"})
	require.NoError(t, err)
	assert.True(t, testutil.Money(t, "120.00").Equal(s.ExpectedCash))

	s, err = svc.Close(ctx, scope, s.ID, CloseSessionRequest{ExpectedVersion: s.Version, ActualAmount: testutil.Money(t, "118.00")})
	require.NoError(t, err)
	assert.Equal(t, "CLOSED", s.Status)
	require.NotNil(t, s.Variance)
	assert.True(t, testutil.Money(t, "-2.00").Equal(*s.Variance))
	assert.NotNil(t, s.ClosedAt)

	movements, err := svc.Movements(ctx, scope, s.ID)
	require.NoError(t, err)
	var types []string
	for _, m := range movements {
		types = append(types, m.Type)
	}
	assert.Equal(t, []string{"OPENING", "DEPOSIT", "WITHDRAWAL", "CLOSING"}, types)

	assert.Equal(t, int64(1), h.Count(t, scope, &models.OutboxEntryModel{}, "event_type = ?", cashregister.EventTypeCashSessionClosed))

	_, err = svc.Deposit(ctx, scope, s.ID, MovementRequest{ExpectedVersion: s.Version, Amount: testutil.Money(t, "1.00")})
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	// the register can be opened again once closed
	openSession(t, svc, scope, s.RegisterID, "0")
}

func TestSessionService_WithdrawNeedsPermission(t *testing.T) {
	svc, h := newSessionService(t)
	scope := h.NewTenant(t)
	s := openSession(t, svc, scope, uuid.New(), "100.00")

	_, err := svc.Withdraw(context.Background(), scope, s.ID, MovementRequest{ExpectedVersion: s.Version, Amount: testutil.Money(t, "10.00")})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestSessionService_WithdrawBeyondExpectedCash(t *testing.T) {
	svc, h := newSessionService(t)
	scope := h.NewTenant(t, shared.PermissionManageCash)
	s := openSession(t, svc, scope, uuid.New(), "20.00")

	_, err := svc.Withdraw(context.Background(), scope, s.ID, MovementRequest{ExpectedVersion: s.Version, Amount: testutil.Money(t, "20.01")})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	got, err := svc.Get(context.Background(), scope, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Version, got.Version, "rejected withdrawal writes nothing")
}

func TestSessionService_StaleVersion(t *testing.T) {
	svc, h := newSessionService(t)
	scope := h.NewTenant(t)
	ctx := context.Background()
	s := openSession(t, svc, scope, uuid.New(), "10.00")

	_, err := svc.Deposit(ctx, scope, s.ID, MovementRequest{ExpectedVersion: s.Version, Amount: testutil.Money(t, "5.00")})
	require.NoError(t, err)
	_, err = svc.Deposit(ctx, scope, s.ID, MovementRequest{ExpectedVersion: s.Version, Amount: testutil.Money(t, "5.00")})
	assert.ErrorIs(t, err, shared.ErrConcurrentModification)
}

func TestSessionService_TenantIsolation(t *testing.T) {
	svc, h := newSessionService(t)
	a := h.NewTenant(t)
	b := h.NewTenant(t)
	s := openSession(t, svc, a, uuid.New(), "10.00")

	_, err := svc.Get(context.Background(), b, s.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.Get(context.Background(), shared.Scope{}, s.ID)
	assert.ErrorIs(t, err, shared.ErrMissingTenantContext)
}
