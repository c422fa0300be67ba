package payment

import (
	"context"
	"sync"
	"testing"

	cashapp "github.com/fxavier/restaurant-pro-api-sub000/internal/application/cashregister"
	orderapp "github.com/fxavier/restaurant-pro-api-sub000/internal/application/order"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/persistence/models"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/persistence/tenant"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	h        *testutil.Harness
	payments *PaymentService
	orders   *orderapp.OrderService
	sessions *cashapp.SessionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	h := testutil.NewHarness(t)
	h.Subscribe(cashapp.NewCashMovementRecorder(h.Tx, h.Logger))
	return &fixture{
		h:        h,
		payments: NewPaymentService(h.Tx, h.Logger),
		orders:   orderapp.NewOrderService(h.Tx, h.Logger),
		sessions: cashapp.NewSessionService(h.Tx, h.Logger),
	}
}

// orderFor creates an order whose lines add up to the given prices
func (f *fixture) orderFor(t *testing.T, scope shared.Scope, prices ...string) *orderapp.OrderResponse {
	t.Helper()
	ctx := context.Background()
	o, err := f.orders.Create(ctx, scope, orderapp.CreateOrderRequest{SiteID: uuid.New()})
	require.NoError(t, err)
	for _, p := range prices {
		o, err = f.orders.AddLine(ctx, scope, o.ID, orderapp.AddLineRequest{
			ExpectedVersion: o.Version,
			MenuItemID:      uuid.New(),
			Name:            "Dish",
			Station:         "grill",
			Quantity:        1,
			UnitPrice:       testutil.Money(t, p),
		})
		require.NoError(t, err)
	}
	return o
}

func (f *fixture) openRegister(t *testing.T, scope shared.Scope) uuid.UUID {
	t.Helper()
	register := uuid.New()
	_, err := f.sessions.Open(context.Background(), scope, cashapp.OpenSessionRequest{RegisterID: register})
	require.NoError(t, err)
	return register
}

func (f *fixture) pay(t *testing.T, scope shared.Scope, orderID uuid.UUID, amount, method, key string, register *uuid.UUID) (*PaymentResult, error) {
	t.Helper()
	return f.payments.ProcessPayment(context.Background(), scope, ProcessPaymentRequest{
		OrderID:        orderID,
		Amount:         testutil.Money(t, amount),
		Method:         method,
		IdempotencyKey: key,
		RegisterID:     register,
	})
}

func TestProcessPayment_IdempotentReplay(t *testing.T) {
	f := newFixture(t)
	scope := f.h.NewTenant(t)
	register := f.openRegister(t, scope)
	o := f.orderFor(t, scope, "40.00")

	first, err := f.pay(t, scope, o.ID, "50.00", "CASH", "tender-1", &register)
	require.NoError(t, err)
	assert.False(t, first.Replayed)
	assert.True(t, first.OrderClosed)
	assert.True(t, testutil.Money(t, "10.00").Equal(first.Change))

	// a retry with a different amount still gets the recorded outcome
	second, err := f.pay(t, scope, o.ID, "99.00", "CASH", "tender-1", &register)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.PaymentID, second.PaymentID)
	assert.True(t, first.Amount.Equal(second.Amount))
	assert.True(t, first.Change.Equal(second.Change))
	assert.Equal(t, "CLOSED", second.OrderStatus)

	assert.Equal(t, int64(1), f.h.Count(t, scope, &models.PaymentModel{}))
	assert.Equal(t, int64(1), f.h.Count(t, scope, &models.OutboxEntryModel{}, "event_type = ?", "PaymentCompleted"))

	f.h.Deliver(t)
	f.h.Redeliver(t)
	assert.Equal(t, int64(1), f.h.Count(t, scope, &models.CashMovementModel{}, "type = ?", "SALE"))
}

func TestProcessPayment_ConcurrentSameKey(t *testing.T) {
	f := newFixture(t)
	scope := f.h.NewTenant(t)
	o := f.orderFor(t, scope, "30.00")

	const attempts = 6
	amount := testutil.Money(t, "30.00")
	results := make([]*PaymentResult, attempts)
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.payments.ProcessPayment(context.Background(), scope, ProcessPaymentRequest{
				OrderID:        o.ID,
				Amount:         amount,
				Method:         "CARD",
				IdempotencyKey: "same-key",
			})
		}(i)
	}
	wg.Wait()

	fresh := 0
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].PaymentID, results[i].PaymentID)
		if !results[i].Replayed {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)
	assert.Equal(t, int64(1), f.h.Count(t, scope, &models.PaymentModel{}))
}

func TestProcessPayment_ClosesWhenCovered(t *testing.T) {
	f := newFixture(t)
	scope := f.h.NewTenant(t)
	o := f.orderFor(t, scope, "50.00", "8.50")

	r, err := f.pay(t, scope, o.ID, "20.00", "CARD", "k1", nil)
	require.NoError(t, err)
	assert.False(t, r.OrderClosed)
	assert.True(t, testutil.Money(t, "38.50").Equal(r.RemainingDue))

	r, err = f.pay(t, scope, o.ID, "30.00", "CARD", "k2", nil)
	require.NoError(t, err)
	assert.False(t, r.OrderClosed)
	assert.Equal(t, "OPEN", r.OrderStatus)

	r, err = f.pay(t, scope, o.ID, "8.50", "CARD", "k3", nil)
	require.NoError(t, err)
	assert.True(t, r.OrderClosed)
	assert.True(t, r.RemainingDue.IsZero())
	assert.True(t, testutil.Money(t, "58.50").Equal(r.PaidTotal))

	_, err = f.pay(t, scope, o.ID, "1.00", "CARD", "k4", nil)
	assert.ErrorIs(t, err, shared.ErrInvalidOrderState)

	got, err := f.orders.Get(context.Background(), scope, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "CLOSED", got.Status)
	assert.Equal(t, int64(1), f.h.Count(t, scope, &models.OutboxEntryModel{}, "event_type = ?", "OrderClosed"))
}

func TestProcessPayment_CashOverpaymentGivesChange(t *testing.T) {
	f := newFixture(t)
	scope := f.h.NewTenant(t)
	register := f.openRegister(t, scope)
	o := f.orderFor(t, scope, "50.00")

	r, err := f.pay(t, scope, o.ID, "100.00", "CASH", "cash-1", &register)
	require.NoError(t, err)
	assert.True(t, r.OrderClosed)
	assert.True(t, testutil.Money(t, "50.00").Equal(r.Change))

	f.h.Deliver(t)
	ctx, release := tenant.Bind(context.Background(), scope)
	defer release()
	var sale models.CashMovementModel
	require.NoError(t, tenant.DB(ctx, f.h.DB).Where("payment_id = ?", r.PaymentID).First(&sale).Error)
	assert.True(t, testutil.Money(t, "50.00").Equal(sale.Amount), "the drawer keeps the amount net of change")
}

func TestProcessPayment_CardOverpaymentHasNoChange(t *testing.T) {
	f := newFixture(t)
	scope := f.h.NewTenant(t)
	o := f.orderFor(t, scope, "50.00")

	r, err := f.pay(t, scope, o.ID, "60.00", "CARD", "card-1", nil)
	require.NoError(t, err)
	assert.True(t, r.Change.IsZero())
	assert.True(t, r.OrderClosed)
}

func TestProcessPayment_Rejections(t *testing.T) {
	f := newFixture(t)
	scope := f.h.NewTenant(t)
	o := f.orderFor(t, scope, "10.00")

	_, err := f.pay(t, scope, o.ID, "0", "CARD", "zero", nil)
	assert.ErrorIs(t, err, shared.ErrInsufficientAmount)

	_, err = f.pay(t, scope, uuid.New(), "10.00", "CARD", "missing", nil)
	assert.ErrorIs(t, err, shared.ErrOrderNotFound)

	_, err = f.pay(t, scope, o.ID, "10.00", "CASH", "no-register", nil)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = f.pay(t, shared.Scope{}, o.ID, "10.00", "CARD", "anon", nil)
	assert.ErrorIs(t, err, shared.ErrMissingTenantContext)

	assert.Zero(t, f.h.Count(t, scope, &models.PaymentModel{}))
	assert.Zero(t, f.h.Count(t, scope, &models.IdempotencyKeyModel{}), "failed attempts record no outcome")
}

func TestProcessPayment_TenantIsolation(t *testing.T) {
	f := newFixture(t)
	a := f.h.NewTenant(t)
	b := f.h.NewTenant(t)
	o := f.orderFor(t, a, "10.00")

	_, err := f.pay(t, b, o.ID, "10.00", "CARD", "k", nil)
	assert.ErrorIs(t, err, shared.ErrOrderNotFound)

	// the same key in another tenant is a different tender
	oa, err := f.pay(t, a, o.ID, "10.00", "CARD", "shared-key", nil)
	require.NoError(t, err)
	ob := f.orderFor(t, b, "10.00")
	rb, err := f.pay(t, b, ob.ID, "10.00", "CARD", "shared-key", nil)
	require.NoError(t, err)
	assert.False(t, rb.Replayed)
	assert.NotEqual(t, oa.PaymentID, rb.PaymentID)
}

func TestVoidPayment(t *testing.T) {
	f := newFixture(t)
	cashier := f.h.NewTenant(t)
	manager := shared.NewScope(cashier.TenantID, uuid.New(), shared.PermissionVoidPayment)
	o := f.orderFor(t, cashier, "25.00")
	r, err := f.pay(t, cashier, o.ID, "25.00", "CARD", "to-void", nil)
	require.NoError(t, err)

	_, err = f.payments.VoidPayment(context.Background(), cashier, r.PaymentID, VoidPaymentRequest{Reason: "wrong card"})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	voided, err := f.payments.VoidPayment(context.Background(), manager, r.PaymentID, VoidPaymentRequest{Reason: "wrong card"})
	require.NoError(t, err)
	assert.Equal(t, "VOIDED", voided.Status)
	assert.Equal(t, "wrong card", voided.VoidReason)

	_, err = f.payments.VoidPayment(context.Background(), manager, r.PaymentID, VoidPaymentRequest{Reason: "again"})
	assert.ErrorIs(t, err, shared.ErrAlreadyVoided)

	assert.Equal(t, int64(1), f.h.Count(t, cashier, &models.PaymentVoidAuditModel{}))
	assert.Equal(t, int64(1), f.h.Count(t, cashier, &models.PaymentModel{}), "voiding never deletes")

	got, err := f.orders.Get(context.Background(), cashier, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "CLOSED", got.Status)
}

func TestSplitBill(t *testing.T) {
	f := newFixture(t)
	scope := f.h.NewTenant(t)
	o := f.orderFor(t, scope, "100.00")

	split, err := f.payments.SplitBill(context.Background(), scope, o.ID, SplitBillRequest{Shares: 3})
	require.NoError(t, err)
	require.Len(t, split.Shares, 3)
	assert.True(t, testutil.Money(t, "33.33").Equal(split.Shares[0]))
	assert.True(t, testutil.Money(t, "33.34").Equal(split.Shares[2]))

	for i, share := range split.Shares {
		_, err := f.payments.ProcessPayment(context.Background(), scope, ProcessPaymentRequest{
			OrderID:        o.ID,
			Amount:         share,
			Method:         "CARD",
			IdempotencyKey: uuid.NewString(),
		})
		require.NoError(t, err, "share %d", i)
	}

	list, err := f.payments.ListByOrder(context.Background(), scope, o.ID)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	_, err = f.payments.SplitBill(context.Background(), scope, o.ID, SplitBillRequest{Shares: 2})
	assert.ErrorIs(t, err, shared.ErrInvalidOrderState)
}
