package printing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	orderapp "github.com/fxavier/restaurant-pro-api-sub000/internal/application/order"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/idempotency"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/printing"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/persistence/models"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/persistence/tenant"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Send(ctx context.Context, job *printing.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

type fixture struct {
	h        *testutil.Harness
	printers *PrinterService
	orders   *orderapp.OrderService
	scope    shared.Scope
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	h := testutil.NewHarness(t)
	h.Subscribe(NewPrintJobMaterializer(h.Tx, h.Logger))
	return &fixture{
		h:        h,
		printers: NewPrinterService(h.Tx, h.Logger),
		orders:   orderapp.NewOrderService(h.Tx, h.Logger),
		scope:    h.NewTenant(t, shared.PermissionConfigurePrinters),
	}
}

func (f *fixture) printer(t *testing.T, name string, isDefault bool, stations ...string) *PrinterResponse {
	t.Helper()
	p, err := f.printers.Configure(context.Background(), f.scope, CreatePrinterRequest{
		Name:      name,
		Address:   "10.0.0.1:9100",
		Stations:  stations,
		IsDefault: isDefault,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) setState(t *testing.T, p *PrinterResponse, state string, target *uuid.UUID) (*PrinterResponse, error) {
	t.Helper()
	current, err := f.printers.Get(context.Background(), f.scope, p.ID)
	require.NoError(t, err)
	return f.printers.SetState(context.Background(), f.scope, p.ID, SetPrinterStateRequest{
		ExpectedVersion: current.Version,
		State:           state,
		RedirectTo:      target,
	})
}

// confirmOrder confirms one line per station and delivers the outbox
func (f *fixture) confirmOrder(t *testing.T, stations ...string) *orderapp.OrderResponse {
	t.Helper()
	ctx := context.Background()
	o, err := f.orders.Create(ctx, f.scope, orderapp.CreateOrderRequest{SiteID: uuid.New(), TableRef: "12"})
	require.NoError(t, err)
	for _, station := range stations {
		o, err = f.orders.AddLine(ctx, f.scope, o.ID, orderapp.AddLineRequest{
			ExpectedVersion: o.Version,
			MenuItemID:      uuid.New(),
			Name:            "item for " + station,
			Station:         station,
			Quantity:        2,
			UnitPrice:       testutil.Money(t, "9.00"),
			Notes:           []string{"no onions"},
		})
		require.NoError(t, err)
	}
	o, err = f.orders.Confirm(ctx, f.scope, o.ID, orderapp.ConfirmOrderRequest{ExpectedVersion: o.Version})
	require.NoError(t, err)
	f.h.Deliver(t)
	return o
}

func (f *fixture) jobs(t *testing.T, orderID uuid.UUID) []PrintJobResponse {
	t.Helper()
	jobs, err := f.printers.JobsForOrder(context.Background(), f.scope, orderID)
	require.NoError(t, err)
	return jobs
}

func TestMaterializer_RoutesByStationAndDefault(t *testing.T) {
	f := newFixture(t)
	grill := f.printer(t, "Grill", false, "grill")
	bar := f.printer(t, "Bar", true, "bar")

	o := f.confirmOrder(t, "grill", "bar", "")
	jobs := f.jobs(t, o.ID)
	require.Len(t, jobs, 3)

	byLine := map[uuid.UUID]PrintJobResponse{}
	for _, j := range jobs {
		byLine[j.LineID] = j
		assert.Equal(t, "QUEUED", j.Status)
		assert.Equal(t, 2, j.Quantity)
	}
	assert.Equal(t, grill.ID, byLine[o.Lines[0].ID].PrinterID)
	assert.Equal(t, bar.ID, byLine[o.Lines[1].ID].PrinterID)
	assert.Equal(t, bar.ID, byLine[o.Lines[2].ID].PrinterID, "no station goes to the default printer")
}

func TestMaterializer_RedeliveryDoesNotDuplicate(t *testing.T) {
	f := newFixture(t)
	f.printer(t, "Kitchen", true, "grill")

	o := f.confirmOrder(t, "grill", "grill")
	require.Len(t, f.jobs(t, o.ID), 2)

	f.h.Redeliver(t)
	f.h.Redeliver(t)
	assert.Len(t, f.jobs(t, o.ID), 2)
	assert.Equal(t, int64(2), f.h.Count(t, f.scope, &models.PrintJobModel{}))

	// the unique key holds even when the consumer marker is gone
	evtHandler := NewPrintJobMaterializer(f.h.Tx, f.h.Logger)
	entry, err := f.h.Outbox.FindByID(context.Background(), firstOutboxID(t, f))
	require.NoError(t, err)
	evt, err := f.h.Serializer.Deserialize(entry.EventType, entry.Payload)
	require.NoError(t, err)
	require.NoError(t, evtHandler.Handle(context.Background(), evt))
	assert.Len(t, f.jobs(t, o.ID), 2)
}

func firstOutboxID(t *testing.T, f *fixture) uuid.UUID {
	t.Helper()
	var row models.OutboxEntryModel
	require.NoError(t, f.h.DB.Where("event_type = ?", "OrderConfirmed").First(&row).Error)
	return row.ID
}

func TestMaterializer_PrinterStates(t *testing.T) {
	f := newFixture(t)
	waiting := f.printer(t, "Pastry", false, "pastry")
	ignored := f.printer(t, "Old bar", false, "bar")
	source := f.printer(t, "Grill 1", false, "grill")
	target := f.printer(t, "Grill 2", false)

	_, err := f.setState(t, waiting, "WAIT", nil)
	require.NoError(t, err)
	_, err = f.setState(t, ignored, "IGNORE", nil)
	require.NoError(t, err)
	_, err = f.setState(t, source, "REDIRECT", &target.ID)
	require.NoError(t, err)

	o := f.confirmOrder(t, "pastry", "bar", "grill")
	jobs := f.jobs(t, o.ID)
	require.Len(t, jobs, 2, "the IGNORE line is dropped")

	byLine := map[uuid.UUID]PrintJobResponse{}
	for _, j := range jobs {
		byLine[j.LineID] = j
	}
	assert.Equal(t, "WAITING", byLine[o.Lines[0].ID].Status)
	redirected := byLine[o.Lines[2].ID]
	assert.Equal(t, "QUEUED", redirected.Status)
	assert.Equal(t, source.ID, redirected.AssignedPrinterID)
	assert.Equal(t, target.ID, redirected.PrinterID)

	// a dropped line stays dropped on redelivery
	_, err = f.setState(t, ignored, "NORMAL", nil)
	require.NoError(t, err)
	f.h.Redeliver(t)
	assert.Len(t, f.jobs(t, o.ID), 2)

	// returning to NORMAL releases the waiting job
	_, err = f.setState(t, waiting, "NORMAL", nil)
	require.NoError(t, err)
	for _, j := range f.jobs(t, o.ID) {
		assert.Equal(t, "QUEUED", j.Status)
	}
}

func TestMaterializer_DanglingRedirectFailsOnlyThatLine(t *testing.T) {
	f := newFixture(t)
	grill := f.printer(t, "Grill", false, "grill")
	f.printer(t, "Bar", true, "bar")
	spare := f.printer(t, "Spare", false)
	_, err := f.setState(t, grill, "REDIRECT", &spare.ID)
	require.NoError(t, err)

	// a target that vanished from storage
	ctx, release := tenant.Bind(context.Background(), f.scope)
	defer release()
	require.NoError(t, tenant.DB(ctx, f.h.DB).Model(&models.PrinterModel{}).
		Where("id = ?", grill.ID).Update("redirect_to", uuid.New()).Error)

	o := f.confirmOrder(t, "grill", "bar")
	jobs := f.jobs(t, o.ID)
	require.Len(t, jobs, 1)
	assert.Equal(t, o.Lines[1].ID, jobs[0].LineID)

	var row models.IdempotencyKeyModel
	require.NoError(t, tenant.DB(ctx, f.h.DB).
		Where("class = ? AND idempotency_key = ?", idempotency.ClassPrint, printing.DedupeKey(o.ID, o.Lines[0].ID, grill.ID)).
		First(&row).Error)
	var outcome routingOutcome
	require.NoError(t, json.Unmarshal(row.Outcome, &outcome))
	assert.Equal(t, outcomeFailed, outcome.Status)
	assert.Equal(t, grill.ID, outcome.PrinterID)

	assert.Zero(t, f.h.Count(t, f.scope, &models.OutboxEntryModel{}, "status <> ?", shared.OutboxStatusSent),
		"the confirmation is delivered despite the broken line")
	f.h.Redeliver(t)
	assert.Len(t, f.jobs(t, o.ID), 1)
}

func TestPrinterService_RejectsRedirectCycles(t *testing.T) {
	f := newFixture(t)
	a := f.printer(t, "A", true)
	b := f.printer(t, "B", false)
	c := f.printer(t, "C", false)

	_, err := f.setState(t, a, "REDIRECT", &a.ID)
	assert.ErrorIs(t, err, printing.ErrRedirectCycle)

	_, err = f.setState(t, a, "REDIRECT", &b.ID)
	require.NoError(t, err)
	_, err = f.setState(t, b, "REDIRECT", &c.ID)
	require.NoError(t, err)

	_, err = f.setState(t, c, "REDIRECT", &a.ID)
	assert.ErrorIs(t, err, printing.ErrRedirectCycle)

	missing := uuid.New()
	_, err = f.setState(t, c, "REDIRECT", &missing)
	assert.ErrorIs(t, err, printing.ErrRedirectTarget)

	got, err := f.printers.Get(context.Background(), f.scope, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "NORMAL", got.State, "rejected changes are not stored")
}

// swapRedirects points two printers at each other from two goroutines
func swapRedirects(t *testing.T, f *fixture, rounds int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < rounds; i++ {
		x := f.printer(t, fmt.Sprintf("X%d", i), false)
		y := f.printer(t, fmt.Sprintf("Y%d", i), false)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for n, pair := range [][2]*PrinterResponse{{x, y}, {y, x}} {
			wg.Add(1)
			go func(n int, from, to *PrinterResponse) {
				defer wg.Done()
				_, errs[n] = f.printers.SetState(ctx, f.scope, from.ID, SetPrinterStateRequest{
					ExpectedVersion: from.Version,
					State:           "REDIRECT",
					RedirectTo:      &to.ID,
				})
			}(n, pair[0], pair[1])
		}
		wg.Wait()

		accepted := 0
		for _, err := range errs {
			if err == nil {
				accepted++
				continue
			}
			assert.ErrorIs(t, err, printing.ErrRedirectCycle)
		}
		assert.Equal(t, 1, accepted, "round %d", i)

		gotX, err := f.printers.Get(ctx, f.scope, x.ID)
		require.NoError(t, err)
		gotY, err := f.printers.Get(ctx, f.scope, y.ID)
		require.NoError(t, err)
		assert.False(t, gotX.State == "REDIRECT" && gotY.State == "REDIRECT",
			"round %d stored a redirect cycle", i)
	}
}

func TestPrinterService_ConcurrentRedirectsNeverCycle(t *testing.T) {
	swapRedirects(t, newFixture(t), 5)
}

func TestPrinterService_DefaultAndPermissions(t *testing.T) {
	f := newFixture(t)
	first := f.printer(t, "First", true)
	second := f.printer(t, "Second", true)

	list, err := f.printers.List(context.Background(), f.scope)
	require.NoError(t, err)
	require.Len(t, list, 2)
	defaults := map[uuid.UUID]bool{}
	for _, p := range list {
		defaults[p.ID] = p.IsDefault
	}
	assert.False(t, defaults[first.ID])
	assert.True(t, defaults[second.ID])

	waiter := shared.NewScope(f.scope.TenantID, uuid.New())
	_, err = f.printers.Configure(context.Background(), waiter, CreatePrinterRequest{Name: "X", Address: "x:9100"})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	stale := second.Version
	_, err = f.printers.Update(context.Background(), f.scope, second.ID, UpdatePrinterRequest{ExpectedVersion: stale, Stations: []string{"Bar ", "bar"}})
	require.NoError(t, err)
	_, err = f.printers.Update(context.Background(), f.scope, second.ID, UpdatePrinterRequest{ExpectedVersion: stale, Stations: []string{"grill"}})
	assert.ErrorIs(t, err, shared.ErrConcurrentModification)

	got, err := f.printers.Get(context.Background(), f.scope, second.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bar"}, got.Stations)
}

func TestPrintDispatcher(t *testing.T) {
	f := newFixture(t)
	p := f.printer(t, "Kitchen", true)
	o := f.confirmOrder(t, "grill", "bar")

	sink := new(MockSink)
	sink.On("Send", mock.Anything, mock.MatchedBy(func(j *printing.Job) bool { return j.LineID == o.Lines[0].ID })).
		Return(errors.New("connection refused")).Once()
	sink.On("Send", mock.Anything, mock.Anything).Return(nil)

	dispatcher := NewPrintDispatcher(f.h.Tx, sink, f.h.Logger)
	res, err := dispatcher.Dispatch(context.Background(), f.scope)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 1, res.Failed)

	res, err = dispatcher.Dispatch(context.Background(), f.scope)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent, "the failed job is retried")
	assert.Equal(t, 0, res.Failed)

	for _, j := range f.jobs(t, o.ID) {
		assert.Equal(t, "SENT", j.Status)
		assert.Equal(t, p.ID, j.PrinterID)
	}
	res, err = dispatcher.Dispatch(context.Background(), f.scope)
	require.NoError(t, err)
	assert.Zero(t, res.Sent)
	sink.AssertNumberOfCalls(t, "Send", 3)
}

func TestPrintDispatcher_ReleaseNeedsPrinterOutOfWait(t *testing.T) {
	f := newFixture(t)
	p := f.printer(t, "Kitchen", true)
	_, err := f.setState(t, p, "WAIT", nil)
	require.NoError(t, err)
	o := f.confirmOrder(t, "grill")

	dispatcher := NewPrintDispatcher(f.h.Tx, new(MockSink), f.h.Logger)
	_, err = dispatcher.Release(context.Background(), f.scope, p.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	res, err := dispatcher.Dispatch(context.Background(), f.scope)
	require.NoError(t, err)
	assert.Zero(t, res.Sent, "waiting jobs are not dispatched")

	// IGNORE leaves waiting jobs in place until released by hand
	_, err = f.setState(t, p, "IGNORE", nil)
	require.NoError(t, err)
	n, err := dispatcher.Release(context.Background(), f.scope, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "QUEUED", f.jobs(t, o.ID)[0].Status)
}
