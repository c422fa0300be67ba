package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	cashapp "github.com/fxavier/restaurant-pro-api-sub000/internal/application/cashregister"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/application/event"
	orderapp "github.com/fxavier/restaurant-pro-api-sub000/internal/application/order"
	paymentapp "github.com/fxavier/restaurant-pro-api-sub000/internal/application/payment"
	printapp "github.com/fxavier/restaurant-pro-api-sub000/internal/application/printing"
	tenantapp "github.com/fxavier/restaurant-pro-api-sub000/internal/application/tenant"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/printing"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/auth"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/config"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/persistence"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/persistence/tenant"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/interfaces/http/dto"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/interfaces/http/middleware"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/interfaces/http/router"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu   sync.Mutex
	sent []uuid.UUID
}

func (s *recordingSink) Send(_ context.Context, job *printing.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, job.ID)
	return nil
}

type api struct {
	h      *testutil.Harness
	engine *gin.Engine
	jwt    *auth.JWTService
	sink   *recordingSink
}

func newAPI(t *testing.T) *api {
	t.Helper()
	middleware.SetupValidator()
	h := testutil.NewHarness(t)
	h.Subscribe(cashapp.NewCashMovementRecorder(h.Tx, h.Logger))
	h.Subscribe(printapp.NewPrintJobMaterializer(h.Tx, h.Logger))

	a := &api{
		h:      h,
		engine: gin.New(),
		jwt:    auth.NewJWTService(config.JWTConfig{Secret: "handler-test-secret-0123456789abcdef"}),
		sink:   &recordingSink{},
	}

	r := router.NewRouter(a.engine, router.WithMiddleware(middleware.JWTAuth(middleware.DefaultJWTConfig(a.jwt))))
	r.Register(NewOrderHandler(orderapp.NewOrderService(h.Tx, h.Logger)).Routes())
	r.Register(NewPaymentHandler(paymentapp.NewPaymentService(h.Tx, h.Logger)).Routes())
	r.Register(NewCashSessionHandler(cashapp.NewSessionService(h.Tx, h.Logger)).Routes())
	r.Register(NewPrinterHandler(
		printapp.NewPrinterService(h.Tx, h.Logger),
		printapp.NewPrintDispatcher(h.Tx, a.sink, h.Logger),
	).Routes())
	r.Register(NewOutboxHandler(event.NewOutboxService(h.Outbox, tenant.Bind, nil, h.Logger)).Routes())
	r.Register(NewTenantHandler(tenantapp.NewProvisioningService(
		persistence.NewGormTenantRepository(h.DB), tenant.Provisioning, h.Logger,
	)).Routes())
	r.Setup(nil)
	return a
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

func (a *api) do(t *testing.T, scope *shared.Scope, method, path string, body any) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	if scope != nil {
		token, err := a.jwt.Sign(*scope, time.Minute)
		require.NoError(t, err)
		req.Header.Set(middleware.AuthHeaderKey, middleware.BearerPrefix+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func (a *api) openOrder(t *testing.T, scope shared.Scope, prices ...string) orderapp.OrderResponse {
	t.Helper()
	status, env := a.do(t, &scope, http.MethodPost, "/orders", map[string]any{"site_id": uuid.New(), "table_ref": "7"})
	require.Equal(t, http.StatusCreated, status, env.Error)
	o := decode[orderapp.OrderResponse](t, env)

	for _, p := range prices {
		status, env = a.do(t, &scope, http.MethodPost, "/orders/"+o.ID.String()+"/lines", map[string]any{
			"expected_version": o.Version,
			"menu_item_id":     uuid.New(),
			"name":             "Bitoque",
			"station":          "grill",
			"quantity":         1,
			"unit_price":       p,
		})
		require.Equal(t, http.StatusOK, status, env.Error)
		o = decode[orderapp.OrderResponse](t, env)
	}
	return o
}

func TestAPI_RequiresToken(t *testing.T) {
	a := newAPI(t)
	status, env := a.do(t, nil, http.MethodGet, "/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, dto.ErrCodeTokenInvalid, env.Error.Code)
}

func TestAPI_OrderToPayment(t *testing.T) {
	a := newAPI(t)
	scope := a.h.NewTenant(t)
	o := a.openOrder(t, scope, "12.50", "7.50")
	assert.True(t, decimal.RequireFromString("20").Equal(o.Total))

	status, env := a.do(t, &scope, http.MethodPost, "/orders/"+o.ID.String()+"/confirm", map[string]any{"expected_version": o.Version})
	require.Equal(t, http.StatusOK, status, env.Error)
	assert.Equal(t, "CONFIRMED", decode[orderapp.OrderResponse](t, env).Status)

	status, env = a.do(t, &scope, http.MethodPost, "/orders/"+o.ID.String()+"/split", map[string]any{"shares": 3})
	require.Equal(t, http.StatusOK, status, env.Error)
	split := decode[paymentapp.SplitBillResponse](t, env)
	require.Len(t, split.Shares, 3)
	assert.True(t, decimal.RequireFromString("6.68").Equal(split.Shares[2]))

	tender := map[string]any{"order_id": o.ID, "amount": "20.00", "method": "CARD"}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewReader(mustJSON(t, tender)))
	token, err := a.jwt.Sign(scope, time.Minute)
	require.NoError(t, err)
	req.Header.Set(middleware.AuthHeaderKey, middleware.BearerPrefix+token)
	req.Header.Set(IdempotencyKeyHeader, "terminal-1-0001")
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	tender["idempotency_key"] = "terminal-1-0001"
	status, env = a.do(t, &scope, http.MethodPost, "/payments", tender)
	require.Equal(t, http.StatusOK, status, "a replay is not a new resource")
	result := decode[paymentapp.PaymentResult](t, env)
	assert.True(t, result.Replayed)
	assert.True(t, result.OrderClosed)

	status, env = a.do(t, &scope, http.MethodGet, "/orders/"+o.ID.String()+"/payments", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]paymentapp.PaymentResponse](t, env), 1)

	status, env = a.do(t, &scope, http.MethodGet, "/orders/"+o.ID.String(), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "CLOSED", decode[orderapp.OrderResponse](t, env).Status)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestAPI_ErrorMapping(t *testing.T) {
	a := newAPI(t)
	scope := a.h.NewTenant(t)
	o := a.openOrder(t, scope, "10.00")
	path := "/orders/" + o.ID.String()

	t.Run("validation", func(t *testing.T) {
		status, env := a.do(t, &scope, http.MethodPost, path+"/lines", map[string]any{
			"expected_version": o.Version,
			"menu_item_id":     uuid.New(),
			"name":             "Sopa",
			"quantity":         1,
			"unit_price":       "1.999",
		})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, dto.ErrCodeValidation, env.Error.Code)
		require.NotEmpty(t, env.Error.Details)
		assert.Equal(t, "unit_price", env.Error.Details[0].Field)
	})

	t.Run("stale version", func(t *testing.T) {
		status, env := a.do(t, &scope, http.MethodPost, path+"/confirm", map[string]any{"expected_version": o.Version + 5})
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, shared.CodeConcurrentModification, env.Error.Code)
	})

	t.Run("other tenant", func(t *testing.T) {
		other := a.h.NewTenant(t)
		status, env := a.do(t, &other, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, shared.CodeOrderNotFound, env.Error.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		status, env := a.do(t, &scope, http.MethodGet, "/orders/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, dto.ErrCodeBadRequest, env.Error.Code)
	})

	t.Run("permission", func(t *testing.T) {
		status, env := a.do(t, &scope, http.MethodGet, "/system/outbox/stats", nil)
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, shared.ErrForbidden.Code, env.Error.Code)
	})
}

func TestAPI_CashSession(t *testing.T) {
	a := newAPI(t)
	scope := a.h.NewTenant(t, shared.PermissionManageCash)

	status, env := a.do(t, &scope, http.MethodPost, "/cash-sessions", map[string]any{
		"register_id":    uuid.New(),
		"opening_amount": "100.00",
	})
	require.Equal(t, http.StatusCreated, status, env.Error)
	session := decode[cashapp.SessionResponse](t, env)
	path := "/cash-sessions/" + session.ID.String()

	status, env = a.do(t, &scope, http.MethodPost, path+"/withdrawals", map[string]any{
		"expected_version": session.Version,
		"amount":           "30.00",
		"note":             "supplier",
	})
	require.Equal(t, http.StatusOK, status, env.Error)
	session = decode[cashapp.SessionResponse](t, env)
	assert.True(t, decimal.RequireFromString("70").Equal(session.ExpectedCash))

	status, env = a.do(t, &scope, http.MethodPost, path+"/close", map[string]any{
		"expected_version": session.Version,
		"actual_amount":    "68.00",
	})
	require.Equal(t, http.StatusOK, status, env.Error)
	closed := decode[cashapp.SessionResponse](t, env)
	assert.Equal(t, "CLOSED", closed.Status)
	require.NotNil(t, closed.Variance)
	assert.True(t, decimal.RequireFromString("-2").Equal(*closed.Variance))

	status, env = a.do(t, &scope, http.MethodGet, path+"/movements", nil)
	require.Equal(t, http.StatusOK, status)
	var types []string
	for _, m := range decode[[]cashapp.MovementResponse](t, env) {
		types = append(types, m.Type)
	}
	assert.Equal(t, []string{"OPENING", "WITHDRAWAL", "CLOSING"}, types)
}

func TestAPI_PrintingFlow(t *testing.T) {
	a := newAPI(t)
	scope := a.h.NewTenant(t, shared.PermissionConfigurePrinters)

	status, env := a.do(t, &scope, http.MethodPost, "/printers", map[string]any{
		"name":       "Grill",
		"address":    "10.0.0.5:9100",
		"stations":   []string{"grill"},
		"is_default": true,
	})
	require.Equal(t, http.StatusCreated, status, env.Error)

	o := a.openOrder(t, scope, "9.00", "4.00")
	status, env = a.do(t, &scope, http.MethodPost, "/orders/"+o.ID.String()+"/confirm", map[string]any{"expected_version": o.Version})
	require.Equal(t, http.StatusOK, status, env.Error)
	a.h.Deliver(t)

	status, env = a.do(t, &scope, http.MethodGet, "/orders/"+o.ID.String()+"/print-jobs", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]printapp.PrintJobResponse](t, env), 2)

	status, env = a.do(t, &scope, http.MethodPost, "/printers/dispatch", nil)
	require.Equal(t, http.StatusOK, status, env.Error)
	assert.Equal(t, 2, decode[printapp.DispatchResult](t, env).Sent)
	assert.Len(t, a.sink.sent, 2)

	status, env = a.do(t, &scope, http.MethodGet, "/printers", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]printapp.PrinterResponse](t, env), 1)
}

func TestAPI_OutboxAdmin(t *testing.T) {
	a := newAPI(t)
	scope := a.h.NewTenant(t, shared.PermissionAdminOutbox)
	o := a.openOrder(t, scope, "5.00")
	_, _ = a.do(t, &scope, http.MethodPost, "/orders/"+o.ID.String()+"/confirm", map[string]any{"expected_version": o.Version})

	status, env := a.do(t, &scope, http.MethodGet, "/system/outbox/stats", nil)
	require.Equal(t, http.StatusOK, status, env.Error)
	stats := decode[event.OutboxStatsDTO](t, env)
	assert.Positive(t, stats.Pending)
	assert.Equal(t, stats.Pending, stats.Total, "nothing relayed yet")

	status, env = a.do(t, &scope, http.MethodGet, "/system/outbox/dead?page_size=10", nil)
	require.Equal(t, http.StatusOK, status, env.Error)
	require.NotNil(t, env.Meta)
	assert.Zero(t, env.Meta.Total)
}

func TestAPI_TenantProvisioning(t *testing.T) {
	a := newAPI(t)
	op := shared.Scope{ActorID: uuid.New(), Permissions: []shared.Permission{shared.PermissionProvisionTenants}}

	status, env := a.do(t, &op, http.MethodPost, "/tenants", map[string]any{"name": "Tasca do Zé", "slug": "tasca-do-ze"})
	require.Equal(t, http.StatusCreated, status, env.Error)
	created := decode[tenantapp.TenantResponse](t, env)

	status, env = a.do(t, &op, http.MethodPost, "/tenants", map[string]any{"name": "Again", "slug": "tasca-do-ze"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, shared.ErrAlreadyExists.Code, env.Error.Code)

	member := shared.NewScope(created.ID, uuid.New())
	status, env = a.do(t, &member, http.MethodGet, "/tenants/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, status, env.Error)
	assert.Equal(t, "tasca-do-ze", decode[tenantapp.TenantResponse](t, env).Slug)

	status, _ = a.do(t, &member, http.MethodGet, "/tenants", nil)
	assert.Equal(t, http.StatusForbidden, status)
}
