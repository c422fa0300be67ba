package payment

import (
	"testing"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var money = valueobject.MustMoney

func cashier() shared.Scope {
	return shared.NewScope(uuid.New(), uuid.New())
}

func TestNewPayment_Validation(t *testing.T) {
	register := uuid.New()
	scope := cashier()

	tests := []struct {
		name    string
		amount  decimal.Decimal
		method  Method
		key     string
		reg     *uuid.UUID
		wantErr error
	}{
		{"zero amount", money("0"), MethodCard, "k", nil, shared.ErrInsufficientAmount},
		{"negative amount", money("-5"), MethodCard, "k", nil, shared.ErrInsufficientAmount},
		{"rounds to zero", decimal.RequireFromString("0.004"), MethodCard, "k", nil, shared.ErrInsufficientAmount},
		{"unknown method", money("5"), Method("CHEQUE"), "k", nil, shared.ErrInvalidInput},
		{"missing key", money("5"), MethodCard, "", nil, shared.ErrInvalidInput},
		{"cash without register", money("5"), MethodCash, "k", nil, shared.ErrInvalidInput},
		{"ok", money("5"), MethodCash, "k", &register, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPayment(scope, uuid.New(), tt.amount, tt.method, tt.key, tt.reg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusPending, p.Status)
			assert.Equal(t, scope.TenantID, p.TenantID)
			assert.Equal(t, scope.ActorID, p.TenderedBy)
		})
	}

	_, err := NewPayment(shared.Scope{}, uuid.New(), money("1"), MethodCard, "k", nil)
	assert.ErrorIs(t, err, shared.ErrMissingTenantContext)
}

func TestPayment_CompleteCash_Overpayment(t *testing.T) {
	register := uuid.New()
	p, err := NewPayment(cashier(), uuid.New(), money("100.00"), MethodCash, "k-1", &register)
	require.NoError(t, err)

	require.NoError(t, p.Complete(money("50.00")))

	assert.Equal(t, StatusCompleted, p.Status)
	assert.True(t, p.Change.Equal(money("50.00")))
	assert.True(t, p.Retained().Equal(money("50.00")))

	events := p.GetDomainEvents()
	require.Len(t, events, 1)
	completed := events[0].(*PaymentCompletedEvent)
	assert.Equal(t, p.ID, completed.PaymentID)
	assert.Equal(t, MethodCash, completed.Method)
	assert.Equal(t, register, *completed.RegisterID)
	assert.True(t, completed.Retained().Equal(money("50.00")))

	assert.ErrorIs(t, p.Complete(money("1")), shared.ErrInvalidState)
}

func TestPayment_CompleteCard_NoChange(t *testing.T) {
	p, err := NewPayment(cashier(), uuid.New(), money("60.00"), MethodCard, "k-2", nil)
	require.NoError(t, err)
	require.NoError(t, p.Complete(money("50.00")))
	assert.True(t, p.Change.IsZero())
}

func TestPayment_Void(t *testing.T) {
	p, err := NewPayment(cashier(), uuid.New(), money("10"), MethodCard, "k-3", nil)
	require.NoError(t, err)
	require.NoError(t, p.Complete(money("10")))
	p.ClearDomainEvents()

	_, err = p.Void(shared.NewScope(p.TenantID, uuid.New()), "duplicate swipe")
	assert.ErrorIs(t, err, shared.ErrForbidden)

	manager := shared.NewScope(p.TenantID, uuid.New(), shared.PermissionVoidPayment)
	_, err = p.Void(manager, "")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	audit, err := p.Void(manager, "duplicate swipe")
	require.NoError(t, err)
	assert.Equal(t, StatusVoided, p.Status)
	assert.Equal(t, StatusCompleted, audit.PreviousStatus)
	assert.Equal(t, manager.ActorID, audit.VoidedBy)
	assert.Equal(t, p.ID, audit.PaymentID)
	assert.Equal(t, EventTypePaymentVoided, p.GetDomainEvents()[0].EventType())

	_, err = p.Void(manager, "again")
	assert.ErrorIs(t, err, shared.ErrAlreadyVoided)
}

func TestCalculateChange(t *testing.T) {
	assert.True(t, CalculateChange(money("50.00"), money("100.00")).Equal(money("50.00")))
	assert.True(t, CalculateChange(money("50.00"), money("50.00")).IsZero())
	assert.True(t, CalculateChange(money("50.00"), money("20.00")).IsZero(), "never negative")
}

func TestSplitAmount(t *testing.T) {
	shares, err := SplitAmount(money("100.00"), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"33.33", "33.33", "33.34"}, []string{shares[0].StringFixed(2), shares[1].StringFixed(2), shares[2].StringFixed(2)})

	_, err = SplitAmount(money("100.00"), 0)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestSumCompleted(t *testing.T) {
	done := &Payment{Amount: money("20"), Status: StatusCompleted}
	voided := &Payment{Amount: money("30"), Status: StatusVoided}
	pending := &Payment{Amount: money("5"), Status: StatusPending}
	assert.True(t, SumCompleted([]*Payment{done, voided, pending}).Equal(money("20")))
}
