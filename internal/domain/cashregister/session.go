// Package cashregister models the cash drawer: one OPEN session per register,
// an append-only movement journal and the expected-versus-actual close.
package cashregister

import (
	"time"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SessionStatus is OPEN or CLOSED
type SessionStatus string

const (
	SessionStatusOpen   SessionStatus = "OPEN"
	SessionStatusClosed SessionStatus = "CLOSED"
)

// ErrSessionAlreadyOpen is returned when a register already has an OPEN session
var ErrSessionAlreadyOpen = shared.NewDomainError(shared.ErrAlreadyExists.Code, "Register already has an open cash session")

// Session is a drawer shift for one employee on one register. The running
// totals mirror the movement journal so the expected cash is known without a
// scan; they change only together with an appended movement.
type Session struct {
	shared.TenantAggregateRoot
	RegisterID       uuid.UUID
	EmployeeID       uuid.UUID
	Status           SessionStatus
	OpeningAmount    decimal.Decimal
	DepositsTotal    decimal.Decimal
	SalesTotal       decimal.Decimal
	WithdrawalsTotal decimal.Decimal
	ExpectedClose    *decimal.Decimal
	ActualClose      *decimal.Decimal
	Variance         *decimal.Decimal
	OpenedAt         time.Time
	ClosedAt         *time.Time
}

// Open starts a session and returns its OPENING movement
func Open(scope shared.Scope, registerID, employeeID uuid.UUID, openingAmount decimal.Decimal) (*Session, *Movement, error) {
	if err := scope.Validate(); err != nil {
		return nil, nil, err
	}
	if registerID == uuid.Nil || employeeID == uuid.Nil {
		return nil, nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Register and employee are required")
	}
	openingAmount = valueobject.RoundMoney(openingAmount)
	if openingAmount.IsNegative() {
		return nil, nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Opening amount cannot be negative")
	}
	s := &Session{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(scope.TenantID),
		RegisterID:          registerID,
		EmployeeID:          employeeID,
		Status:              SessionStatusOpen,
		OpeningAmount:       openingAmount,
		DepositsTotal:       decimal.Zero,
		SalesTotal:          decimal.Zero,
		WithdrawalsTotal:    decimal.Zero,
	}
	s.OpenedAt = s.CreatedAt
	return s, s.newMovement(MovementOpening, openingAmount, nil, "", scope.ActorID), nil
}

// ExpectedCash is opening + deposits + sales − withdrawals
func (s *Session) ExpectedCash() decimal.Decimal {
	return s.OpeningAmount.Add(s.DepositsTotal).Add(s.SalesTotal).Sub(s.WithdrawalsTotal)
}

func (s *Session) IsOpen() bool { return s.Status == SessionStatusOpen }

func (s *Session) requireOpen() error {
	if !s.IsOpen() {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "Cash session is closed")
	}
	return nil
}

// RecordSale books the cash retained from a payment. The caller guarantees
// at most one sale per payment through the journal's unique constraint.
func (s *Session) RecordSale(paymentID uuid.UUID, amount decimal.Decimal, actor uuid.UUID) (*Movement, error) {
	if err := s.requireOpen(); err != nil {
		return nil, err
	}
	amount = valueobject.RoundMoney(amount)
	if amount.IsNegative() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Sale amount cannot be negative")
	}
	s.SalesTotal = s.SalesTotal.Add(amount)
	s.Touch()
	return s.newMovement(MovementSale, amount, &paymentID, "", actor), nil
}

// Deposit adds float to the drawer
func (s *Session) Deposit(amount decimal.Decimal, note string, actor uuid.UUID) (*Movement, error) {
	if err := s.requireOpen(); err != nil {
		return nil, err
	}
	amount = valueobject.RoundMoney(amount)
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Deposit must be positive")
	}
	s.DepositsTotal = s.DepositsTotal.Add(amount)
	s.Touch()
	return s.newMovement(MovementDeposit, amount, nil, note, actor), nil
}

// Withdraw takes cash out. It cannot exceed the expected cash in the drawer.
func (s *Session) Withdraw(amount decimal.Decimal, note string, actor uuid.UUID) (*Movement, error) {
	if err := s.requireOpen(); err != nil {
		return nil, err
	}
	amount = valueobject.RoundMoney(amount)
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Withdrawal must be positive")
	}
	if amount.GreaterThan(s.ExpectedCash()) {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Withdrawal exceeds expected cash")
	}
	s.WithdrawalsTotal = s.WithdrawalsTotal.Add(amount)
	s.Touch()
	return s.newMovement(MovementWithdrawal, amount, nil, note, actor), nil
}

// Close counts the drawer: expected = opening + deposits + sales − withdrawals,
// variance = actual − expected. Returns the CLOSING movement.
func (s *Session) Close(actual decimal.Decimal, actor uuid.UUID) (*Movement, error) {
	if err := s.requireOpen(); err != nil {
		return nil, err
	}
	actual = valueobject.RoundMoney(actual)
	if actual.IsNegative() {
		return nil, shared.NewDomainError(shared.ErrInvalidInput.Code, "Counted amount cannot be negative")
	}
	expected := s.ExpectedCash()
	variance := actual.Sub(expected)
	now := time.Now()

	s.Status = SessionStatusClosed
	s.ExpectedClose = &expected
	s.ActualClose = &actual
	s.Variance = &variance
	s.ClosedAt = &now
	s.Touch()
	s.AddDomainEvent(NewCashSessionClosedEvent(s))
	return s.newMovement(MovementClosing, actual, nil, "", actor), nil
}

func (s *Session) newMovement(t MovementType, amount decimal.Decimal, paymentID *uuid.UUID, note string, actor uuid.UUID) *Movement {
	return &Movement{
		ID:         uuid.New(),
		TenantID:   s.TenantID,
		SessionID:  s.ID,
		RegisterID: s.RegisterID,
		Type:       t,
		Amount:     amount,
		PaymentID:  paymentID,
		Note:       note,
		CreatedBy:  actor,
		CreatedAt:  time.Now(),
	}
}
