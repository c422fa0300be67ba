// Package cashregister runs drawer sessions and books cash sales relayed
// from completed payments
package cashregister

import (
	"context"
	"errors"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/application/unitofwork"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/cashregister"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionService opens, funds and closes cash sessions. Each change appends
// one journal movement and writes the session through the version guard.
type SessionService struct {
	tx      unitofwork.TransactionScope
	metrics *telemetry.BusinessMetrics
	logger  *zap.Logger
}

type SessionServiceOption func(*SessionService)

func WithMetrics(m *telemetry.BusinessMetrics) SessionServiceOption {
	return func(s *SessionService) { s.metrics = m }
}

func NewSessionService(tx unitofwork.TransactionScope, logger *zap.Logger, opts ...SessionServiceOption) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SessionService{tx: tx, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open starts a session and writes its OPENING movement. A register has at
// most one OPEN session.
func (s *SessionService) Open(ctx context.Context, scope shared.Scope, req OpenSessionRequest) (*SessionResponse, error) {
	employeeID := scope.ActorID
	if req.EmployeeID != nil {
		employeeID = *req.EmployeeID
	}

	var resp *SessionResponse
	err := s.tx.Execute(ctx, scope, func(ctx context.Context, repos unitofwork.Repositories) error {
		_, err := repos.CashSessions().FindOpenByRegister(ctx, req.RegisterID)
		switch {
		case err == nil:
			return cashregister.ErrSessionAlreadyOpen
		case !errors.Is(err, shared.ErrNotFound):
			return err
		}

		session, opening, err := cashregister.Open(scope, req.RegisterID, employeeID, req.OpeningAmount)
		if err != nil {
			return err
		}
		if err := repos.CashSessions().Create(ctx, session, opening); err != nil {
			return err
		}
		resp = ToSessionResponse(session)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("cash session opened",
		zap.String("tenant_id", scope.TenantID.String()),
		zap.String("register_id", req.RegisterID.String()),
		zap.String("session_id", resp.ID.String()),
		zap.String("opening_amount", resp.OpeningAmount.StringFixed(2)),
	)
	return resp, nil
}

// Deposit adds float to the drawer
func (s *SessionService) Deposit(ctx context.Context, scope shared.Scope, sessionID uuid.UUID, req MovementRequest) (*SessionResponse, error) {
	return s.mutate(ctx, scope, sessionID, req.ExpectedVersion, func(session *cashregister.Session) (*cashregister.Movement, error) {
		return session.Deposit(req.Amount, req.Note, scope.ActorID)
	})
}

// Withdraw takes cash out of the drawer. It needs cash:manage.
func (s *SessionService) Withdraw(ctx context.Context, scope shared.Scope, sessionID uuid.UUID, req MovementRequest) (*SessionResponse, error) {
	if err := scope.Authorize(shared.PermissionManageCash); err != nil {
		return nil, err
	}
	return s.mutate(ctx, scope, sessionID, req.ExpectedVersion, func(session *cashregister.Session) (*cashregister.Movement, error) {
		return session.Withdraw(req.Amount, req.Note, scope.ActorID)
	})
}

// Close counts the drawer and records expected, actual and variance
func (s *SessionService) Close(ctx context.Context, scope shared.Scope, sessionID uuid.UUID, req CloseSessionRequest) (*SessionResponse, error) {
	resp, err := s.mutate(ctx, scope, sessionID, req.ExpectedVersion, func(session *cashregister.Session) (*cashregister.Movement, error) {
		return session.Close(req.ActualAmount, scope.ActorID)
	})
	if err != nil {
		return nil, err
	}
	fields := []zap.Field{
		zap.String("session_id", sessionID.String()),
		zap.String("expected", resp.ExpectedCash.StringFixed(2)),
		zap.String("actual", resp.ActualClose.StringFixed(2)),
		zap.String("variance", resp.Variance.StringFixed(2)),
	}
	if resp.Variance.IsZero() {
		s.logger.Info("cash session closed", fields...)
	} else {
		s.logger.Warn("cash session closed with variance", fields...)
	}
	return resp, nil
}

func (s *SessionService) Get(ctx context.Context, scope shared.Scope, sessionID uuid.UUID) (*SessionResponse, error) {
	var resp *SessionResponse
	err := s.tx.Execute(ctx, scope, func(ctx context.Context, repos unitofwork.Repositories) error {
		session, err := repos.CashSessions().FindByID(ctx, sessionID)
		if err != nil {
			return err
		}
		resp = ToSessionResponse(session)
		return nil
	})
	return resp, err
}

// Movements returns the session journal in write order
func (s *SessionService) Movements(ctx context.Context, scope shared.Scope, sessionID uuid.UUID) ([]MovementResponse, error) {
	var out []MovementResponse
	err := s.tx.Execute(ctx, scope, func(ctx context.Context, repos unitofwork.Repositories) error {
		if _, err := repos.CashSessions().FindByID(ctx, sessionID); err != nil {
			return err
		}
		movements, err := repos.CashSessions().ListMovements(ctx, sessionID)
		if err != nil {
			return err
		}
		out = make([]MovementResponse, 0, len(movements))
		for _, m := range movements {
			out = append(out, ToMovementResponse(m))
		}
		return nil
	})
	return out, err
}

func (s *SessionService) mutate(
	ctx context.Context,
	scope shared.Scope,
	sessionID uuid.UUID,
	expectedVersion int,
	fn func(session *cashregister.Session) (*cashregister.Movement, error),
) (*SessionResponse, error) {
	var resp *SessionResponse
	err := s.tx.Execute(ctx, scope, func(ctx context.Context, repos unitofwork.Repositories) error {
		session, err := repos.CashSessions().FindByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.Version != expectedVersion {
			return shared.ErrConcurrentModification
		}
		movement, err := fn(session)
		if err != nil {
			return err
		}
		if err := repos.CashSessions().Save(ctx, session, expectedVersion); err != nil {
			return err
		}
		if err := repos.CashSessions().AppendMovement(ctx, movement); err != nil {
			return err
		}
		if err := unitofwork.RecordEvents(ctx, repos, session); err != nil {
			return err
		}
		resp = ToSessionResponse(session)
		return nil
	})
	if errors.Is(err, shared.ErrConcurrentModification) {
		s.metrics.OptimisticConflict(ctx, cashregister.AggregateTypeCashSession)
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}
