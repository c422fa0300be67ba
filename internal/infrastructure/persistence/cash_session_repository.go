package persistence

import (
	"context"
	"errors"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/cashregister"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/persistence/models"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errSessionNotFound = shared.NewDomainError(shared.ErrNotFound.Code, "Cash session not found")

// GormCashSessionRepository implements cashregister.Repository using GORM
type GormCashSessionRepository struct {
	db *gorm.DB
}

// NewGormCashSessionRepository creates a new GormCashSessionRepository
func NewGormCashSessionRepository(db *gorm.DB) *GormCashSessionRepository {
	return &GormCashSessionRepository{db: db}
}

// Create inserts the session together with its OPENING movement. A second
// OPEN session for the register violates uq_cash_sessions_open_register.
func (r *GormCashSessionRepository) Create(ctx context.Context, s *cashregister.Session, opening *cashregister.Movement) error {
	if err := tenant.DB(ctx, r.db).Create(models.CashSessionModelFromDomain(s)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return cashregister.ErrSessionAlreadyOpen
		}
		return err
	}
	if opening == nil {
		return nil
	}
	return r.AppendMovement(ctx, opening)
}

func (r *GormCashSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*cashregister.Session, error) {
	return r.first(tenant.DB(ctx, r.db).Where("id = ?", id))
}

// FindOpenByRegister returns the register's OPEN session
func (r *GormCashSessionRepository) FindOpenByRegister(ctx context.Context, registerID uuid.UUID) (*cashregister.Session, error) {
	return r.first(tenant.DB(ctx, r.db).
		Where("register_id = ? AND status = ?", registerID, cashregister.SessionStatusOpen).
		Order("opened_at DESC"))
}

func (r *GormCashSessionRepository) first(query *gorm.DB) (*cashregister.Session, error) {
	var model models.CashSessionModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errSessionNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save persists running totals and closing figures through the version guard
func (r *GormCashSessionRepository) Save(ctx context.Context, s *cashregister.Session, expectedVersion int) error {
	err := GuardedUpdate(ctx, r.db, &models.CashSessionModel{}, s.ID, expectedVersion, map[string]any{
		"status":            s.Status,
		"deposits_total":    s.DepositsTotal,
		"sales_total":       s.SalesTotal,
		"withdrawals_total": s.WithdrawalsTotal,
		"expected_close":    s.ExpectedClose,
		"actual_close":      s.ActualClose,
		"variance":          s.Variance,
		"closed_at":         s.ClosedAt,
		"updated_at":        s.UpdatedAt,
	})
	if err != nil {
		return err
	}
	s.Version = expectedVersion + 1
	return nil
}

// AppendMovement inserts a journal entry. Movements are never updated.
func (r *GormCashSessionRepository) AppendMovement(ctx context.Context, m *cashregister.Movement) error {
	return tenant.DB(ctx, r.db).Create(models.CashMovementModelFromDomain(m)).Error
}

// InsertSale appends a SALE unless one already exists for the payment. The
// (tenant_id, payment_id) unique index turns a redelivery into a no-op.
func (r *GormCashSessionRepository) InsertSale(ctx context.Context, m *cashregister.Movement) (bool, error) {
	result := tenant.DB(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(models.CashMovementModelFromDomain(m))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListMovements returns the session journal in write order
func (r *GormCashSessionRepository) ListMovements(ctx context.Context, sessionID uuid.UUID) ([]*cashregister.Movement, error) {
	var rows []models.CashMovementModel
	if err := tenant.DB(ctx, r.db).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*cashregister.Movement, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

var _ cashregister.Repository = (*GormCashSessionRepository)(nil)
