package persistence

import (
	"context"
	"errors"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/payment"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/persistence/models"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPaymentRepository implements payment.Repository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// Create inserts a payment. A second payment with the same idempotency key
// violates uq_payments_tenant_key and fails with
// payment.ErrDuplicateIdempotencyKey.
func (r *GormPaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	err := tenant.DB(ctx, r.db).Create(models.PaymentModelFromDomain(p)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return payment.ErrDuplicateIdempotencyKey
	}
	return err
}

func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	var model models.PaymentModel
	if err := tenant.DB(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(shared.ErrNotFound.Code, "Payment not found")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByOrder lists every payment of an order in creation order
func (r *GormPaymentRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]*payment.Payment, error) {
	var rows []models.PaymentModel
	if err := tenant.DB(ctx, r.db).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*payment.Payment, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// Save persists status changes through the version guard
func (r *GormPaymentRepository) Save(ctx context.Context, p *payment.Payment, expectedVersion int) error {
	err := GuardedUpdate(ctx, r.db, &models.PaymentModel{}, p.ID, expectedVersion, map[string]any{
		"status":        p.Status,
		"change_amount": p.Change,
		"completed_at":  p.CompletedAt,
		"voided_at":     p.VoidedAt,
		"void_reason":   p.VoidReason,
		"updated_at":    p.UpdatedAt,
	})
	if err != nil {
		return err
	}
	p.Version = expectedVersion + 1
	return nil
}

// SaveVoidAudit appends a void audit row
func (r *GormPaymentRepository) SaveVoidAudit(ctx context.Context, audit *payment.VoidAudit) error {
	return tenant.DB(ctx, r.db).Create(models.PaymentVoidAuditModelFromDomain(audit)).Error
}

var _ payment.Repository = (*GormPaymentRepository)(nil)
