package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/order"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/persistence/models"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func orderedLines(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}

// FindByID loads an order with its lines
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var model models.OrderModel
	err := tenant.DB(ctx, r.db).
		Preload("Lines", orderedLines).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists orders, newest first unless the filter asks otherwise
func (r *GormOrderRepository) FindAll(ctx context.Context, filter order.ListFilter) ([]*order.Order, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Model(&models.OrderModel{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.OrderModel
	if err := r.filtered(ctx, filter).
		Preload("Lines", orderedLines).
		Order(orderClause(filter.OrderBy, filter.OrderDir, OrderSortFields, "created_at")).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	orders := make([]*order.Order, 0, len(rows))
	for i := range rows {
		orders = append(orders, rows[i].ToDomain())
	}
	return orders, total, nil
}

func (r *GormOrderRepository) filtered(ctx context.Context, filter order.ListFilter) *gorm.DB {
	query := tenant.DB(ctx, r.db)
	if filter.SiteID != nil {
		query = query.Where("site_id = ?", *filter.SiteID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	return query
}

// Create inserts a new order and its lines
func (r *GormOrderRepository) Create(ctx context.Context, o *order.Order) error {
	model := models.OrderModelFromDomain(o)
	if err := tenant.DB(ctx, r.db).Omit(clause.Associations).Create(model).Error; err != nil {
		return err
	}
	if len(model.Lines) == 0 {
		return nil
	}
	return tenant.DB(ctx, r.db).Create(&model.Lines).Error
}

// Save writes the order header through the version guard, then upserts its
// lines. On success o.Version is expectedVersion+1.
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order, expectedVersion int) error {
	model := models.OrderModelFromDomain(o)
	err := GuardedUpdate(ctx, r.db, &models.OrderModel{}, o.ID, expectedVersion, map[string]any{
		"table_ref":    model.TableRef,
		"status":       model.Status,
		"total":        model.Total,
		"void_reason":  model.VoidReason,
		"confirmed_at": model.ConfirmedAt,
		"closed_at":    model.ClosedAt,
		"voided_at":    model.VoidedAt,
		"updated_at":   model.UpdatedAt,
	})
	if err != nil {
		return err
	}

	if len(model.Lines) > 0 {
		err = tenant.DB(ctx, r.db).
			Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"quantity", "unit_price", "notes", "status", "void_reason", "updated_at",
				}),
				Where: clause.Where{Exprs: []clause.Expression{
					clause.Expr{SQL: "order_lines.tenant_id = excluded.tenant_id"},
				}},
			}).
			Create(&model.Lines).Error
		if err != nil {
			return fmt.Errorf("upsert order lines: %w", err)
		}
	}

	o.Version = expectedVersion + 1
	return nil
}

// SaveConsumptions appends the consumption records produced by Confirm
func (r *GormOrderRepository) SaveConsumptions(ctx context.Context, consumptions []order.Consumption) error {
	if len(consumptions) == 0 {
		return nil
	}
	rows := make([]models.ConsumptionModel, 0, len(consumptions))
	for _, c := range consumptions {
		rows = append(rows, models.ConsumptionModelFromDomain(c))
	}
	return tenant.DB(ctx, r.db).Create(&rows).Error
}

// SaveWaste appends a waste record
func (r *GormOrderRepository) SaveWaste(ctx context.Context, waste *order.WasteRecord) error {
	return tenant.DB(ctx, r.db).Create(models.WasteRecordModelFromDomain(waste)).Error
}

// FindConsumptions lists the consumptions recorded for an order
func (r *GormOrderRepository) FindConsumptions(ctx context.Context, orderID uuid.UUID) ([]order.Consumption, error) {
	var rows []models.ConsumptionModel
	if err := tenant.DB(ctx, r.db).
		Where("order_id = ?", orderID).
		Order("consumed_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]order.Consumption, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

var _ order.Repository = (*GormOrderRepository)(nil)
