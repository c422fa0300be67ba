package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/printing"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/persistence/models"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPrinterRepository implements printing.PrinterRepository using GORM
type GormPrinterRepository struct {
	db *gorm.DB
}

// NewGormPrinterRepository creates a new GormPrinterRepository
func NewGormPrinterRepository(db *gorm.DB) *GormPrinterRepository {
	return &GormPrinterRepository{db: db}
}

func (r *GormPrinterRepository) Create(ctx context.Context, p *printing.Printer) error {
	return tenant.DB(ctx, r.db).Create(models.PrinterModelFromDomain(p)).Error
}

func (r *GormPrinterRepository) FindByID(ctx context.Context, id uuid.UUID) (*printing.Printer, error) {
	var model models.PrinterModel
	if err := tenant.DB(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError(shared.ErrNotFound.Code, "Printer not found")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns the tenant's printers, oldest first
func (r *GormPrinterRepository) FindAll(ctx context.Context) ([]*printing.Printer, error) {
	return r.findAll(tenant.DB(ctx, r.db))
}

// FindAllForUpdate is FindAll holding row locks until the transaction ends.
// Every configuration change takes these locks first, so two changes of one
// tenant never validate against the same snapshot.
func (r *GormPrinterRepository) FindAllForUpdate(ctx context.Context) ([]*printing.Printer, error) {
	return r.findAll(tenant.DB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}))
}

func (r *GormPrinterRepository) findAll(q *gorm.DB) ([]*printing.Printer, error) {
	var rows []models.PrinterModel
	if err := q.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*printing.Printer, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// Save persists configuration changes through the version guard
func (r *GormPrinterRepository) Save(ctx context.Context, p *printing.Printer, expectedVersion int) error {
	// map updates bypass the column serializer
	stations, err := json.Marshal(p.Stations)
	if err != nil {
		return fmt.Errorf("marshal printer stations: %w", err)
	}
	err = GuardedUpdate(ctx, r.db, &models.PrinterModel{}, p.ID, expectedVersion, map[string]any{
		"name":        p.Name,
		"address":     p.Address,
		"stations":    string(stations),
		"is_default":  p.IsDefault,
		"state":       p.State,
		"redirect_to": p.RedirectTo,
		"updated_at":  p.UpdatedAt,
	})
	if err != nil {
		return err
	}
	p.Version = expectedVersion + 1
	return nil
}

var _ printing.PrinterRepository = (*GormPrinterRepository)(nil)
