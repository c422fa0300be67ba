package persistence

import (
	"context"
	"time"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/printing"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/persistence/models"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MaxPrintAttempts bounds how often a FAILED job is handed back to the sink
const MaxPrintAttempts = 5

// GormPrintJobRepository implements printing.JobRepository using GORM
type GormPrintJobRepository struct {
	db *gorm.DB
}

// NewGormPrintJobRepository creates a new GormPrintJobRepository
func NewGormPrintJobRepository(db *gorm.DB) *GormPrintJobRepository {
	return &GormPrintJobRepository{db: db}
}

// Insert writes job unless (tenant_id, dedupe_key) already exists
func (r *GormPrintJobRepository) Insert(ctx context.Context, job *printing.Job) (bool, error) {
	result := tenant.DB(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(models.PrintJobModelFromDomain(job))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormPrintJobRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]*printing.Job, error) {
	return r.find(tenant.DB(ctx, r.db).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC"))
}

func (r *GormPrintJobRepository) FindByPrinterAndStatus(ctx context.Context, printerID uuid.UUID, status printing.JobStatus, limit int) ([]*printing.Job, error) {
	return r.find(tenant.DB(ctx, r.db).
		Where("printer_id = ? AND status = ?", printerID, status).
		Order("created_at ASC, id ASC").
		Limit(limit))
}

// FindDispatchable claims QUEUED jobs and FAILED jobs with attempts left,
// skipping rows another dispatcher has locked
func (r *GormPrintJobRepository) FindDispatchable(ctx context.Context, limit int) ([]*printing.Job, error) {
	return r.find(tenant.DB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ? OR (status = ? AND attempts < ?)",
			printing.JobStatusQueued, printing.JobStatusFailed, MaxPrintAttempts).
		Order("created_at ASC, id ASC").
		Limit(limit))
}

func (r *GormPrintJobRepository) find(query *gorm.DB) ([]*printing.Job, error) {
	var rows []models.PrintJobModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*printing.Job, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// Update persists the job's delivery state
func (r *GormPrintJobRepository) Update(ctx context.Context, job *printing.Job) error {
	job.UpdatedAt = time.Now()
	return tenant.DB(ctx, r.db).
		Model(&models.PrintJobModel{}).
		Where("id = ?", job.ID).
		Updates(map[string]any{
			"printer_id": job.PrinterID,
			"status":     job.Status,
			"attempts":   job.Attempts,
			"last_error": job.LastError,
			"sent_at":    job.SentAt,
			"updated_at": job.UpdatedAt,
		}).Error
}

var _ printing.JobRepository = (*GormPrintJobRepository)(nil)
