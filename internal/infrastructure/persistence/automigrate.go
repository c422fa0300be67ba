package persistence

import (
	"fmt"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// AllModels lists every table the core owns. Production schema comes from
// the SQL migrations; this list backs AutoMigrate for sqlite test and local
// databases.
func AllModels() []any {
	return []any{
		&models.TenantModel{},
		&models.OrderModel{},
		&models.OrderLineModel{},
		&models.ConsumptionModel{},
		&models.WasteRecordModel{},
		&models.PaymentModel{},
		&models.PaymentVoidAuditModel{},
		&models.CashSessionModel{},
		&models.CashMovementModel{},
		&models.PrinterModel{},
		&models.PrintJobModel{},
		&models.IdempotencyKeyModel{},
		&models.OutboxEntryModel{},
	}
}

// AutoMigrate creates or updates the tables in AllModels
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
