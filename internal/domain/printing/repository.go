package printing

import (
	"context"

	"github.com/google/uuid"
)

// PrinterRepository persists printer configuration for the tenant bound to ctx
type PrinterRepository interface {
	Create(ctx context.Context, p *Printer) error
	FindByID(ctx context.Context, id uuid.UUID) (*Printer, error)
	FindAll(ctx context.Context) ([]*Printer, error)
	// FindAllForUpdate locks the tenant's printers for the rest of the transaction
	FindAllForUpdate(ctx context.Context) ([]*Printer, error)
	// Save is guarded by expectedVersion
	Save(ctx context.Context, p *Printer, expectedVersion int) error
}

// JobRepository persists print jobs for the tenant bound to ctx
type JobRepository interface {
	// Insert writes the job unless (tenant, dedupe key) exists and reports
	// whether a row was written
	Insert(ctx context.Context, job *Job) (bool, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]*Job, error)
	FindByPrinterAndStatus(ctx context.Context, printerID uuid.UUID, status JobStatus, limit int) ([]*Job, error)
	FindDispatchable(ctx context.Context, limit int) ([]*Job, error)
	Update(ctx context.Context, job *Job) error
}

// Sink is the printing hardware collaborator. It owns network I/O.
type Sink interface {
	Send(ctx context.Context, job *Job) error
}
