package printing

import (
	"context"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/application/unitofwork"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/printing"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PrintDispatcher hands queued jobs to the printing hardware
type PrintDispatcher struct {
	tx     unitofwork.TransactionScope
	sink   printing.Sink
	batch  int
	logger *zap.Logger
}

func NewPrintDispatcher(tx unitofwork.TransactionScope, sink printing.Sink, logger *zap.Logger, opts ...Option) *PrintDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := buildOptions(opts)
	return &PrintDispatcher{tx: tx, sink: sink, batch: o.batch, logger: logger}
}

// Release moves the printer's WAITING jobs to QUEUED. The printer must no
// longer be in WAIT.
func (d *PrintDispatcher) Release(ctx context.Context, scope shared.Scope, printerID uuid.UUID) (int, error) {
	released := 0
	err := d.tx.Execute(ctx, scope, func(ctx context.Context, repos unitofwork.Repositories) error {
		p, err := repos.Printers().FindByID(ctx, printerID)
		if err != nil {
			return err
		}
		if p.State == printing.PrinterStateWait {
			return shared.NewDomainError(shared.ErrInvalidState.Code, "Printer is still waiting")
		}
		released, err = releaseWaiting(ctx, repos, printerID)
		return err
	})
	if err != nil {
		return 0, err
	}
	if released > 0 {
		d.logger.Info("print jobs released",
			zap.String("printer_id", printerID.String()),
			zap.Int("count", released),
		)
	}
	return released, nil
}

// Dispatch sends one batch of QUEUED jobs, and FAILED jobs with attempts
// left, to the sink. The claimed rows stay locked until the batch commits so
// two dispatchers never send the same job.
func (d *PrintDispatcher) Dispatch(ctx context.Context, scope shared.Scope) (*DispatchResult, error) {
	result := &DispatchResult{}
	err := d.tx.Execute(ctx, scope, func(ctx context.Context, repos unitofwork.Repositories) error {
		*result = DispatchResult{}
		jobs, err := repos.PrintJobs().FindDispatchable(ctx, d.batch)
		if err != nil {
			return err
		}
		for _, job := range jobs {
			if err := ctx.Err(); err != nil {
				return err
			}
			if sendErr := d.sink.Send(ctx, job); sendErr != nil {
				job.MarkFailed(sendErr.Error())
				result.Failed++
				d.logger.Warn("print job failed",
					zap.String("job_id", job.ID.String()),
					zap.String("printer_id", job.PrinterID.String()),
					zap.Int("attempts", job.Attempts),
					zap.Error(sendErr),
				)
			} else {
				if err := job.MarkSent(); err != nil {
					return err
				}
				result.Sent++
			}
			if err := repos.PrintJobs().Update(ctx, job); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
