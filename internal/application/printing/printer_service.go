// Package printing configures kitchen printers and turns confirmed order
// lines into print jobs
package printing

import (
	"context"
	"errors"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/application/unitofwork"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/printing"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PrinterService manages a tenant's printer configuration. Every write needs
// printer:configure and goes through the version guard.
type PrinterService struct {
	tx      unitofwork.TransactionScope
	metrics *telemetry.BusinessMetrics
	logger  *zap.Logger
}

type Option func(*options)

type options struct {
	metrics *telemetry.BusinessMetrics
	batch   int
}

func WithMetrics(m *telemetry.BusinessMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithBatchSize bounds how many jobs one dispatch pass claims
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batch = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{batch: 50}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func NewPrinterService(tx unitofwork.TransactionScope, logger *zap.Logger, opts ...Option) *PrinterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := buildOptions(opts)
	return &PrinterService{tx: tx, metrics: o.metrics, logger: logger}
}

// Configure creates a printer. A new default printer takes the flag from the
// previous one.
func (s *PrinterService) Configure(ctx context.Context, scope shared.Scope, req CreatePrinterRequest) (*PrinterResponse, error) {
	if err := scope.Authorize(shared.PermissionConfigurePrinters); err != nil {
		return nil, err
	}
	var resp *PrinterResponse
	err := s.tx.Execute(ctx, scope, func(ctx context.Context, repos unitofwork.Repositories) error {
		p, err := printing.NewPrinter(scope.TenantID, req.Name, req.Address, req.Stations, req.IsDefault)
		if err != nil {
			return err
		}
		if _, err := repos.Printers().FindAllForUpdate(ctx); err != nil {
			return err
		}
		if p.IsDefault {
			if err := demoteDefaults(ctx, repos, uuid.Nil); err != nil {
				return err
			}
		}
		if err := repos.Printers().Create(ctx, p); err != nil {
			return err
		}
		resp = ToPrinterResponse(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("printer configured",
		zap.String("tenant_id", scope.TenantID.String()),
		zap.String("printer_id", resp.ID.String()),
		zap.Strings("stations", resp.Stations),
	)
	return resp, nil
}

// Update changes the address, the stations served or the default flag
func (s *PrinterService) Update(ctx context.Context, scope shared.Scope, printerID uuid.UUID, req UpdatePrinterRequest) (*PrinterResponse, error) {
	if err := scope.Authorize(shared.PermissionConfigurePrinters); err != nil {
		return nil, err
	}
	return s.mutate(ctx, scope, printerID, req.ExpectedVersion, func(ctx context.Context, repos unitofwork.Repositories, _ printing.Config, p *printing.Printer) error {
		if req.Address != nil {
			p.Address = *req.Address
		}
		if req.Stations != nil {
			p.SetStations(req.Stations)
		}
		if req.IsDefault != nil && *req.IsDefault != p.IsDefault {
			if *req.IsDefault {
				if err := demoteDefaults(ctx, repos, p.ID); err != nil {
					return err
				}
			}
			p.IsDefault = *req.IsDefault
			p.Touch()
		}
		return nil
	})
}

// SetState changes how jobs routed to the printer are handled. A redirect is
// checked against the whole configuration and refused when it would close a
// loop. Returning to NORMAL releases the jobs that were WAITING.
func (s *PrinterService) SetState(ctx context.Context, scope shared.Scope, printerID uuid.UUID, req SetPrinterStateRequest) (*PrinterResponse, error) {
	if err := scope.Authorize(shared.PermissionConfigurePrinters); err != nil {
		return nil, err
	}
	state := printing.PrinterState(req.State)
	released := 0
	resp, err := s.mutate(ctx, scope, printerID, req.ExpectedVersion, func(ctx context.Context, repos unitofwork.Repositories, cfg printing.Config, p *printing.Printer) error {
		if err := p.SetState(state, req.RedirectTo); err != nil {
			return err
		}
		if state == printing.PrinterStateRedirect {
			if err := cfg.ValidateRedirect(p.ID, *req.RedirectTo); err != nil {
				return err
			}
		}
		if state == printing.PrinterStateNormal {
			n, err := releaseWaiting(ctx, repos, p.ID)
			if err != nil {
				return err
			}
			released = n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("printer state changed",
		zap.String("printer_id", printerID.String()),
		zap.String("state", resp.State),
		zap.Int("released_jobs", released),
	)
	return resp, nil
}

func (s *PrinterService) Get(ctx context.Context, scope shared.Scope, printerID uuid.UUID) (*PrinterResponse, error) {
	var resp *PrinterResponse
	err := s.tx.Execute(ctx, scope, func(ctx context.Context, repos unitofwork.Repositories) error {
		p, err := repos.Printers().FindByID(ctx, printerID)
		if err != nil {
			return err
		}
		resp = ToPrinterResponse(p)
		return nil
	})
	return resp, err
}

func (s *PrinterService) List(ctx context.Context, scope shared.Scope) ([]PrinterResponse, error) {
	var out []PrinterResponse
	err := s.tx.Execute(ctx, scope, func(ctx context.Context, repos unitofwork.Repositories) error {
		printers, err := repos.Printers().FindAll(ctx)
		if err != nil {
			return err
		}
		out = make([]PrinterResponse, 0, len(printers))
		for _, p := range printers {
			out = append(out, *ToPrinterResponse(p))
		}
		return nil
	})
	return out, err
}

// JobsForOrder lists the print jobs materialized for an order
func (s *PrinterService) JobsForOrder(ctx context.Context, scope shared.Scope, orderID uuid.UUID) ([]PrintJobResponse, error) {
	var out []PrintJobResponse
	err := s.tx.Execute(ctx, scope, func(ctx context.Context, repos unitofwork.Repositories) error {
		jobs, err := repos.PrintJobs().FindByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		out = make([]PrintJobResponse, 0, len(jobs))
		for _, j := range jobs {
			out = append(out, ToPrintJobResponse(j))
		}
		return nil
	})
	return out, err
}

func (s *PrinterService) mutate(
	ctx context.Context,
	scope shared.Scope,
	printerID uuid.UUID,
	expectedVersion int,
	fn func(ctx context.Context, repos unitofwork.Repositories, cfg printing.Config, p *printing.Printer) error,
) (*PrinterResponse, error) {
	var resp *PrinterResponse
	err := s.tx.Execute(ctx, scope, func(ctx context.Context, repos unitofwork.Repositories) error {
		// redirect validation reads every printer, so changes serialize per tenant
		printers, err := repos.Printers().FindAllForUpdate(ctx)
		if err != nil {
			return err
		}
		cfg := printing.NewConfig(printers)
		p, ok := cfg[printerID]
		if !ok {
			return shared.NewDomainError(shared.ErrNotFound.Code, "Printer not found")
		}
		if p.Version != expectedVersion {
			return shared.ErrConcurrentModification
		}
		if err := fn(ctx, repos, cfg, p); err != nil {
			return err
		}
		if err := repos.Printers().Save(ctx, p, expectedVersion); err != nil {
			return err
		}
		resp = ToPrinterResponse(p)
		return nil
	})
	if errors.Is(err, shared.ErrConcurrentModification) {
		s.metrics.OptimisticConflict(ctx, "Printer")
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// demoteDefaults clears the default flag on every printer except keep
func demoteDefaults(ctx context.Context, repos unitofwork.Repositories, keep uuid.UUID) error {
	printers, err := repos.Printers().FindAll(ctx)
	if err != nil {
		return err
	}
	for _, p := range printers {
		if !p.IsDefault || p.ID == keep {
			continue
		}
		expected := p.Version
		p.IsDefault = false
		p.Touch()
		if err := repos.Printers().Save(ctx, p, expected); err != nil {
			return err
		}
	}
	return nil
}

// releaseWaiting moves every WAITING job of a printer to QUEUED
func releaseWaiting(ctx context.Context, repos unitofwork.Repositories, printerID uuid.UUID) (int, error) {
	released := 0
	for {
		jobs, err := repos.PrintJobs().FindByPrinterAndStatus(ctx, printerID, printing.JobStatusWaiting, 100)
		if err != nil {
			return released, err
		}
		if len(jobs) == 0 {
			return released, nil
		}
		for _, j := range jobs {
			if err := j.Release(); err != nil {
				return released, err
			}
			if err := repos.PrintJobs().Update(ctx, j); err != nil {
				return released, err
			}
			released++
		}
	}
}
