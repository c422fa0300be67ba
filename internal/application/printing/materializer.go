package printing

import (
	"context"
	"errors"
	"fmt"

	"github.com/fxavier/restaurant-pro-api-sub000/internal/application/unitofwork"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/idempotency"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/order"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/printing"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/domain/shared"
	"github.com/fxavier/restaurant-pro-api-sub000/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// routingOutcome is what the PRINT ledger remembers for one dedupe key
type routingOutcome struct {
	Status    string    `json:"status"`
	PrinterID uuid.UUID `json:"printer_id"`
}

const (
	outcomeDropped = "DROPPED"
	// the line's printer chain was unroutable when the order was confirmed
	outcomeFailed = "FAILED"
)

// PrintJobMaterializer turns each confirmed line into at most one print job.
// The routing decision for a (order, line, assigned printer) key is written
// to the PRINT ledger with the job, so a redelivered event neither duplicates
// a job nor revives a line an IGNORE printer dropped. A line whose redirect
// chain is broken is recorded FAILED and the rest of the order still prints.
type PrintJobMaterializer struct {
	tx      unitofwork.TransactionScope
	metrics *telemetry.BusinessMetrics
	logger  *zap.Logger
}

func NewPrintJobMaterializer(tx unitofwork.TransactionScope, logger *zap.Logger, opts ...Option) *PrintJobMaterializer {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := buildOptions(opts)
	return &PrintJobMaterializer{tx: tx, metrics: o.metrics, logger: logger}
}

func (m *PrintJobMaterializer) Name() string { return "print-job-materializer" }

func (m *PrintJobMaterializer) EventTypes() []string {
	return []string{order.EventTypeOrderConfirmed}
}

func (m *PrintJobMaterializer) Handle(ctx context.Context, evt shared.DomainEvent) error {
	confirmed, ok := evt.(*order.OrderConfirmedEvent)
	if !ok {
		return fmt.Errorf("print job materializer: unexpected event %T", evt)
	}

	scope := shared.NewScope(confirmed.TenantID(), uuid.Nil)
	counts := map[string]int{}
	err := m.tx.Execute(ctx, scope, func(ctx context.Context, repos unitofwork.Repositories) error {
		clear(counts)
		printers, err := repos.Printers().FindAll(ctx)
		if err != nil {
			return err
		}
		cfg := printing.NewConfig(printers)

		for _, line := range confirmed.Lines {
			outcome, err := m.materialize(ctx, repos, cfg, confirmed, line)
			if err != nil {
				return err
			}
			if outcome != "" {
				counts[outcome]++
			}
		}
		return nil
	})
	if err != nil {
		m.logger.Warn("print jobs not materialized",
			zap.String("order_id", confirmed.OrderID.String()),
			zap.Error(err),
		)
		return err
	}

	for state, n := range counts {
		m.metrics.PrintJobsMaterialized(ctx, state, n)
	}
	m.logger.Debug("print jobs materialized",
		zap.String("order_id", confirmed.OrderID.String()),
		zap.Any("by_state", counts),
	)
	return nil
}

// materialize routes one line and returns the recorded outcome, or "" when
// the line was handled before or has no printer
func (m *PrintJobMaterializer) materialize(
	ctx context.Context,
	repos unitofwork.Repositories,
	cfg printing.Config,
	confirmed *order.OrderConfirmedEvent,
	line order.LineSnapshot,
) (string, error) {
	assigned := cfg.Assign(line.Station)
	if assigned == nil {
		m.logger.Warn("no printer for station",
			zap.String("tenant_id", confirmed.TenantID().String()),
			zap.String("station", line.Station),
			zap.String("line_id", line.LineID.String()),
		)
		return "", nil
	}

	key := printing.DedupeKey(confirmed.OrderID, line.LineID, assigned.ID)
	if _, err := repos.Ledger().Find(ctx, idempotency.ClassPrint, key); err == nil {
		return "", nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return "", err
	}

	var (
		resourceID = line.LineID
		outcome    routingOutcome
	)
	res, err := cfg.Resolve(assigned)
	switch {
	case errors.Is(err, printing.ErrRedirectTarget), errors.Is(err, printing.ErrRedirectCycle):
		m.logger.Warn("print line unroutable",
			zap.String("tenant_id", confirmed.TenantID().String()),
			zap.String("line_id", line.LineID.String()),
			zap.String("printer_id", assigned.ID.String()),
			zap.Error(err),
		)
		outcome = routingOutcome{Status: outcomeFailed, PrinterID: assigned.ID}
	case err != nil:
		return "", err
	case res.Dropped:
		outcome = routingOutcome{Status: outcomeDropped, PrinterID: res.Printer.ID}
	default:
		tableRef := ""
		if confirmed.TableRef != nil {
			tableRef = *confirmed.TableRef
		}
		job := printing.NewJob(confirmed.TenantID(), confirmed.OrderID, line.LineID, assigned, res, printing.Ticket{
			TableRef:  tableRef,
			Item:      line.Name,
			Quantity:  line.Quantity,
			Modifiers: line.Notes,
			OrderedAt: confirmed.OccurredAt(),
		})
		inserted, err := repos.PrintJobs().Insert(ctx, job)
		if err != nil {
			return "", err
		}
		if !inserted {
			return "", nil
		}
		resourceID = job.ID
		outcome = routingOutcome{Status: job.Status.String(), PrinterID: job.PrinterID}
	}

	entry, err := idempotency.NewEntry(confirmed.TenantID(), idempotency.ClassPrint, key, resourceID, outcome)
	if err != nil {
		return "", err
	}
	if _, replay, err := repos.Ledger().Record(ctx, entry); err != nil || replay {
		return "", err
	}
	return outcome.Status, nil
}

var _ shared.EventHandler = (*PrintJobMaterializer)(nil)
