package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when no meter is supplied
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// BusinessMetrics counts the outcomes of the transactional core. A nil
// *BusinessMetrics is valid and records nothing, so services can take one
// optionally.
type BusinessMetrics struct {
	paymentsProcessed *Counter
	paymentsReplayed  *Counter
	paymentsVoided    *Counter
	ordersConfirmed   *Counter
	ordersClosed      *Counter
	jobsMaterialized  *Counter
	conflicts         *Counter
	outboxDelivered   *Counter
	outboxFailed      *Counter
	paymentDuration   *Histogram
}

func NewBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	bm := &BusinessMetrics{}
	counters := []struct {
		dst        **Counter
		name, desc string
		unit       string
	}{
		{&bm.paymentsProcessed, "rpos_payments_processed_total", "Payments completed", "{payments}"},
		{&bm.paymentsReplayed, "rpos_payments_replayed_total", "Payment requests answered from the idempotency ledger", "{payments}"},
		{&bm.paymentsVoided, "rpos_payments_voided_total", "Payments voided", "{payments}"},
		{&bm.ordersConfirmed, "rpos_orders_confirmed_total", "Orders confirmed", "{orders}"},
		{&bm.ordersClosed, "rpos_orders_closed_total", "Orders closed by payment", "{orders}"},
		{&bm.jobsMaterialized, "rpos_print_jobs_materialized_total", "Print jobs created from confirmed orders", "{jobs}"},
		{&bm.conflicts, "rpos_optimistic_conflicts_total", "Writes rejected by the version guard", "{conflicts}"},
		{&bm.outboxDelivered, "rpos_outbox_delivered_total", "Outbox entries delivered to every handler", "{events}"},
		{&bm.outboxFailed, "rpos_outbox_failed_total", "Failed outbox delivery attempts", "{events}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(meter, c.name, c.desc, c.unit)
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	h, err := NewHistogram(meter, "rpos_payment_duration_seconds", "Time spent in ProcessPayment", "s", PaymentDurationBuckets...)
	if err != nil {
		return nil, err
	}
	bm.paymentDuration = h
	return bm, nil
}

func (bm *BusinessMetrics) PaymentProcessed(ctx context.Context, tenantID, method string) {
	if bm == nil {
		return
	}
	bm.paymentsProcessed.Inc(ctx, AttrTenantID.String(tenantID), AttrPaymentMethod.String(method))
}

func (bm *BusinessMetrics) PaymentReplayed(ctx context.Context, tenantID string) {
	if bm == nil {
		return
	}
	bm.paymentsReplayed.Inc(ctx, AttrTenantID.String(tenantID))
}

func (bm *BusinessMetrics) PaymentVoided(ctx context.Context, tenantID string) {
	if bm == nil {
		return
	}
	bm.paymentsVoided.Inc(ctx, AttrTenantID.String(tenantID))
}

func (bm *BusinessMetrics) OrderConfirmed(ctx context.Context, tenantID string) {
	if bm == nil {
		return
	}
	bm.ordersConfirmed.Inc(ctx, AttrTenantID.String(tenantID))
}

func (bm *BusinessMetrics) OrderClosed(ctx context.Context, tenantID string) {
	if bm == nil {
		return
	}
	bm.ordersClosed.Inc(ctx, AttrTenantID.String(tenantID))
}

// PrintJobsMaterialized counts n new jobs created in state
func (bm *BusinessMetrics) PrintJobsMaterialized(ctx context.Context, state string, n int) {
	if bm == nil || n <= 0 {
		return
	}
	bm.jobsMaterialized.Add(ctx, int64(n), AttrJobStatus.String(state))
}

func (bm *BusinessMetrics) OptimisticConflict(ctx context.Context, aggregate string) {
	if bm == nil {
		return
	}
	bm.conflicts.Inc(ctx, AttrAggregate.String(aggregate))
}

// OutboxDelivered satisfies the outbox processor's delivery observer
func (bm *BusinessMetrics) OutboxDelivered(ctx context.Context, eventType string) {
	if bm == nil {
		return
	}
	bm.outboxDelivered.Inc(ctx, AttrEventType.String(eventType))
}

func (bm *BusinessMetrics) OutboxFailed(ctx context.Context, eventType string, dead bool) {
	if bm == nil {
		return
	}
	bm.outboxFailed.Inc(ctx, AttrEventType.String(eventType), attribute.Bool(string(AttrDead), dead))
}

// PaymentDuration records how long a successful ProcessPayment call took
func (bm *BusinessMetrics) PaymentDuration(ctx context.Context, d time.Duration, replayed bool) {
	if bm == nil {
		return
	}
	bm.paymentDuration.RecordDuration(ctx, d, attribute.Bool("replayed", replayed))
}
