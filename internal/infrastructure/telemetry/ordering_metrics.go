package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation name of ordering metrics
const MeterName = "ordering-srv"

// OrderingMetrics records submit outcomes, per-item failures, saga
// compensations and await-queue timeouts. A nil *OrderingMetrics is valid
// and records nothing.
type OrderingMetrics struct {
	submits       *Counter
	submitLatency *Histogram
	itemsFailed   *Counter
	compensations *Counter
	awaitTimeouts *Counter
}

// NewOrderingMetrics registers the ordering instruments on meter.
func NewOrderingMetrics(meter metric.Meter) (*OrderingMetrics, error) {
	var errs []error
	m := &OrderingMetrics{}
	var err error
	m.submits, err = NewCounter(meter, "ordering.submit.total", "Submit batches by outcome", "{batch}")
	errs = append(errs, err)
	m.submitLatency, err = NewHistogram(meter, "ordering.submit.duration", "Submit batch duration", "s",
		0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30)
	errs = append(errs, err)
	m.itemsFailed, err = NewCounter(meter, "ordering.items.failed", "Failed order items by step", "{item}")
	errs = append(errs, err)
	m.compensations, err = NewCounter(meter, "ordering.compensation.total", "Compensation runs by result", "{run}")
	errs = append(errs, err)
	m.awaitTimeouts, err = NewCounter(meter, "ordering.await.timeouts", "Await queue entries that timed out", "{await}")
	errs = append(errs, err)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordSubmit records a finished submit batch. outcome is the overall
// status code of the batch.
func (m *OrderingMetrics) RecordSubmit(ctx context.Context, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	attr := attribute.String("outcome", outcome)
	m.submits.Inc(ctx, attr)
	m.submitLatency.RecordDuration(ctx, d, attr)
}

// RecordItemFailed counts an order that failed at step.
func (m *OrderingMetrics) RecordItemFailed(ctx context.Context, step string) {
	if m == nil {
		return
	}
	m.itemsFailed.Inc(ctx, attribute.String("step", step))
}

// RecordCompensation counts a compensation run.
func (m *OrderingMetrics) RecordCompensation(ctx context.Context, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.compensations.Inc(ctx, attribute.String("result", result))
}

// RecordAwaitTimeout counts an await entry that expired unanswered.
func (m *OrderingMetrics) RecordAwaitTimeout(ctx context.Context) {
	if m == nil {
		return
	}
	m.awaitTimeouts.Inc(ctx)
}
