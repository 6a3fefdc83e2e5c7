package ordering

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/ordering"
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/shared"
	"github.com/restorecommerce/ordering-srv-sub000/internal/infrastructure/telemetry"
)

// Submit runs the submission workflow for a batch of pending orders:
// pricing, fulfillment, invoicing, the transition to SUBMITTED and the
// notification. Orders fail one by one; the operation status is PARTIAL
// when any of them failed.
func (s *Service) Submit(ctx context.Context, ids []string) (*shared.ListResult[ordering.Order], error) {
	d := Descriptor{Action: ActionExecute, Resource: ResourceOrder, Operation: "submit", IDs: ids}
	return guard(ctx, s.chain, d, func(ctx context.Context) (*shared.ListResult[ordering.Order], error) {
		return s.submit(ctx, ids)
	})
}

func (s *Service) submit(ctx context.Context, ids []string) (result *shared.ListResult[ordering.Order], err error) {
	// dispatched bulk calls are not aborted when the caller goes away
	ctx = context.WithoutCancel(ctx)
	ctx, span := telemetry.StartServiceSpan(ctx, "ordering", "submit", telemetry.WithAttribute("orders", len(ids)))
	defer span.End()
	start := time.Now()
	defer func() {
		s.metrics.RecordSubmit(ctx, outcomeOf(result, err), time.Since(start))
	}()

	if len(distinct(ids)) == 0 {
		return shared.FailedListResult[ordering.Order](shared.StatusNoItem), nil
	}

	release, st := s.lockOrders(ctx, "submit", distinct(ids))
	if !st.IsSuccess() {
		return shared.FailedListResult[ordering.Order](st), nil
	}
	defer release()

	b, err := s.loadBatch(ctx, ids)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	for _, item := range b.items {
		if item.order != nil && item.order.State != ordering.StatePending {
			o := item.order
			return shared.FailedListResult[ordering.Order](
				shared.StatusConflict.Withf("order", o.ID, o.State, ordering.StatePending).WithID(o.ID)), nil
		}
	}

	if err := s.prepare(ctx, b); err != nil {
		return nil, err
	}

	// fulfillments of orders that fail before the transition are removed
	defer s.compensate(context.WithoutCancel(ctx), b)

	s.createFulfillments(ctx, b, s.eligible(b, func(item *batchItem) bool {
		return !item.settings.Bool(SettingDisableFulfillment)
	}))

	s.createInvoices(ctx, b, s.eligible(b, func(item *batchItem) bool {
		return !item.settings.Bool(SettingDisableInvoice)
	}),
		func(item *batchItem) bool { return item.settings.Bool(SettingEnableInvoiceRender) },
		func(item *batchItem) bool { return item.settings.Bool(SettingEnableInvoiceSend) },
	)

	s.transition(ctx, b, (*ordering.Order).Submit)
	s.notifyAll(ctx, b)

	telemetry.SetAttributes(span, "failed", b.failedCount())
	return b.result(), nil
}

// prepare aggregates the resource graph, resolves settings and prices every
// order of the batch. Aggregation failures abort the whole batch.
func (s *Service) prepare(ctx context.Context, b *batch) error {
	b.agg = NewAggregation(b.orders())
	if len(b.agg.Orders) == 0 {
		return nil
	}
	if err := s.resolveGraph(ctx, b.agg); err != nil {
		return err
	}
	for _, item := range b.passing() {
		item.settings = ResolveSettings(b.agg, item.order, s.opts.Defaults)
		eval, st := s.evaluateOrder(b.agg, item.order)
		if !st.IsSuccess() {
			b.fail(item, st)
			s.metrics.RecordItemFailed(ctx, "evaluate")
			continue
		}
		item.eval = eval
	}
	return nil
}

func (s *Service) eligible(b *batch, pred func(*batchItem) bool) []*batchItem {
	var out []*batchItem
	for _, item := range b.passing() {
		if pred(item) {
			out = append(out, item)
		}
	}
	return out
}

// transition applies change to every passing order, persists it and emits
// one event per final order state in processing order.
func (s *Service) transition(ctx context.Context, b *batch, change func(*ordering.Order) error) {
	for _, item := range b.items {
		if item.order == nil {
			continue
		}
		o := item.order
		if item.ok() {
			if err := change(o); err != nil {
				b.fail(item, statusOf(err))
			} else if err := s.repo.Save(ctx, o); err != nil {
				s.logger.Error("Failed to persist order state", zap.String("order_id", o.ID), zap.Error(err))
				o.ClearDomainEvents()
				b.fail(item, statusOf(fmt.Errorf("failed to save order %s: %w", o.ID, err)))
			}
		}
		if item.ok() {
			item.committed = true
			s.publish(ctx, o.GetDomainEvents()...)
			o.ClearDomainEvents()
			continue
		}
		s.publish(ctx, ordering.NewOrderFailedEvent(o, item.status))
	}
}

// loadBatch fetches the orders in ids. Unknown ids become NOT_FOUND items.
func (s *Service) loadBatch(ctx context.Context, ids []string) (*batch, error) {
	orders, err := s.repo.FindByIDs(ctx, distinct(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	return newBatch(ids, orders, s.logger), nil
}

// lockOrders marks every id as busy for the configured TTL. A busy id fails
// the whole call with a CONFLICT status.
func (s *Service) lockOrders(ctx context.Context, op string, ids []string) (func(), shared.Status) {
	if s.locks == nil {
		return func() {}, shared.StatusSuccess
	}
	var held []string
	release := func() {
		for _, id := range held {
			if err := s.locks.Release(context.WithoutCancel(ctx), op+":"+id); err != nil {
				s.logger.Warn("Failed to release order lock", zap.String("order_id", id), zap.Error(err))
			}
		}
	}
	for _, id := range ids {
		acquired, err := s.locks.MarkProcessed(ctx, op+":"+id, s.opts.SubmitLockTTL)
		if err != nil {
			release()
			return nil, stepFailure("order", "lock", err)
		}
		if !acquired {
			release()
			return nil, shared.StatusLocked.Withf("order", id).WithID(id)
		}
		held = append(held, id)
	}
	return release, shared.StatusSuccess
}

func outcomeOf(result *shared.ListResult[ordering.Order], err error) string {
	switch {
	case err != nil:
		return "error"
	case result == nil:
		return "error"
	case result.OperationStatus.IsSuccess():
		return "success"
	case result.OperationStatus.Code == shared.StatusPartial.Code:
		return "partial"
	}
	return "failed"
}
