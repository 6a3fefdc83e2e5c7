package ordering

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/ordering"
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/resource"
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/shared"
	"github.com/restorecommerce/ordering-srv-sub000/internal/infrastructure/telemetry"
)

// Cancel moves pending or submitted orders to CANCELLED and removes their
// fulfillments.
func (s *Service) Cancel(ctx context.Context, ids []string) (*shared.ListResult[ordering.Order], error) {
	return s.changeState(ctx, "cancel", ids, (*ordering.Order).Cancel, true)
}

// Withdraw moves pending or submitted orders to WITHDRAWN and removes their
// fulfillments.
func (s *Service) Withdraw(ctx context.Context, ids []string) (*shared.ListResult[ordering.Order], error) {
	return s.changeState(ctx, "withdraw", ids, (*ordering.Order).Withdraw, true)
}

// Complete moves submitted orders to COMPLETED.
func (s *Service) Complete(ctx context.Context, ids []string) (*shared.ListResult[ordering.Order], error) {
	return s.changeState(ctx, "complete", ids, (*ordering.Order).Complete, false)
}

func (s *Service) changeState(ctx context.Context, op string, ids []string, change func(*ordering.Order) error, cleanup bool) (*shared.ListResult[ordering.Order], error) {
	d := Descriptor{Action: ActionModify, Resource: ResourceOrder, Operation: op, IDs: ids}
	return guard(ctx, s.chain, d, func(ctx context.Context) (*shared.ListResult[ordering.Order], error) {
		ctx, span := telemetry.StartServiceSpan(ctx, "ordering", op, telemetry.WithAttribute("orders", len(ids)))
		defer span.End()

		if len(distinct(ids)) == 0 {
			return shared.FailedListResult[ordering.Order](shared.StatusNoItem), nil
		}
		release, st := s.lockOrders(ctx, op, distinct(ids))
		if !st.IsSuccess() {
			return shared.FailedListResult[ordering.Order](st), nil
		}
		defer release()

		b, err := s.loadBatch(ctx, ids)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}

		// the graph only feeds notifications, so its failure does not block
		// the state change
		b.agg = NewAggregation(b.orders())
		if err := s.resolveGraph(ctx, b.agg); err != nil {
			s.logger.Warn("Failed to aggregate orders for notification", zap.String("operation", op), zap.Error(err))
		}
		for _, item := range b.passing() {
			item.settings = ResolveSettings(b.agg, item.order, s.opts.Defaults)
		}

		s.transition(ctx, b, change)
		if cleanup {
			s.deleteFulfillmentsOf(context.WithoutCancel(ctx), b.passing())
		}
		s.notifyAll(ctx, b)
		return b.result(), nil
	})
}

// deleteFulfillmentsOf removes every fulfillment referencing the given
// orders. Errors are logged and swallowed.
func (s *Service) deleteFulfillmentsOf(ctx context.Context, items []*batchItem) {
	if len(items) == 0 {
		return
	}
	var ids []string
	for _, item := range items {
		resp, err := s.services.Fulfillments.Read(ctx, ordering.ReadRequest{
			Limit:   ordering.MaxReadLimit,
			Filters: map[string]string{"reference.instance_id": item.order.ID},
		})
		if err != nil || !resp.OperationStatus.IsSuccess() {
			s.logger.Warn("Failed to read fulfillments of order", zap.String("order_id", item.order.ID), zap.Error(err))
			continue
		}
		for _, f := range resp.Payloads() {
			ids = append(ids, f.ID)
		}
	}
	if len(ids) == 0 {
		return
	}
	if _, err := s.services.Fulfillments.Delete(ctx, ids); err != nil {
		s.logger.Warn("Failed to delete fulfillments", zap.Strings("fulfillment_ids", ids), zap.Error(err))
	}
}

// notifyAll sends the state notification of every passing order
func (s *Service) notifyAll(ctx context.Context, b *batch) {
	for _, item := range b.passing() {
		s.notify(ctx, b, item)
	}
}

// notify requests a rendered body, waits for it on the render queue and
// sends it. A failure marks the order failed; its persisted state stays.
func (s *Service) notify(ctx context.Context, b *batch, item *batchItem) {
	if s.services.Notifications == nil || item.settings == nil ||
		item.settings.Bool(SettingDisableNotification) || item.settings.String(SettingNotificationChannel) == "" {
		return
	}
	o := item.order
	ctx, span := telemetry.StartServiceSpan(ctx, "ordering", "notify", telemetry.WithAttribute("order_id", o.ID))
	defer span.End()

	email, locale := s.notificationTarget(b.agg, o, item.settings)
	if email == "" {
		b.fail(item, shared.StatusFailed.Withf("notification of order", o.ID, "no recipient"))
		return
	}

	correlationID := uuid.NewString()
	pending := s.renders.Await(correlationID, s.opts.AwaitTimeout)
	template := item.settings.String(SettingTemplate) + "_" + strings.ToLower(o.State.String())
	s.publish(ctx, ordering.NewRenderRequestedEvent(o.ID, correlationID, template, locale, "text/html", renderPayload(b.agg, o)))

	rendered, err := pending.Wait(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		b.fail(item, stepFailure("notification", "render", err))
		s.metrics.RecordItemFailed(ctx, "render")
		return
	}

	n := ordering.Notification{
		Channel:     item.settings.String(SettingNotificationChannel),
		Recipients:  []string{email},
		Subject:     subjectOf(item.settings.String(SettingNotificationSubject), o),
		Body:        string(rendered.Body),
		ContentType: rendered.ContentType,
	}
	if rendered.URL != "" {
		n.Attachments = []ordering.Document{{Filename: o.ID + ".pdf", URL: rendered.URL, ContentType: "application/pdf"}}
	}
	st, err := s.services.Notifications.Send(ctx, n)
	if err == nil && !st.IsSuccess() {
		err = st.Err()
	}
	if err != nil {
		telemetry.RecordError(span, err)
		b.fail(item, stepFailure("notification", "send", err))
		s.metrics.RecordItemFailed(ctx, "notify")
		return
	}

	o.MarkNotified()
	if err := s.repo.Save(ctx, o); err != nil {
		b.fail(item, statusOf(fmt.Errorf("failed to save notification state of order %s: %w", o.ID, err)))
	}
}

func (s *Service) notificationTarget(agg *Aggregation, o *ordering.Order, settings Settings) (email, locale string) {
	customer, ok := agg.Customers.Lookup(o.CustomerID)
	if !ok {
		return "", ""
	}
	recipient, _ := s.recipientOf(agg, o, customer)
	email = s.recipientEmail(agg, o, customer, recipient)
	locale = s.localeOf(agg, o, customer)
	if locale == "" {
		locale = settings.String(SettingLocale)
	}
	return email, locale
}

func subjectOf(template string, o *ordering.Order) string {
	return strings.NewReplacer("{id}", o.ID, "{state}", strings.ToLower(o.State.String())).Replace(template)
}

// renderPayload is the order document with its references expanded for
// templates.
func renderPayload(agg *Aggregation, o *ordering.Order) map[string]any {
	doc, err := resource.ToDocument(o)
	if err != nil {
		return map[string]any{"id": o.ID}
	}
	address := resource.Graph{
		"address": {IDField: "physical_address_id", Source: agg.Addresses, Nested: resource.Graph{
			"country": {IDField: "country_id", Source: agg.Countries},
		}},
	}
	contactPoints := resource.Resolver{IDField: "contact_point_ids", Source: agg.ContactPoints, Many: true, Nested: address}
	graph := resource.Graph{
		"shop": {IDField: "shop_id", Source: agg.Shops, Nested: resource.Graph{
			"organization": {IDField: "organization_id", Source: agg.Organizations, Nested: resource.Graph{
				"contact_points": contactPoints,
			}},
		}},
		"customer": {IDField: "customer_id", Source: agg.Customers, Nested: resource.Graph{
			"private": {Nested: resource.Graph{
				"user":           {IDField: "user_id", Source: agg.Users},
				"contact_points": contactPoints,
			}},
		}},
		"user":  {IDField: "user_id", Source: agg.Users},
		"items": {Nested: resource.Graph{
			"product": {IDField: "product_id", Source: agg.Products},
		}},
		"total_amounts": {Nested: resource.Graph{
			"currency": {IDField: "currency_id", Source: agg.Currencies},
		}},
	}
	return resource.Resolve(doc, graph)
}
