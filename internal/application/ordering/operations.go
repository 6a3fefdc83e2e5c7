package ordering

import (
	"context"

	"github.com/google/uuid"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/ordering"
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/shared"
	"github.com/restorecommerce/ordering-srv-sub000/internal/infrastructure/telemetry"
)

// Evaluate prices the given orders without storing anything. Orders are
// returned with item amounts and totals filled in.
func (s *Service) Evaluate(ctx context.Context, orders []*ordering.Order) (*shared.ListResult[ordering.Order], error) {
	d := Descriptor{Action: ActionRead, Resource: ResourceOrder, Operation: "evaluate"}
	return guard(ctx, s.chain, d, func(ctx context.Context) (*shared.ListResult[ordering.Order], error) {
		ctx, span := telemetry.StartServiceSpan(ctx, "ordering", "evaluate", telemetry.WithAttribute("orders", len(orders)))
		defer span.End()

		ids := make([]string, 0, len(orders))
		valid := make([]*ordering.Order, 0, len(orders))
		for _, o := range orders {
			if o == nil {
				continue
			}
			if o.ID == "" {
				o.ID = uuid.NewString()
			}
			o.AssignItemIDs()
			ids = append(ids, o.ID)
			valid = append(valid, o)
		}
		if len(valid) == 0 {
			return shared.FailedListResult[ordering.Order](shared.StatusNoItem), nil
		}
		b := newBatch(ids, valid, s.logger)
		for _, item := range b.passing() {
			if err := item.order.Validate(); err != nil {
				b.fail(item, statusOf(err))
			}
		}
		if err := s.prepare(ctx, b); err != nil {
			return nil, err
		}
		return b.result(), nil
	})
}

// QueryFulfillmentSolution asks the solution service how the physical items
// of each order could be shipped.
func (s *Service) QueryFulfillmentSolution(ctx context.Context, ids []string) (*shared.ListResult[ordering.FulfillmentSolutionResult], error) {
	d := Descriptor{Action: ActionRead, Resource: ResourceFulfillment, Operation: "query_solution", IDs: ids}
	return guard(ctx, s.chain, d, func(ctx context.Context) (*shared.ListResult[ordering.FulfillmentSolutionResult], error) {
		ctx, span := telemetry.StartServiceSpan(ctx, "ordering", "query_fulfillment_solution", telemetry.WithAttribute("orders", len(ids)))
		defer span.End()

		b, st, err := s.evaluated(ctx, ids)
		if err != nil {
			return nil, err
		}
		if !st.IsSuccess() {
			return shared.FailedListResult[ordering.FulfillmentSolutionResult](st), nil
		}

		var (
			owners  []*batchItem
			queries []ordering.FulfillmentSolutionQuery
		)
		for _, item := range b.passing() {
			f, ok := buildFulfillment(item, b.agg)
			if !ok {
				b.fail(item, shared.StatusInvalidInput.Withf("order", item.order.ID, "nothing to ship"))
				continue
			}
			var items []ordering.FulfillmentItem
			for _, p := range f.Packaging.Parcels {
				items = append(items, p.Items...)
			}
			owners = append(owners, item)
			queries = append(queries, ordering.FulfillmentSolutionQuery{
				Reference:   f.Reference,
				ShopID:      f.ShopID,
				CustomerID:  f.CustomerID,
				Items:       items,
				Sender:      f.Packaging.SenderAddress,
				Recipient:   f.Packaging.ShippingAddress,
				Preferences: item.settings.String(SettingPackagingPreference),
			})
		}

		solutions := make(map[*batchItem]*ordering.FulfillmentSolutionResult, len(owners))
		if len(queries) > 0 {
			resp, err := s.services.FulfillmentSolutions.Query(ctx, queries)
			if err == nil && (resp == nil || len(resp.Items) != len(queries)) {
				err = shared.StatusFailed.Withf("fulfillment solution", "query", "unexpected response size").Err()
			}
			for i, owner := range owners {
				switch {
				case err != nil:
					b.fail(owner, stepFailure("fulfillment solution", "query", err))
				case !resp.Items[i].Status.IsSuccess():
					b.fail(owner, resp.Items[i].Status)
				default:
					solutions[owner] = resp.Items[i].Payload
				}
			}
		}

		items := make([]shared.Result[ordering.FulfillmentSolutionResult], 0, len(b.items))
		for _, item := range b.items {
			items = append(items, shared.Result[ordering.FulfillmentSolutionResult]{Payload: solutions[item], Status: item.status})
		}
		return shared.NewListResult(items), nil
	})
}

// CreateFulfillment creates fulfillments for orders outside the submission
// workflow.
func (s *Service) CreateFulfillment(ctx context.Context, ids []string) (*shared.ListResult[ordering.Fulfillment], error) {
	return s.fulfill(ctx, "create_fulfillment", ids, false)
}

// TriggerFulfillment creates fulfillments and hands them over to the carrier
func (s *Service) TriggerFulfillment(ctx context.Context, ids []string) (*shared.ListResult[ordering.Fulfillment], error) {
	return s.fulfill(ctx, "trigger_fulfillment", ids, true)
}

func (s *Service) fulfill(ctx context.Context, op string, ids []string, trigger bool) (*shared.ListResult[ordering.Fulfillment], error) {
	d := Descriptor{Action: ActionCreate, Resource: ResourceFulfillment, Operation: op, IDs: ids}
	return guard(ctx, s.chain, d, func(ctx context.Context) (*shared.ListResult[ordering.Fulfillment], error) {
		ctx, span := telemetry.StartServiceSpan(ctx, "ordering", op, telemetry.WithAttribute("orders", len(ids)))
		defer span.End()

		b, st, err := s.evaluated(ctx, ids)
		if err != nil {
			return nil, err
		}
		if !st.IsSuccess() {
			return shared.FailedListResult[ordering.Fulfillment](st), nil
		}
		defer s.compensate(context.WithoutCancel(ctx), b)

		s.createFulfillments(ctx, b, b.passing())
		if trigger {
			var (
				owners   []*batchItem
				requests []ordering.Fulfillment
			)
			for _, item := range b.passing() {
				if len(item.fulfillments) > 0 {
					owners = append(owners, item)
					requests = append(requests, item.fulfillments[0])
				}
			}
			if len(requests) > 0 {
				resp, err := s.services.Fulfillments.Submit(ctx, requests)
				okOwners, submitted := s.applyFulfillmentResult(ctx, b, owners, requests, resp, err, "submit", false)
				for i, owner := range okOwners {
					owner.fulfillments[0] = submitted[i]
				}
			}
		}

		items := make([]shared.Result[ordering.Fulfillment], 0, len(b.items))
		for _, item := range b.items {
			r := shared.Result[ordering.Fulfillment]{Status: item.status}
			switch {
			case !item.ok():
			case len(item.fulfillments) == 0:
				r.Status = shared.StatusInvalidInput.Withf("order", item.order.ID, "nothing to ship").WithID(item.order.ID)
			default:
				f := item.fulfillments[0]
				r.Payload = &f
			}
			items = append(items, r)
		}
		return shared.NewListResult(items), nil
	})
}

// CreateInvoice creates one invoice per customer and shop for the orders
func (s *Service) CreateInvoice(ctx context.Context, ids []string) (*shared.ListResult[ordering.Invoice], error) {
	return s.invoice(ctx, "create_invoice", ids, false)
}

// TriggerInvoice creates, renders and sends invoices for the orders
func (s *Service) TriggerInvoice(ctx context.Context, ids []string) (*shared.ListResult[ordering.Invoice], error) {
	return s.invoice(ctx, "trigger_invoice", ids, true)
}

func (s *Service) invoice(ctx context.Context, op string, ids []string, trigger bool) (*shared.ListResult[ordering.Invoice], error) {
	d := Descriptor{Action: ActionCreate, Resource: ResourceInvoice, Operation: op, IDs: ids}
	return guard(ctx, s.chain, d, func(ctx context.Context) (*shared.ListResult[ordering.Invoice], error) {
		ctx, span := telemetry.StartServiceSpan(ctx, "ordering", op, telemetry.WithAttribute("orders", len(ids)))
		defer span.End()

		b, st, err := s.evaluated(ctx, ids)
		if err != nil {
			return nil, err
		}
		if !st.IsSuccess() {
			return shared.FailedListResult[ordering.Invoice](st), nil
		}
		always := func(*batchItem) bool { return trigger }
		groups := s.createInvoices(ctx, b, b.passing(), always, always)

		groupOf := make(map[*batchItem]*invoiceGroup)
		for _, g := range groups {
			for _, m := range g.members {
				groupOf[m] = g
			}
		}
		emitted := make(map[*invoiceGroup]bool)
		items := make([]shared.Result[ordering.Invoice], 0, len(b.items))
		for _, item := range b.items {
			g, ok := groupOf[item]
			if !item.ok() || !ok {
				items = append(items, shared.Result[ordering.Invoice]{Status: item.status})
				continue
			}
			if emitted[g] {
				continue
			}
			emitted[g] = true
			inv := g.invoice
			items = append(items, shared.Result[ordering.Invoice]{Payload: &inv, Status: shared.StatusSuccess.WithID(inv.ID)})
		}
		return shared.NewListResult(items), nil
	})
}

// evaluated loads and prices orders that are pending or submitted. Orders in
// other states fail with INVALID_STATE.
func (s *Service) evaluated(ctx context.Context, ids []string) (*batch, shared.Status, error) {
	if len(distinct(ids)) == 0 {
		return nil, shared.StatusNoItem, nil
	}
	b, err := s.loadBatch(ctx, ids)
	if err != nil {
		return nil, statusOf(err), err
	}
	for _, item := range b.passing() {
		o := item.order
		if o.State != ordering.StatePending && o.State != ordering.StateSubmitted {
			b.fail(item, shared.StatusInvalidState.Withf("order", o.ID, o.State, ordering.StateSubmitted))
		}
	}
	if err := s.prepare(ctx, b); err != nil {
		return nil, statusOf(err), err
	}
	return b, shared.StatusSuccess, nil
}
