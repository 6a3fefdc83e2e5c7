package ordering

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/ordering"
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/pricing"
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/shared"
	"github.com/restorecommerce/ordering-srv-sub000/internal/infrastructure/telemetry"
)

// buildFulfillment packs every physical item of an evaluated order into one
// parcel per item.
func buildFulfillment(item *batchItem, agg *Aggregation) (ordering.Fulfillment, bool) {
	o := item.order
	var parcels []ordering.Parcel
	for _, it := range o.Items {
		product, ok := agg.Products.Lookup(it.ProductID)
		if !ok || !product.IsPhysical() {
			continue
		}
		variant, _ := product.ResolveVariant(it.VariantID)
		parcels = append(parcels, ordering.Parcel{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Items:     []ordering.FulfillmentItem{{
				ItemID:    it.ID,
				ProductID: it.ProductID,
				VariantID: it.VariantID,
				Quantity:  it.Quantity,
			}},
			Package: variant.Package,
			Price:   it.UnitPrice,
			Amount:  it.Amount,
		})
	}
	if len(parcels) == 0 {
		return ordering.Fulfillment{}, false
	}
	amounts := make([]pricing.Amount, 0, len(parcels))
	for _, p := range parcels {
		if p.Amount != nil {
			amounts = append(amounts, *p.Amount)
		}
	}
	return ordering.Fulfillment{
		Reference:  ordering.OrderReference(o.ID),
		ShopID:     o.ShopID,
		CustomerID: o.CustomerID,
		UserID:     o.UserID,
		Packaging:  ordering.Packaging{
			Parcels:         parcels,
			ReferenceID:     o.ID,
			SenderAddress:   item.eval.sender,
			ShippingAddress: item.eval.recipient,
			Notify:          item.eval.email,
		},
		State:        ordering.FulfillmentStatePending,
		TotalAmounts: pricing.CalcTotalAmounts(amounts, agg.Currencies),
	}, true
}

// createFulfillments evaluates feasibility and then creates fulfillments for
// the eligible items. Each order fails on its own; siblings continue.
func (s *Service) createFulfillments(ctx context.Context, b *batch, eligible []*batchItem) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ordering", "create_fulfillments")
	defer span.End()

	var (
		owners   []*batchItem
		requests []ordering.Fulfillment
	)
	for _, item := range eligible {
		f, ok := buildFulfillment(item, b.agg)
		if !ok {
			continue
		}
		owners = append(owners, item)
		requests = append(requests, f)
	}
	if len(requests) == 0 {
		return
	}

	evaluated, err := s.services.Fulfillments.Evaluate(ctx, requests)
	owners, requests = s.applyFulfillmentResult(ctx, b, owners, requests, evaluated, err, "evaluate", false)
	if len(requests) == 0 {
		return
	}

	created, err := s.services.Fulfillments.Create(ctx, requests)
	s.applyFulfillmentResult(ctx, b, owners, requests, created, err, "create", true)
}

// applyFulfillmentResult maps a bulk response back to its orders by
// position. It returns the owners and requests that succeeded.
func (s *Service) applyFulfillmentResult(
	ctx context.Context,
	b *batch,
	owners []*batchItem,
	requests []ordering.Fulfillment,
	resp *shared.ListResult[ordering.Fulfillment],
	err error,
	step string,
	record bool,
) ([]*batchItem, []ordering.Fulfillment) {
	if err == nil && resp != nil && !resp.OperationStatus.IsSuccess() && len(resp.Items) == 0 {
		err = resp.OperationStatus.Err()
	}
	if err == nil && (resp == nil || len(resp.Items) != len(requests)) {
		err = fmt.Errorf("fulfillment %s returned %d items for %d requests", step, lenItems(resp), len(requests))
	}
	if err != nil {
		s.logger.Error("Fulfillment step failed", zap.String("step", step), zap.Error(err))
		st := stepFailure("fulfillment", step, err)
		for _, owner := range owners {
			b.fail(owner, st)
			s.metrics.RecordItemFailed(ctx, "fulfillment_"+step)
		}
		return nil, nil
	}

	var (
		okOwners   []*batchItem
		okRequests []ordering.Fulfillment
	)
	for i, r := range resp.Items {
		owner := owners[i]
		if !r.Status.IsSuccess() {
			// a payload with an id was persisted remotely and needs cleanup
			if record && r.Payload != nil && r.Payload.ID != "" {
				owner.fulfillments = append(owner.fulfillments, *r.Payload)
			}
			b.fail(owner, r.Status)
			s.metrics.RecordItemFailed(ctx, "fulfillment_"+step)
			continue
		}
		f := requests[i]
		if r.Payload != nil {
			f = *r.Payload
		}
		if record {
			owner.fulfillments = append(owner.fulfillments, f)
		}
		okOwners = append(okOwners, owner)
		okRequests = append(okRequests, f)
	}
	return okOwners, okRequests
}

// compensate deletes fulfillments and invoices of orders that failed before
// their new state was persisted. An invoice is only deleted when no order it
// bills was committed. Errors are logged and swallowed.
func (s *Service) compensate(ctx context.Context, b *batch) {
	var fulfillmentIDs, staleInvoices []string
	kept := make(map[string]bool)
	for _, item := range b.items {
		if item.ok() || item.committed {
			for _, id := range item.invoiceIDs {
				kept[id] = true
			}
			continue
		}
		for _, f := range item.fulfillments {
			if f.ID != "" {
				fulfillmentIDs = append(fulfillmentIDs, f.ID)
			}
		}
		item.fulfillments = nil
	}
	for _, item := range b.items {
		if item.ok() || item.committed {
			continue
		}
		for _, id := range item.invoiceIDs {
			if !kept[id] && !slices.Contains(staleInvoices, id) {
				staleInvoices = append(staleInvoices, id)
			}
		}
	}

	if len(fulfillmentIDs) > 0 {
		resp, err := s.services.Fulfillments.Delete(ctx, fulfillmentIDs)
		s.logCompensation(ctx, "fulfillment", fulfillmentIDs, resp, err)
	}
	if len(staleInvoices) > 0 {
		resp, err := s.services.Invoices.Delete(ctx, staleInvoices)
		s.logCompensation(ctx, "invoice", staleInvoices, resp, err)
	}
}

func (s *Service) logCompensation(ctx context.Context, kind string, ids []string, resp *shared.DeleteResult, err error) {
	field := zap.Strings(kind+"_ids", ids)
	switch {
	case err != nil:
		s.logger.Error("Failed to delete "+kind+"s of failed orders", field, zap.Error(err))
		s.metrics.RecordCompensation(ctx, false)
	case resp == nil || !resp.OperationStatus.IsSuccess():
		st := shared.StatusFailed
		if resp != nil {
			st = resp.OperationStatus
		}
		s.logger.Error("Deletion of "+kind+"s rejected", field,
			zap.Int("code", st.Code),
			zap.String("message", st.Message))
		s.metrics.RecordCompensation(ctx, false)
	default:
		s.logger.Info("Deleted "+kind+"s of failed orders", field)
		s.metrics.RecordCompensation(ctx, true)
	}
}

func lenItems[T any](r *shared.ListResult[T]) int {
	if r == nil {
		return 0
	}
	return len(r.Items)
}

func stepFailure(entity, step string, err error) shared.Status {
	if st, ok := shared.AsStatus(err); ok {
		return st
	}
	return shared.StatusFailed.Withf(entity, step, err.Error())
}
