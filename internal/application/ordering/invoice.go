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

// invoiceGroup is the set of orders billed by one invoice
type invoiceGroup struct {
	members []*batchItem
	invoice ordering.Invoice
}

// groupInvoices builds one invoice per distinct (customer, shop) pair, in
// order of first appearance.
func groupInvoices(items []*batchItem, agg *Aggregation) []*invoiceGroup {
	type key struct{ customer, shop string }
	var groups []*invoiceGroup
	index := make(map[key]*invoiceGroup)
	for _, item := range items {
		o := item.order
		k := key{o.CustomerID, o.ShopID}
		g, ok := index[k]
		if !ok {
			g = &invoiceGroup{invoice: ordering.Invoice{
				CustomerID:   o.CustomerID,
				ShopID:       o.ShopID,
				UserID:       o.UserID,
				Sender:       item.eval.sender,
				Recipient:    billingAddress(o, item.eval),
				PaymentState: ordering.PaymentStateUnpaid,
			}}
			index[k] = g
			groups = append(groups, g)
		}
		g.members = append(g.members, item)
		g.invoice.References = append(g.invoice.References, ordering.OrderReference(o.ID))
		g.invoice.Sections = append(g.invoice.Sections, invoiceSection(o))
	}
	for _, g := range groups {
		var amounts []pricing.Amount
		for _, section := range g.invoice.Sections {
			amounts = append(amounts, section.Amounts...)
		}
		g.invoice.TotalAmounts = pricing.CalcTotalAmounts(amounts, agg.Currencies)
	}
	return groups
}

func billingAddress(o *ordering.Order, e *evaluation) ordering.ShippingAddress {
	if o.BillingAddress != nil {
		return *o.BillingAddress
	}
	return e.recipient
}

func invoiceSection(o *ordering.Order) ordering.InvoiceSection {
	positions := make([]ordering.InvoicePosition, 0, len(o.Items))
	for _, it := range o.Items {
		positions = append(positions, ordering.InvoicePosition{
			ID:        it.ID,
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Amount:    it.Amount,
		})
	}
	return ordering.InvoiceSection{ID: o.ID, Positions: positions, Amounts: o.TotalAmounts}
}

// createInvoices creates, renders and sends invoices for the eligible
// items. A failing invoice fails every order it bills. It returns the
// groups whose invoice was created.
func (s *Service) createInvoices(ctx context.Context, b *batch, eligible []*batchItem, render, send func(*batchItem) bool) []*invoiceGroup {
	ctx, span := telemetry.StartServiceSpan(ctx, "ordering", "create_invoices")
	defer span.End()

	groups := groupInvoices(eligible, b.agg)
	if len(groups) == 0 {
		return nil
	}
	requests := make([]ordering.Invoice, len(groups))
	for i, g := range groups {
		requests[i] = g.invoice
	}

	resp, err := s.services.Invoices.Create(ctx, requests)
	groups = s.applyInvoiceResult(ctx, b, groups, resp, err, "create")

	var toRender, toSend []*invoiceGroup
	for _, g := range groups {
		if render(g.members[0]) {
			toRender = append(toRender, g)
		}
	}
	if len(toRender) > 0 {
		resp, err := s.services.Invoices.Render(ctx, invoiceIDs(toRender))
		s.applyInvoiceResult(ctx, b, toRender, resp, err, "render")
	}
	for _, g := range groups {
		if !g.members[0].ok() {
			continue
		}
		if send(g.members[0]) {
			toSend = append(toSend, g)
		}
	}
	if len(toSend) > 0 {
		resp, err := s.services.Invoices.Send(ctx, invoiceIDs(toSend))
		s.applyInvoiceResult(ctx, b, toSend, resp, err, "send")
	}
	return groups
}

func (s *Service) applyInvoiceResult(
	ctx context.Context,
	b *batch,
	groups []*invoiceGroup,
	resp *shared.ListResult[ordering.Invoice],
	err error,
	step string,
) []*invoiceGroup {
	if err == nil && resp != nil && !resp.OperationStatus.IsSuccess() && len(resp.Items) == 0 {
		err = resp.OperationStatus.Err()
	}
	if err == nil && (resp == nil || len(resp.Items) != len(groups)) {
		err = fmt.Errorf("invoice %s returned %d items for %d requests", step, lenItems(resp), len(groups))
	}
	if err != nil {
		s.logger.Error("Invoice step failed", zap.String("step", step), zap.Error(err))
		st := stepFailure("invoice", step, err)
		for _, g := range groups {
			for _, m := range g.members {
				b.fail(m, st)
				s.metrics.RecordItemFailed(ctx, "invoice_"+step)
			}
		}
		return nil
	}

	var ok []*invoiceGroup
	for i, r := range resp.Items {
		g := groups[i]
		if !r.Status.IsSuccess() {
			for _, m := range g.members {
				b.fail(m, r.Status)
				s.metrics.RecordItemFailed(ctx, "invoice_"+step)
			}
			continue
		}
		if r.Payload != nil {
			g.invoice = *r.Payload
		}
		for _, m := range g.members {
			if g.invoice.ID != "" && !slices.Contains(m.invoiceIDs, g.invoice.ID) {
				m.invoiceIDs = append(m.invoiceIDs, g.invoice.ID)
			}
		}
		ok = append(ok, g)
	}
	return ok
}

func invoiceIDs(groups []*invoiceGroup) []string {
	ids := make([]string, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.invoice.ID)
	}
	return ids
}
