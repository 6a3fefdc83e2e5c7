package ordering

import (
	"github.com/shopspring/decimal"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/ordering"
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/pricing"
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/shared"
)

// evaluation is what pricing learned about one order
type evaluation struct {
	shop        ordering.Shop
	customer    ordering.Customer
	origin      *ordering.Country
	destination *ordering.Country
	sender      ordering.ShippingAddress
	recipient   ordering.ShippingAddress
	email       string
	locale      string
}

// evaluateOrder prices every item of o in place. It fails with an item
// status when a reference cannot be resolved.
func (s *Service) evaluateOrder(agg *Aggregation, o *ordering.Order) (*evaluation, shared.Status) {
	shop, err := agg.Shops.Get(o.ShopID)
	if err != nil {
		return nil, statusOf(err)
	}
	customer, err := agg.Customers.Get(o.CustomerID)
	if err != nil {
		return nil, statusOf(err)
	}
	organization, err := agg.Organizations.Get(shop.OrganizationID)
	if err != nil {
		return nil, statusOf(err)
	}

	sender, ok := s.addressOfType(agg, organization.ContactPointIDs, s.opts.ContactPointTypes.Legal)
	if !ok {
		return nil, shared.StatusNoLegalAddress.Withf("shop", shop.ID)
	}
	origin, err := agg.Countries.Get(sender.Address.CountryID)
	if err != nil {
		return nil, statusOf(err)
	}
	sender.Contact.Name = organization.Name

	recipient, ok := s.recipientOf(agg, o, customer)
	if !ok {
		return nil, shared.StatusNoShippingAddress.Withf("customer", customer.ID)
	}
	destination, err := agg.Countries.Get(recipient.Address.CountryID)
	if err != nil {
		return nil, statusOf(err)
	}

	items := make([]ordering.Item, len(o.Items))
	amounts := make([]pricing.Amount, 0, len(o.Items))
	for i, item := range o.Items {
		priced, st := s.priceItem(agg, item, &origin, &destination, customer.Type().IsPrivate())
		if !st.IsSuccess() {
			return nil, st
		}
		items[i] = priced
		amounts = append(amounts, *priced.Amount)
	}
	o.ApplyPricing(items, pricing.CalcTotalAmounts(amounts, agg.Currencies))
	o.CustomerType = customer.Type()

	return &evaluation{
		shop:        shop,
		customer:    customer,
		origin:      &origin,
		destination: &destination,
		sender:      sender,
		recipient:   recipient,
		email:       s.recipientEmail(agg, o, customer, recipient),
		locale:      s.localeOf(agg, o, customer),
	}, shared.StatusSuccess
}

func (s *Service) priceItem(agg *Aggregation, item ordering.Item, origin, destination *ordering.Country, private bool) (ordering.Item, shared.Status) {
	product, err := agg.Products.Get(item.ProductID)
	if err != nil {
		return item, statusOf(err)
	}

	var (
		price *ordering.Price
		taxes []ordering.Tax
	)
	if product.IsBundle() {
		price = product.Bundle.Price
		for _, bp := range product.Bundle.Products {
			component, err := agg.Products.Get(bp.ProductID)
			if err != nil {
				return item, statusOf(err)
			}
			ids := component.TaxIDs
			if v, ok := component.ResolveVariant(bp.VariantID); ok {
				ids = component.TaxIDsFor(v)
			}
			for _, tax := range agg.Taxes.GetMany(ids) {
				tax.Ratio = bp.TaxRatio
				taxes = append(taxes, tax)
			}
		}
	} else {
		variant, ok := product.ResolveVariant(item.VariantID)
		if !ok {
			return item, shared.StatusNotFound.Withf("variant", item.VariantID)
		}
		price = variant.Price
		taxes = agg.Taxes.GetMany(product.TaxIDsFor(variant))
	}
	if price == nil {
		return item, shared.StatusNotFound.Withf("price of product", product.ID)
	}
	currency, err := agg.Currencies.Get(price.CurrencyID)
	if err != nil {
		return item, statusOf(err)
	}

	gross := price.Effective().Mul(decimal.NewFromInt(item.Quantity))
	amount := pricing.CalcAmount(gross, taxes, origin, destination, &currency, private)
	item.UnitPrice = price
	item.Amount = &amount
	return item, shared.StatusSuccess
}

// addressOfType returns the first address among contactPointIDs whose
// contact point carries typeID.
func (s *Service) addressOfType(agg *Aggregation, contactPointIDs []string, typeID string) (ordering.ShippingAddress, bool) {
	for _, cp := range agg.ContactPoints.GetMany(contactPointIDs) {
		if !cp.HasType(typeID) {
			continue
		}
		address, ok := agg.Addresses.Lookup(cp.PhysicalAddressID)
		if !ok {
			continue
		}
		return ordering.ShippingAddress{
			Address: address,
			Contact: ordering.Contact{Name: cp.Name, Email: cp.Email, Phone: cp.Telephone},
		}, true
	}
	return ordering.ShippingAddress{}, false
}

// recipientOf prefers the inline shipping address of the order and falls
// back to the customer's shipping contact point.
func (s *Service) recipientOf(agg *Aggregation, o *ordering.Order, customer ordering.Customer) (ordering.ShippingAddress, bool) {
	if o.ShippingAddress != nil && o.ShippingAddress.Address.CountryID != "" {
		return *o.ShippingAddress, true
	}
	return s.addressOfType(agg, customerContactPointIDs(agg, customer), s.opts.ContactPointTypes.Shipping)
}

func (s *Service) recipientEmail(agg *Aggregation, o *ordering.Order, customer ordering.Customer, recipient ordering.ShippingAddress) string {
	if recipient.Contact.Email != "" {
		return recipient.Contact.Email
	}
	if customer.Private != nil {
		if user, ok := agg.Users.Lookup(customer.Private.UserID); ok && user.Email != "" {
			return user.Email
		}
	}
	if user, ok := agg.Users.Lookup(o.UserID); ok {
		return user.Email
	}
	return ""
}

func (s *Service) localeOf(agg *Aggregation, o *ordering.Order, customer ordering.Customer) string {
	for _, cp := range agg.ContactPoints.GetMany(customerContactPointIDs(agg, customer)) {
		if l, ok := agg.Locales.Lookup(cp.LocaleID); ok {
			return l.Value
		}
	}
	if u, ok := agg.Users.Lookup(o.UserID); ok {
		if l, ok := agg.Locales.Lookup(u.LocaleID); ok {
			return l.Value
		}
	}
	return ""
}

func customerContactPointIDs(agg *Aggregation, customer ordering.Customer) []string {
	if customer.Private != nil {
		return customer.Private.ContactPointIDs
	}
	if org, ok := agg.Organizations.Lookup(customer.OrganizationID()); ok {
		return org.ContactPointIDs
	}
	return nil
}

func statusOf(err error) shared.Status {
	st, _ := shared.AsStatus(err)
	return st
}
