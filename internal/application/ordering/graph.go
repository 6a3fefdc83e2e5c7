package ordering

import (
	"context"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/ordering"
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/resource"
)

// Services bundles the remote collaborators of the ordering workflow
type Services struct {
	Shops                ordering.Reader[ordering.Shop]
	Customers            ordering.Reader[ordering.Customer]
	Organizations        ordering.Reader[ordering.Organization]
	ContactPoints        ordering.Reader[ordering.ContactPoint]
	Addresses            ordering.Reader[ordering.Address]
	Countries            ordering.Reader[ordering.Country]
	Currencies           ordering.Reader[ordering.Currency]
	Taxes                ordering.Reader[ordering.Tax]
	Products             ordering.Reader[ordering.Product]
	Users                ordering.Reader[ordering.User]
	Locales              ordering.Reader[ordering.Locale]
	Settings             ordering.Reader[ordering.Setting]
	Fulfillments         ordering.FulfillmentService
	FulfillmentSolutions ordering.FulfillmentSolutionService
	Invoices             ordering.InvoiceService
	Notifications        ordering.NotificationService
}

// resolveGraph pulls in every resource an order batch references. Each
// phase only depends on maps filled by the phases before it.
func (s *Service) resolveGraph(ctx context.Context, agg *Aggregation) error {
	svc := s.services

	// orders -> shops, customers, products, users
	if err := s.aggregator.Aggregate(ctx, agg,
		Join[ordering.Shop]{Entity: "shop", Into: ContainerShops, Source: svc.Shops, IDOf: shopID,
			IDsOf: func(a *Aggregation) []string {
				return mapOrders(a, func(o *ordering.Order) []string { return []string{o.ShopID} })
			}},
		Join[ordering.Customer]{Entity: "customer", Into: ContainerCustomers, Source: svc.Customers, IDOf: customerID,
			IDsOf: func(a *Aggregation) []string {
				return mapOrders(a, func(o *ordering.Order) []string { return []string{o.CustomerID} })
			}},
		Join[ordering.Product]{Entity: "product", Into: ContainerProducts, Source: svc.Products, IDOf: productID,
			IDsOf: func(a *Aggregation) []string { return mapOrders(a, (*ordering.Order).ProductIDs) }},
		Join[ordering.User]{Entity: "user", Into: ContainerUsers, Source: svc.Users, IDOf: userID,
			IDsOf: func(a *Aggregation) []string {
				return mapOrders(a, func(o *ordering.Order) []string { return []string{o.UserID} })
			}},
	); err != nil {
		return err
	}

	if err := s.aggregator.AggregateProductBundles(ctx, agg, svc.Products); err != nil {
		return err
	}

	// shops, customers, products -> organizations, settings, taxes, currencies, users
	if err := s.aggregator.Aggregate(ctx, agg,
		Join[ordering.Organization]{Entity: "organization", Into: ContainerOrganizations, Source: svc.Organizations, IDOf: organizationID,
			IDsOf: func(a *Aggregation) []string {
				ids := collect(a.Shops, func(s ordering.Shop) []string { return []string{s.OrganizationID} })
				return append(ids, collect(a.Customers, func(c ordering.Customer) []string { return []string{c.OrganizationID()} })...)
			}},
		Join[ordering.Setting]{Entity: "setting", Into: ContainerSettings, Source: svc.Settings, IDOf: settingID,
			IDsOf: func(a *Aggregation) []string {
				ids := collect(a.Shops, func(s ordering.Shop) []string { return []string{s.SettingID} })
				return append(ids, collect(a.Customers, func(c ordering.Customer) []string { return []string{c.SettingID} })...)
			}},
		Join[ordering.Tax]{Entity: "tax", Into: ContainerTaxes, Source: svc.Taxes, IDOf: taxID,
			IDsOf: func(a *Aggregation) []string { return collect(a.Products, productTaxIDs) }},
		Join[ordering.Currency]{Entity: "currency", Into: ContainerCurrencies, Source: svc.Currencies, IDOf: currencyID,
			IDsOf: func(a *Aggregation) []string { return collect(a.Products, productCurrencyIDs) }},
		Join[ordering.User]{Entity: "user", Into: ContainerUsers, Source: svc.Users, IDOf: userID,
			IDsOf: func(a *Aggregation) []string {
				return collect(a.Customers, func(c ordering.Customer) []string {
					if c.Private == nil {
						return nil
					}
					return []string{c.Private.UserID}
				})
			}},
	); err != nil {
		return err
	}

	// organizations, customers -> contact points
	if err := s.aggregator.Aggregate(ctx, agg,
		Join[ordering.ContactPoint]{Entity: "contact_point", Into: ContainerContactPoints, Source: svc.ContactPoints, IDOf: contactPointID,
			IDsOf: func(a *Aggregation) []string {
				ids := collect(a.Organizations, func(o ordering.Organization) []string { return o.ContactPointIDs })
				return append(ids, collect(a.Customers, func(c ordering.Customer) []string {
					if c.Private == nil {
						return nil
					}
					return c.Private.ContactPointIDs
				})...)
			}},
	); err != nil {
		return err
	}

	// contact points, users -> addresses, locales
	if err := s.aggregator.Aggregate(ctx, agg,
		Join[ordering.Address]{Entity: "address", Into: ContainerAddresses, Source: svc.Addresses, IDOf: addressID,
			IDsOf: func(a *Aggregation) []string {
				return collect(a.ContactPoints, func(c ordering.ContactPoint) []string { return []string{c.PhysicalAddressID} })
			}},
		Join[ordering.Locale]{Entity: "locale", Into: ContainerLocales, Source: svc.Locales, IDOf: localeID,
			IDsOf: func(a *Aggregation) []string {
				ids := collect(a.ContactPoints, func(c ordering.ContactPoint) []string { return []string{c.LocaleID} })
				return append(ids, collect(a.Users, func(u ordering.User) []string { return []string{u.LocaleID} })...)
			}},
	); err != nil {
		return err
	}

	// addresses, inline shipping addresses, taxes -> countries
	return s.aggregator.Aggregate(ctx, agg,
		Join[ordering.Country]{Entity: "country", Into: ContainerCountries, Source: svc.Countries, IDOf: countryID,
			IDsOf: func(a *Aggregation) []string {
				ids := collect(a.Addresses, func(ad ordering.Address) []string { return []string{ad.CountryID} })
				ids = append(ids, collect(a.Taxes, func(t ordering.Tax) []string { return []string{t.CountryID} })...)
				return append(ids, mapOrders(a, func(o *ordering.Order) []string {
					if o.ShippingAddress == nil {
						return nil
					}
					return []string{o.ShippingAddress.Address.CountryID}
				})...)
			}},
	)
}

func mapOrders(a *Aggregation, fn func(*ordering.Order) []string) []string {
	var ids []string
	for _, o := range a.Orders {
		ids = append(ids, fn(o)...)
	}
	return ids
}

func collect[T any](m *resource.Map[T], fn func(T) []string) []string {
	var ids []string
	for _, v := range m.All() {
		ids = append(ids, fn(v)...)
	}
	return ids
}

func productTaxIDs(p ordering.Product) []string {
	ids := append([]string(nil), p.TaxIDs...)
	for _, v := range p.Physical {
		ids = append(ids, v.TaxIDs...)
	}
	for _, v := range p.Virtual {
		ids = append(ids, v.TaxIDs...)
	}
	return ids
}

func productCurrencyIDs(p ordering.Product) []string {
	var ids []string
	for _, v := range append(append([]ordering.Variant(nil), p.Physical...), p.Virtual...) {
		if v.Price != nil {
			ids = append(ids, v.Price.CurrencyID)
		}
	}
	if p.Bundle != nil && p.Bundle.Price != nil {
		ids = append(ids, p.Bundle.Price.CurrencyID)
	}
	return ids
}

func shopID(v ordering.Shop) string                 { return v.ID }
func customerID(v ordering.Customer) string         { return v.ID }
func organizationID(v ordering.Organization) string { return v.ID }
func contactPointID(v ordering.ContactPoint) string { return v.ID }
func addressID(v ordering.Address) string           { return v.ID }
func countryID(v ordering.Country) string           { return v.ID }
func currencyID(v ordering.Currency) string         { return v.ID }
func taxID(v ordering.Tax) string                   { return v.ID }
func userID(v ordering.User) string                 { return v.ID }
func localeID(v ordering.Locale) string             { return v.ID }
func settingID(v ordering.Setting) string           { return v.ID }
