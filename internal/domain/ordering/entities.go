package ordering

import (
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/pricing"
	"github.com/shopspring/decimal"
)

// Entities owned by other resource services. Only the fields the ordering
// workflow reads are modelled.

// Shop is a storefront owned by an organization
type Shop struct {
	ID             string `json:"id"`
	ShopNumber     string `json:"shop_number,omitempty"`
	Name           string `json:"name"`
	OrganizationID string `json:"organization_id"`
	SettingID      string `json:"setting_id,omitempty"`
}

// Customer is either a private person or an organization
type Customer struct {
	ID           string                `json:"id"`
	Private      *PrivateCustomer      `json:"private,omitempty"`
	Commercial   *OrganizationCustomer `json:"commercial,omitempty"`
	PublicSector *OrganizationCustomer `json:"public_sector,omitempty"`
	SettingID    string                `json:"setting_id,omitempty"`
}

// PrivateCustomer references the user account and its contact points
type PrivateCustomer struct {
	UserID          string   `json:"user_id"`
	ContactPointIDs []string `json:"contact_point_ids"`
}

// OrganizationCustomer references the customer organization
type OrganizationCustomer struct {
	OrganizationID string `json:"organization_id"`
}

// Type returns the customer type used for tax decisions
func (c Customer) Type() CustomerType {
	switch {
	case c.Commercial != nil:
		return CustomerTypeCommercial
	case c.PublicSector != nil:
		return CustomerTypePublicSector
	}
	return CustomerTypePrivate
}

// OrganizationID returns the organization of a commercial or public customer
func (c Customer) OrganizationID() string {
	switch {
	case c.Commercial != nil:
		return c.Commercial.OrganizationID
	case c.PublicSector != nil:
		return c.PublicSector.OrganizationID
	}
	return ""
}

// Organization owns contact points, among them the legal address
type Organization struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	ParentID        string   `json:"parent_id,omitempty"`
	ContactPointIDs []string `json:"contact_point_ids"`
	SettingID       string   `json:"setting_id,omitempty"`
}

// ContactPoint links an address to one or more usage types
type ContactPoint struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name,omitempty"`
	Email               string   `json:"email,omitempty"`
	Telephone           string   `json:"telephone,omitempty"`
	LocaleID            string   `json:"locale_id,omitempty"`
	PhysicalAddressID   string   `json:"physical_address_id"`
	ContactPointTypeIDs []string `json:"contact_point_type_ids"`
}

// HasType reports whether the contact point is tagged with typeID
func (c ContactPoint) HasType(typeID string) bool {
	for _, id := range c.ContactPointTypeIDs {
		if id == typeID {
			return true
		}
	}
	return false
}

// Address is a physical address
type Address struct {
	ID        string `json:"id,omitempty"`
	CountryID string `json:"country_id"`
	PostCode  string `json:"postcode,omitempty"`
	Locality  string `json:"locality,omitempty"`
	Street    string `json:"street,omitempty"`
	Region    string `json:"region,omitempty"`
	Building  string `json:"building_number,omitempty"`
}

// Price is the unit price of a variant
type Price struct {
	CurrencyID   string          `json:"currency_id"`
	RegularPrice decimal.Decimal `json:"regular_price"`
	SalePrice    decimal.Decimal `json:"sale_price"`
	Sale         bool            `json:"sale"`
}

// Effective returns the sale price when a sale is active
func (p Price) Effective() decimal.Decimal {
	if p.Sale {
		return p.SalePrice
	}
	return p.RegularPrice
}

// Package describes the physical size of a variant
type Package struct {
	SizeInCM   [3]decimal.Decimal `json:"size_in_cm"`
	WeightInKG decimal.Decimal    `json:"weight_in_kg"`
	Rotatable  bool               `json:"rotatable"`
}

// Variant is one sellable configuration of a product. Fields left empty are
// inherited from the parent variant.
type Variant struct {
	ID              string   `json:"id"`
	Name            string   `json:"name,omitempty"`
	ParentVariantID string   `json:"parent_variant_id,omitempty"`
	Price           *Price   `json:"price,omitempty"`
	TaxIDs          []string `json:"tax_ids,omitempty"`
	Package         *Package `json:"package,omitempty"`
	StockLevel      int64    `json:"stock_level,omitempty"`
}

// BundleProduct is one component of a bundle
type BundleProduct struct {
	ProductID  string              `json:"product_id"`
	VariantID  string              `json:"variant_id,omitempty"`
	Quantity   int64               `json:"quantity"`
	TaxRatio   decimal.NullDecimal `json:"tax_ratio"`
	PriceRatio decimal.NullDecimal `json:"price_ratio"`
}

// Bundle groups products sold at one price
type Bundle struct {
	Price    *Price          `json:"price,omitempty"`
	Products []BundleProduct `json:"products"`
}

// Product is a catalog entry with physical or virtual variants or a bundle
type Product struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	ShopID   string    `json:"shop_id"`
	Active   bool      `json:"active"`
	TaxIDs   []string  `json:"tax_ids,omitempty"`
	Physical []Variant `json:"physical_variants,omitempty"`
	Virtual  []Variant `json:"virtual_variants,omitempty"`
	Bundle   *Bundle   `json:"bundle,omitempty"`
}

// IsBundle reports whether the product is a bundle of other products
func (p Product) IsBundle() bool {
	return p.Bundle != nil
}

// IsPhysical reports whether the product needs shipping
func (p Product) IsPhysical() bool {
	return len(p.Physical) > 0
}

// ResolveVariant returns the variant with id, with empty fields filled from
// its parent chain. The walk stops at the first repeated id.
func (p Product) ResolveVariant(id string) (Variant, bool) {
	variants := append(append([]Variant(nil), p.Physical...), p.Virtual...)
	byID := make(map[string]Variant, len(variants))
	for _, v := range variants {
		byID[v.ID] = v
	}
	v, ok := byID[id]
	if !ok {
		return Variant{}, false
	}
	seen := map[string]bool{v.ID: true}
	parentID := v.ParentVariantID
	for parentID != "" && !seen[parentID] {
		parent, ok := byID[parentID]
		if !ok {
			break
		}
		seen[parentID] = true
		if v.Price == nil {
			v.Price = parent.Price
		}
		if len(v.TaxIDs) == 0 {
			v.TaxIDs = parent.TaxIDs
		}
		if v.Package == nil {
			v.Package = parent.Package
		}
		parentID = parent.ParentVariantID
	}
	return v, true
}

// TaxIDsFor returns the taxes of a variant, falling back to the product's
func (p Product) TaxIDsFor(v Variant) []string {
	if len(v.TaxIDs) > 0 {
		return v.TaxIDs
	}
	return p.TaxIDs
}

// User is the account behind a private customer or an order
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email"`
	LocaleID  string `json:"locale_id,omitempty"`
}

// Locale is a language setting referenced by users and contact points
type Locale struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// SettingAttribute is one URN keyed value
type SettingAttribute struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// Setting is a set of attributes attached to a shop or customer
type Setting struct {
	ID       string             `json:"id"`
	Settings []SettingAttribute `json:"settings"`
}

// Country, Currency and Tax are shared with the pricing engine.
type (
	Country  = pricing.Country
	Currency = pricing.Currency
	Tax      = pricing.Tax
)

// Reference points a derived resource back at the order it belongs to
type Reference struct {
	InstanceType string `json:"instance_type"`
	InstanceID   string `json:"instance_id"`
}

// InstanceTypeOrder is the reference type used for orders
const InstanceTypeOrder = "urn:restorecommerce:acs:model:order.Order"

// OrderReference returns the back-reference of an order
func OrderReference(orderID string) Reference {
	return Reference{InstanceType: InstanceTypeOrder, InstanceID: orderID}
}
