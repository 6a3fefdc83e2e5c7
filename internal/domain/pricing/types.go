// Package pricing derives gross, net and VAT amounts with currency-specific
// rounding. All arithmetic uses shopspring/decimal.
package pricing

import "github.com/shopspring/decimal"

// DefaultPrecision is used when a currency does not declare one.
const DefaultPrecision int32 = 2

// Country is a tax jurisdiction.
type Country struct {
	ID            string   `json:"id"`
	CountryCode   string   `json:"country_code"`
	Name          string   `json:"name,omitempty"`
	EconomicAreas []string `json:"economic_areas,omitempty"`
}

// Currency carries the decimal precision amounts are rounded to.
type Currency struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Symbol    string `json:"symbol,omitempty"`
	Precision *int32 `json:"precision,omitempty"`
}

// Places returns the currency precision, DefaultPrecision when unset.
func (c *Currency) Places() int32 {
	if c == nil || c.Precision == nil {
		return DefaultPrecision
	}
	return *c.Precision
}

// Tax is a rate levied by one country. Ratio weights the rate for bundle
// components and defaults to one.
type Tax struct {
	ID        string              `json:"id"`
	CountryID string              `json:"country_id"`
	Rate      decimal.Decimal     `json:"rate"`
	Variant   string              `json:"variant,omitempty"`
	TypeID    string              `json:"type_id,omitempty"`
	Ratio     decimal.NullDecimal `json:"tax_ratio"`
}

// EffectiveRatio returns Ratio or one when it is not set.
func (t Tax) EffectiveRatio() decimal.Decimal {
	if t.Ratio.Valid {
		return t.Ratio.Decimal
	}
	return decimal.NewFromInt(1)
}

// VAT is the tax share of one applied tax.
type VAT struct {
	TaxID string          `json:"tax_id"`
	VAT   decimal.Decimal `json:"vat"`
}

// Amount is the priced value of an item or an order total. Net always equals
// Gross plus the VATs at the currency precision.
type Amount struct {
	CurrencyID string          `json:"currency_id"`
	Gross      decimal.Decimal `json:"gross"`
	Net        decimal.Decimal `json:"net"`
	VATs       []VAT           `json:"vats"`
}

// CurrencyLookup resolves currencies by id. *resource.Map[Currency] satisfies it.
type CurrencyLookup interface {
	Lookup(id string) (Currency, bool)
}
