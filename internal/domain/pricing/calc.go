package pricing

import (
	"slices"

	"github.com/shopspring/decimal"
)

// Round rounds half away from zero to the currency precision.
func Round(d decimal.Decimal, currency *Currency) decimal.Decimal {
	return d.Round(currency.Places())
}

// Applicable reports whether tax is levied on a sale from origin to
// destination. Only private customers are taxed, only by the origin
// country, and across borders only inside a shared economic area.
func Applicable(tax Tax, origin, destination *Country, isPrivateCustomer bool) bool {
	if !isPrivateCustomer || origin == nil {
		return false
	}
	if tax.CountryID != origin.ID {
		return false
	}
	if destination == nil || len(destination.EconomicAreas) == 0 {
		return true
	}
	for _, area := range origin.EconomicAreas {
		if slices.Contains(destination.EconomicAreas, area) {
			return true
		}
	}
	return false
}

// CalcAmount prices gross against the applicable taxes. Each VAT is
// gross x rate x ratio rounded to the currency precision; net is gross plus
// the VATs, rounded again.
func CalcAmount(
	gross decimal.Decimal,
	taxes []Tax,
	origin, destination *Country,
	currency *Currency,
	isPrivateCustomer bool,
) Amount {
	vats := make([]VAT, 0, len(taxes))
	net := gross
	for _, tax := range taxes {
		if !Applicable(tax, origin, destination, isPrivateCustomer) {
			continue
		}
		vat := Round(gross.Mul(tax.Rate).Mul(tax.EffectiveRatio()), currency)
		vats = append(vats, VAT{TaxID: tax.ID, VAT: vat})
		net = net.Add(vat)
	}
	amount := Amount{
		Gross: Round(gross, currency),
		Net:   Round(net, currency),
		VATs:  vats,
	}
	if currency != nil {
		amount.CurrencyID = currency.ID
	}
	return amount
}

// CalcTotalAmounts sums amounts per currency in order of first appearance.
// Gross, net and every tax's VAT are summed unrounded and rounded once with
// that currency's precision. Unknown currencies use DefaultPrecision.
func CalcTotalAmounts(amounts []Amount, currencies CurrencyLookup) []Amount {
	type bucket struct {
		gross, net decimal.Decimal
		vatOrder   []string
		vats       map[string]decimal.Decimal
	}
	var order []string
	buckets := make(map[string]*bucket)

	for _, a := range amounts {
		b, ok := buckets[a.CurrencyID]
		if !ok {
			b = &bucket{vats: make(map[string]decimal.Decimal)}
			buckets[a.CurrencyID] = b
			order = append(order, a.CurrencyID)
		}
		b.gross = b.gross.Add(a.Gross)
		b.net = b.net.Add(a.Net)
		for _, v := range a.VATs {
			if _, seen := b.vats[v.TaxID]; !seen {
				b.vatOrder = append(b.vatOrder, v.TaxID)
			}
			b.vats[v.TaxID] = b.vats[v.TaxID].Add(v.VAT)
		}
	}

	totals := make([]Amount, 0, len(order))
	for _, id := range order {
		b := buckets[id]
		var currency *Currency
		if currencies != nil {
			if c, ok := currencies.Lookup(id); ok {
				currency = &c
			}
		}
		vats := make([]VAT, 0, len(b.vatOrder))
		for _, taxID := range b.vatOrder {
			vats = append(vats, VAT{TaxID: taxID, VAT: Round(b.vats[taxID], currency)})
		}
		totals = append(totals, Amount{
			CurrencyID: id,
			Gross:      Round(b.gross, currency),
			Net:        Round(b.net, currency),
			VATs:       vats,
		})
	}
	return totals
}
