package printing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"maps"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"golang.org/x/text/number"
)

// defaultLocale is used when a request carries no or an unparsable locale
var defaultLocale = language.English

// TemplateEngine executes html/templates with formatting functions bound
// to the locale of each render
type TemplateEngine struct {
	catalog catalog.Catalog
	funcs   template.FuncMap
}

// EngineOption configures the engine
type EngineOption func(*TemplateEngine)

// WithCatalog replaces the label translations
func WithCatalog(c catalog.Catalog) EngineOption {
	return func(e *TemplateEngine) { e.catalog = c }
}

// WithFuncs adds template functions
func WithFuncs(funcs template.FuncMap) EngineOption {
	return func(e *TemplateEngine) { maps.Copy(e.funcs, funcs) }
}

// NewTemplateEngine creates an engine with the built-in translations
func NewTemplateEngine(opts ...EngineOption) *TemplateEngine {
	e := &TemplateEngine{
		catalog: DefaultCatalog(),
		funcs: template.FuncMap{
			"upper":   strings.ToUpper,
			"lower":   strings.ToLower,
			"join":    strings.Join,
			"default": defaultValue,
			"dict":    dict,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DefaultCatalog holds the document labels in English and German
func DefaultCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(defaultLocale))
	for key, de := range map[string]string{
		"Order %s":                  "Bestellung %s",
		"Status":                    "Status",
		"Shipping address":          "Lieferadresse",
		"Product":                   "Artikel",
		"Quantity":                  "Menge",
		"Amount":                    "Betrag",
		"Total":                     "Summe",
		"net":                       "netto",
		"Remark":                    "Bemerkung",
		"Your order was cancelled.": "Ihre Bestellung wurde storniert.",
	} {
		_ = b.SetString(language.English, key, key)
		_ = b.SetString(language.German, key, de)
	}
	return b
}

// Render executes the template source with data. locale selects the
// translations and the number formatting.
func (e *TemplateEngine) Render(name, source, locale string, data any) ([]byte, error) {
	tag := parseLocale(locale)
	printer := message.NewPrinter(tag, message.Catalog(e.catalog))

	funcs := make(template.FuncMap, len(e.funcs)+5)
	maps.Copy(funcs, e.funcs)
	funcs["t"] = func(key string, args ...any) string { return printer.Sprintf(key, args...) }
	funcs["number"] = func(v any) string { return formatNumber(printer, v) }
	funcs["money"] = func(v any, currencyID any) string { return formatMoney(printer, v, fmt.Sprint(currencyID)) }
	funcs["date"] = func(v any) string { return formatDate(v) }
	funcs["title"] = func(s string) string { return cases.Title(tag).String(s) }

	tmpl, err := template.New(name).Funcs(funcs).Parse(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func parseLocale(locale string) language.Tag {
	if locale == "" {
		return defaultLocale
	}
	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return defaultLocale
	}
	return tag
}

// formatMoney prints v with the minor units of the currency followed by
// its ISO code, e.g. "1,234.50 EUR" or "1.234,50 EUR"
func formatMoney(p *message.Printer, v any, currencyID string) string {
	d := toDecimal(v)
	scale := 2
	code := strings.ToUpper(currencyID)
	if unit, err := currency.ParseISO(code); err == nil {
		scale, _ = currency.Standard.Rounding(unit)
	}
	formatted := p.Sprint(number.Decimal(d.Round(int32(scale)).InexactFloat64(), number.Scale(scale)))
	if code == "" || code == "<NIL>" {
		return formatted
	}
	return formatted + " " + code
}

func formatNumber(p *message.Printer, v any) string {
	d := toDecimal(v)
	if d.IsInteger() {
		return p.Sprint(number.Decimal(d.IntPart()))
	}
	return p.Sprint(number.Decimal(d.InexactFloat64()))
}

func formatDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format("2006-01-02")
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Format("2006-01-02")
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed.Format("2006-01-02")
		}
		return t
	}
	return ""
}

// toDecimal converts the number shapes a payload may carry after JSON
// round trips
func toDecimal(v any) decimal.Decimal {
	switch n := v.(type) {
	case decimal.Decimal:
		return n
	case *decimal.Decimal:
		if n != nil {
			return *n
		}
	case json.Number:
		if d, err := decimal.NewFromString(n.String()); err == nil {
			return d
		}
	case string:
		if d, err := decimal.NewFromString(n); err == nil {
			return d
		}
	case float64:
		return decimal.NewFromFloat(n)
	case float32:
		return decimal.NewFromFloat32(n)
	case int:
		return decimal.NewFromInt(int64(n))
	case int64:
		return decimal.NewFromInt(n)
	}
	return decimal.Zero
}

func defaultValue(def, v any) any {
	if v == nil {
		return def
	}
	if s, ok := v.(string); ok && s == "" {
		return def
	}
	return v
}

func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict needs an even number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		m[fmt.Sprint(pairs[i])] = pairs[i+1]
	}
	return m, nil
}
