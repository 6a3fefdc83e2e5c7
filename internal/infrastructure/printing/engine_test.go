package printing

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateEngine_Formatting(t *testing.T) {
	engine := NewTemplateEngine()

	tests := []struct {
		name   string
		source string
		locale string
		data   any
		want   string
	}{
		{"money en", `{{money .v "EUR"}}`, "en", map[string]any{"v": "1234.5"}, "1,234.50 EUR"},
		{"money de", `{{money .v "EUR"}}`, "de-DE", map[string]any{"v": "1234.5"}, "1.234,50 EUR"},
		{"money zero decimals currency", `{{money .v "JPY"}}`, "en", map[string]any{"v": json.Number("1234.4")}, "1,234 JPY"},
		{"money without currency", `{{money .v .c}}`, "en", map[string]any{"v": 3.5}, "3.50"},
		{"number", `{{number .q}}`, "en", map[string]any{"q": json.Number("12000")}, "12,000"},
		{"translation de", `{{t "Order %s" "o-1"}}`, "de", nil, "Bestellung o-1"},
		{"translation en", `{{t "Total"}}`, "en-US", nil, "Total"},
		{"untranslated key", `{{t "Hello"}}`, "de", nil, "Hello"},
		{"unknown locale falls back", `{{t "Total"}}`, "not a locale!", nil, "Total"},
		{"title", `{{title (lower "SUBMITTED")}}`, "en", nil, "Submitted"},
		{"default", `{{default "n/a" .missing}}`, "en", map[string]any{}, "n/a"},
		{"date", `{{date .d}}`, "en", map[string]any{"d": "2026-03-01T10:00:00Z"}, "2026-03-01"},
		{"escapes html", `{{.s}}`, "en", map[string]any{"s": "<b>"}, "&lt;b&gt;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := engine.Render("test", tt.source, tt.locale, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}
}

func TestTemplateEngine_Errors(t *testing.T) {
	engine := NewTemplateEngine()

	_, err := engine.Render("broken", `{{if}}`, "en", nil)
	assert.ErrorContains(t, err, "failed to parse template broken")

	_, err = engine.Render("dict", `{{dict "a"}}`, "en", nil)
	assert.ErrorContains(t, err, "failed to execute template dict")
}

func TestToDecimal(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{decimal.RequireFromString("1.25"), "1.25"},
		{json.Number("2.5"), "2.5"},
		{"3", "3"},
		{4.75, "4.75"},
		{5, "5"},
		{int64(6), "6"},
		{"junk", "0"},
		{nil, "0"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, toDecimal(tt.in).String())
	}
}
