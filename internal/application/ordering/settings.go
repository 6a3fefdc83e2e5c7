package ordering

import (
	"maps"
	"strconv"
	"strings"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/ordering"
)

// Setting URNs understood by the ordering workflow
const (
	SettingDisableFulfillment  = "urn:restorecommerce:shop:setting:order:submit:disableFulfillment"
	SettingDisableInvoice      = "urn:restorecommerce:shop:setting:order:submit:disableInvoice"
	SettingEnableInvoiceRender = "urn:restorecommerce:shop:setting:order:submit:invoice:render"
	SettingEnableInvoiceSend   = "urn:restorecommerce:shop:setting:order:submit:invoice:send"
	SettingDisableNotification = "urn:restorecommerce:shop:setting:order:notification:disable"
	SettingNotificationChannel = "urn:restorecommerce:shop:setting:order:notification:channel"
	SettingNotificationSubject = "urn:restorecommerce:shop:setting:order:notification:subject"
	SettingTemplate            = "urn:restorecommerce:shop:setting:order:template"
	SettingPackagingPreference = "urn:restorecommerce:shop:setting:order:packaging:preference"
	SettingLocale              = "urn:restorecommerce:shop:setting:locale"
)

// builtinSettings is the built-in defaults table. Configuration overrides are
// merged over a copy once, at construction.
var builtinSettings = map[string]string{
	SettingDisableFulfillment:  "false",
	SettingDisableInvoice:      "false",
	SettingEnableInvoiceRender: "true",
	SettingEnableInvoiceSend:   "true",
	SettingDisableNotification: "false",
	SettingNotificationChannel: "email",
	SettingNotificationSubject: "Your order {id} is {state}",
	SettingTemplate:            "order",
	SettingLocale:              "en",
}

// DefaultSettings returns a copy of the built-in defaults table
func DefaultSettings() map[string]string {
	return maps.Clone(builtinSettings)
}

// Defaults is an immutable settings table
type Defaults struct {
	values map[string]string
}

// NewDefaults merges overrides over the built-in defaults
func NewDefaults(overrides map[string]string) Defaults {
	values := DefaultSettings()
	maps.Copy(values, overrides)
	return Defaults{values: values}
}

// Get returns the default for key
func (d Defaults) Get(key string) (string, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Settings are the resolved settings of one order
type Settings map[string]string

// String returns the value for key or an empty string
func (s Settings) String(key string) string {
	return s[key]
}

// Bool interprets the value for key, false when unset or malformed
func (s Settings) Bool(key string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s[key]))
	return err == nil && b
}

// ResolveSettings merges the customer settings over the shop settings over
// the defaults. The first source that defines a key wins.
func ResolveSettings(agg *Aggregation, o *ordering.Order, defaults Defaults) Settings {
	out := make(Settings)
	apply := func(settingID string) {
		if settingID == "" {
			return
		}
		setting, ok := agg.Settings.Lookup(settingID)
		if !ok {
			return
		}
		for _, attr := range setting.Settings {
			if _, set := out[attr.ID]; !set {
				out[attr.ID] = attr.Value
			}
		}
	}
	if customer, ok := agg.Customers.Lookup(o.CustomerID); ok {
		apply(customer.SettingID)
	}
	if shop, ok := agg.Shops.Lookup(o.ShopID); ok {
		apply(shop.SettingID)
	}
	for k, v := range defaults.values {
		if _, set := out[k]; !set {
			out[k] = v
		}
	}
	return out
}
