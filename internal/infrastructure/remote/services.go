package remote

import (
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/ordering"
	"github.com/restorecommerce/ordering-srv-sub000/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Clients holds one client per resource service the ordering service
// depends on
type Clients struct {
	Shops                *Resource[ordering.Shop]
	Customers            *Resource[ordering.Customer]
	Organizations        *Resource[ordering.Organization]
	ContactPoints        *Resource[ordering.ContactPoint]
	Addresses            *Resource[ordering.Address]
	Countries            *Resource[ordering.Country]
	Currencies           *Resource[ordering.Currency]
	Taxes                *Resource[ordering.Tax]
	Products             *Resource[ordering.Product]
	Users                *Resource[ordering.User]
	Locales              *Resource[ordering.Locale]
	Settings             *Resource[ordering.Setting]
	Fulfillments         *FulfillmentClient
	FulfillmentSolutions *SolutionClient
	Invoices             *InvoiceClient
	Notifications        *NotificationClient
}

// NewClients creates the clients from the remote configuration. Endpoints
// left empty yield clients that fail every call with ErrNotConfigured.
func NewClients(cfg config.RemoteConfig, logger *zap.Logger) *Clients {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []Option{WithLogger(logger.Named("remote"))}
	if cfg.Timeout > 0 {
		opts = append(opts, WithTimeout(cfg.Timeout))
	}
	if cfg.Traced {
		opts = append(opts, WithTracing())
	}

	clients := &Clients{
		Shops:                NewResource[ordering.Shop]("shop", cfg.Shops, opts...),
		Customers:            NewResource[ordering.Customer]("customer", cfg.Customers, opts...),
		Organizations:        NewResource[ordering.Organization]("organization", cfg.Organizations, opts...),
		ContactPoints:        NewResource[ordering.ContactPoint]("contact_point", cfg.ContactPoints, opts...),
		Addresses:            NewResource[ordering.Address]("address", cfg.Addresses, opts...),
		Countries:            NewResource[ordering.Country]("country", cfg.Countries, opts...),
		Currencies:           NewResource[ordering.Currency]("currency", cfg.Currencies, opts...),
		Taxes:                NewResource[ordering.Tax]("tax", cfg.Taxes, opts...),
		Products:             NewResource[ordering.Product]("product", cfg.Products, opts...),
		Users:                NewResource[ordering.User]("user", cfg.Users, opts...),
		Locales:              NewResource[ordering.Locale]("locale", cfg.Locales, opts...),
		Settings:             NewResource[ordering.Setting]("setting", cfg.Settings, opts...),
		Fulfillments:         NewFulfillmentClient(cfg.Fulfillments, opts...),
		FulfillmentSolutions: NewSolutionClient(cfg.Solutions, opts...),
		Invoices:             NewInvoiceClient(cfg.Invoices, opts...),
		Notifications:        NewNotificationClient(cfg.Notifications, opts...),
	}

	for name, url := range map[string]string{
		"shops": cfg.Shops, "customers": cfg.Customers, "products": cfg.Products,
		"fulfillments": cfg.Fulfillments, "invoices": cfg.Invoices, "notifications": cfg.Notifications,
	} {
		if url == "" {
			logger.Warn("Remote endpoint not configured", zap.String("service", name))
		}
	}
	return clients
}
