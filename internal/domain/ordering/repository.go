package ordering

import (
	"context"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/shared"
)

// OrderFilter narrows an order query
type OrderFilter struct {
	shared.Filter
	IDs        []string
	States     []State
	ShopID     string
	CustomerID string
}

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// FindByID finds an order by ID, shared.ErrNotFound if absent
	FindByID(ctx context.Context, id string) (*Order, error)

	// FindByIDs returns the orders that exist, in no particular order
	FindByIDs(ctx context.Context, ids []string) ([]*Order, error)

	// FindAll lists orders matching filter together with the total count
	FindAll(ctx context.Context, filter OrderFilter) ([]*Order, int64, error)

	// Save creates or updates an order. Updates are rejected with
	// shared.ErrConcurrencyConflict when the stored version moved on.
	Save(ctx context.Context, order *Order) error

	// Delete removes an order, shared.ErrNotFound if absent
	Delete(ctx context.Context, id string) error
}
