package ordering

import (
	"errors"
	"testing"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validItems() []Item {
	return []Item{{ProductID: "p1", VariantID: "v1", Quantity: 4}}
}

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		from, to State
		allowed  bool
	}{
		{StatePending, StateSubmitted, true},
		{StatePending, StateCancelled, true},
		{StatePending, StateWithdrawn, true},
		{StatePending, StateCompleted, false},
		{StateSubmitted, StateCompleted, true},
		{StateSubmitted, StateCancelled, true},
		{StateSubmitted, StateWithdrawn, true},
		{StateSubmitted, StateSubmitted, false},
		{StateCancelled, StatePending, false},
		{StateCompleted, StateCancelled, false},
		{StateWithdrawn, StateSubmitted, false},
		{StateInvalid, StateSubmitted, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}

	assert.False(t, StateInvalid.IsValid(), "INVALID is reporting only")
	assert.True(t, StateCompleted.IsTerminal())
}

func TestNewOrder(t *testing.T) {
	t.Run("creates pending order with valid inputs", func(t *testing.T) {
		o, err := NewOrder("s1", "c1", validItems())
		require.NoError(t, err)
		assert.NotEmpty(t, o.ID)
		assert.Equal(t, StatePending, o.State)
		assert.NotEmpty(t, o.Items[0].ID)
		require.Len(t, o.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeOrderCreated, o.GetDomainEvents()[0].EventType())
	})

	t.Run("rejects missing shop", func(t *testing.T) {
		_, err := NewOrder("", "c1", validItems())
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "INVALID_SHOP", de.Code)
	})

	t.Run("rejects empty items", func(t *testing.T) {
		_, err := NewOrder("s1", "c1", nil)
		assert.ErrorContains(t, err, "at least one item")
	})

	t.Run("rejects non positive quantity", func(t *testing.T) {
		_, err := NewOrder("s1", "c1", []Item{{ProductID: "p1", Quantity: 0}})
		assert.ErrorContains(t, err, "Quantity must be positive")
	})
}

func TestOrderLifecycle(t *testing.T) {
	t.Run("submit then complete", func(t *testing.T) {
		o, err := NewOrder("s1", "c1", validItems())
		require.NoError(t, err)
		o.ClearDomainEvents()

		require.NoError(t, o.Submit())
		assert.Equal(t, StateSubmitted, o.State)
		assert.NotNil(t, o.SubmittedAt)

		require.NoError(t, o.Complete())
		assert.Equal(t, StateCompleted, o.State)

		events := o.GetDomainEvents()
		require.Len(t, events, 2)
		assert.Equal(t, EventTypeOrderSubmitted, events[0].EventType())
		assert.Equal(t, EventTypeOrderCompleted, events[1].EventType())
	})

	t.Run("resubmit is rejected", func(t *testing.T) {
		o, _ := NewOrder("s1", "c1", validItems())
		require.NoError(t, o.Submit())
		err := o.Submit()
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("transition resets notification state", func(t *testing.T) {
		o, _ := NewOrder("s1", "c1", validItems())
		o.MarkNotified()
		require.NoError(t, o.Withdraw())
		assert.Equal(t, NotificationNone, o.NotificationState)
	})
}

func TestProductResolveVariant(t *testing.T) {
	price := &Price{CurrencyID: "eur", RegularPrice: decimal.NewFromInt(10)}
	p := Product{
		ID:     "p1",
		TaxIDs: []string{"vat-de"},
		Physical: []Variant{
			{ID: "base", Price: price},
			{ID: "red", ParentVariantID: "base"},
			{ID: "loop", ParentVariantID: "loop"},
		},
	}

	t.Run("inherits price from parent", func(t *testing.T) {
		v, ok := p.ResolveVariant("red")
		require.True(t, ok)
		assert.Equal(t, price, v.Price)
		assert.Equal(t, []string{"vat-de"}, p.TaxIDsFor(v))
	})

	t.Run("self reference terminates", func(t *testing.T) {
		v, ok := p.ResolveVariant("loop")
		require.True(t, ok)
		assert.Nil(t, v.Price)
	})

	t.Run("unknown variant", func(t *testing.T) {
		_, ok := p.ResolveVariant("nope")
		assert.False(t, ok)
	})
}

func TestPriceEffective(t *testing.T) {
	p := Price{RegularPrice: decimal.NewFromInt(10), SalePrice: decimal.NewFromInt(8)}
	assert.True(t, p.Effective().Equal(decimal.NewFromInt(10)))
	p.Sale = true
	assert.True(t, p.Effective().Equal(decimal.NewFromInt(8)))
}

func TestOrderModify(t *testing.T) {
	t.Run("replaces editable fields of a pending order", func(t *testing.T) {
		o, err := NewOrder("s1", "c1", validItems())
		require.NoError(t, err)
		o.ClearDomainEvents()
		state := o.State

		patch := &Order{ShopID: "s2", CustomerID: "c1", Name: "renamed", Items: []Item{{ProductID: "p2", Quantity: 1}}}
		require.NoError(t, o.Modify(patch))

		assert.Equal(t, "s2", o.ShopID)
		assert.Equal(t, "renamed", o.Name)
		assert.Equal(t, state, o.State)
		assert.NotEmpty(t, o.Items[0].ID)
		require.Len(t, o.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeOrderModified, o.GetDomainEvents()[0].EventType())
	})

	t.Run("rejects submitted order", func(t *testing.T) {
		o, err := NewOrder("s1", "c1", validItems())
		require.NoError(t, err)
		require.NoError(t, o.Submit())

		err = o.Modify(&Order{ShopID: "s1", CustomerID: "c1", Items: validItems()})
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})

	t.Run("rejects invalid patch", func(t *testing.T) {
		o, err := NewOrder("s1", "c1", validItems())
		require.NoError(t, err)
		assert.Error(t, o.Modify(&Order{ShopID: "s1", CustomerID: "c1"}))
	})
}
