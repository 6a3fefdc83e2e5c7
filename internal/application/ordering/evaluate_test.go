package ordering

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/ordering"
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/shared"
)

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestService_Evaluate(t *testing.T) {
	ctx := context.Background()

	t.Run("private customer pays domestic VAT", func(t *testing.T) {
		svc := newTestService(newWorld(), newMemRepo())
		result, err := svc.Evaluate(ctx, []*ordering.Order{pendingOrder("o-1", "cust-private")})
		require.NoError(t, err)
		require.True(t, result.OperationStatus.IsSuccess(), result.OperationStatus.String())

		o := result.Items[0].Payload
		amount := o.Items[0].Amount
		require.NotNil(t, amount)
		assert.Equal(t, "eur", amount.CurrencyID)
		assertDecimal(t, "20.00", amount.Gross)
		assertDecimal(t, "23.80", amount.Net)
		require.Len(t, amount.VATs, 1)
		assert.Equal(t, "vat-de", amount.VATs[0].TaxID)
		assertDecimal(t, "3.80", amount.VATs[0].VAT)

		require.Len(t, o.TotalAmounts, 1)
		assertDecimal(t, "23.80", o.TotalAmounts[0].Net)
		assert.Equal(t, ordering.CustomerTypePrivate, o.CustomerType)
		assertDecimal(t, "10.00", o.Items[0].UnitPrice.RegularPrice)
	})

	t.Run("commercial customer is not taxed", func(t *testing.T) {
		svc := newTestService(newWorld(), newMemRepo())
		result, err := svc.Evaluate(ctx, []*ordering.Order{pendingOrder("o-1", "cust-company")})
		require.NoError(t, err)

		amount := result.Items[0].Payload.Items[0].Amount
		assertDecimal(t, "20.00", amount.Net)
		assert.Empty(t, amount.VATs)
		assert.Equal(t, ordering.CustomerTypeCommercial, result.Items[0].Payload.CustomerType)
	})

	t.Run("export outside the economic area is not taxed", func(t *testing.T) {
		o := pendingOrder("o-1", "cust-private")
		o.ShippingAddress = &ordering.ShippingAddress{
			Address: ordering.Address{CountryID: "ch", Locality: "Zurich"},
			Contact: ordering.Contact{Name: "Jane", Email: "jane@example.ch"},
		}
		svc := newTestService(newWorld(), newMemRepo())
		result, err := svc.Evaluate(ctx, []*ordering.Order{o})
		require.NoError(t, err)
		require.True(t, result.OperationStatus.IsSuccess(), result.OperationStatus.String())
		assert.Empty(t, result.Items[0].Payload.Items[0].Amount.VATs)
	})

	t.Run("sale price wins", func(t *testing.T) {
		w := newWorld()
		w.Products.items[0].Physical[0].Price = &ordering.Price{
			CurrencyID:   "eur",
			RegularPrice: decimal.RequireFromString("10.00"),
			SalePrice:    decimal.RequireFromString("7.50"),
			Sale:         true,
		}
		svc := newTestService(w, newMemRepo())
		result, err := svc.Evaluate(ctx, []*ordering.Order{pendingOrder("o-1", "cust-company")})
		require.NoError(t, err)
		assertDecimal(t, "15.00", result.Items[0].Payload.Items[0].Amount.Gross)
	})

	t.Run("failures stay per order", func(t *testing.T) {
		noLegal := pendingOrder("o-no-legal", "cust-private")
		noLegal.ShopID = "shop-bare"
		unknownProduct := pendingOrder("o-unknown-product", "cust-private")
		unknownProduct.Items[0].ProductID = "prod-missing"

		svc := newTestService(newWorld(), newMemRepo())
		result, err := svc.Evaluate(ctx, []*ordering.Order{
			noLegal,
			pendingOrder("o-no-shipping", "cust-homeless"),
			unknownProduct,
			pendingOrder("o-ok", "cust-private"),
		})
		require.NoError(t, err)
		require.Len(t, result.Items, 4)
		assert.Equal(t, shared.StatusPartial.Code, result.OperationStatus.Code)

		tests := []struct {
			id      string
			code    int
			message string
		}{
			{id: "o-no-legal", code: http.StatusNotFound, message: "shop shop-bare has no legal address"},
			{id: "o-no-shipping", code: http.StatusNotFound, message: "customer cust-homeless has no shipping address"},
			{id: "o-unknown-product", code: http.StatusNotFound, message: "product prod-missing not found"},
			{id: "o-ok", code: http.StatusOK, message: "success"},
		}
		for i, tt := range tests {
			t.Run(tt.id, func(t *testing.T) {
				st := result.Items[i].Status
				assert.Equal(t, tt.id, st.ID)
				assert.Equal(t, tt.code, st.Code)
				assert.Equal(t, tt.message, st.Message)
			})
		}
	})

	t.Run("orders without id get one", func(t *testing.T) {
		o := pendingOrder("", "cust-private")
		o.Items[0].ID = ""
		repo := newMemRepo()
		svc := newTestService(newWorld(), repo)

		result, err := svc.Evaluate(ctx, []*ordering.Order{o})
		require.NoError(t, err)
		assert.NotEmpty(t, result.Items[0].Payload.ID)
		assert.NotEmpty(t, result.Items[0].Payload.Items[0].ID)
		assert.Zero(t, repo.saves)
	})

	t.Run("invalid order is rejected before pricing", func(t *testing.T) {
		o := pendingOrder("o-1", "cust-private")
		o.Items = nil
		svc := newTestService(newWorld(), newMemRepo())

		result, err := svc.Evaluate(ctx, []*ordering.Order{o})
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, result.Items[0].Status.Code)
	})

	t.Run("empty request", func(t *testing.T) {
		svc := newTestService(newWorld(), newMemRepo())
		result, err := svc.Evaluate(ctx, []*ordering.Order{nil})
		require.NoError(t, err)
		assert.Equal(t, shared.StatusNoItem, result.OperationStatus)
	})

	t.Run("aggregation failure aborts the batch", func(t *testing.T) {
		w := newWorld()
		failed := shared.StatusFailed.Withf("customer", "read", "unavailable")
		w.Customers.status = &failed
		svc := newTestService(w, newMemRepo())

		result, err := svc.Evaluate(ctx, []*ordering.Order{pendingOrder("o-1", "cust-private")})
		require.NoError(t, err)
		assert.Equal(t, failed, result.OperationStatus)
		assert.Empty(t, result.Items)
	})
}
