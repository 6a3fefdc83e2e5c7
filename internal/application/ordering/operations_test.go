package ordering

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/ordering"
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/shared"
)

func ebookOrder(id string) *ordering.Order {
	o := pendingOrder(id, "cust-private")
	o.Items = []ordering.Item{{ID: id + "-item", ProductID: "prod-ebook", VariantID: "var-ebook", Quantity: 1}}
	return o
}

func TestService_CreateFulfillment(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	repo := newMemRepo(pendingOrder("o-1", "cust-private"), ebookOrder("o-2"), orderIn("o-3", ordering.StateCancelled))
	svc := newTestService(w, repo)

	result, err := svc.CreateFulfillment(ctx, []string{"o-1", "o-2", "o-3"})
	require.NoError(t, err)
	require.Len(t, result.Items, 3)
	assert.Equal(t, shared.StatusPartial.Code, result.OperationStatus.Code)

	require.NotNil(t, result.Items[0].Payload)
	assert.Equal(t, "f-o-1", result.Items[0].Payload.ID)
	assert.Equal(t, ordering.FulfillmentStatePending, result.Items[0].Payload.State)

	assert.Nil(t, result.Items[1].Payload)
	assert.Equal(t, "order o-2 is invalid: nothing to ship", result.Items[1].Status.Message)

	assert.Equal(t, http.StatusBadRequest, result.Items[2].Status.Code)
	assert.Equal(t, "order o-3 is in state CANCELLED, expected SUBMITTED", result.Items[2].Status.Message)

	assert.Empty(t, w.Fulfillments.submitted)
	assert.Empty(t, w.Fulfillments.deleted)
	assert.Equal(t, ordering.StatePending, repo.get(t, "o-1").State)
}

func TestService_TriggerFulfillment(t *testing.T) {
	w := newWorld()
	svc := newTestService(w, newMemRepo(orderIn("o-1", ordering.StateSubmitted)))

	result, err := svc.TriggerFulfillment(context.Background(), []string{"o-1"})
	require.NoError(t, err)
	require.True(t, result.OperationStatus.IsSuccess(), result.OperationStatus.String())
	assert.Equal(t, ordering.FulfillmentStateSubmitted, result.Items[0].Payload.State)
	require.Len(t, w.Fulfillments.submitted, 1)
	assert.Equal(t, "f-o-1", w.Fulfillments.submitted[0].ID)
}

func TestService_CreateInvoice(t *testing.T) {
	ctx := context.Background()

	t.Run("one invoice per customer and shop", func(t *testing.T) {
		w := newWorld()
		repo := newMemRepo(pendingOrder("o-1", "cust-private"), pendingOrder("o-2", "cust-private"), pendingOrder("o-3", "cust-company"))
		svc := newTestService(w, repo)

		result, err := svc.CreateInvoice(ctx, []string{"o-1", "o-2", "o-3"})
		require.NoError(t, err)
		require.True(t, result.OperationStatus.IsSuccess(), result.OperationStatus.String())
		require.Len(t, result.Items, 2)
		assert.Equal(t, "inv-1", result.Items[0].Payload.ID)
		assert.Equal(t, "inv-2", result.Items[1].Payload.ID)

		require.Len(t, w.Invoices.created, 2)
		first := w.Invoices.created[0]
		assert.Equal(t, []string{"o-1", "o-2"}, first.OrderIDs())
		assert.Len(t, first.Sections, 2)
		require.Len(t, first.TotalAmounts, 1)
		assertDecimal(t, "47.60", first.TotalAmounts[0].Net)
		assert.Equal(t, "addr-home", first.Recipient.Address.ID)

		second := w.Invoices.created[1]
		assert.Equal(t, []string{"o-3"}, second.OrderIDs())
		assertDecimal(t, "20.00", second.TotalAmounts[0].Net)

		assert.Empty(t, w.Invoices.rendered)
		assert.Empty(t, w.Invoices.sent)
	})

	t.Run("billing address overrides the recipient", func(t *testing.T) {
		w := newWorld()
		o := pendingOrder("o-1", "cust-private")
		o.BillingAddress = &ordering.ShippingAddress{Address: ordering.Address{CountryID: "de", Locality: "Cologne"}}
		svc := newTestService(w, newMemRepo(o))

		_, err := svc.CreateInvoice(ctx, []string{"o-1"})
		require.NoError(t, err)
		require.Len(t, w.Invoices.created, 1)
		assert.Equal(t, "Cologne", w.Invoices.created[0].Recipient.Address.Locality)
	})
}

func TestService_TriggerInvoice(t *testing.T) {
	w := newWorld()
	svc := newTestService(w, newMemRepo(orderIn("o-1", ordering.StateSubmitted)))

	result, err := svc.TriggerInvoice(context.Background(), []string{"o-1"})
	require.NoError(t, err)
	require.True(t, result.OperationStatus.IsSuccess())
	assert.Equal(t, []string{"inv-1"}, w.Invoices.rendered)
	assert.Equal(t, []string{"inv-1"}, w.Invoices.sent)
}

func TestService_QueryFulfillmentSolution(t *testing.T) {
	ctx := context.Background()
	w := newWorld()
	solutions := new(MockFulfillmentSolutionService)
	solutions.On("Query", mock.Anything, mock.MatchedBy(func(q []ordering.FulfillmentSolutionQuery) bool {
		return len(q) == 1 && q[0].Reference.InstanceID == "o-1" && len(q[0].Items) == 1 &&
			q[0].Recipient.Address.ID == "addr-home"
	})).Return(&shared.ListResult[ordering.FulfillmentSolutionResult]{
		Items: []shared.Result[ordering.FulfillmentSolutionResult]{{
			Payload: &ordering.FulfillmentSolutionResult{
				Reference: ordering.OrderReference("o-1"),
				Solutions: []ordering.FulfillmentSolution{{Compactness: 0.8}},
			},
			Status: shared.StatusSuccess,
		}},
		OperationStatus: shared.StatusSuccess,
	}, nil).Once()

	services := w.services()
	services.FulfillmentSolutions = solutions
	svc := NewService(newMemRepo(pendingOrder("o-1", "cust-private"), ebookOrder("o-2")), services, DefaultOptions(), zap.NewNop())

	result, err := svc.QueryFulfillmentSolution(ctx, []string{"o-1", "o-2"})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	require.NotNil(t, result.Items[0].Payload)
	assert.Len(t, result.Items[0].Payload.Solutions, 1)
	assert.Nil(t, result.Items[1].Payload)
	assert.Equal(t, http.StatusBadRequest, result.Items[1].Status.Code)
	solutions.AssertExpectations(t)
}
