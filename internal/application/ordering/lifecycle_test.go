package ordering

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/ordering"
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/shared"
)

func orderIn(id string, state ordering.State) *ordering.Order {
	o := pendingOrder(id, "cust-private")
	o.State = state
	return o
}

func TestService_StateChanges(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		from  ordering.State
		call  func(*Service, context.Context, []string) (*shared.ListResult[ordering.Order], error)
		want  ordering.State
		event string
	}{
		{name: "cancel pending", from: ordering.StatePending, call: (*Service).Cancel, want: ordering.StateCancelled, event: ordering.EventTypeOrderCancelled},
		{name: "cancel submitted", from: ordering.StateSubmitted, call: (*Service).Cancel, want: ordering.StateCancelled, event: ordering.EventTypeOrderCancelled},
		{name: "withdraw submitted", from: ordering.StateSubmitted, call: (*Service).Withdraw, want: ordering.StateWithdrawn, event: ordering.EventTypeOrderWithdrawn},
		{name: "complete submitted", from: ordering.StateSubmitted, call: (*Service).Complete, want: ordering.StateCompleted, event: ordering.EventTypeOrderCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo(orderIn("o-1", tt.from))
			pub := &capturePublisher{}
			svc := newTestService(newWorld(), repo, WithEventPublisher(pub))

			result, err := tt.call(svc, ctx, []string{"o-1"})
			require.NoError(t, err)
			require.True(t, result.OperationStatus.IsSuccess(), result.OperationStatus.String())
			assert.Equal(t, tt.want, repo.get(t, "o-1").State)
			assert.Equal(t, []string{tt.event}, pub.types())
		})
	}
}

func TestService_StateChangeRejected(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		from ordering.State
		call func(*Service, context.Context, []string) (*shared.ListResult[ordering.Order], error)
	}{
		{name: "complete pending", from: ordering.StatePending, call: (*Service).Complete},
		{name: "cancel completed", from: ordering.StateCompleted, call: (*Service).Cancel},
		{name: "withdraw cancelled", from: ordering.StateCancelled, call: (*Service).Withdraw},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo(orderIn("o-1", tt.from))
			pub := &capturePublisher{}
			svc := newTestService(newWorld(), repo, WithEventPublisher(pub))

			result, err := tt.call(svc, ctx, []string{"o-1"})
			require.NoError(t, err)
			assert.Equal(t, shared.StatusPartial.Code, result.OperationStatus.Code)
			assert.Equal(t, http.StatusBadRequest, result.Items[0].Status.Code)
			assert.Equal(t, tt.from, repo.get(t, "o-1").State)
			assert.Equal(t, []string{ordering.EventTypeOrderFailed}, pub.types())
		})
	}
}

func TestService_CancelRemovesFulfillments(t *testing.T) {
	w := newWorld()
	w.Fulfillments.stored["f-o-1"] = ordering.Fulfillment{ID: "f-o-1", Reference: ordering.OrderReference("o-1")}
	w.Fulfillments.stored["f-o-2"] = ordering.Fulfillment{ID: "f-o-2", Reference: ordering.OrderReference("o-2")}
	repo := newMemRepo(orderIn("o-1", ordering.StateSubmitted), orderIn("o-2", ordering.StateSubmitted))
	svc := newTestService(w, repo)

	result, err := svc.Cancel(context.Background(), []string{"o-1"})
	require.NoError(t, err)
	require.True(t, result.OperationStatus.IsSuccess())

	assert.Equal(t, []string{"f-o-1"}, w.Fulfillments.deleted)
	assert.Contains(t, w.Fulfillments.stored, "f-o-2")
}

func TestService_CompleteKeepsFulfillments(t *testing.T) {
	w := newWorld()
	w.Fulfillments.stored["f-o-1"] = ordering.Fulfillment{ID: "f-o-1", Reference: ordering.OrderReference("o-1")}
	svc := newTestService(w, newMemRepo(orderIn("o-1", ordering.StateSubmitted)))

	_, err := svc.Complete(context.Background(), []string{"o-1"})
	require.NoError(t, err)
	assert.Empty(t, w.Fulfillments.deleted)
}

func TestService_StateChangeSurvivesAggregationFailure(t *testing.T) {
	w := newWorld()
	failed := shared.StatusFailed.Withf("shop", "read", "unavailable")
	w.Shops.status = &failed
	repo := newMemRepo(orderIn("o-1", ordering.StatePending))
	svc := newTestService(w, repo)

	result, err := svc.Withdraw(context.Background(), []string{"o-1"})
	require.NoError(t, err)
	assert.True(t, result.OperationStatus.IsSuccess())
	assert.Equal(t, ordering.StateWithdrawn, repo.get(t, "o-1").State)
}

func TestService_StateChangeWithoutIDs(t *testing.T) {
	svc := newTestService(newWorld(), newMemRepo())
	result, err := svc.Cancel(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, shared.StatusNoItem, result.OperationStatus)
}
