package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/ordering"
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/shared"
	"github.com/restorecommerce/ordering-srv-sub000/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingServer answers every request with the given status and body and
// records the last path and body it saw
type recordingServer struct {
	*httptest.Server
	path string
	body map[string]any
}

func newRecordingServer(t *testing.T, status int, response any) *recordingServer {
	t.Helper()
	rs := &recordingServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		rs.path = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		rs.body = map[string]any{}
		_ = json.Unmarshal(data, &rs.body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		switch v := response.(type) {
		case string:
			_, _ = io.WriteString(w, v)
		default:
			_ = json.NewEncoder(w).Encode(v)
		}
	}))
	t.Cleanup(rs.Close)
	return rs
}

func TestResource_Read(t *testing.T) {
	shop := ordering.Shop{ID: "shop-1"}
	srv := newRecordingServer(t, http.StatusOK, shared.NewListResult([]shared.Result[ordering.Shop]{
		{Payload: &shop, Status: shared.StatusSuccess.WithID("shop-1")},
	}))

	r := NewResource[ordering.Shop]("shop", srv.URL+"/")
	res, err := r.Read(context.Background(), ordering.ReadRequest{IDs: []string{"shop-1"}, Limit: 1})
	require.NoError(t, err)

	assert.Equal(t, "/read", srv.path)
	assert.Equal(t, []any{"shop-1"}, srv.body["ids"])
	assert.True(t, res.OperationStatus.IsSuccess())
	require.Len(t, res.Payloads(), 1)
	assert.Equal(t, "shop-1", res.Payloads()[0].ID)
}

func TestResource_Writes(t *testing.T) {
	tests := []struct {
		name string
		call func(r *Resource[ordering.Address]) error
		path string
	}{
		{"create", func(r *Resource[ordering.Address]) error {
			_, err := r.Create(context.Background(), []ordering.Address{{CountryID: "DE"}})
			return err
		}, "/create"},
		{"update", func(r *Resource[ordering.Address]) error {
			_, err := r.Update(context.Background(), []ordering.Address{{ID: "a1"}})
			return err
		}, "/update"},
		{"upsert", func(r *Resource[ordering.Address]) error {
			_, err := r.Upsert(context.Background(), []ordering.Address{{ID: "a1"}})
			return err
		}, "/upsert"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newRecordingServer(t, http.StatusOK, shared.ListResult[ordering.Address]{OperationStatus: shared.StatusSuccess})
			require.NoError(t, tt.call(NewResource[ordering.Address]("address", srv.URL)))
			assert.Equal(t, tt.path, srv.path)
			assert.Len(t, srv.body["items"], 1)
		})
	}

	t.Run("delete", func(t *testing.T) {
		srv := newRecordingServer(t, http.StatusOK, shared.DeleteResult{
			Status:          []shared.Status{shared.StatusSuccess.WithID("a1")},
			OperationStatus: shared.StatusSuccess,
		})
		res, err := NewResource[ordering.Address]("address", srv.URL).Delete(context.Background(), []string{"a1"})
		require.NoError(t, err)
		assert.Equal(t, "/delete", srv.path)
		assert.Equal(t, []any{"a1"}, srv.body["ids"])
		assert.Len(t, res.Status, 1)
	})
}

func TestClient_ErrorResponses(t *testing.T) {
	t.Run("error status with envelope is decoded", func(t *testing.T) {
		srv := newRecordingServer(t, http.StatusNotFound, shared.FailedListResult[ordering.Shop](
			shared.StatusNotFound.Withf("shop", "s1"),
		))
		res, err := NewResource[ordering.Shop]("shop", srv.URL).Read(context.Background(), ordering.ReadRequest{})
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, res.OperationStatus.Code)
		assert.Empty(t, res.Items)
	})

	t.Run("error status without envelope is an HTTPError", func(t *testing.T) {
		srv := newRecordingServer(t, http.StatusBadGateway, "upstream down")
		_, err := NewResource[ordering.Shop]("shop", srv.URL).Read(context.Background(), ordering.ReadRequest{})

		var httpErr *HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
		assert.Equal(t, "read", httpErr.Action)
		assert.Contains(t, httpErr.Body, "upstream down")
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := newRecordingServer(t, http.StatusOK, "{not json")
		_, err := NewResource[ordering.Shop]("shop", srv.URL).Read(context.Background(), ordering.ReadRequest{})
		assert.ErrorContains(t, err, "failed to decode shop/read response")
	})

	t.Run("no endpoint", func(t *testing.T) {
		_, err := NewResource[ordering.Shop]("shop", "").Read(context.Background(), ordering.ReadRequest{})
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("timeout", func(t *testing.T) {
		slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer slow.Close()

		_, err := NewResource[ordering.Shop]("shop", slow.URL, WithTimeout(20*time.Millisecond)).
			Read(context.Background(), ordering.ReadRequest{})
		assert.Error(t, err)
	})
}

func TestActionClients(t *testing.T) {
	ctx := context.Background()

	t.Run("fulfillment evaluate and submit", func(t *testing.T) {
		srv := newRecordingServer(t, http.StatusOK, shared.ListResult[ordering.Fulfillment]{OperationStatus: shared.StatusSuccess})
		c := NewFulfillmentClient(srv.URL)

		_, err := c.Evaluate(ctx, []ordering.Fulfillment{{ID: "f1"}})
		require.NoError(t, err)
		assert.Equal(t, "/evaluate", srv.path)

		_, err = c.Submit(ctx, []ordering.Fulfillment{{ID: "f1"}})
		require.NoError(t, err)
		assert.Equal(t, "/submit", srv.path)
	})

	t.Run("solution query", func(t *testing.T) {
		srv := newRecordingServer(t, http.StatusOK, shared.ListResult[ordering.FulfillmentSolutionResult]{OperationStatus: shared.StatusSuccess})
		_, err := NewSolutionClient(srv.URL).Query(ctx, []ordering.FulfillmentSolutionQuery{{}})
		require.NoError(t, err)
		assert.Equal(t, "/query", srv.path)
	})

	t.Run("invoice render and send", func(t *testing.T) {
		srv := newRecordingServer(t, http.StatusOK, shared.ListResult[ordering.Invoice]{OperationStatus: shared.StatusSuccess})
		c := NewInvoiceClient(srv.URL)

		_, err := c.Render(ctx, []string{"i1"})
		require.NoError(t, err)
		assert.Equal(t, "/render", srv.path)

		_, err = c.Send(ctx, []string{"i1"})
		require.NoError(t, err)
		assert.Equal(t, "/send", srv.path)
		assert.Equal(t, []any{"i1"}, srv.body["ids"])
	})

	t.Run("notification send", func(t *testing.T) {
		srv := newRecordingServer(t, http.StatusOK, map[string]any{"operation_status": shared.StatusSuccess})
		status, err := NewNotificationClient(srv.URL).Send(ctx, ordering.Notification{
			Channel:    "email",
			Recipients: []string{"jo@example.com"},
			Subject:    "Order submitted",
		})
		require.NoError(t, err)
		assert.True(t, status.IsSuccess())
		assert.Equal(t, "email", srv.body["channel"])
	})
}

func TestNewClients(t *testing.T) {
	srv := newRecordingServer(t, http.StatusOK, shared.ListResult[ordering.Product]{OperationStatus: shared.StatusSuccess})

	clients := NewClients(config.RemoteConfig{
		Timeout:  time.Second,
		Traced:   true,
		Products: srv.URL,
	}, nil)

	_, err := clients.Products.Read(context.Background(), ordering.ReadRequest{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, "/read", srv.path)

	_, err = clients.Shops.Read(context.Background(), ordering.ReadRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
