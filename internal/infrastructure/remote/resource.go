package remote

import (
	"context"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/ordering"
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/shared"
)

type itemsRequest[T any] struct {
	Items []T `json:"items"`
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

// Resource is the bulk client of one resource service
type Resource[T any] struct {
	*Client
}

// NewResource creates a bulk client for the resource called name
func NewResource[T any](name, baseURL string, opts ...Option) *Resource[T] {
	return &Resource[T]{Client: NewClient(name, baseURL, opts...)}
}

// Read fetches entities by id or filter
func (r *Resource[T]) Read(ctx context.Context, req ordering.ReadRequest) (*shared.ListResult[T], error) {
	return callList[T](ctx, r.Client, "read", req)
}

// Create creates entities
func (r *Resource[T]) Create(ctx context.Context, items []T) (*shared.ListResult[T], error) {
	return callList[T](ctx, r.Client, "create", itemsRequest[T]{Items: items})
}

// Update updates entities
func (r *Resource[T]) Update(ctx context.Context, items []T) (*shared.ListResult[T], error) {
	return callList[T](ctx, r.Client, "update", itemsRequest[T]{Items: items})
}

// Upsert creates or updates entities
func (r *Resource[T]) Upsert(ctx context.Context, items []T) (*shared.ListResult[T], error) {
	return callList[T](ctx, r.Client, "upsert", itemsRequest[T]{Items: items})
}

// Delete removes entities by id
func (r *Resource[T]) Delete(ctx context.Context, ids []string) (*shared.DeleteResult, error) {
	var out shared.DeleteResult
	if err := r.call(ctx, "delete", idsRequest{IDs: ids}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func callList[T any](ctx context.Context, c *Client, action string, in any) (*shared.ListResult[T], error) {
	var out shared.ListResult[T]
	if err := c.call(ctx, action, in, &out); err != nil {
		return nil, err
	}
	if out.Items == nil {
		out.Items = []shared.Result[T]{}
	}
	return &out, nil
}

// FulfillmentClient is the client of the fulfillment service
type FulfillmentClient struct {
	*Resource[ordering.Fulfillment]
}

// NewFulfillmentClient creates a fulfillment service client
func NewFulfillmentClient(baseURL string, opts ...Option) *FulfillmentClient {
	return &FulfillmentClient{Resource: NewResource[ordering.Fulfillment]("fulfillment", baseURL, opts...)}
}

// Evaluate asks the carrier whether each fulfillment can be shipped
func (c *FulfillmentClient) Evaluate(ctx context.Context, items []ordering.Fulfillment) (*shared.ListResult[ordering.Fulfillment], error) {
	return callList[ordering.Fulfillment](ctx, c.Client, "evaluate", itemsRequest[ordering.Fulfillment]{Items: items})
}

// Submit hands fulfillments over to the carrier
func (c *FulfillmentClient) Submit(ctx context.Context, items []ordering.Fulfillment) (*shared.ListResult[ordering.Fulfillment], error) {
	return callList[ordering.Fulfillment](ctx, c.Client, "submit", itemsRequest[ordering.Fulfillment]{Items: items})
}

// SolutionClient is the client of the fulfillment solution service
type SolutionClient struct {
	*Client
}

// NewSolutionClient creates a fulfillment solution service client
func NewSolutionClient(baseURL string, opts ...Option) *SolutionClient {
	return &SolutionClient{Client: NewClient("fulfillment_solution", baseURL, opts...)}
}

// Query proposes parcel layouts for each query
func (c *SolutionClient) Query(ctx context.Context, queries []ordering.FulfillmentSolutionQuery) (*shared.ListResult[ordering.FulfillmentSolutionResult], error) {
	return callList[ordering.FulfillmentSolutionResult](ctx, c.Client, "query", itemsRequest[ordering.FulfillmentSolutionQuery]{Items: queries})
}

// InvoiceClient is the client of the invoice service
type InvoiceClient struct {
	*Resource[ordering.Invoice]
}

// NewInvoiceClient creates an invoice service client
func NewInvoiceClient(baseURL string, opts ...Option) *InvoiceClient {
	return &InvoiceClient{Resource: NewResource[ordering.Invoice]("invoice", baseURL, opts...)}
}

// Render produces the documents of the given invoices
func (c *InvoiceClient) Render(ctx context.Context, ids []string) (*shared.ListResult[ordering.Invoice], error) {
	return callList[ordering.Invoice](ctx, c.Client, "render", idsRequest{IDs: ids})
}

// Send delivers rendered invoices
func (c *InvoiceClient) Send(ctx context.Context, ids []string) (*shared.ListResult[ordering.Invoice], error) {
	return callList[ordering.Invoice](ctx, c.Client, "send", idsRequest{IDs: ids})
}

// NotificationClient is the client of the notification service
type NotificationClient struct {
	*Client
}

// NewNotificationClient creates a notification service client
func NewNotificationClient(baseURL string, opts ...Option) *NotificationClient {
	return &NotificationClient{Client: NewClient("notification", baseURL, opts...)}
}

// Send delivers one notification
func (c *NotificationClient) Send(ctx context.Context, n ordering.Notification) (shared.Status, error) {
	var out struct {
		OperationStatus shared.Status `json:"operation_status"`
	}
	if err := c.call(ctx, "send", n, &out); err != nil {
		return shared.Status{}, err
	}
	return out.OperationStatus, nil
}

// Compile-time checks
var (
	_ ordering.ResourceService[ordering.Shop] = (*Resource[ordering.Shop])(nil)
	_ ordering.FulfillmentService             = (*FulfillmentClient)(nil)
	_ ordering.FulfillmentSolutionService     = (*SolutionClient)(nil)
	_ ordering.InvoiceService                 = (*InvoiceClient)(nil)
	_ ordering.NotificationService            = (*NotificationClient)(nil)
)
