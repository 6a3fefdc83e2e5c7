package ordering

import (
	"context"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/shared"
)

// MaxReadLimit is the largest page a bulk read may request.
const MaxReadLimit = 1000

// ReadRequest selects entities of one remote resource.
type ReadRequest struct {
	IDs     []string          `json:"ids,omitempty"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset,omitempty"`
	Filters map[string]string `json:"filters,omitempty"`
}

// Reader is the bulk read interface of a resource service. A nil error with
// an operation status other than 200 is a failed call.
type Reader[T any] interface {
	Read(ctx context.Context, req ReadRequest) (*shared.ListResult[T], error)
}

// Writer is the bulk write interface of a resource service. Every item in
// the response carries its own status.
type Writer[T any] interface {
	Create(ctx context.Context, items []T) (*shared.ListResult[T], error)
	Update(ctx context.Context, items []T) (*shared.ListResult[T], error)
	Upsert(ctx context.Context, items []T) (*shared.ListResult[T], error)
	Delete(ctx context.Context, ids []string) (*shared.DeleteResult, error)
}

// ResourceService combines bulk reads and writes
type ResourceService[T any] interface {
	Reader[T]
	Writer[T]
}

// FulfillmentService manages shipments with the carrier
type FulfillmentService interface {
	ResourceService[Fulfillment]
	// Evaluate checks whether the carrier can ship each fulfillment
	Evaluate(ctx context.Context, items []Fulfillment) (*shared.ListResult[Fulfillment], error)
	// Submit hands created fulfillments over to the carrier
	Submit(ctx context.Context, items []Fulfillment) (*shared.ListResult[Fulfillment], error)
}

// FulfillmentSolutionService proposes parcel layouts and shipping costs
type FulfillmentSolutionService interface {
	Query(ctx context.Context, queries []FulfillmentSolutionQuery) (*shared.ListResult[FulfillmentSolutionResult], error)
}

// InvoiceService manages invoices
type InvoiceService interface {
	ResourceService[Invoice]
	// Render produces the invoice documents
	Render(ctx context.Context, ids []string) (*shared.ListResult[Invoice], error)
	// Send delivers rendered invoices to the recipient
	Send(ctx context.Context, ids []string) (*shared.ListResult[Invoice], error)
}

// Notification is a message sent to a customer
type Notification struct {
	Channel     string     `json:"channel"`
	Recipients  []string   `json:"recipients"`
	Subject     string     `json:"subject"`
	Body        string     `json:"body"`
	ContentType string     `json:"content_type"`
	Attachments []Document `json:"attachments,omitempty"`
}

// NotificationService delivers notifications
type NotificationService interface {
	Send(ctx context.Context, n Notification) (shared.Status, error)
}
