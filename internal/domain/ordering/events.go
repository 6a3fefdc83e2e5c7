package ordering

import (
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/pricing"
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderCreated   = "orderCreated"
	EventTypeOrderModified  = "orderModified"
	EventTypeOrderDeleted   = "orderDeleted"
	EventTypeOrderSubmitted = "orderSubmitted"
	EventTypeOrderCancelled = "orderCancelled"
	EventTypeOrderWithdrawn = "orderWithdrawn"
	EventTypeOrderCompleted = "orderCompleted"
	EventTypeOrderFailed    = "orderFailed"

	EventTypeRenderRequest  = "renderRequest"
	EventTypeRenderResponse = "renderResponse"
)

// EventTypeForState returns the event announcing that an order reached state.
func EventTypeForState(s State) string {
	switch s {
	case StatePending:
		return EventTypeOrderCreated
	case StateSubmitted:
		return EventTypeOrderSubmitted
	case StateCancelled:
		return EventTypeOrderCancelled
	case StateWithdrawn:
		return EventTypeOrderWithdrawn
	case StateCompleted:
		return EventTypeOrderCompleted
	}
	return EventTypeOrderFailed
}

// OrderEvent carries a snapshot of the order fields consumers react to.
type OrderEvent struct {
	shared.BaseDomainEvent
	OrderID      string           `json:"order_id"`
	ShopID       string           `json:"shop_id"`
	CustomerID   string           `json:"customer_id"`
	State        State            `json:"order_state"`
	TotalAmounts []pricing.Amount `json:"total_amounts,omitempty"`
}

// NewOrderEvent creates an event of the given type for order
func NewOrderEvent(eventType string, o *Order) *OrderEvent {
	return &OrderEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		ShopID:          o.ShopID,
		CustomerID:      o.CustomerID,
		State:           o.State,
		TotalAmounts:    o.TotalAmounts,
	}
}

// OrderFailedEvent reports an order that failed a batch step
type OrderFailedEvent struct {
	shared.BaseDomainEvent
	OrderID string        `json:"order_id"`
	State   State         `json:"order_state"`
	Status  shared.Status `json:"status"`
}

// NewOrderFailedEvent creates an OrderFailedEvent
func NewOrderFailedEvent(o *Order, status shared.Status) *OrderFailedEvent {
	return &OrderFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderFailed, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		State:           o.State,
		Status:          status,
	}
}

// OrderDeletedEvent is raised when an order is removed
type OrderDeletedEvent struct {
	shared.BaseDomainEvent
	OrderID string `json:"order_id"`
}

// NewOrderDeletedEvent creates an OrderDeletedEvent
func NewOrderDeletedEvent(id string) *OrderDeletedEvent {
	return &OrderDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderDeleted, AggregateTypeOrder, id),
		OrderID:         id,
	}
}

// RenderRequestedEvent asks the render worker to produce a document body.
// The response carries the same CorrelationID.
type RenderRequestedEvent struct {
	shared.BaseDomainEvent
	CorrelationID string         `json:"correlation_id"`
	Template      string         `json:"template"`
	Locale        string         `json:"locale,omitempty"`
	ContentType   string         `json:"content_type"`
	Payload       map[string]any `json:"payload"`
}

// NewRenderRequestedEvent creates a RenderRequestedEvent for an order
func NewRenderRequestedEvent(orderID, correlationID, template, locale, contentType string, payload map[string]any) *RenderRequestedEvent {
	return &RenderRequestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRenderRequest, AggregateTypeOrder, orderID),
		CorrelationID:   correlationID,
		Template:        template,
		Locale:          locale,
		ContentType:     contentType,
		Payload:         payload,
	}
}

// RenderRespondedEvent delivers a rendered body or the reason rendering failed
type RenderRespondedEvent struct {
	shared.BaseDomainEvent
	CorrelationID string `json:"correlation_id"`
	ContentType   string `json:"content_type,omitempty"`
	Body          []byte `json:"body,omitempty"`
	URL           string `json:"url,omitempty"`
	Error         string `json:"error,omitempty"`
}

// NewRenderRespondedEvent creates a RenderRespondedEvent
func NewRenderRespondedEvent(orderID, correlationID string) *RenderRespondedEvent {
	return &RenderRespondedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRenderResponse, AggregateTypeOrder, orderID),
		CorrelationID:   correlationID,
	}
}
