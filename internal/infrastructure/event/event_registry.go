package event

import "github.com/restorecommerce/ordering-srv-sub000/internal/domain/ordering"

// RegisterOrderingEvents registers every event the ordering service emits or
// consumes. Events crossing the Redis bus must be registered.
func RegisterOrderingEvents(serializer *EventSerializer) {
	for _, eventType := range []string{
		ordering.EventTypeOrderCreated,
		ordering.EventTypeOrderModified,
		ordering.EventTypeOrderSubmitted,
		ordering.EventTypeOrderCancelled,
		ordering.EventTypeOrderWithdrawn,
		ordering.EventTypeOrderCompleted,
	} {
		serializer.Register(eventType, &ordering.OrderEvent{})
	}
	serializer.Register(ordering.EventTypeOrderFailed, &ordering.OrderFailedEvent{})
	serializer.Register(ordering.EventTypeOrderDeleted, &ordering.OrderDeletedEvent{})
	serializer.Register(ordering.EventTypeRenderRequest, &ordering.RenderRequestedEvent{})
	serializer.Register(ordering.EventTypeRenderResponse, &ordering.RenderRespondedEvent{})
}
