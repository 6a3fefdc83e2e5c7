package ordering

import (
	"context"

	"go.uber.org/zap"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/ordering"
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/shared"
)

// RenderResponseHandler settles pending renders when the worker answers
type RenderResponseHandler struct {
	service *Service
	logger  *zap.Logger
}

// NewRenderResponseHandler creates the handler for renderResponse events
func NewRenderResponseHandler(service *Service, logger *zap.Logger) *RenderResponseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RenderResponseHandler{service: service, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *RenderResponseHandler) EventTypes() []string {
	return []string{ordering.EventTypeRenderResponse}
}

// Handle resolves or rejects the render waiting on the correlation id.
// Responses nobody waits for are dropped.
func (h *RenderResponseHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	resp, ok := event.(*ordering.RenderRespondedEvent)
	if !ok {
		return nil
	}
	queue := h.service.RenderQueue()
	var settled bool
	if resp.Error != "" {
		settled = queue.Reject(resp.CorrelationID, shared.StatusFailed.Withf("render of order", resp.AggregateID(), resp.Error).Err())
	} else {
		settled = queue.Resolve(resp.CorrelationID, RenderResult{ContentType: resp.ContentType, Body: resp.Body, URL: resp.URL})
	}
	if !settled {
		h.logger.Debug("Dropping render response without waiter",
			zap.String("correlation_id", resp.CorrelationID),
			zap.String("order_id", resp.AggregateID()))
	}
	return nil
}

// RenderCorrelationKey keys render responses by correlation id for
// deduplication.
func RenderCorrelationKey(event shared.DomainEvent) string {
	if resp, ok := event.(*ordering.RenderRespondedEvent); ok {
		return "render:" + resp.CorrelationID
	}
	return event.EventID()
}

var _ shared.EventHandler = (*RenderResponseHandler)(nil)
