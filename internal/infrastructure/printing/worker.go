package printing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/ordering"
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/shared"
	"github.com/restorecommerce/ordering-srv-sub000/internal/infrastructure/storage"
	"github.com/restorecommerce/ordering-srv-sub000/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Worker answers renderRequest events
type Worker struct {
	templates *TemplateStore
	engine    *TemplateEngine
	publisher shared.EventPublisher
	pdf       PDFRenderer
	store     storage.DocumentStore
	timeout   time.Duration
	logger    *zap.Logger
}

// WorkerOption configures a Worker
type WorkerOption func(*Worker)

// WithPDF converts rendered documents to PDF and uploads them to store;
// the response then carries a download link
func WithPDF(renderer PDFRenderer, store storage.DocumentStore) WorkerOption {
	return func(w *Worker) {
		w.pdf = renderer
		w.store = store
	}
}

// WithRenderTimeout bounds a single render
func WithRenderTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) { w.timeout = d }
}

// WithWorkerLogger sets the logger
func WithWorkerLogger(l *zap.Logger) WorkerOption {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWorker creates a render worker publishing its responses to publisher
func NewWorker(templates *TemplateStore, engine *TemplateEngine, publisher shared.EventPublisher, opts ...WorkerOption) *Worker {
	w := &Worker{
		templates: templates,
		engine:    engine,
		publisher: publisher,
		timeout:   30 * time.Second,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// EventTypes returns the event types this handler is interested in
func (w *Worker) EventTypes() []string {
	return []string{ordering.EventTypeRenderRequest}
}

// Handle renders the requested document and publishes the response.
// Render failures are reported in the response, not returned.
func (w *Worker) Handle(ctx context.Context, event shared.DomainEvent) error {
	req, ok := event.(*ordering.RenderRequestedEvent)
	if !ok {
		return nil
	}
	ctx, span := telemetry.StartSpan(ctx, "printing.render",
		telemetry.WithAttribute("order_id", req.AggregateID()),
		telemetry.WithAttribute("template", req.Template),
	)
	defer span.End()

	resp := ordering.NewRenderRespondedEvent(req.AggregateID(), req.CorrelationID)
	if err := w.render(ctx, req, resp); err != nil {
		telemetry.RecordError(span, err)
		w.logger.Warn("Render failed",
			zap.String("order_id", req.AggregateID()),
			zap.String("correlation_id", req.CorrelationID),
			zap.String("template", req.Template),
			zap.Error(err),
		)
		resp.Body, resp.URL, resp.ContentType = nil, "", ""
		resp.Error = err.Error()
	}

	if err := w.publisher.Publish(ctx, resp); err != nil {
		return fmt.Errorf("failed to publish render response %s: %w", req.CorrelationID, err)
	}
	return nil
}

func (w *Worker) render(ctx context.Context, req *ordering.RenderRequestedEvent, resp *ordering.RenderRespondedEvent) error {
	if req.CorrelationID == "" {
		return errors.New("render request without correlation id")
	}
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	name, source, err := w.templates.Lookup(req.Template)
	if err != nil {
		return err
	}
	body, err := w.engine.Render(name, source, req.Locale, map[string]any{
		"order":  req.Payload,
		"locale": parseLocale(req.Locale).String(),
	})
	if err != nil {
		return err
	}
	resp.ContentType = "text/html"
	resp.Body = body

	if w.pdf == nil || w.store == nil {
		return nil
	}
	pdf, err := w.pdf.RenderPDF(ctx, body)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("orders/%s/%s.pdf", req.AggregateID(), req.CorrelationID)
	if err := w.store.Upload(ctx, key, pdf, "application/pdf"); err != nil {
		return err
	}
	resp.URL, err = w.store.DownloadURL(ctx, key)
	return err
}

var _ shared.EventHandler = (*Worker)(nil)
