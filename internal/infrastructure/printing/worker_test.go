package printing

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/ordering"
	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/shared"
	"github.com/restorecommerce/ordering-srv-sub000/internal/infrastructure/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type capturingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
	err    error
}

func (p *capturingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return p.err
}

func (p *capturingPublisher) last(t *testing.T) *ordering.RenderRespondedEvent {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.events)
	resp, ok := p.events[len(p.events)-1].(*ordering.RenderRespondedEvent)
	require.True(t, ok)
	return resp
}

type fakePDF struct {
	err   error
	calls int
}

func (f *fakePDF) RenderPDF(_ context.Context, html []byte) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]byte("%PDF-"), html[:4]...), nil
}

func (f *fakePDF) Close() error { return nil }

func orderPayload() map[string]any {
	return map[string]any{
		"id":          "o-1",
		"order_state": "SUBMITTED",
		"items":       []any{
			map[string]any{"product_id": "p-1", "product": map[string]any{"name": "Widget"}, "quantity": 2.0,
				"amount": map[string]any{"gross": "23.8", "net": "20", "currency_id": "EUR"}},
		},
		"total_amounts": []any{map[string]any{"gross": "23.8", "net": "20", "currency_id": "EUR"}},
	}
}

func TestWorker_RendersHTML(t *testing.T) {
	pub := &capturingPublisher{}
	w := NewWorker(NewTemplateStore(""), NewTemplateEngine(), pub, WithWorkerLogger(zaptest.NewLogger(t)))
	assert.Equal(t, []string{ordering.EventTypeRenderRequest}, w.EventTypes())

	req := ordering.NewRenderRequestedEvent("o-1", "corr-1", "order_submitted", "de", "text/html", orderPayload())
	require.NoError(t, w.Handle(context.Background(), req))

	resp := pub.last(t)
	assert.Equal(t, "corr-1", resp.CorrelationID)
	assert.Equal(t, "o-1", resp.AggregateID())
	assert.Empty(t, resp.Error)
	assert.Equal(t, "text/html", resp.ContentType)
	assert.Empty(t, resp.URL)

	body := string(resp.Body)
	assert.Contains(t, body, "Bestellung o-1")
	assert.Contains(t, body, "Widget")
	assert.Contains(t, body, "23,80 EUR")
	assert.Contains(t, body, "Submitted")
}

func TestWorker_UploadsPDF(t *testing.T) {
	pub := &capturingPublisher{}
	pdf := &fakePDF{}
	store := storage.NewMemoryStore("https://docs.example.com")
	w := NewWorker(NewTemplateStore(""), NewTemplateEngine(), pub, WithPDF(pdf, store))

	req := ordering.NewRenderRequestedEvent("o-1", "corr-2", "order_cancelled", "en", "text/html", orderPayload())
	require.NoError(t, w.Handle(context.Background(), req))

	resp := pub.last(t)
	assert.Empty(t, resp.Error)
	assert.Equal(t, "https://docs.example.com/orders/o-1/corr-2.pdf", resp.URL)
	assert.Contains(t, string(resp.Body), "Your order was cancelled.")
	assert.Equal(t, 1, pdf.calls)

	data, contentType, ok := store.Get("orders/o-1/corr-2.pdf")
	require.True(t, ok)
	assert.Equal(t, "application/pdf", contentType)
	assert.Equal(t, "%PDF-<!DO", string(data))
}

func TestWorker_Failures(t *testing.T) {
	tests := []struct {
		name    string
		req     *ordering.RenderRequestedEvent
		pdf     *fakePDF
		wantErr string
	}{
		{
			name:    "unknown template",
			req:     ordering.NewRenderRequestedEvent("o-1", "c", "invoice", "en", "text/html", orderPayload()),
			wantErr: "template not found",
		},
		{
			name:    "missing correlation id",
			req:     ordering.NewRenderRequestedEvent("o-1", "", "order", "en", "text/html", orderPayload()),
			wantErr: "without correlation id",
		},
		{
			name:    "pdf failure",
			req:     ordering.NewRenderRequestedEvent("o-1", "c", "order", "en", "text/html", orderPayload()),
			pdf:     &fakePDF{err: errors.New("chrome crashed")},
			wantErr: "chrome crashed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &capturingPublisher{}
			var opts []WorkerOption
			if tt.pdf != nil {
				opts = append(opts, WithPDF(tt.pdf, storage.NewMemoryStore("")))
			}
			w := NewWorker(NewTemplateStore(""), NewTemplateEngine(), pub, opts...)

			require.NoError(t, w.Handle(context.Background(), tt.req))

			resp := pub.last(t)
			assert.Contains(t, resp.Error, tt.wantErr)
			assert.Empty(t, resp.Body)
			assert.Empty(t, resp.URL)
		})
	}
}

func TestWorker_IgnoresOtherEvents(t *testing.T) {
	pub := &capturingPublisher{}
	w := NewWorker(NewTemplateStore(""), NewTemplateEngine(), pub)

	require.NoError(t, w.Handle(context.Background(), ordering.NewRenderRespondedEvent("o-1", "c")))
	assert.Empty(t, pub.events)
}

func TestWorker_PublishError(t *testing.T) {
	pub := &capturingPublisher{err: errors.New("bus down")}
	w := NewWorker(NewTemplateStore(""), NewTemplateEngine(), pub)

	err := w.Handle(context.Background(), ordering.NewRenderRequestedEvent("o-1", "c", "order", "en", "text/html", orderPayload()))
	assert.ErrorContains(t, err, "bus down")
}

func TestChromedpRenderer_RejectsEmptyHTML(t *testing.T) {
	r := NewChromedpRenderer(ChromedpConfig{NoSandbox: true})
	defer r.Close()

	_, err := r.RenderPDF(context.Background(), []byte("  "))
	assert.ErrorContains(t, err, "HTML content is empty")
}
