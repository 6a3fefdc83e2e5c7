package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/restorecommerce/ordering-srv-sub000/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrsOf(kvs []attribute.KeyValue) map[string]attribute.Value {
	out := make(map[string]attribute.Value, len(kvs))
	for _, kv := range kvs {
		out[string(kv.Key)] = kv.Value
	}
	return out
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, span := telemetry.StartServiceSpan(context.Background(), "ordering", "submit",
		telemetry.WithAttribute("batch.size", 3),
		telemetry.WithAttribute("subject", "user-1"),
	)
	assert.NotEmpty(t, telemetry.GetTraceID(ctx))
	assert.NotEmpty(t, telemetry.GetSpanID(ctx))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "ordering.submit", spans[0].Name())
	attrs := attrsOf(spans[0].Attributes())
	assert.Equal(t, int64(3), attrs["batch.size"].AsInt64())
	assert.Equal(t, "user-1", attrs["subject"].AsString())
}

func TestSetAttributes(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "op")
	telemetry.SetAttributes(span, "ok", true, 42, "skipped", "ratio", 0.5, "dangling")
	span.End()

	attrs := attrsOf(sr.Ended()[0].Attributes())
	assert.True(t, attrs["ok"].AsBool())
	assert.Equal(t, 0.5, attrs["ratio"].AsFloat64())
	assert.NotContains(t, attrs, "dangling")
	assert.Len(t, attrs, 2)
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	t.Run("marks span failed", func(t *testing.T) {
		_, span := telemetry.StartSpan(context.Background(), "failing")
		telemetry.RecordError(span, errors.New("boom"))
		span.End()

		ended := sr.Ended()
		got := ended[len(ended)-1]
		assert.Equal(t, codes.Error, got.Status().Code)
		assert.Equal(t, "boom", got.Status().Description)
		require.Len(t, got.Events(), 1)
	})

	t.Run("nil error is ignored", func(t *testing.T) {
		_, span := telemetry.StartSpan(context.Background(), "fine")
		telemetry.RecordError(span, nil)
		span.End()

		ended := sr.Ended()
		assert.Equal(t, codes.Unset, ended[len(ended)-1].Status().Code)
	})
}

func TestTraceIDWithoutSpan(t *testing.T) {
	assert.Empty(t, telemetry.GetTraceID(context.Background()))
	assert.Empty(t, telemetry.GetSpanID(context.Background()))
}
