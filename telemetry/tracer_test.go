package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestNoopTracer(t *testing.T) {
	tracer := &NoopTracer{}
	ctx := context.Background()

	gotCtx, span := tracer.StartSpan(ctx, "test_span")

	_, ok := span.(*NoopSpan)
	assert.True(t, ok, "Should return a NoopSpan")
	assert.Equal(t, ctx, gotCtx)

	// These should not panic
	span.SetTag("tag", "value")
	span.RecordError(errors.New("boom"))
	span.Finish()
}

func TestOpenTelemetryTracer(t *testing.T) {
	tp := noop.NewTracerProvider()
	tracer := NewOpenTelemetryTracer(tp.Tracer("test"))

	_, span := tracer.StartSpan(context.Background(), "test_span")

	_, ok := span.(*OpenTelemetrySpan)
	assert.True(t, ok, "Should return an OpenTelemetrySpan")

	// These should not panic
	span.SetTag("sku", int64(5))
	span.SetTag("count", 3)
	span.SetTag("clamped", true)
	span.SetTag("email", "a@b.ch")
	span.SetTag("other", 1.5)
	span.RecordError(nil)
	span.RecordError(errors.New("boom"))
	span.Finish()
}
