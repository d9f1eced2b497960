package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/datalens/pkg/observability"
)

func newTestProvider() (*tracetest.InMemoryExporter, trace.TracerProvider) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	return exporter, tp
}

func TestFilteringProvider_SuppressedTracer(t *testing.T) {
	t.Parallel()

	exporter, base := newTestProvider()
	fp := observability.NewFilteringTracerProvider(base)

	_, span := fp.Tracer("datalens.source").Start(context.Background(), "datalens.source.open")
	span.End()

	assert.Empty(t, exporter.GetSpans())
}

func TestFilteringProvider_SuppressedSpans(t *testing.T) {
	t.Parallel()

	exporter, base := newTestProvider()
	fp := observability.NewFilteringTracerProvider(base)
	tracer := fp.Tracer("datalens")

	_, start := tracer.Start(context.Background(), "datalens.engine.start")
	start.End()

	for _, name := range []string{
		observability.SpanProcessChunk,
		observability.SpanExtractChunk,
		observability.SpanSourceRead,
	} {
		_, hot := tracer.Start(context.Background(), name)
		hot.End()
	}

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "datalens.engine.start", spans[0].Name)
}

func TestFilteringProvider_ChildOfSuppressedSpanKeepsParentTrace(t *testing.T) {
	t.Parallel()

	exporter, base := newTestProvider()
	fp := observability.NewFilteringTracerProvider(base)
	tracer := fp.Tracer("datalens")

	ctx, root := tracer.Start(context.Background(), "datalens.engine.finalize")
	_, hot := tracer.Start(ctx, observability.SpanProcessChunk)
	hot.End()
	root.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "datalens.engine.finalize", spans[0].Name)
}
