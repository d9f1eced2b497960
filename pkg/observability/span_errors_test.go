package observability_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/datalens/pkg/observability"
)

var (
	errBufferLimit = errors.New("buffered input exceeds limit")
	errBadRequest  = errors.New("missing field data")
)

func TestRecordSpanError_SetsAttributes(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	_, span := tp.Tracer("test").Start(context.Background(), "datalens.engine.finalize")

	observability.RecordSpanError(span, errBufferLimit, observability.ErrTypeResource, observability.ErrSourceInput)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	recorded := spans[0]
	attrs := spanAttrMap(recorded)

	assert.Equal(t, codes.Error, recorded.Status.Code)
	assert.Equal(t, errBufferLimit.Error(), recorded.Status.Description)
	assert.Equal(t, observability.ErrTypeResource, attrs["error.type"])
	assert.Equal(t, observability.ErrSourceInput, attrs["error.source"])
}

func TestRecordSpanError_EmptySource(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	_, span := tp.Tracer("test").Start(context.Background(), "datalens.protocol.request")

	observability.RecordSpanError(span, errBadRequest, observability.ErrTypeValidation, "")
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	attrs := spanAttrMap(spans[0])
	assert.Equal(t, observability.ErrTypeValidation, attrs["error.type"])
	assert.NotContains(t, attrs, "error.source")
}
