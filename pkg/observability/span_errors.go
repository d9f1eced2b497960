package observability

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Error classification values for the error.type span attribute.
const (
	ErrTypeFormat     = "format"
	ErrTypeState      = "state"
	ErrTypeResource   = "resource"
	ErrTypeValidation = "validation"
	ErrTypeInternal   = "internal"
)

// Error origin values for the error.source span attribute.
const (
	ErrSourceInput  = "input"
	ErrSourceClient = "client"
	ErrSourceServer = "server"
)

// RecordSpanError records err on span, marks the span as failed, and tags it
// with error.type and, when non-empty, error.source.
func RecordSpanError(span trace.Span, err error, errType, source string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	attrs := []attribute.KeyValue{attribute.String("error.type", errType)}
	if source != "" {
		attrs = append(attrs, attribute.String("error.source", source))
	}

	span.SetAttributes(attrs...)
}
