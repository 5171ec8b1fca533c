package otelhelper

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SetError marks a firing span as failed and attaches the failure as an event
// so run attributes (pub, action instance) stay queryable next to the error.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.AddEvent("run_failed", trace.WithAttributes(
		attrs...,
	))
}
