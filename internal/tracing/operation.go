package tracing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/metrics"
)

// StartOperation opens a span for an engine operation. The returned func ends it and records the
// outcome of *errp on both the span and m; m may be nil.
func StartOperation(ctx context.Context, m *metrics.Engine, name string, attrs ...attribute.KeyValue) (context.Context, func(errp *error)) {
	ctx, span := Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
	started := time.Now()
	return ctx, func(errp *error) {
		var err error
		if errp != nil {
			err = *errp
		}
		outcome := metrics.Outcome(err)
		m.ObserveOperation(name, outcome, time.Since(started).Seconds())
		span.SetAttributes(attribute.String("outcome", outcome))
		if err != nil && !metrics.Expected(outcome) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
