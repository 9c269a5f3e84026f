package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "smallbiznis-trustescrow"

// StartSpan opens a span for operation and returns a logger carrying its ids.
func StartSpan(ctx context.Context, operation string) (context.Context, trace.Span, *zap.Logger) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, operation)
	return ctx, span, LoggerFrom(ctx)
}

// LoggerFrom returns zap.L() annotated with the trace and span ids of ctx.
func LoggerFrom(ctx context.Context) *zap.Logger {
	sc := trace.SpanFromContext(ctx).SpanContext()
	return zap.L().With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}

// EndSpan records err on span before ending it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
