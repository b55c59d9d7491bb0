package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "maestro"

func start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartRunSpan opens the span covering one orchestration run. Step spans
// nest under it through the returned context.
func StartRunSpan(ctx context.Context, runID string, queryLen int) (context.Context, trace.Span) {
	return start(ctx, "orchestration.run",
		attribute.String("run.id", runID),
		attribute.Int("run.query_len", queryLen))
}

// StartStepSpan opens a span for one plan step.
func StartStepSpan(ctx context.Context, index int, taskType, handler string) (context.Context, trace.Span) {
	return start(ctx, "orchestration.step",
		attribute.Int("step.index", index),
		attribute.String("step.task_type", taskType),
		attribute.String("step.handler", handler))
}
