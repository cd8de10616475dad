package operations

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"scorecard/internal/infrastructure"
)

const (
	TracerName = "scorecard.operation"
)

// OperationTracer provides OpenTelemetry instrumentation for pipeline runs
type OperationTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.PipelineMetrics
}

// NewOperationTracer creates a tracer on the run's providers. Nil providers
// give a tracer that records nothing.
func NewOperationTracer(providers *infrastructure.OTelProviders) (*OperationTracer, error) {
	if providers == nil {
		return &OperationTracer{tracer: tracenoop.NewTracerProvider().Tracer(TracerName)}, nil
	}

	metrics, err := infrastructure.CreatePipelineMetrics(providers.Meter)
	if err != nil {
		return nil, err
	}

	return &OperationTracer{
		tracer:  providers.Tracer,
		metrics: metrics,
	}, nil
}

// Metrics returns the pipeline instruments, nil for a no-op tracer
func (t *OperationTracer) Metrics() *infrastructure.PipelineMetrics {
	return t.metrics
}

// TraceOperationExecution creates a span for the entire run
func (t *OperationTracer) TraceOperationExecution(ctx context.Context, operationID string, steps int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "operation.execute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.Int("operation.steps", steps),
		),
	)
}

// TraceStageExecution creates a span for one step
func (t *OperationTracer) TraceStageExecution(ctx context.Context, operationID, stepID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "operation.step",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.id", operationID),
			attribute.String("step.id", stepID),
		),
	)
}

// RecordStageCompletion ends a step span and records the step metrics
func (t *OperationTracer) RecordStageCompletion(ctx context.Context, span trace.Span, stepID string, duration time.Duration, err error) {
	span.SetAttributes(attribute.Float64("step.duration_seconds", duration.Seconds()))
	if err != nil {
		infrastructure.RecordError(ctx, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()

	t.metrics.RecordStep(ctx, stepID, duration, err)
}

// RecordOperationCompletion ends the run span
func (t *OperationTracer) RecordOperationCompletion(span trace.Span, status OperationStatusValue, err error) {
	span.SetAttributes(attribute.String("operation.status", string(status)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
