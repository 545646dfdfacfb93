package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	metrics "github.com/bduoto/omtx-hub/pkg/hub/core/metrics"
	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"
)

const tracerName = "github.com/bduoto/omtx-hub"

// OpenTelemetryTracer is an implementation of metrics.Tracer backed by the
// OpenTelemetry API. Span export goes through whatever tracer provider the
// host process registered globally; with none registered the spans are no-ops.
type OpenTelemetryTracer struct {
	tracer oteltrace.Tracer
}

// NewOpenTelemetryTracer creates a new instance of OpenTelemetryTracer.
func NewOpenTelemetryTracer() *OpenTelemetryTracer {
	return &OpenTelemetryTracer{tracer: otel.Tracer(tracerName)}
}

// StartBatchSpan starts a span for one batch, annotated with its identity.
func (t *OpenTelemetryTracer) StartBatchSpan(ctx context.Context, parent *model.JobRecord) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "hub.batch",
		oteltrace.WithAttributes(
			attribute.String("hub.batch_id", parent.ID),
			attribute.String("hub.task_type", parent.TaskType),
			attribute.String("hub.user_id", parent.UserID),
		))
	return ctx, func() { span.End() }
}

// StartSpan starts a span for a named internal operation.
func (t *OpenTelemetryTracer) StartSpan(ctx context.Context, name string) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, func() { span.End() }
}

// RecordError records an error in the current span.
func (t *OpenTelemetryTracer) RecordError(ctx context.Context, module string, err error) {
	span := oteltrace.SpanFromContext(ctx)
	span.RecordError(err, oteltrace.WithAttributes(attribute.String("hub.module", module)))
}

// RecordEvent records an event in the current span.
func (t *OpenTelemetryTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	span := oteltrace.SpanFromContext(ctx)
	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for key, value := range attributes {
		switch v := value.(type) {
		case string:
			attrs = append(attrs, attribute.String(key, v))
		case int:
			attrs = append(attrs, attribute.Int(key, v))
		case int64:
			attrs = append(attrs, attribute.Int64(key, v))
		case float64:
			attrs = append(attrs, attribute.Float64(key, v))
		case bool:
			attrs = append(attrs, attribute.Bool(key, v))
		default:
			attrs = append(attrs, attribute.String(key, fmt.Sprintf("%v", v)))
		}
	}
	span.AddEvent(name, oteltrace.WithAttributes(attrs...))
}

var _ metrics.Tracer = (*OpenTelemetryTracer)(nil)
