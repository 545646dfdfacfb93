package metrics

import (
	"context"

	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"
)

// Tracer is an abstract interface for distributed tracing of the batch job
// lifecycle. Implementations return a finish function to end the span.
type Tracer interface {
	// StartBatchSpan starts a span covering one batch submission or sweep,
	// annotated with the parent record.
	StartBatchSpan(ctx context.Context, parent *model.JobRecord) (context.Context, func())

	// StartSpan starts a span for a named internal operation.
	StartSpan(ctx context.Context, name string) (context.Context, func())

	// RecordError records an error in the current span.
	RecordError(ctx context.Context, module string, err error)

	// RecordEvent records an event in the current span.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
