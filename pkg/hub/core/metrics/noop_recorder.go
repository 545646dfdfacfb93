package metrics

import (
	"context"
	"time"

	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"
)

// NoOpMetricRecorder is an implementation of MetricRecorder that does nothing.
// It is used when metrics are disabled or during testing.
type NoOpMetricRecorder struct{}

// NewNoOpMetricRecorder creates a new instance of NoOpMetricRecorder.
func NewNoOpMetricRecorder() MetricRecorder {
	return &NoOpMetricRecorder{}
}

func (r *NoOpMetricRecorder) RecordBatchSubmitted(ctx context.Context, parent *model.JobRecord, childCount int) {
}
func (r *NoOpMetricRecorder) RecordJobSubmitted(ctx context.Context, job *model.JobRecord)      {}
func (r *NoOpMetricRecorder) RecordSubmissionFailure(ctx context.Context, job *model.JobRecord) {}
func (r *NoOpMetricRecorder) RecordJobFinished(ctx context.Context, job *model.JobRecord)       {}
func (r *NoOpMetricRecorder) RecordPoll(ctx context.Context, outcome string)                    {}
func (r *NoOpMetricRecorder) RecordReconciliation(ctx context.Context, batchID string, duration time.Duration) {
}
func (r *NoOpMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
}

var _ MetricRecorder = (*NoOpMetricRecorder)(nil)

// --- NoOpTracer ---

// NoOpTracer is an implementation of Tracer that does nothing.
type NoOpTracer struct{}

// NewNoOpTracer creates a new instance of NoOpTracer.
func NewNoOpTracer() Tracer {
	return &NoOpTracer{}
}

func (t *NoOpTracer) StartBatchSpan(ctx context.Context, parent *model.JobRecord) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) StartSpan(ctx context.Context, name string) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) RecordError(ctx context.Context, module string, err error) {}

func (t *NoOpTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
}

var _ Tracer = (*NoOpTracer)(nil)
