package metrics

import (
	"context"
	"time"

	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"
)

// MetricRecorder is an abstract interface for recording metrics of the batch
// job lifecycle. It keeps the use cases independent of the metrics backend
// (Prometheus, OpenTelemetry Metrics, ...).
type MetricRecorder interface {
	// RecordBatchSubmitted records acceptance of a new batch with its child count.
	RecordBatchSubmitted(ctx context.Context, parent *model.JobRecord, childCount int)

	// RecordJobSubmitted records one child or individual job handed to the
	// compute provider.
	RecordJobSubmitted(ctx context.Context, job *model.JobRecord)

	// RecordSubmissionFailure records a job the compute provider rejected.
	RecordSubmissionFailure(ctx context.Context, job *model.JobRecord)

	// RecordJobFinished records a job reaching a terminal state.
	RecordJobFinished(ctx context.Context, job *model.JobRecord)

	// RecordPoll records one provider poll and its outcome ("running",
	// "completed", "failed", "not_found", "error").
	RecordPoll(ctx context.Context, outcome string)

	// RecordReconciliation records one batch results reconciliation sweep.
	RecordReconciliation(ctx context.Context, batchID string, duration time.Duration)

	// RecordDuration records the execution time of a named operation.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}
