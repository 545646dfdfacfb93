package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	metrics "github.com/bduoto/omtx-hub/pkg/hub/core/metrics"
	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"
	logger "github.com/bduoto/omtx-hub/pkg/hub/support/util/logger"
)

// PrometheusRecorder is a Prometheus implementation of the metrics.MetricRecorder interface.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	batchSubmittedCounter *prometheus.CounterVec
	batchChildGauge       prometheus.Histogram

	jobSubmittedCounter     *prometheus.CounterVec
	submissionFailedCounter *prometheus.CounterVec
	jobFinishedCounter      *prometheus.CounterVec

	pollCounter *prometheus.CounterVec

	reconciliationSeconds prometheus.Histogram
	operationSeconds      *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	// Register Go standard metrics and process/OS metrics.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		batchSubmittedCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_batch_submitted_total",
			Help: "Total number of accepted batch submissions.",
		}, []string{"task_type"}),
		batchChildGauge: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hub_batch_child_count",
			Help:    "Number of child jobs per submitted batch.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),
		jobSubmittedCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_job_submitted_total",
			Help: "Total number of jobs handed to the compute provider.",
		}, []string{"task_type", "job_type"}),
		submissionFailedCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_job_submission_failed_total",
			Help: "Total number of jobs rejected by the compute provider.",
		}, []string{"task_type", "job_type"}),
		jobFinishedCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_job_finished_total",
			Help: "Total number of jobs reaching a terminal state, by status.",
		}, []string{"task_type", "job_type", "status"}),
		pollCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hub_provider_poll_total",
			Help: "Total number of compute provider polls by outcome.",
		}, []string{"outcome"}),
		reconciliationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hub_reconciliation_duration_seconds",
			Help:    "Duration of batch results reconciliation sweeps.",
			Buckets: prometheus.DefBuckets,
		}),
		operationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hub_operation_duration_seconds",
			Help:    "Duration of named internal operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	registry.MustRegister(r.batchSubmittedCounter)
	registry.MustRegister(r.batchChildGauge)
	registry.MustRegister(r.jobSubmittedCounter)
	registry.MustRegister(r.submissionFailedCounter)
	registry.MustRegister(r.jobFinishedCounter)
	registry.MustRegister(r.pollCounter)
	registry.MustRegister(r.reconciliationSeconds)
	registry.MustRegister(r.operationSeconds)

	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// RecordBatchSubmitted records acceptance of a new batch.
func (r *PrometheusRecorder) RecordBatchSubmitted(ctx context.Context, parent *model.JobRecord, childCount int) {
	r.batchSubmittedCounter.WithLabelValues(parent.TaskType).Inc()
	r.batchChildGauge.Observe(float64(childCount))
	logger.Debugf("Metrics: Batch '%s' submitted with %d children.", parent.ID, childCount)
}

// RecordJobSubmitted records one job handed to the compute provider.
func (r *PrometheusRecorder) RecordJobSubmitted(ctx context.Context, job *model.JobRecord) {
	r.jobSubmittedCounter.WithLabelValues(job.TaskType, string(job.JobType)).Inc()
}

// RecordSubmissionFailure records a job the compute provider rejected.
func (r *PrometheusRecorder) RecordSubmissionFailure(ctx context.Context, job *model.JobRecord) {
	r.submissionFailedCounter.WithLabelValues(job.TaskType, string(job.JobType)).Inc()
}

// RecordJobFinished records a job reaching a terminal state.
func (r *PrometheusRecorder) RecordJobFinished(ctx context.Context, job *model.JobRecord) {
	r.jobFinishedCounter.WithLabelValues(job.TaskType, string(job.JobType), string(job.Status)).Inc()
}

// RecordPoll records one provider poll and its outcome.
func (r *PrometheusRecorder) RecordPoll(ctx context.Context, outcome string) {
	r.pollCounter.WithLabelValues(outcome).Inc()
}

// RecordReconciliation records one reconciliation sweep.
func (r *PrometheusRecorder) RecordReconciliation(ctx context.Context, batchID string, duration time.Duration) {
	r.reconciliationSeconds.Observe(duration.Seconds())
	logger.Debugf("Metrics: Batch '%s' reconciled in %.3fs.", batchID, duration.Seconds())
}

// RecordDuration records the execution time of a named operation.
func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.operationSeconds.WithLabelValues(name).Observe(duration.Seconds())
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
