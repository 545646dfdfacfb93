// Package usecase implements the batch job lifecycle: submission fan-out,
// completion polling, result reconciliation and the paginated read path.
package usecase

import (
	"context"

	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"
)

// BatchSubmission is the acknowledgement returned to the caller as soon as a
// batch has been accepted. Execution continues asynchronously.
type BatchSubmission struct {
	BatchID   string `json:"batch_id"`
	TotalJobs int    `json:"total_jobs"`
	Status    string `json:"status"`
}

// BatchSubmitter accepts a batch request, creates the parent and child
// records, and fans the children out to the compute provider.
type BatchSubmitter interface {
	// SubmitBatch validates the request, persists one BATCH_PARENT and one
	// BATCH_CHILD per ligand, starts asynchronous submission of the
	// children, and returns without waiting for any of them.
	SubmitBatch(ctx context.Context, req *model.BatchRequest) (*BatchSubmission, error)

	// SubmitJob creates and submits one standalone INDIVIDUAL job,
	// returning the persisted record after the provider accepted or
	// rejected it.
	SubmitJob(ctx context.Context, taskType, userID string, input model.Payload, priority string) (*model.JobRecord, error)
}

// CompletionMonitor is the background loop that polls the compute provider
// for running jobs and drives them, and their batches, to terminal state.
type CompletionMonitor interface {
	// Start begins the periodic sweep. Safe to call once.
	Start(ctx context.Context) error
	// Stop halts the sweep and waits for the in-flight pass to finish.
	Stop(ctx context.Context) error
	// SweepOnce runs a single polling pass synchronously.
	SweepOnce(ctx context.Context) error
}

// ResultReconciler rebuilds the batch results artifact from the current job
// records and stored per-job payloads.
type ResultReconciler interface {
	// Reconcile regenerates batches/{batch_id}/batch_results.json and
	// returns the reconciled view. It is idempotent: re-running on an
	// unchanged batch produces an equivalent artifact.
	Reconcile(ctx context.Context, batchID string) (*model.BatchResults, error)
}

// PageRequest selects one page of reconciled batch rows.
type PageRequest struct {
	// Page is 1-based; values below 1 mean the first page.
	Page int
	// PageSize caps rows per page; zero means the default.
	PageSize int
	// IncludeRunning keeps rows for jobs that are not terminal yet. When
	// false only completed and failed rows are returned.
	IncludeRunning bool
}

// BatchPage is one page of a batch's reconciled rows plus batch-level
// aggregates.
type BatchPage struct {
	BatchID        string               `json:"batch_id"`
	Status         model.JobStatus      `json:"status"`
	Summary        model.BatchSummary   `json:"summary"`
	TopPredictions []model.JobResultRow `json:"top_predictions"`
	Jobs           []model.JobResultRow `json:"jobs"`
	Page           int                  `json:"page"`
	PageSize       int                  `json:"page_size"`
	TotalRows      int                  `json:"total_rows"`
	TotalPages     int                  `json:"total_pages"`
}

// BatchQuery is the read path over reconciled batch results.
type BatchQuery interface {
	// GetBatchResults returns one page of the batch's rows. It prefers the
	// stored artifact and falls back to a synchronous reconciliation when
	// the artifact is missing or stale while the batch still runs.
	GetBatchResults(ctx context.Context, batchID string, req PageRequest) (*BatchPage, error)

	// GetJob returns one job record by id.
	GetJob(ctx context.Context, jobID string) (*model.JobRecord, error)
}
