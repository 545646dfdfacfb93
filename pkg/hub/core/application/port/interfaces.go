// Package port defines the outbound contracts of the hub core: the
// asynchronous compute provider that executes predictions, and the listener
// notified when a batch reaches a terminal state.
package port

import (
	"context"
	"errors"

	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"
)

// ComputeStatus is the provider-side state of an async prediction.
type ComputeStatus string

const (
	ComputeStatusRunning   ComputeStatus = "running"
	ComputeStatusCompleted ComputeStatus = "completed"
	ComputeStatusFailed    ComputeStatus = "failed"
)

// ErrHandleNotFound is returned by Poll when the provider does not (yet)
// know the handle. Submission is asynchronous and status may lag behind
// submit for a short propagation window, so callers treat this as "still
// running", never as a failure.
var ErrHandleNotFound = errors.New("compute handle not found")

// SubmissionRequest carries one prediction to the compute provider.
type SubmissionRequest struct {
	// JobID is the hub-side job record id, passed through for correlation.
	JobID string
	// TaskType identifies the prediction kind (e.g. protein_ligand_binding).
	TaskType string
	// Input holds the task parameters (protein sequence, ligand SMILES, ...).
	Input model.Payload
	// Priority is advisory scheduling metadata.
	Priority string
}

// PollResult is the provider's answer for one handle.
type PollResult struct {
	Status ComputeStatus
	// Result is the raw provider payload, present when Status is completed.
	// Its shape has varied across provider versions; downstream extraction
	// is defensive.
	Result model.Payload
	// Error is the provider failure message, present when Status is failed.
	Error string
}

// ComputeProvider is the opaque "submit async compute, poll for result"
// interface in front of the remote GPU execution service.
type ComputeProvider interface {
	// Submit hands a prediction to the provider and returns an opaque
	// handle for later polling. A rejection (bad input, quota) is a
	// terminal condition for the submitted job, not for its siblings.
	Submit(ctx context.Context, req SubmissionRequest) (string, error)

	// Poll reports the current state of the async operation behind handle.
	Poll(ctx context.Context, handle string) (*PollResult, error)
}

// BatchCompletionListener is notified after a batch parent reaches a
// terminal state and its results artifact has been reconciled. Listener
// errors are logged, never propagated into the monitor loop.
type BatchCompletionListener interface {
	OnBatchComplete(ctx context.Context, parent *model.JobRecord, summary model.BatchSummary)
}
