// Package repository defines the persistence contracts for job records.
// Implementations live under pkg/hub/infrastructure/repository.
package repository

import (
	"context"
	"errors"

	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"
)

// ErrJobRecordNotFound is returned when a job record does not exist. Callers
// must surface this as a distinct condition, never as an empty success.
var ErrJobRecordNotFound = errors.New("job record not found")

// QueryFilter selects job records by field equality. Zero values mean
// "no constraint on this field".
type QueryFilter struct {
	Status        model.JobStatus
	JobType       model.JobType
	UserID        string
	BatchParentID string
	// HasComputeHandle restricts to records that carry a compute handle
	// when true. Used by the completion monitor to skip never-submitted
	// records.
	HasComputeHandle bool
}

// QueryOptions controls ordering and result size.
type QueryOptions struct {
	// OrderByBatchIndex orders ascending by batch_index; otherwise the
	// implementation's natural order applies (no cross-batch ordering is
	// guaranteed).
	OrderByBatchIndex bool
	// Limit caps the number of returned records; zero means no limit.
	Limit int
}

// JobRecordRepository is typed CRUD over the jobs collection.
//
// Update takes a partial field map with merge semantics: fields absent from
// the map are never overwritten. There is no transactional guarantee across
// the creation of a parent and its children; the submitter creates the
// parent first so that batch_parent_id always resolves.
type JobRecordRepository interface {
	// Create persists a new job record and returns its id.
	Create(ctx context.Context, record *model.JobRecord) (string, error)

	// Get retrieves a job record by id, or ErrJobRecordNotFound.
	Get(ctx context.Context, id string) (*model.JobRecord, error)

	// Update applies a partial field update to an existing record.
	Update(ctx context.Context, id string, fields map[string]interface{}) error

	// Query returns records matching the filter.
	Query(ctx context.Context, filter QueryFilter, opts QueryOptions) ([]*model.JobRecord, error)

	// QueryChildren returns all children of the given batch parent, ordered
	// by batch_index. It must handle batches of low thousands of children
	// without a full-collection scan.
	QueryChildren(ctx context.Context, parentID string) ([]*model.JobRecord, error)

	// Close releases resources held by the repository.
	Close() error
}
