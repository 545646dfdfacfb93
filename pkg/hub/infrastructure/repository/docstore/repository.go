// Package docstore implements the JobRecordRepository on top of the
// DocumentStore interface. This is the canonical production repository,
// backed by Firestore.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bduoto/omtx-hub/pkg/hub/adapter/docstore"
	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"
	"github.com/bduoto/omtx-hub/pkg/hub/core/domain/repository"
	"github.com/bduoto/omtx-hub/pkg/hub/support/util/exception"
)

const moduleName = "docstore_repository"

// JobsCollection is the document collection holding all job records.
const JobsCollection = "jobs"

// Repository is a DocumentStore-backed JobRecordRepository.
type Repository struct {
	store docstore.DocumentStore
}

var _ repository.JobRecordRepository = (*Repository)(nil)

// NewRepository creates a job record repository over the given document
// store.
func NewRepository(store docstore.DocumentStore) *Repository {
	return &Repository{store: store}
}

func (r *Repository) Create(ctx context.Context, record *model.JobRecord) (string, error) {
	if record.ID == "" {
		record.ID = model.NewID()
	}
	fields, err := recordToFields(record)
	if err != nil {
		return "", err
	}
	if err := r.store.Create(ctx, JobsCollection, record.ID, fields); err != nil {
		return "", exception.NewHubError(moduleName, "failed to create job record", err, false, true)
	}
	return record.ID, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*model.JobRecord, error) {
	fields, err := r.store.Get(ctx, JobsCollection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrDocumentNotFound) {
			return nil, repository.ErrJobRecordNotFound
		}
		return nil, exception.NewHubError(moduleName, "failed to get job record", err, false, true)
	}
	return model.NormalizeRecordFields(fields)
}

func (r *Repository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	merged := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		merged[k] = v
	}
	merged["updated_at"] = time.Now().UTC()

	if err := r.store.Update(ctx, JobsCollection, id, merged); err != nil {
		if errors.Is(err, docstore.ErrDocumentNotFound) {
			return repository.ErrJobRecordNotFound
		}
		return exception.NewHubError(moduleName, "failed to update job record", err, false, true)
	}
	return nil
}

func (r *Repository) Query(ctx context.Context, filter repository.QueryFilter, opts repository.QueryOptions) ([]*model.JobRecord, error) {
	spec := docstore.QuerySpec{Limit: opts.Limit}
	if filter.Status != "" {
		spec.Filters = append(spec.Filters, docstore.FieldFilter{Field: "status", Value: string(filter.Status)})
	}
	if filter.JobType != "" {
		spec.Filters = append(spec.Filters, docstore.FieldFilter{Field: "job_type", Value: string(filter.JobType)})
	}
	if filter.UserID != "" {
		spec.Filters = append(spec.Filters, docstore.FieldFilter{Field: "user_id", Value: filter.UserID})
	}
	if filter.BatchParentID != "" {
		spec.Filters = append(spec.Filters, docstore.FieldFilter{Field: "batch_parent_id", Value: filter.BatchParentID})
	}
	if opts.OrderByBatchIndex {
		spec.OrderBy = "batch_index"
	}

	docs, err := r.store.Query(ctx, JobsCollection, spec)
	if err != nil {
		return nil, exception.NewHubError(moduleName, "failed to query job records", err, false, true)
	}

	records := make([]*model.JobRecord, 0, len(docs))
	for _, doc := range docs {
		record, err := model.NormalizeRecordFields(doc.Fields)
		if err != nil {
			return nil, err
		}
		// The handle constraint is not expressible as field equality in
		// every backend; apply it after the fetch.
		if filter.HasComputeHandle && record.ComputeHandle == "" {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func (r *Repository) QueryChildren(ctx context.Context, parentID string) ([]*model.JobRecord, error) {
	return r.Query(ctx,
		repository.QueryFilter{BatchParentID: parentID},
		repository.QueryOptions{OrderByBatchIndex: true},
	)
}

func (r *Repository) Close() error {
	return r.store.Close()
}

// recordToFields flattens a job record into the raw field map stored in the
// document database. A JSON round trip keeps the field names aligned with
// the record's json tags.
func recordToFields(record *model.JobRecord) (map[string]interface{}, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, exception.NewHubError(moduleName, "failed to serialize job record", err, false, false)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, exception.NewHubError(moduleName, "failed to flatten job record", err, false, false)
	}
	return fields, nil
}
