// Package inmemory provides an in-memory implementation of the
// JobRecordRepository, suitable for tests and scenarios where persistence is
// not required.
package inmemory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"
	"github.com/bduoto/omtx-hub/pkg/hub/core/domain/repository"
	"github.com/bduoto/omtx-hub/pkg/hub/support/util/exception"
)

// InMemoryJobRepository holds all job records in an in-memory map, stored as
// raw field maps so that partial updates share merge semantics with the
// document-store repository.
type InMemoryJobRepository struct {
	mu      sync.RWMutex
	records map[string]map[string]interface{}
}

var _ repository.JobRecordRepository = (*InMemoryJobRepository)(nil)

// NewInMemoryJobRepository creates an empty in-memory job record repository.
func NewInMemoryJobRepository() *InMemoryJobRepository {
	return &InMemoryJobRepository{
		records: make(map[string]map[string]interface{}),
	}
}

func (r *InMemoryJobRepository) Create(ctx context.Context, record *model.JobRecord) (string, error) {
	if record.ID == "" {
		record.ID = model.NewID()
	}
	fields, err := toFields(record)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[record.ID]; exists {
		return "", exception.NewHubErrorf("inmemory_repository", "job record '%s' already exists", record.ID)
	}
	r.records[record.ID] = fields
	return record.ID, nil
}

func (r *InMemoryJobRepository) Get(ctx context.Context, id string) (*model.JobRecord, error) {
	r.mu.RLock()
	fields, ok := r.records[id]
	var cp map[string]interface{}
	if ok {
		cp = copyFields(fields)
	}
	r.mu.RUnlock()

	if !ok {
		return nil, repository.ErrJobRecordNotFound
	}
	return model.NormalizeRecordFields(cp)
}

func (r *InMemoryJobRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.records[id]
	if !ok {
		return repository.ErrJobRecordNotFound
	}
	for k, v := range fields {
		stored[k] = v
	}
	stored["updated_at"] = time.Now().UTC()
	return nil
}

func (r *InMemoryJobRepository) Query(ctx context.Context, filter repository.QueryFilter, opts repository.QueryOptions) ([]*model.JobRecord, error) {
	r.mu.RLock()
	copies := make([]map[string]interface{}, 0, len(r.records))
	for _, fields := range r.records {
		copies = append(copies, copyFields(fields))
	}
	r.mu.RUnlock()

	var out []*model.JobRecord
	for _, fields := range copies {
		record, err := model.NormalizeRecordFields(fields)
		if err != nil {
			return nil, err
		}
		if !matches(record, filter) {
			continue
		}
		out = append(out, record)
	}

	if opts.OrderByBatchIndex {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].BatchIndex < out[j].BatchIndex
		})
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (r *InMemoryJobRepository) QueryChildren(ctx context.Context, parentID string) ([]*model.JobRecord, error) {
	return r.Query(ctx,
		repository.QueryFilter{BatchParentID: parentID},
		repository.QueryOptions{OrderByBatchIndex: true},
	)
}

// Close releases resources used by the repository. As an in-memory
// repository it holds none, so this always returns nil.
func (r *InMemoryJobRepository) Close() error {
	return nil
}

func matches(record *model.JobRecord, filter repository.QueryFilter) bool {
	if filter.Status != "" && record.Status != filter.Status {
		return false
	}
	if filter.JobType != "" && record.JobType != filter.JobType {
		return false
	}
	if filter.UserID != "" && record.UserID != filter.UserID {
		return false
	}
	if filter.BatchParentID != "" && record.BatchParentID != filter.BatchParentID {
		return false
	}
	if filter.HasComputeHandle && record.ComputeHandle == "" {
		return false
	}
	return true
}

func toFields(record *model.JobRecord) (map[string]interface{}, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, exception.NewHubError("inmemory_repository", "failed to serialize job record", err, false, false)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, exception.NewHubError("inmemory_repository", "failed to flatten job record", err, false, false)
	}
	return fields, nil
}

func copyFields(fields map[string]interface{}) map[string]interface{} {
	cp := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if nested, ok := v.(map[string]interface{}); ok {
			cp[k] = copyFields(nested)
			continue
		}
		cp[k] = v
	}
	return cp
}
