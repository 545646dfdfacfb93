// Package gormstore implements the JobRecordRepository on a SQL database via
// GORM, for self-hosted deployments that run without Firestore. SQLite,
// PostgreSQL and MySQL backends are supported; the schema is managed by the
// embedded migrations in this package.
package gormstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"
	"github.com/bduoto/omtx-hub/pkg/hub/core/domain/repository"
	"github.com/bduoto/omtx-hub/pkg/hub/support/util/exception"
)

const moduleName = "gormstore"

// GormJobRepository is a SQL-backed JobRecordRepository.
type GormJobRepository struct {
	db *gorm.DB
}

var _ repository.JobRecordRepository = (*GormJobRepository)(nil)

// NewGormJobRepository creates a job record repository over an open GORM
// handle. The schema is expected to be migrated already (see Migrate).
func NewGormJobRepository(db *gorm.DB) *GormJobRepository {
	return &GormJobRepository{db: db}
}

func (r *GormJobRepository) Create(ctx context.Context, record *model.JobRecord) (string, error) {
	if record.ID == "" {
		record.ID = model.NewID()
	}
	entity := fromDomainRecord(record)
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return "", exception.NewHubError(moduleName, "failed to create job record", err, false, true)
	}
	return record.ID, nil
}

func (r *GormJobRepository) Get(ctx context.Context, id string) (*model.JobRecord, error) {
	var entity JobRecordEntity
	err := r.db.WithContext(ctx).First(&entity, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrJobRecordNotFound
		}
		return nil, exception.NewHubError(moduleName, "failed to get job record", err, false, true)
	}
	return toDomainRecord(&entity), nil
}

// updatableColumns whitelists the partial-update field names accepted by
// Update, mirroring the document-store repository's merge semantics.
var updatableColumns = map[string]bool{
	"status":         true,
	"compute_handle": true,
	"results":        true,
	"input_data":     true,
	"completed_at":   true,
	"schema_version": true,
}

func (r *GormJobRepository) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		if !updatableColumns[k] {
			continue
		}
		// Route payload maps through the Payload Valuer so they land as
		// JSON text.
		if m, ok := v.(map[string]interface{}); ok {
			v = model.Payload(m)
		}
		if p, ok := v.(model.Payload); ok {
			v = p
		}
		updates[k] = v
	}
	updates["updated_at"] = time.Now().UTC()

	result := r.db.WithContext(ctx).Model(&JobRecordEntity{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return exception.NewHubError(moduleName, "failed to update job record", result.Error, false, true)
	}
	if result.RowsAffected == 0 {
		return repository.ErrJobRecordNotFound
	}
	return nil
}

func (r *GormJobRepository) Query(ctx context.Context, filter repository.QueryFilter, opts repository.QueryOptions) ([]*model.JobRecord, error) {
	q := r.db.WithContext(ctx).Model(&JobRecordEntity{})
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.JobType != "" {
		q = q.Where("job_type = ?", string(filter.JobType))
	}
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.BatchParentID != "" {
		q = q.Where("batch_parent_id = ?", filter.BatchParentID)
	}
	if filter.HasComputeHandle {
		q = q.Where("compute_handle <> ''")
	}
	if opts.OrderByBatchIndex {
		q = q.Order("batch_index ASC")
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}

	var entities []JobRecordEntity
	if err := q.Find(&entities).Error; err != nil {
		return nil, exception.NewHubError(moduleName, "failed to query job records", err, false, true)
	}

	records := make([]*model.JobRecord, 0, len(entities))
	for i := range entities {
		records = append(records, toDomainRecord(&entities[i]))
	}
	return records, nil
}

func (r *GormJobRepository) QueryChildren(ctx context.Context, parentID string) ([]*model.JobRecord, error) {
	return r.Query(ctx,
		repository.QueryFilter{BatchParentID: parentID},
		repository.QueryOptions{OrderByBatchIndex: true},
	)
}

func (r *GormJobRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
