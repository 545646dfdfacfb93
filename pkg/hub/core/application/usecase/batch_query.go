package usecase

import (
	"context"
	"errors"
	"io"

	"go.uber.org/fx"

	storage "github.com/bduoto/omtx-hub/pkg/hub/adapter/storage"
	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"
	repository "github.com/bduoto/omtx-hub/pkg/hub/core/domain/repository"
	exception "github.com/bduoto/omtx-hub/pkg/hub/support/util/exception"
	logger "github.com/bduoto/omtx-hub/pkg/hub/support/util/logger"
	serialization "github.com/bduoto/omtx-hub/pkg/hub/support/util/serialization"
)

const queryModule = "query"

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// DefaultBatchQueryParams holds the dependencies injected via DI.
type DefaultBatchQueryParams struct {
	fx.In
	Jobs        repository.JobRecordRepository
	ObjectStore storage.ObjectStore
	Reconciler  ResultReconciler
}

// DefaultBatchQuery serves reconciled batch results. Settled batches are
// read straight from the stored artifact; open batches (and settled batches
// whose artifact went missing) are reconciled on demand, so the caller
// always sees a coherent snapshot.
type DefaultBatchQuery struct {
	jobs        repository.JobRecordRepository
	objectStore storage.ObjectStore
	reconciler  ResultReconciler
}

// NewDefaultBatchQuery creates a DefaultBatchQuery.
func NewDefaultBatchQuery(p DefaultBatchQueryParams) *DefaultBatchQuery {
	return &DefaultBatchQuery{
		jobs:        p.Jobs,
		objectStore: p.ObjectStore,
		reconciler:  p.Reconciler,
	}
}

// GetBatchResults returns one page of the batch's reconciled rows.
func (q *DefaultBatchQuery) GetBatchResults(ctx context.Context, batchID string, req PageRequest) (*BatchPage, error) {
	parent, err := q.jobs.Get(ctx, batchID)
	if err != nil {
		if errors.Is(err, repository.ErrJobRecordNotFound) {
			return nil, err
		}
		return nil, exception.NewHubError(queryModule, "failed to load batch parent", err, false, true)
	}
	if parent.JobType != model.JobTypeBatchParent {
		return nil, exception.NewHubErrorf(queryModule, "job '%s' is not a batch parent", batchID)
	}

	var results *model.BatchResults
	if parent.Status.IsTerminal() {
		results = q.loadArtifact(ctx, batchID)
	}
	if results == nil {
		results, err = q.reconciler.Reconcile(ctx, batchID)
		if err != nil {
			return nil, err
		}
	}

	rows := results.Jobs
	if !req.IncludeRunning {
		terminal := make([]model.JobResultRow, 0, len(rows))
		for _, row := range rows {
			if row.Status.IsTerminal() {
				terminal = append(terminal, row)
			}
		}
		rows = terminal
	}

	page, pageSize := normalizePage(req)
	totalRows := len(rows)
	totalPages := (totalRows + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	start := (page - 1) * pageSize
	if start > totalRows {
		start = totalRows
	}
	end := start + pageSize
	if end > totalRows {
		end = totalRows
	}

	return &BatchPage{
		BatchID:        batchID,
		Status:         parent.Status,
		Summary:        results.Summary,
		TopPredictions: results.TopPredictions,
		Jobs:           rows[start:end],
		Page:           page,
		PageSize:       pageSize,
		TotalRows:      totalRows,
		TotalPages:     totalPages,
	}, nil
}

// GetJob returns one job record by id.
func (q *DefaultBatchQuery) GetJob(ctx context.Context, jobID string) (*model.JobRecord, error) {
	return q.jobs.Get(ctx, jobID)
}

// loadArtifact reads the stored batch results artifact, returning nil when
// it is missing or unreadable so the caller falls back to reconciliation.
func (q *DefaultBatchQuery) loadArtifact(ctx context.Context, batchID string) *model.BatchResults {
	reader, err := q.objectStore.Download(ctx, storage.BatchResultsPath(batchID))
	if err != nil {
		if !errors.Is(err, storage.ErrObjectNotFound) {
			logger.Warnf("Query: Failed to read artifact of batch '%s': %v", batchID, err)
		}
		return nil
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		logger.Warnf("Query: Failed to read artifact of batch '%s': %v", batchID, err)
		return nil
	}
	var results model.BatchResults
	if err := serialization.UnmarshalJSON(data, &results); err != nil {
		logger.Warnf("Query: Artifact of batch '%s' is not valid JSON, falling back to reconciliation: %v", batchID, err)
		return nil
	}
	return &results
}

func normalizePage(req PageRequest) (page, pageSize int) {
	page = req.Page
	if page < 1 {
		page = 1
	}
	pageSize = req.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

var _ BatchQuery = (*DefaultBatchQuery)(nil)
