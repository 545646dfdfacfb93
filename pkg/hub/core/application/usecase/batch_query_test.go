package usecase_test

import (
	"context"
	"strings"
	"testing"

	storage "github.com/bduoto/omtx-hub/pkg/hub/adapter/storage"
	"github.com/bduoto/omtx-hub/pkg/hub/core/application/usecase"
	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"
	"github.com/bduoto/omtx-hub/pkg/hub/core/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBatchResults_ServesStoredArtifactForSettledBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	batchID := settledBatch(t, env, []float64{1.2, 3.4})

	page, err := env.query.GetBatchResults(ctx, batchID, usecase.PageRequest{})
	require.NoError(t, err)

	assert.Equal(t, batchID, page.BatchID)
	assert.Equal(t, model.StatusCompleted, page.Status)
	assert.Equal(t, 2, page.Summary.CompletedJobs)
	require.Len(t, page.Jobs, 2)
	require.NotNil(t, page.Summary.BestAffinity)
	assert.InDelta(t, 3.4, *page.Summary.BestAffinity, 1e-9)
}

func TestGetBatchResults_ReconcilesWhenArtifactMissing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	batchID := settledBatch(t, env, []float64{2.0})

	require.NoError(t, env.store.Delete(ctx, storage.BatchResultsPath(batchID)))

	page, err := env.query.GetBatchResults(ctx, batchID, usecase.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Jobs, 1)
	assert.InDelta(t, 2.0, *page.Jobs[0].Affinity, 1e-9)

	// The fallback reconciliation restored the artifact.
	exists, err := env.store.Exists(ctx, storage.BatchResultsPath(batchID))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestGetBatchResults_ReconcilesWhenArtifactCorrupt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	batchID := settledBatch(t, env, []float64{2.0})

	path := storage.BatchResultsPath(batchID)
	require.NoError(t, env.store.Upload(ctx, path, strings.NewReader("{not json"), "application/json"))

	page, err := env.query.GetBatchResults(ctx, batchID, usecase.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Jobs, 1)
	assert.InDelta(t, 2.0, *page.Jobs[0].Affinity, 1e-9)
}

func TestGetBatchResults_OpenBatchReconcilesSynchronously(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ack := env.submitBatch(t, screeningRequest(2))
	children := env.children(t, ack.BatchID)
	env.completeChild(t, children[0], model.Payload{"affinity": 1.5})
	require.NoError(t, env.monitor.SweepOnce(ctx))

	// Parent is still running; the read path must not serve a stale artifact.
	page, err := env.query.GetBatchResults(ctx, ack.BatchID, usecase.PageRequest{IncludeRunning: true})
	require.NoError(t, err)
	assert.Equal(t, model.StatusRunning, page.Status)
	require.Len(t, page.Jobs, 2)
	assert.Equal(t, 1, page.Summary.CompletedJobs)
	assert.Equal(t, 1, page.Summary.RunningJobs)
}

func TestGetBatchResults_FiltersRunningRowsByDefault(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ack := env.submitBatch(t, screeningRequest(3))
	children := env.children(t, ack.BatchID)
	env.completeChild(t, children[0], model.Payload{"affinity": 1.0})
	env.failChild(t, children[1], "boom")
	require.NoError(t, env.monitor.SweepOnce(ctx))

	page, err := env.query.GetBatchResults(ctx, ack.BatchID, usecase.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Jobs, 2)
	for _, row := range page.Jobs {
		assert.True(t, row.Status.IsTerminal())
	}
	// The summary still covers the whole batch
	assert.Equal(t, 3, page.Summary.TotalJobs)
}

func TestGetBatchResults_Pagination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	batchID := settledBatch(t, env, []float64{1, 2, 3, 4, 5})

	page, err := env.query.GetBatchResults(ctx, batchID, usecase.PageRequest{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.PageSize)
	assert.Equal(t, 5, page.TotalRows)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Jobs, 2)

	// The last page is short
	last, err := env.query.GetBatchResults(ctx, batchID, usecase.PageRequest{Page: 3, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, last.Jobs, 1)

	// Past the end is empty, not an error
	beyond, err := env.query.GetBatchResults(ctx, batchID, usecase.PageRequest{Page: 9, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, beyond.Jobs)
	assert.Equal(t, 3, beyond.TotalPages)
}

func TestGetBatchResults_NormalizesPageRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	batchID := settledBatch(t, env, []float64{1.0})

	page, err := env.query.GetBatchResults(ctx, batchID, usecase.PageRequest{Page: -3, PageSize: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 50, page.PageSize)

	capped, err := env.query.GetBatchResults(ctx, batchID, usecase.PageRequest{Page: 1, PageSize: 100000})
	require.NoError(t, err)
	assert.Equal(t, 200, capped.PageSize)
}

func TestGetBatchResults_RejectsNonParentAndUnknown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ack := env.submitBatch(t, screeningRequest(1))
	child := env.children(t, ack.BatchID)[0]

	_, err := env.query.GetBatchResults(ctx, child.ID, usecase.PageRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a batch parent")

	_, err = env.query.GetBatchResults(ctx, "missing", usecase.PageRequest{})
	assert.ErrorIs(t, err, repository.ErrJobRecordNotFound)
}

func TestGetJob(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ack := env.submitBatch(t, screeningRequest(1))
	job, err := env.query.GetJob(ctx, ack.BatchID)
	require.NoError(t, err)
	assert.Equal(t, model.JobTypeBatchParent, job.JobType)

	_, err = env.query.GetJob(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrJobRecordNotFound)
}
