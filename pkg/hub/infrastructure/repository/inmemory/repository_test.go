package inmemory_test

import (
	"context"
	"testing"

	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"
	"github.com/bduoto/omtx-hub/pkg/hub/core/domain/repository"
	"github.com/bduoto/omtx-hub/pkg/hub/infrastructure/repository/inmemory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryJobRepository_CreateAndGet(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	ctx := context.Background()

	job := model.NewIndividualJob("protein_ligand_binding", "user-1", model.Payload{"ligand_smiles": "CCO"})
	id, err := repo.Create(ctx, job)
	require.NoError(t, err)
	assert.Equal(t, job.ID, id)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, model.StatusPending, got.Status)
	smiles, _ := got.InputData.GetString("ligand_smiles")
	assert.Equal(t, "CCO", smiles)

	// Duplicate creation is rejected
	_, err = repo.Create(ctx, job)
	assert.Error(t, err)
}

func TestInMemoryJobRepository_GetNotFound(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrJobRecordNotFound)
}

func TestInMemoryJobRepository_UpdateMergeSemantics(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	ctx := context.Background()

	job := model.NewIndividualJob("protein_ligand_binding", "user-1", model.Payload{"k": "v"})
	_, err := repo.Create(ctx, job)
	require.NoError(t, err)

	err = repo.Update(ctx, job.ID, map[string]interface{}{
		"status":         string(model.StatusRunning),
		"compute_handle": "call-1",
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRunning, got.Status)
	assert.Equal(t, "call-1", got.ComputeHandle)
	// Untouched fields survive the partial update
	v, _ := got.InputData.GetString("k")
	assert.Equal(t, "v", v)
	assert.Equal(t, "user-1", got.UserID)

	err = repo.Update(ctx, "missing", map[string]interface{}{"status": "running"})
	assert.ErrorIs(t, err, repository.ErrJobRecordNotFound)
}

func TestInMemoryJobRepository_QueryFilters(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	ctx := context.Background()

	running := model.NewIndividualJob("protein_ligand_binding", "alice", nil)
	running.MarkAsRunning("call-1")
	_, err := repo.Create(ctx, running)
	require.NoError(t, err)

	pending := model.NewIndividualJob("protein_ligand_binding", "bob", nil)
	_, err = repo.Create(ctx, pending)
	require.NoError(t, err)

	// Running with a handle
	got, err := repo.Query(ctx, repository.QueryFilter{
		Status:           model.StatusRunning,
		HasComputeHandle: true,
	}, repository.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, running.ID, got[0].ID)

	// By user
	got, err = repo.Query(ctx, repository.QueryFilter{UserID: "bob"}, repository.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, pending.ID, got[0].ID)

	// Limit
	got, err = repo.Query(ctx, repository.QueryFilter{}, repository.QueryOptions{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestInMemoryJobRepository_QueryChildrenOrdered(t *testing.T) {
	repo := inmemory.NewInMemoryJobRepository()
	ctx := context.Background()

	req := &model.BatchRequest{
		UserID:          "user-1",
		ProteinSequence: "MKT",
		Ligands: []model.LigandSpec{
			{SMILES: "C"}, {SMILES: "CC"}, {SMILES: "CCC"},
		},
	}
	parent := model.NewBatchParent(req)
	_, err := repo.Create(ctx, parent)
	require.NoError(t, err)

	// Create children out of order; QueryChildren must return by index.
	for _, i := range []int{2, 0, 1} {
		_, err := repo.Create(ctx, model.NewBatchChild(parent, req, i))
		require.NoError(t, err)
	}

	children, err := repo.QueryChildren(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, children, 3)
	for i, child := range children {
		assert.Equal(t, i, child.BatchIndex)
		assert.Equal(t, parent.ID, child.BatchParentID)
	}
}
