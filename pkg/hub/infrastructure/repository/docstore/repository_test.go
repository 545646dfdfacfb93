package docstore_test

import (
	"context"
	"testing"

	"github.com/bduoto/omtx-hub/pkg/hub/adapter/docstore/memory"
	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"
	"github.com/bduoto/omtx-hub/pkg/hub/core/domain/repository"
	docstoreRepo "github.com/bduoto/omtx-hub/pkg/hub/infrastructure/repository/docstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo() *docstoreRepo.Repository {
	return docstoreRepo.NewRepository(memory.NewMemoryStore())
}

func TestRepository_RoundTrip(t *testing.T) {
	repo := newTestRepo()
	ctx := context.Background()

	job := model.NewIndividualJob("protein_ligand_binding", "user-1", model.Payload{"ligand_smiles": "CCO"})
	id, err := repo.Create(ctx, job)
	require.NoError(t, err)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, model.JobTypeIndividual, got.JobType)
	assert.Equal(t, model.SchemaVersionCurrent, got.SchemaVersion)
	smiles, _ := got.InputData.GetString("ligand_smiles")
	assert.Equal(t, "CCO", smiles)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrJobRecordNotFound)
}

func TestRepository_UpdatePartialFields(t *testing.T) {
	repo := newTestRepo()
	ctx := context.Background()

	job := model.NewIndividualJob("protein_ligand_binding", "user-1", nil)
	_, err := repo.Create(ctx, job)
	require.NoError(t, err)

	err = repo.Update(ctx, job.ID, map[string]interface{}{
		"status":  string(model.StatusFailed),
		"results": map[string]interface{}{"error": "rejected"},
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)
	msg, _ := got.Results.GetString("error")
	assert.Equal(t, "rejected", msg)
	// Fields absent from the update survive
	assert.Equal(t, "user-1", got.UserID)

	err = repo.Update(ctx, "missing", map[string]interface{}{"status": "running"})
	assert.ErrorIs(t, err, repository.ErrJobRecordNotFound)
}

func TestRepository_QueryByStatusAndHandle(t *testing.T) {
	repo := newTestRepo()
	ctx := context.Background()

	withHandle := model.NewIndividualJob("protein_ligand_binding", "user-1", nil)
	withHandle.MarkAsRunning("call-1")
	_, err := repo.Create(ctx, withHandle)
	require.NoError(t, err)

	// Running but never submitted (no handle); the monitor must skip it.
	stuck := model.NewIndividualJob("protein_ligand_binding", "user-1", nil)
	stuck.Status = model.StatusRunning
	_, err = repo.Create(ctx, stuck)
	require.NoError(t, err)

	got, err := repo.Query(ctx, repository.QueryFilter{
		Status:           model.StatusRunning,
		HasComputeHandle: true,
	}, repository.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, withHandle.ID, got[0].ID)
}

func TestRepository_QueryChildrenOrderedByIndex(t *testing.T) {
	repo := newTestRepo()
	ctx := context.Background()

	req := &model.BatchRequest{
		UserID:          "user-1",
		ProteinSequence: "MKT",
		Ligands:         []model.LigandSpec{{SMILES: "C"}, {SMILES: "CC"}, {SMILES: "CCC"}, {SMILES: "CCCC"}},
	}
	parent := model.NewBatchParent(req)
	_, err := repo.Create(ctx, parent)
	require.NoError(t, err)

	for _, i := range []int{3, 1, 0, 2} {
		_, err := repo.Create(ctx, model.NewBatchChild(parent, req, i))
		require.NoError(t, err)
	}

	children, err := repo.QueryChildren(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, children, 4)
	for i, child := range children {
		assert.Equal(t, i, child.BatchIndex)
	}
}

func TestRepository_NormalizesLegacyDocuments(t *testing.T) {
	store := memory.NewMemoryStore()
	repo := docstoreRepo.NewRepository(store)
	ctx := context.Background()

	// A document written before job_type and schema_version existed.
	err := store.Create(ctx, docstoreRepo.JobsCollection, "legacy-1", map[string]interface{}{
		"id":              "legacy-1",
		"task_type":       "protein_ligand_binding",
		"status":          "completed",
		"batch_parent_id": "batch-1",
		"output_data":     map[string]interface{}{"affinity": 0.7},
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, "legacy-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobTypeBatchChild, got.JobType)
	affinity, ok := got.Results.GetFloat64("affinity")
	assert.True(t, ok)
	assert.Equal(t, 0.7, affinity)
}
