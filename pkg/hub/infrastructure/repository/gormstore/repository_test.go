package gormstore_test

import (
	"context"
	"path/filepath"
	"testing"

	// The GORM SQLite driver wraps mattn/go-sqlite3; importing it here is
	// enough, no blank driver import needed.

	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"
	"github.com/bduoto/omtx-hub/pkg/hub/core/domain/repository"
	"github.com/bduoto/omtx-hub/pkg/hub/infrastructure/repository/gormstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupSQLiteRepo opens a file-backed SQLite store under a temp directory and
// applies the embedded migrations.
func setupSQLiteRepo(t *testing.T) *gormstore.GormJobRepository {
	t.Helper()

	cfg := gormstore.DatabaseConfig{
		Type:     "sqlite",
		Database: filepath.Join(t.TempDir(), "hub_test.db"),
	}
	db, err := gormstore.OpenDB(cfg)
	require.NoError(t, err)
	require.NoError(t, gormstore.Migrate(db, cfg.Type))

	repo := gormstore.NewGormJobRepository(db)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestGormJobRepository_RoundTrip(t *testing.T) {
	repo := setupSQLiteRepo(t)
	ctx := context.Background()

	job := model.NewIndividualJob("protein_ligand_binding", "user-1", model.Payload{"ligand_smiles": "CCO"})
	id, err := repo.Create(ctx, job)
	require.NoError(t, err)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, model.JobTypeIndividual, got.JobType)
	assert.Equal(t, model.StatusPending, got.Status)
	smiles, _ := got.InputData.GetString("ligand_smiles")
	assert.Equal(t, "CCO", smiles)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrJobRecordNotFound)
}

func TestGormJobRepository_UpdateWhitelistAndMerge(t *testing.T) {
	repo := setupSQLiteRepo(t)
	ctx := context.Background()

	job := model.NewIndividualJob("protein_ligand_binding", "user-1", model.Payload{"k": "v"})
	_, err := repo.Create(ctx, job)
	require.NoError(t, err)

	err = repo.Update(ctx, job.ID, map[string]interface{}{
		"status":         string(model.StatusRunning),
		"compute_handle": "call-9",
		"user_id":        "intruder", // not whitelisted, must be ignored
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRunning, got.Status)
	assert.Equal(t, "call-9", got.ComputeHandle)
	assert.Equal(t, "user-1", got.UserID)
	v, _ := got.InputData.GetString("k")
	assert.Equal(t, "v", v)

	err = repo.Update(ctx, "missing", map[string]interface{}{"status": "running"})
	assert.ErrorIs(t, err, repository.ErrJobRecordNotFound)
}

func TestGormJobRepository_ResultsPayloadRoundTrip(t *testing.T) {
	repo := setupSQLiteRepo(t)
	ctx := context.Background()

	job := model.NewIndividualJob("protein_ligand_binding", "user-1", nil)
	_, err := repo.Create(ctx, job)
	require.NoError(t, err)

	err = repo.Update(ctx, job.ID, map[string]interface{}{
		"status":  string(model.StatusFailed),
		"results": map[string]interface{}{"error": "gpu quota exceeded"},
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)
	msg, _ := got.Results.GetString("error")
	assert.Equal(t, "gpu quota exceeded", msg)
}

func TestGormJobRepository_QueryFilters(t *testing.T) {
	repo := setupSQLiteRepo(t)
	ctx := context.Background()

	running := model.NewIndividualJob("protein_ligand_binding", "alice", nil)
	running.MarkAsRunning("call-1")
	_, err := repo.Create(ctx, running)
	require.NoError(t, err)

	// Running but without a handle; HasComputeHandle must exclude it.
	stuck := model.NewIndividualJob("protein_ligand_binding", "alice", nil)
	stuck.Status = model.StatusRunning
	_, err = repo.Create(ctx, stuck)
	require.NoError(t, err)

	pending := model.NewIndividualJob("protein_ligand_binding", "bob", nil)
	_, err = repo.Create(ctx, pending)
	require.NoError(t, err)

	got, err := repo.Query(ctx, repository.QueryFilter{
		Status:           model.StatusRunning,
		HasComputeHandle: true,
	}, repository.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, running.ID, got[0].ID)

	got, err = repo.Query(ctx, repository.QueryFilter{UserID: "bob"}, repository.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, pending.ID, got[0].ID)
}

func TestGormJobRepository_QueryChildrenOrdered(t *testing.T) {
	repo := setupSQLiteRepo(t)
	ctx := context.Background()

	req := &model.BatchRequest{
		UserID:          "user-1",
		ProteinSequence: "MKT",
		Ligands:         []model.LigandSpec{{SMILES: "C"}, {SMILES: "CC"}, {SMILES: "CCC"}},
	}
	parent := model.NewBatchParent(req)
	_, err := repo.Create(ctx, parent)
	require.NoError(t, err)

	for _, i := range []int{2, 0, 1} {
		_, err := repo.Create(ctx, model.NewBatchChild(parent, req, i))
		require.NoError(t, err)
	}

	children, err := repo.QueryChildren(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, children, 3)
	for i, child := range children {
		assert.Equal(t, i, child.BatchIndex)
	}
}
