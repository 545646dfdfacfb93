package model_test

import (
	"testing"
	"time"

	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRecordFields_CurrentSchema(t *testing.T) {
	fields := map[string]interface{}{
		"id":             "job-1",
		"job_type":       "BATCH_CHILD",
		"task_type":      "protein_ligand_binding",
		"status":         "running",
		"user_id":        "user-1",
		"batch_parent_id": "batch-1",
		"batch_index":    2,
		"compute_handle": "call-7",
		"schema_version": model.SchemaVersionCurrent,
		"created_at":     "2026-05-01T12:00:00Z",
		"input_data":     map[string]interface{}{"ligand_smiles": "CCO"},
	}

	record, err := model.NormalizeRecordFields(fields)
	require.NoError(t, err)
	assert.Equal(t, "job-1", record.ID)
	assert.Equal(t, model.JobTypeBatchChild, record.JobType)
	assert.Equal(t, model.StatusRunning, record.Status)
	assert.Equal(t, 2, record.BatchIndex)
	assert.Equal(t, "call-7", record.ComputeHandle)
	assert.Equal(t, time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC), record.CreatedAt.UTC())
	smiles, _ := record.InputData.GetString("ligand_smiles")
	assert.Equal(t, "CCO", smiles)
}

func TestNormalizeRecordFields_LegacyChild(t *testing.T) {
	// Pre-versioning records had no job_type or schema_version and stored
	// the provider payload under output_data.
	fields := map[string]interface{}{
		"id":              "legacy-1",
		"task_type":       "protein_ligand_binding",
		"status":          "completed",
		"batch_parent_id": "batch-1",
		"output_data":     map[string]interface{}{"affinity": 1.5},
	}

	record, err := model.NormalizeRecordFields(fields)
	require.NoError(t, err)
	assert.Equal(t, model.JobTypeBatchChild, record.JobType)
	assert.Equal(t, model.SchemaVersionCurrent, record.SchemaVersion)
	affinity, ok := record.Results.GetFloat64("affinity")
	assert.True(t, ok)
	assert.Equal(t, 1.5, affinity)
}

func TestNormalizeRecordFields_LegacyParentAndIndividual(t *testing.T) {
	parent, err := model.NormalizeRecordFields(map[string]interface{}{
		"id":        "legacy-parent",
		"task_type": model.TaskBatchProteinLigandScreening,
		"status":    "running",
	})
	require.NoError(t, err)
	assert.Equal(t, model.JobTypeBatchParent, parent.JobType)

	individual, err := model.NormalizeRecordFields(map[string]interface{}{
		"id":        "legacy-single",
		"task_type": "protein_ligand_binding",
		"status":    "completed",
	})
	require.NoError(t, err)
	assert.Equal(t, model.JobTypeIndividual, individual.JobType)
}

func TestNormalizeRecordFields_Defaults(t *testing.T) {
	record, err := model.NormalizeRecordFields(map[string]interface{}{
		"id": "bare",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, record.Status)
	assert.NotNil(t, record.InputData)
	assert.Equal(t, model.SchemaVersionCurrent, record.SchemaVersion)
}

func TestNormalizeRecordFields_ExistingResultsWin(t *testing.T) {
	// When both results and output_data exist, the canonical field wins.
	record, err := model.NormalizeRecordFields(map[string]interface{}{
		"id":          "both",
		"status":      "completed",
		"results":     map[string]interface{}{"affinity": 2.0},
		"output_data": map[string]interface{}{"affinity": 9.0},
	})
	require.NoError(t, err)
	affinity, _ := record.Results.GetFloat64("affinity")
	assert.Equal(t, 2.0, affinity)
}
