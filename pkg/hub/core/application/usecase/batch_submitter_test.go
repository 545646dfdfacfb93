package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	storage "github.com/bduoto/omtx-hub/pkg/hub/adapter/storage"
	port "github.com/bduoto/omtx-hub/pkg/hub/core/application/port"
	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"
	"github.com/bduoto/omtx-hub/pkg/hub/core/domain/repository"
	"github.com/bduoto/omtx-hub/pkg/hub/infrastructure/remote"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitBatch_CreatesParentAndContiguousChildren(t *testing.T) {
	env := newTestEnv(t)

	ack := env.submitBatch(t, screeningRequest(5))
	assert.Equal(t, 5, ack.TotalJobs)
	assert.Equal(t, string(model.StatusPending), ack.Status)

	parent := env.parent(t, ack.BatchID)
	assert.Equal(t, model.JobTypeBatchParent, parent.JobType)
	assert.Equal(t, model.TaskBatchProteinLigandScreening, parent.TaskType)
	// All submissions succeeded, so the fan-out marked the parent running.
	assert.Equal(t, model.StatusRunning, parent.Status)

	children := env.children(t, ack.BatchID)
	require.Len(t, children, 5)
	for i, child := range children {
		assert.Equal(t, i, child.BatchIndex)
		assert.Equal(t, model.JobTypeBatchChild, child.JobType)
		assert.Equal(t, model.TaskProteinLigandBinding, child.TaskType)
		assert.Equal(t, model.StatusRunning, child.Status)
		assert.NotEmpty(t, child.ComputeHandle)
	}
	assert.Equal(t, 5, env.provider.SubmittedCount())
}

func TestSubmitBatch_RejectsInvalidRequest(t *testing.T) {
	env := newTestEnv(t)

	req := screeningRequest(1)
	req.ProteinSequence = ""
	_, err := env.submitter.SubmitBatch(context.Background(), req)
	assert.Error(t, err)

	// Nothing was persisted
	records, err := env.jobs.Query(context.Background(),
		repository.QueryFilter{}, repository.QueryOptions{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

// rejectFirstProvider wraps the fake and rejects only the first submission
// it sees.
type rejectFirstProvider struct {
	*remote.FakeProvider
	mu       sync.Mutex
	rejected bool
}

func (p *rejectFirstProvider) Submit(ctx context.Context, req port.SubmissionRequest) (string, error) {
	p.mu.Lock()
	first := !p.rejected
	p.rejected = true
	p.mu.Unlock()
	if first {
		return "", errors.New("simulated rejection")
	}
	return p.FakeProvider.Submit(ctx, req)
}

func TestSubmitBatch_ProviderRejectionIsContainedToOneChild(t *testing.T) {
	env := newTestEnv(t)
	env.useProvider(t, &rejectFirstProvider{FakeProvider: env.provider})

	ack := env.submitBatch(t, screeningRequest(3))

	// One child failed, the siblings kept going and the batch is running.
	parent := env.parent(t, ack.BatchID)
	assert.Equal(t, model.StatusRunning, parent.Status)

	children := env.children(t, ack.BatchID)
	require.Len(t, children, 3)
	failed, running := 0, 0
	for _, child := range children {
		switch child.Status {
		case model.StatusFailed:
			failed++
			msg, _ := child.Results.GetString(model.ResultKeyError)
			assert.Contains(t, msg, "simulated rejection")
		case model.StatusRunning:
			running++
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 2, running)
}

func TestSubmitBatch_AllSubmissionsRejectedFailsParent(t *testing.T) {
	env := newTestEnv(t)
	env.provider.SubmitErr = errors.New("quota exhausted")

	ack := env.submitBatch(t, screeningRequest(3))

	parent := env.parent(t, ack.BatchID)
	assert.Equal(t, model.StatusFailed, parent.Status)
	msg, ok := parent.Results.GetString(model.ResultKeyError)
	assert.True(t, ok)
	assert.Contains(t, msg, "all 3 submissions rejected")

	for _, child := range env.children(t, ack.BatchID) {
		assert.Equal(t, model.StatusFailed, child.Status)
		errMsg, _ := child.Results.GetString(model.ResultKeyError)
		assert.Contains(t, errMsg, "quota exhausted")
	}
}

func TestSubmitBatch_UploadsMetadataSnapshots(t *testing.T) {
	env := newTestEnv(t)

	ack := env.submitBatch(t, screeningRequest(2))
	for _, child := range env.children(t, ack.BatchID) {
		exists, err := env.store.Exists(context.Background(), storage.JobMetadataPath(child.ID))
		require.NoError(t, err)
		assert.True(t, exists, "metadata snapshot for child %s", child.ID)
	}
}

func TestSubmitJob_Individual(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	job, err := env.submitter.SubmitJob(ctx, "protein_ligand_binding", "user-1",
		model.Payload{"ligand_smiles": "CCO"}, "high")
	require.NoError(t, err)

	assert.Equal(t, model.JobTypeIndividual, job.JobType)
	assert.Equal(t, model.StatusRunning, job.Status)
	assert.NotEmpty(t, job.ComputeHandle)

	persisted := env.parent(t, job.ID)
	assert.Equal(t, model.StatusRunning, persisted.Status)
	assert.Equal(t, job.ComputeHandle, persisted.ComputeHandle)
}

func TestSubmitJob_RejectionPersistsFailure(t *testing.T) {
	env := newTestEnv(t)
	env.provider.SubmitErr = errors.New("malformed input")

	job, err := env.submitter.SubmitJob(context.Background(), "protein_ligand_binding", "user-1", nil, "")
	require.NoError(t, err)

	persisted := env.parent(t, job.ID)
	assert.Equal(t, model.StatusFailed, persisted.Status)
	msg, _ := persisted.Results.GetString(model.ResultKeyError)
	assert.Contains(t, msg, "malformed input")
}

func TestSubmitJob_MissingFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.submitter.SubmitJob(ctx, "", "user-1", nil, "")
	assert.Error(t, err)
	_, err = env.submitter.SubmitJob(ctx, "protein_ligand_binding", "", nil, "")
	assert.Error(t, err)
}
