package usecase_test

import (
	"context"
	"io"
	"testing"

	storage "github.com/bduoto/omtx-hub/pkg/hub/adapter/storage"
	storageConfig "github.com/bduoto/omtx-hub/pkg/hub/adapter/storage/config"
	"github.com/bduoto/omtx-hub/pkg/hub/adapter/storage/local"
	port "github.com/bduoto/omtx-hub/pkg/hub/core/application/port"
	"github.com/bduoto/omtx-hub/pkg/hub/core/application/usecase"
	cfg "github.com/bduoto/omtx-hub/pkg/hub/core/config"
	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"
	"github.com/bduoto/omtx-hub/pkg/hub/core/domain/repository"
	"github.com/bduoto/omtx-hub/pkg/hub/core/metrics"
	"github.com/bduoto/omtx-hub/pkg/hub/infrastructure/remote"
	"github.com/bduoto/omtx-hub/pkg/hub/infrastructure/repository/inmemory"
	"github.com/bduoto/omtx-hub/pkg/hub/support/util/serialization"

	"github.com/stretchr/testify/require"
)

// testEnv bundles the collaborators every lifecycle test needs: an in-memory
// repository, a fake compute provider and a temp-dir object store.
type testEnv struct {
	config   *cfg.Config
	jobs     repository.JobRecordRepository
	provider *remote.FakeProvider
	store    storage.ObjectStore

	submitter  *usecase.DefaultBatchSubmitter
	reconciler *usecase.DefaultResultReconciler
	monitor    *usecase.PollingCompletionMonitor
	query      *usecase.DefaultBatchQuery
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	config := cfg.NewConfig()
	store, err := local.NewLocalStore(storageConfig.StorageConfig{BaseDir: t.TempDir()})
	require.NoError(t, err)

	env := &testEnv{
		config:   config,
		jobs:     inmemory.NewInMemoryJobRepository(),
		provider: remote.NewFakeProvider(),
		store:    store,
	}

	recorder := metrics.NewNoOpMetricRecorder()
	tracer := metrics.NewNoOpTracer()

	env.submitter = usecase.NewDefaultBatchSubmitter(usecase.DefaultBatchSubmitterParams{
		Config:      config,
		Jobs:        env.jobs,
		Provider:    env.provider,
		ObjectStore: env.store,
		Recorder:    recorder,
		Tracer:      tracer,
	})
	env.reconciler = usecase.NewDefaultResultReconciler(usecase.DefaultResultReconcilerParams{
		Config:      config,
		Jobs:        env.jobs,
		ObjectStore: env.store,
		Recorder:    recorder,
		Tracer:      tracer,
	})
	env.monitor = usecase.NewPollingCompletionMonitor(usecase.PollingCompletionMonitorParams{
		Config:      config,
		Jobs:        env.jobs,
		Provider:    env.provider,
		Reconciler:  env.reconciler,
		ObjectStore: env.store,
		Recorder:    recorder,
		Tracer:      tracer,
	})
	env.query = usecase.NewDefaultBatchQuery(usecase.DefaultBatchQueryParams{
		Jobs:        env.jobs,
		ObjectStore: env.store,
		Reconciler:  env.reconciler,
	})
	return env
}

// useProvider rebuilds the submitter and monitor around a different compute
// provider, keeping the rest of the environment.
func (env *testEnv) useProvider(t *testing.T, provider port.ComputeProvider) {
	t.Helper()
	recorder := metrics.NewNoOpMetricRecorder()
	tracer := metrics.NewNoOpTracer()
	env.submitter = usecase.NewDefaultBatchSubmitter(usecase.DefaultBatchSubmitterParams{
		Config:      env.config,
		Jobs:        env.jobs,
		Provider:    provider,
		ObjectStore: env.store,
		Recorder:    recorder,
		Tracer:      tracer,
	})
	env.monitor = usecase.NewPollingCompletionMonitor(usecase.PollingCompletionMonitorParams{
		Config:      env.config,
		Jobs:        env.jobs,
		Provider:    provider,
		Reconciler:  env.reconciler,
		ObjectStore: env.store,
		Recorder:    recorder,
		Tracer:      tracer,
	})
}

// rebuildReconciler recreates the reconciler (and the monitor and query
// built on top of it) after a config change, mirroring what DI would wire.
func (env *testEnv) rebuildReconciler(t *testing.T) {
	t.Helper()
	recorder := metrics.NewNoOpMetricRecorder()
	tracer := metrics.NewNoOpTracer()
	env.reconciler = usecase.NewDefaultResultReconciler(usecase.DefaultResultReconcilerParams{
		Config:      env.config,
		Jobs:        env.jobs,
		ObjectStore: env.store,
		Recorder:    recorder,
		Tracer:      tracer,
	})
	env.monitor = usecase.NewPollingCompletionMonitor(usecase.PollingCompletionMonitorParams{
		Config:      env.config,
		Jobs:        env.jobs,
		Provider:    env.provider,
		Reconciler:  env.reconciler,
		ObjectStore: env.store,
		Recorder:    recorder,
		Tracer:      tracer,
	})
	env.query = usecase.NewDefaultBatchQuery(usecase.DefaultBatchQueryParams{
		Jobs:        env.jobs,
		ObjectStore: env.store,
		Reconciler:  env.reconciler,
	})
}

// submitBatch submits a batch and waits for the background fan-out.
func (env *testEnv) submitBatch(t *testing.T, req *model.BatchRequest) *usecase.BatchSubmission {
	t.Helper()
	ack, err := env.submitter.SubmitBatch(context.Background(), req)
	require.NoError(t, err)
	env.submitter.Wait()
	return ack
}

// createRecord persists a record directly, bypassing the submitter.
func (env *testEnv) createRecord(t *testing.T, record *model.JobRecord) {
	t.Helper()
	_, err := env.jobs.Create(context.Background(), record)
	require.NoError(t, err)
}

func (env *testEnv) children(t *testing.T, batchID string) []*model.JobRecord {
	t.Helper()
	children, err := env.jobs.QueryChildren(context.Background(), batchID)
	require.NoError(t, err)
	return children
}

func (env *testEnv) parent(t *testing.T, batchID string) *model.JobRecord {
	t.Helper()
	parent, err := env.jobs.Get(context.Background(), batchID)
	require.NoError(t, err)
	return parent
}

// completeChild drives one child's provider call to completed with the given
// payload.
func (env *testEnv) completeChild(t *testing.T, child *model.JobRecord, payload model.Payload) {
	t.Helper()
	handle, ok := env.provider.HandleForJob(child.ID)
	require.True(t, ok, "child %s was never submitted", child.ID)
	env.provider.Complete(handle, payload)
}

func (env *testEnv) failChild(t *testing.T, child *model.JobRecord, message string) {
	t.Helper()
	handle, ok := env.provider.HandleForJob(child.ID)
	require.True(t, ok, "child %s was never submitted", child.ID)
	env.provider.Fail(handle, message)
}

// loadArtifact reads back the reconciled batch_results.json.
func (env *testEnv) loadArtifact(t *testing.T, batchID string) *model.BatchResults {
	t.Helper()
	reader, err := env.store.Download(context.Background(), storage.BatchResultsPath(batchID))
	require.NoError(t, err)
	defer reader.Close()
	data, err := io.ReadAll(reader)
	require.NoError(t, err)

	var results model.BatchResults
	require.NoError(t, serialization.UnmarshalJSON(data, &results))
	return &results
}

func screeningRequest(n int) *model.BatchRequest {
	ligands := make([]model.LigandSpec, 0, n)
	for i := 0; i < n; i++ {
		ligands = append(ligands, model.LigandSpec{SMILES: "CCO"})
	}
	return &model.BatchRequest{
		JobName:         "screen",
		UserID:          "user-1",
		ProteinSequence: "MKTAYIAKQR",
		ProteinName:     "kinase",
		Ligands:         ligands,
		ModelID:         "boltz2",
	}
}
