package usecase

import (
	"bytes"
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/fx"

	storage "github.com/bduoto/omtx-hub/pkg/hub/adapter/storage"
	port "github.com/bduoto/omtx-hub/pkg/hub/core/application/port"
	cfg "github.com/bduoto/omtx-hub/pkg/hub/core/config"
	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"
	repository "github.com/bduoto/omtx-hub/pkg/hub/core/domain/repository"
	metrics "github.com/bduoto/omtx-hub/pkg/hub/core/metrics"
	exception "github.com/bduoto/omtx-hub/pkg/hub/support/util/exception"
	logger "github.com/bduoto/omtx-hub/pkg/hub/support/util/logger"
	serialization "github.com/bduoto/omtx-hub/pkg/hub/support/util/serialization"
)

const submitterModule = "submitter"

// DefaultBatchSubmitterParams holds the dependencies injected via DI.
type DefaultBatchSubmitterParams struct {
	fx.In
	Config      *cfg.Config
	Jobs        repository.JobRecordRepository
	Provider    port.ComputeProvider
	ObjectStore storage.ObjectStore
	Recorder    metrics.MetricRecorder
	Tracer      metrics.Tracer
}

// DefaultBatchSubmitter is the production BatchSubmitter. Batch acceptance is
// synchronous and cheap; the provider fan-out runs in the background with a
// bounded number of in-flight submissions.
type DefaultBatchSubmitter struct {
	jobs          repository.JobRecordRepository
	provider      port.ComputeProvider
	objectStore   storage.ObjectStore
	recorder      metrics.MetricRecorder
	tracer        metrics.Tracer
	maxConcurrent int
	maskedKeys    []string

	wg sync.WaitGroup
}

// NewDefaultBatchSubmitter creates a DefaultBatchSubmitter from the batch
// configuration.
func NewDefaultBatchSubmitter(p DefaultBatchSubmitterParams) *DefaultBatchSubmitter {
	maxConcurrent := p.Config.Hub.Batch.MaxConcurrentSubmissions
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	return &DefaultBatchSubmitter{
		jobs:          p.Jobs,
		provider:      p.Provider,
		objectStore:   p.ObjectStore,
		recorder:      p.Recorder,
		tracer:        p.Tracer,
		maxConcurrent: maxConcurrent,
		maskedKeys:    p.Config.Hub.Security.MaskedParameterKeys,
	}
}

// SubmitBatch creates the parent record first so that batch_parent_id always
// resolves, then one child per ligand with contiguous batch indexes, and
// then hands the children to the provider asynchronously.
func (s *DefaultBatchSubmitter) SubmitBatch(ctx context.Context, req *model.BatchRequest) (*BatchSubmission, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	parent := model.NewBatchParent(req)
	ctx, finish := s.tracer.StartBatchSpan(ctx, parent)
	defer finish()

	if _, err := s.jobs.Create(ctx, parent); err != nil {
		return nil, exception.NewHubError(submitterModule, "failed to persist batch parent", err, false, true)
	}

	children := make([]*model.JobRecord, 0, len(req.Ligands))
	for i := range req.Ligands {
		child := model.NewBatchChild(parent, req, i)
		if _, err := s.jobs.Create(ctx, child); err != nil {
			// The batch is unusable with a hole in its index sequence.
			parent.MarkAsFailed(err)
			if updateErr := s.jobs.Update(ctx, parent.ID, terminalFields(parent)); updateErr != nil {
				logger.Errorf("Submitter: Failed to mark batch parent '%s' failed: %v", parent.ID, updateErr)
			}
			return nil, exception.NewHubError(submitterModule, "failed to persist batch child", err, false, true)
		}
		children = append(children, child)
	}

	logger.Infof("Submitter: Batch '%s' accepted with %d ligands (input: %v).",
		parent.ID, len(children), serialization.GetMaskedInputMap(parent.InputData, s.maskedKeys))
	s.recorder.RecordBatchSubmitted(ctx, parent, len(children))

	maxConcurrent := s.maxConcurrent
	if req.MaxConcurrent > 0 && req.MaxConcurrent < maxConcurrent {
		maxConcurrent = req.MaxConcurrent
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// Detached from the request context: acceptance has already been
		// acknowledged to the caller.
		s.fanOut(context.WithoutCancel(ctx), parent, children, req.Priority, maxConcurrent)
	}()

	return &BatchSubmission{
		BatchID:   parent.ID,
		TotalJobs: len(children),
		Status:    string(model.StatusPending),
	}, nil
}

// SubmitJob creates and submits one standalone job synchronously.
func (s *DefaultBatchSubmitter) SubmitJob(ctx context.Context, taskType, userID string, input model.Payload, priority string) (*model.JobRecord, error) {
	if taskType == "" {
		return nil, exception.NewHubErrorf(submitterModule, "job submission missing task type")
	}
	if userID == "" {
		return nil, exception.NewHubErrorf(submitterModule, "job submission missing user id")
	}

	job := model.NewIndividualJob(taskType, userID, input)
	if _, err := s.jobs.Create(ctx, job); err != nil {
		return nil, exception.NewHubError(submitterModule, "failed to persist job record", err, false, true)
	}

	s.submitOne(ctx, job, priority)
	return job, nil
}

// Wait blocks until all background fan-outs have finished. Used by shutdown
// and tests.
func (s *DefaultBatchSubmitter) Wait() {
	s.wg.Wait()
}

// fanOut submits every child to the provider with at most maxConcurrent in
// flight. A rejected child is terminal for that child only.
func (s *DefaultBatchSubmitter) fanOut(ctx context.Context, parent *model.JobRecord, children []*model.JobRecord, priority string, maxConcurrent int) {
	sem := make(chan struct{}, maxConcurrent)
	var childWG sync.WaitGroup

	var mu sync.Mutex
	var errs *multierror.Error
	submitted := 0

	for _, child := range children {
		childWG.Add(1)
		sem <- struct{}{}
		go func(child *model.JobRecord) {
			defer childWG.Done()
			defer func() { <-sem }()

			if err := s.submitOne(ctx, child, priority); err != nil {
				mu.Lock()
				errs = multierror.Append(errs, err)
				mu.Unlock()
				return
			}
			mu.Lock()
			submitted++
			mu.Unlock()
		}(child)
	}
	childWG.Wait()

	if err := errs.ErrorOrNil(); err != nil {
		logger.Warnf("Submitter: Batch '%s': %d of %d submissions failed: %v",
			parent.ID, len(children)-submitted, len(children), err)
	}

	if submitted > 0 {
		if err := parent.TransitionTo(model.StatusRunning); err == nil {
			if updateErr := s.jobs.Update(ctx, parent.ID, map[string]interface{}{
				"status": string(parent.Status),
			}); updateErr != nil {
				logger.Errorf("Submitter: Failed to mark batch parent '%s' running: %v", parent.ID, updateErr)
			}
		}
		logger.Infof("Submitter: Batch '%s' running, %d/%d children submitted.", parent.ID, submitted, len(children))
		return
	}

	// Every submission was rejected; the monitor would reach the same
	// verdict on its next sweep, this just gets there first.
	parent.MarkAsFailed(exception.NewHubErrorf(submitterModule, "all %d submissions rejected by the compute provider", len(children)))
	if updateErr := s.jobs.Update(ctx, parent.ID, terminalFields(parent)); updateErr != nil {
		logger.Errorf("Submitter: Failed to mark batch parent '%s' failed: %v", parent.ID, updateErr)
	}
}

// submitOne hands one job to the provider and persists the outcome.
func (s *DefaultBatchSubmitter) submitOne(ctx context.Context, job *model.JobRecord, priority string) error {
	s.uploadMetadataSnapshot(ctx, job)

	handle, err := s.provider.Submit(ctx, port.SubmissionRequest{
		JobID:    job.ID,
		TaskType: job.TaskType,
		Input:    job.InputData,
		Priority: priority,
	})
	if err != nil {
		logger.Warnf("Submitter: Provider rejected job '%s': %v", job.ID, exception.ExtractErrorMessage(err))
		s.recorder.RecordSubmissionFailure(ctx, job)
		s.tracer.RecordError(ctx, submitterModule, err)

		job.MarkAsFailed(err)
		if updateErr := s.jobs.Update(ctx, job.ID, terminalFields(job)); updateErr != nil {
			logger.Errorf("Submitter: Failed to mark job '%s' failed: %v", job.ID, updateErr)
		}
		s.recorder.RecordJobFinished(ctx, job)
		return err
	}

	job.MarkAsRunning(handle)
	if updateErr := s.jobs.Update(ctx, job.ID, map[string]interface{}{
		"status":         string(job.Status),
		"compute_handle": job.ComputeHandle,
	}); updateErr != nil {
		logger.Errorf("Submitter: Failed to mark job '%s' running: %v", job.ID, updateErr)
		return updateErr
	}

	logger.Debugf("Submitter: Job '%s' submitted, handle '%s'.", job.ID, handle)
	s.recorder.RecordJobSubmitted(ctx, job)
	return nil
}

// uploadMetadataSnapshot writes the job's input snapshot next to where its
// results will land. Failures are logged and ignored; the snapshot is a
// convenience for bucket-side consumers, not part of the lifecycle.
func (s *DefaultBatchSubmitter) uploadMetadataSnapshot(ctx context.Context, job *model.JobRecord) {
	data, err := serialization.MarshalPayload(map[string]interface{}{
		"job_id":          job.ID,
		"job_type":        string(job.JobType),
		"task_type":       job.TaskType,
		"user_id":         job.UserID,
		"batch_parent_id": job.BatchParentID,
		"batch_index":     job.BatchIndex,
		"input_data":      map[string]interface{}(job.InputData),
		"created_at":      job.CreatedAt,
	})
	if err != nil {
		logger.Warnf("Submitter: Failed to encode metadata snapshot for job '%s': %v", job.ID, err)
		return
	}
	path := storage.JobMetadataPath(job.ID)
	if err := s.objectStore.Upload(ctx, path, bytes.NewReader(data), "application/json"); err != nil {
		logger.Warnf("Submitter: Failed to upload metadata snapshot for job '%s': %v", job.ID, err)
	}
}

// terminalFields is the partial update written when a job reaches a terminal
// state.
func terminalFields(job *model.JobRecord) map[string]interface{} {
	fields := map[string]interface{}{
		"status":  string(job.Status),
		"results": map[string]interface{}(job.Results),
	}
	if job.CompletedAt != nil {
		fields["completed_at"] = *job.CompletedAt
	}
	return fields
}

var _ BatchSubmitter = (*DefaultBatchSubmitter)(nil)
