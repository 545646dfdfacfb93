package usecase

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

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

const monitorModule = "monitor"

// Result payload keys the monitor looks at when archiving structure files.
const (
	resultKeyStructureContent = "structure_file_content"
	resultKeyStructureFormat  = "structure_file_format"
)

// PollingCompletionMonitorParams holds the dependencies injected via DI.
type PollingCompletionMonitorParams struct {
	fx.In
	Config      *cfg.Config
	Jobs        repository.JobRecordRepository
	Provider    port.ComputeProvider
	Reconciler  ResultReconciler
	ObjectStore storage.ObjectStore
	Recorder    metrics.MetricRecorder
	Tracer      metrics.Tracer
	Listener    port.BatchCompletionListener `optional:"true"`
}

// PollingCompletionMonitor drives running jobs to terminal state by polling
// the compute provider on a fixed interval. One sweep polls every record
// that is running and carries a compute handle, with a bounded number of
// polls in flight.
type PollingCompletionMonitor struct {
	jobs        repository.JobRecordRepository
	provider    port.ComputeProvider
	reconciler  ResultReconciler
	objectStore storage.ObjectStore
	recorder    metrics.MetricRecorder
	tracer      metrics.Tracer
	listener    port.BatchCompletionListener

	interval        time.Duration
	pollConcurrency int

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewPollingCompletionMonitor creates a PollingCompletionMonitor from the
// batch configuration.
func NewPollingCompletionMonitor(p PollingCompletionMonitorParams) *PollingCompletionMonitor {
	interval := time.Duration(p.Config.Hub.Batch.PollingIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 10 * time.Second
	}
	pollConcurrency := p.Config.Hub.Batch.PollConcurrency
	if pollConcurrency <= 0 {
		pollConcurrency = 5
	}

	return &PollingCompletionMonitor{
		jobs:            p.Jobs,
		provider:        p.Provider,
		reconciler:      p.Reconciler,
		objectStore:     p.ObjectStore,
		recorder:        p.Recorder,
		tracer:          p.Tracer,
		listener:        p.Listener,
		interval:        interval,
		pollConcurrency: pollConcurrency,
	}
}

// Start begins the periodic sweep.
func (m *PollingCompletionMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return exception.NewHubErrorf(monitorModule, "completion monitor already started")
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancel = cancel
	m.stopped = make(chan struct{})

	go m.run(loopCtx)
	logger.Infof("Monitor: Completion monitor started (interval %v, poll concurrency %d).", m.interval, m.pollConcurrency)
	return nil
}

// Stop halts the sweep loop and waits for the in-flight pass to finish.
func (m *PollingCompletionMonitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	cancel, stopped := m.cancel, m.stopped
	m.cancel = nil
	m.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	select {
	case <-stopped:
		logger.Infof("Monitor: Completion monitor stopped.")
		return nil
	case <-ctx.Done():
		return exception.NewHubError(monitorModule, "timed out waiting for the completion monitor to stop", ctx.Err(), false, false)
	}
}

func (m *PollingCompletionMonitor) run(ctx context.Context) {
	defer close(m.stopped)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.SweepOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("Monitor: Sweep failed: %v", err)
			}
		}
	}
}

// SweepOnce runs a single polling pass: poll every running job, persist
// terminal transitions, then settle any batch whose children all finished.
func (m *PollingCompletionMonitor) SweepOnce(ctx context.Context) error {
	ctx, finish := m.tracer.StartSpan(ctx, "hub.monitor.sweep")
	defer finish()

	running, err := m.jobs.Query(ctx, repository.QueryFilter{
		Status:           model.StatusRunning,
		HasComputeHandle: true,
	}, repository.QueryOptions{})
	if err != nil {
		return exception.NewHubError(monitorModule, "failed to list running jobs", err, false, true)
	}
	if len(running) == 0 {
		return nil
	}
	logger.Debugf("Monitor: Sweeping %d running job(s).", len(running))

	var (
		mu              sync.Mutex
		affectedParents = make(map[string]struct{})
	)

	sem := make(chan struct{}, m.pollConcurrency)
	var wg sync.WaitGroup
	for _, job := range running {
		wg.Add(1)
		sem <- struct{}{}
		go func(job *model.JobRecord) {
			defer wg.Done()
			defer func() { <-sem }()

			if m.pollOne(ctx, job) && job.IsBatchChild() {
				mu.Lock()
				affectedParents[job.BatchParentID] = struct{}{}
				mu.Unlock()
			}
		}(job)
	}
	wg.Wait()

	for parentID := range affectedParents {
		if err := m.settleBatch(ctx, parentID); err != nil {
			logger.Errorf("Monitor: Failed to settle batch '%s': %v", parentID, err)
		}
	}
	return nil
}

// pollOne polls a single job and persists the outcome. It reports whether
// the job reached a terminal state in this pass. A poll error or an unknown
// handle leaves the job running; a later sweep retries it.
func (m *PollingCompletionMonitor) pollOne(ctx context.Context, job *model.JobRecord) bool {
	result, err := m.provider.Poll(ctx, job.ComputeHandle)
	if err != nil {
		if errors.Is(err, port.ErrHandleNotFound) {
			// Submission acceptance can outrun status visibility.
			m.recorder.RecordPoll(ctx, "not_found")
			logger.Debugf("Monitor: Handle '%s' (job '%s') not known to the provider yet.", job.ComputeHandle, job.ID)
			return false
		}
		m.recorder.RecordPoll(ctx, "error")
		m.tracer.RecordError(ctx, monitorModule, err)
		logger.Warnf("Monitor: Poll for job '%s' failed, keeping it running: %v", job.ID, err)
		return false
	}

	switch result.Status {
	case port.ComputeStatusRunning:
		m.recorder.RecordPoll(ctx, "running")
		return false

	case port.ComputeStatusCompleted:
		m.recorder.RecordPoll(ctx, "completed")
		m.archiveResult(ctx, job, result.Result)
		job.MarkAsCompleted(result.Result)

	case port.ComputeStatusFailed:
		m.recorder.RecordPoll(ctx, "failed")
		job.MarkAsFailed(exception.NewHubErrorf(monitorModule, "%s", result.Error))

	default:
		m.recorder.RecordPoll(ctx, "unknown")
		logger.Warnf("Monitor: Provider returned unknown status '%s' for job '%s'.", result.Status, job.ID)
		return false
	}

	if err := m.jobs.Update(ctx, job.ID, terminalFields(job)); err != nil {
		logger.Errorf("Monitor: Failed to persist terminal state of job '%s': %v", job.ID, err)
		return false
	}
	m.recorder.RecordJobFinished(ctx, job)
	logger.Infof("Monitor: Job '%s' finished with status %s.", job.ID, job.Status)
	return true
}

// archiveResult writes the raw provider payload, and any structure file it
// carries, into the object store. Archive failures never block the status
// transition; the record keeps the payload either way.
func (m *PollingCompletionMonitor) archiveResult(ctx context.Context, job *model.JobRecord, result model.Payload) {
	if result == nil {
		return
	}

	data, err := serialization.MarshalPayload(result)
	if err != nil {
		logger.Warnf("Monitor: Failed to encode result payload for job '%s': %v", job.ID, err)
	} else if err := m.objectStore.Upload(ctx, storage.JobResultsPath(job.ID), bytes.NewReader(data), "application/json"); err != nil {
		logger.Warnf("Monitor: Failed to archive results for job '%s': %v", job.ID, err)
	}

	content, ok := result.GetString(resultKeyStructureContent)
	if !ok || content == "" {
		return
	}
	ext, ok := result.GetString(resultKeyStructureFormat)
	if !ok || ext == "" {
		ext = "cif"
	}
	path := storage.JobStructurePath(job.ID, ext)
	if err := m.objectStore.Upload(ctx, path, bytes.NewReader([]byte(content)), "chemical/x-cif"); err != nil {
		logger.Warnf("Monitor: Failed to archive structure for job '%s': %v", job.ID, err)
	}
}

// settleBatch re-derives the parent's status from the full sibling set. It
// is idempotent: a parent that is already terminal is left untouched, and
// deriving from all children makes the verdict independent of which sweep
// observed which child.
func (m *PollingCompletionMonitor) settleBatch(ctx context.Context, parentID string) error {
	parent, err := m.jobs.Get(ctx, parentID)
	if err != nil {
		return exception.NewHubError(monitorModule, "failed to load batch parent", err, false, true)
	}
	if parent.Status.IsTerminal() {
		return nil
	}

	children, err := m.jobs.QueryChildren(ctx, parentID)
	if err != nil {
		return exception.NewHubError(monitorModule, "failed to load batch children", err, false, true)
	}
	if len(children) == 0 {
		return nil
	}

	completed := 0
	for _, child := range children {
		switch child.Status {
		case model.StatusCompleted:
			completed++
		case model.StatusFailed:
		default:
			// At least one child still in flight; the batch stays open.
			return nil
		}
	}

	if completed > 0 {
		// The fan-out may not have marked the parent running yet.
		if parent.Status == model.StatusPending {
			if err := parent.TransitionTo(model.StatusRunning); err != nil {
				return err
			}
		}
		err = parent.TransitionTo(model.StatusCompleted)
	} else {
		parent.MarkAsFailed(exception.NewHubErrorf(monitorModule, "all %d jobs in the batch failed", len(children)))
		err = nil
	}
	if err != nil {
		return err
	}
	if parent.Status == model.StatusCompleted {
		now := time.Now().UTC()
		parent.CompletedAt = &now
	}
	if err := m.jobs.Update(ctx, parent.ID, terminalFields(parent)); err != nil {
		return exception.NewHubError(monitorModule, "failed to persist batch parent state", err, false, true)
	}
	m.recorder.RecordJobFinished(ctx, parent)
	logger.Infof("Monitor: Batch '%s' finished with status %s (%d/%d completed).",
		parent.ID, parent.Status, completed, len(children))

	results, err := m.reconciler.Reconcile(ctx, parent.ID)
	if err != nil {
		// The read path can still reconcile on demand.
		logger.Errorf("Monitor: Reconciliation of batch '%s' failed: %v", parent.ID, err)
		return nil
	}

	if m.listener != nil {
		m.listener.OnBatchComplete(ctx, parent, results.Summary)
	}
	return nil
}

var _ CompletionMonitor = (*PollingCompletionMonitor)(nil)
