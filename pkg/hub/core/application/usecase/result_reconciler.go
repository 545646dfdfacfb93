package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/fx"

	storage "github.com/bduoto/omtx-hub/pkg/hub/adapter/storage"
	cfg "github.com/bduoto/omtx-hub/pkg/hub/core/config"
	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"
	repository "github.com/bduoto/omtx-hub/pkg/hub/core/domain/repository"
	metrics "github.com/bduoto/omtx-hub/pkg/hub/core/metrics"
	exception "github.com/bduoto/omtx-hub/pkg/hub/support/util/exception"
	logger "github.com/bduoto/omtx-hub/pkg/hub/support/util/logger"
	serialization "github.com/bduoto/omtx-hub/pkg/hub/support/util/serialization"
)

const reconcilerModule = "reconciler"

// Structure file extensions probed when deciding has_structure.
var structureExtensions = []string{"cif", "pdb"}

// DefaultResultReconcilerParams holds the dependencies injected via DI.
type DefaultResultReconcilerParams struct {
	fx.In
	Config      *cfg.Config
	Jobs        repository.JobRecordRepository
	ObjectStore storage.ObjectStore
	Recorder    metrics.MetricRecorder
	Tracer      metrics.Tracer
}

// DefaultResultReconciler rebuilds batch results artifacts. The artifact is
// derived state, regenerated wholesale from the job records and the per-job
// payloads in the object store, then written over the previous version.
type DefaultResultReconciler struct {
	jobs        repository.JobRecordRepository
	objectStore storage.ObjectStore
	recorder    metrics.MetricRecorder
	tracer      metrics.Tracer
	ranking     model.AffinityRanking
	topLimit    int
}

// NewDefaultResultReconciler creates a DefaultResultReconciler from the
// results configuration.
func NewDefaultResultReconciler(p DefaultResultReconcilerParams) *DefaultResultReconciler {
	topLimit := p.Config.Hub.Results.TopPredictionsLimit
	if topLimit <= 0 {
		topLimit = model.TopPredictionsLimit
	}
	return &DefaultResultReconciler{
		jobs:        p.Jobs,
		objectStore: p.ObjectStore,
		recorder:    p.Recorder,
		tracer:      p.Tracer,
		ranking:     model.AffinityRanking{HigherIsBetter: p.Config.Hub.Results.HigherIsBetter()},
		topLimit:    topLimit,
	}
}

// Reconcile regenerates the batch results artifact for one batch.
func (r *DefaultResultReconciler) Reconcile(ctx context.Context, batchID string) (*model.BatchResults, error) {
	started := time.Now()
	ctx, finish := r.tracer.StartSpan(ctx, "hub.reconcile")
	defer finish()

	parent, err := r.jobs.Get(ctx, batchID)
	if err != nil {
		if errors.Is(err, repository.ErrJobRecordNotFound) {
			return nil, err
		}
		return nil, exception.NewHubError(reconcilerModule, "failed to load batch parent", err, false, true)
	}
	if parent.JobType != model.JobTypeBatchParent {
		return nil, exception.NewHubErrorf(reconcilerModule, "job '%s' is not a batch parent", batchID)
	}

	children, err := r.jobs.QueryChildren(ctx, batchID)
	if err != nil {
		return nil, exception.NewHubError(reconcilerModule, "failed to load batch children", err, false, true)
	}

	rows := make([]model.JobResultRow, 0, len(children))
	for _, child := range children {
		rows = append(rows, r.buildRow(ctx, child))
	}

	results := &model.BatchResults{
		BatchID:        batchID,
		Version:        model.BatchResultsVersion,
		CreatedAt:      r.artifactCreatedAt(ctx, batchID),
		UpdatedAt:      time.Now().UTC(),
		Jobs:           rows,
		Summary:        r.summarize(rows),
		TopPredictions: r.topPredictions(rows),
	}

	if err := r.upload(ctx, results); err != nil {
		return nil, err
	}

	r.recorder.RecordReconciliation(ctx, batchID, time.Since(started))
	logger.Infof("Reconciler: Batch '%s' reconciled: %d rows, %d completed, %d with results.",
		batchID, len(rows), results.Summary.CompletedJobs, countWithResults(rows))
	return results, nil
}

// buildRow derives one artifact row from a child record. A completed child
// whose payload went missing keeps its row with has_results=false so that
// counts and ordering stay intact.
func (r *DefaultResultReconciler) buildRow(ctx context.Context, child *model.JobRecord) model.JobResultRow {
	row := model.JobResultRow{
		JobID:  child.ID,
		Status: child.Status,
	}
	if name, ok := child.InputData.GetString(model.InputKeyLigandName); ok && name != "" {
		row.LigandName = name
	} else {
		row.LigandName = fmt.Sprintf("Ligand %s", child.LigandNumber())
	}
	if smiles, ok := child.InputData.GetString(model.InputKeyLigandSMILES); ok {
		row.LigandSMILES = smiles
	}

	if child.Status != model.StatusCompleted {
		return row
	}

	payload := child.Results
	if payloadIsEmpty(payload) {
		payload = r.loadArchivedResult(ctx, child.ID)
	}
	if payloadIsEmpty(payload) {
		logger.Warnf("Reconciler: Completed job '%s' has no result payload anywhere, keeping the row without scores.", child.ID)
		return row
	}

	scores := extractScores(payload)
	row.HasResults = true
	row.Affinity = scores.Affinity
	row.Confidence = scores.Confidence
	row.EnsembleAffinity = scores.EnsembleAffinity
	row.EnsembleProbability = scores.EnsembleProbability
	row.IPTM = scores.IPTM
	row.PTM = scores.PTM
	row.PLDDT = scores.PLDDT
	row.ComplexPLDDT = scores.ComplexPLDDT
	row.InterfaceConfidence = scores.InterfaceConfidence
	row.HasStructure = r.hasStructure(ctx, child.ID)
	return row
}

// loadArchivedResult falls back to the per-job payload archived in the
// object store.
func (r *DefaultResultReconciler) loadArchivedResult(ctx context.Context, jobID string) model.Payload {
	reader, err := r.objectStore.Download(ctx, storage.JobResultsPath(jobID))
	if err != nil {
		if !errors.Is(err, storage.ErrObjectNotFound) {
			logger.Warnf("Reconciler: Failed to read archived results of job '%s': %v", jobID, err)
		}
		return nil
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		logger.Warnf("Reconciler: Failed to read archived results of job '%s': %v", jobID, err)
		return nil
	}
	var payload map[string]interface{}
	if err := serialization.UnmarshalPayload(data, &payload); err != nil {
		logger.Warnf("Reconciler: Archived results of job '%s' are not valid JSON: %v", jobID, err)
		return nil
	}
	return payload
}

func (r *DefaultResultReconciler) hasStructure(ctx context.Context, jobID string) bool {
	for _, ext := range structureExtensions {
		ok, err := r.objectStore.Exists(ctx, storage.JobStructurePath(jobID, ext))
		if err != nil {
			logger.Debugf("Reconciler: Structure probe for job '%s' failed: %v", jobID, err)
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

// summarize computes the aggregate block. Numeric aggregates cover only rows
// with non-null values; a batch with no scores has null aggregates, not
// zeros.
func (r *DefaultResultReconciler) summarize(rows []model.JobResultRow) model.BatchSummary {
	summary := model.BatchSummary{TotalJobs: len(rows)}

	var affinities, confidences []float64
	for _, row := range rows {
		switch row.Status {
		case model.StatusCompleted:
			summary.CompletedJobs++
		case model.StatusFailed:
			summary.FailedJobs++
		case model.StatusRunning:
			summary.RunningJobs++
		default:
			summary.PendingJobs++
		}
		if row.Affinity != nil {
			affinities = append(affinities, *row.Affinity)
		}
		if row.Confidence != nil {
			confidences = append(confidences, *row.Confidence)
		}
	}

	if summary.TotalJobs > 0 {
		summary.SuccessRate = float64(summary.CompletedJobs) / float64(summary.TotalJobs)
	}

	if len(affinities) > 0 {
		mean, best, worst := affinities[0], affinities[0], affinities[0]
		sum := 0.0
		for _, v := range affinities {
			sum += v
			best = r.ranking.Best(best, v)
			worst = r.ranking.Worst(worst, v)
		}
		mean = sum / float64(len(affinities))
		summary.MeanAffinity = &mean
		summary.BestAffinity = &best
		summary.WorstAffinity = &worst
	}
	if len(confidences) > 0 {
		sum := 0.0
		for _, v := range confidences {
			sum += v
		}
		mean := sum / float64(len(confidences))
		summary.MeanConfidence = &mean
	}
	return summary
}

// topPredictions ranks rows with an affinity best-first and caps the list.
func (r *DefaultResultReconciler) topPredictions(rows []model.JobResultRow) []model.JobResultRow {
	ranked := make([]model.JobResultRow, 0, len(rows))
	for _, row := range rows {
		if row.Affinity != nil {
			ranked = append(ranked, row)
		}
	}
	r.ranking.SortRows(ranked)
	if len(ranked) > r.topLimit {
		ranked = ranked[:r.topLimit]
	}
	return ranked
}

// artifactCreatedAt preserves the created_at of an existing artifact so that
// regeneration stays idempotent apart from updated_at.
func (r *DefaultResultReconciler) artifactCreatedAt(ctx context.Context, batchID string) time.Time {
	reader, err := r.objectStore.Download(ctx, storage.BatchResultsPath(batchID))
	if err != nil {
		return time.Now().UTC()
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return time.Now().UTC()
	}
	var previous model.BatchResults
	if err := serialization.UnmarshalJSON(data, &previous); err != nil || previous.CreatedAt.IsZero() {
		return time.Now().UTC()
	}
	return previous.CreatedAt
}

func (r *DefaultResultReconciler) upload(ctx context.Context, results *model.BatchResults) error {
	data, err := serialization.MarshalJSON(results)
	if err != nil {
		return exception.NewHubError(reconcilerModule, "failed to encode batch results", err, false, false)
	}
	path := storage.BatchResultsPath(results.BatchID)
	if err := r.objectStore.Upload(ctx, path, bytes.NewReader(data), "application/json"); err != nil {
		return exception.NewHubError(reconcilerModule, "failed to upload batch results artifact", err, false, true)
	}
	return nil
}

func payloadIsEmpty(payload model.Payload) bool {
	if len(payload) == 0 {
		return true
	}
	// A bare error message is a failure trace, not a result.
	if len(payload) == 1 {
		if _, ok := payload[model.ResultKeyError]; ok {
			return true
		}
	}
	return false
}

func countWithResults(rows []model.JobResultRow) int {
	n := 0
	for _, row := range rows {
		if row.HasResults {
			n++
		}
	}
	return n
}

var _ ResultReconciler = (*DefaultResultReconciler)(nil)
