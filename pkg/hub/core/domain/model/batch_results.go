package model

import (
	"sort"
	"time"
)

// BatchResultsVersion identifies the schema of the reconciled artifact stored
// at batches/{batch_id}/batch_results.json. Readers can branch on it if the
// row schema evolves again.
const BatchResultsVersion = 2

// TopPredictionsLimit is the number of rows surfaced in top_predictions.
const TopPredictionsLimit = 10

// JobResultRow is one per-job row inside the reconciled BatchResults
// artifact. All score fields are nullable; a row with HasResults=false keeps
// its place in the list so that index and count integrity are preserved.
type JobResultRow struct {
	JobID        string    `json:"job_id"`
	LigandName   string    `json:"ligand_name"`
	LigandSMILES string    `json:"ligand_smiles"`
	Status       JobStatus `json:"status"`
	HasResults   bool      `json:"has_results"`
	HasStructure bool      `json:"has_structure"`

	Affinity   *float64 `json:"affinity"`
	Confidence *float64 `json:"confidence"`

	// Secondary ensemble and complex scores. The provider payload shape has
	// varied across versions; extraction is defensive and any of these may
	// be absent.
	EnsembleAffinity    *float64 `json:"ensemble_affinity"`
	EnsembleProbability *float64 `json:"ensemble_probability"`
	IPTM                *float64 `json:"iptm"`
	PTM                 *float64 `json:"ptm"`
	PLDDT               *float64 `json:"plddt"`
	ComplexPLDDT        *float64 `json:"complex_plddt"`
	InterfaceConfidence *float64 `json:"interface_confidence"`
}

// BatchSummary holds aggregate counts and statistics over a batch. The
// numeric aggregates are computed only over rows with non-null values.
type BatchSummary struct {
	TotalJobs     int     `json:"total_jobs"`
	CompletedJobs int     `json:"completed_jobs"`
	FailedJobs    int     `json:"failed_jobs"`
	RunningJobs   int     `json:"running_jobs"`
	PendingJobs   int     `json:"pending_jobs"`
	SuccessRate   float64 `json:"success_rate"`

	MeanAffinity   *float64 `json:"mean_affinity"`
	BestAffinity   *float64 `json:"best_affinity"`
	WorstAffinity  *float64 `json:"worst_affinity"`
	MeanConfidence *float64 `json:"mean_confidence"`
}

// BatchResults is the reconciled artifact for one batch. It is derived state:
// a pure function of the current job records and object store contents, and
// is always fully regenerated, never patched.
type BatchResults struct {
	BatchID        string         `json:"batch_id"`
	Version        int            `json:"version"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Jobs           []JobResultRow `json:"jobs"`
	Summary        BatchSummary   `json:"summary"`
	TopPredictions []JobResultRow `json:"top_predictions"`
}

// AffinityRanking is the named comparator for "better" affinity. Upstream
// documentation disagrees on whether lower or higher is better, so the
// direction is configuration, not code.
type AffinityRanking struct {
	// HigherIsBetter selects descending ranking when true (the default used
	// by the read path).
	HigherIsBetter bool
}

// Better reports whether a ranks better than b under this ranking.
func (r AffinityRanking) Better(a, b float64) bool {
	if r.HigherIsBetter {
		return a > b
	}
	return a < b
}

// Best returns the better of the two values under this ranking.
func (r AffinityRanking) Best(a, b float64) float64 {
	if r.Better(a, b) {
		return a
	}
	return b
}

// Worst returns the worse of the two values under this ranking.
func (r AffinityRanking) Worst(a, b float64) float64 {
	if r.Better(a, b) {
		return b
	}
	return a
}

// SortRows orders rows best-first by affinity under this ranking. Rows
// without an affinity sort last; ties keep their original (batch_index)
// order.
func (r AffinityRanking) SortRows(rows []JobResultRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Affinity, rows[j].Affinity
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return r.Better(*a, *b)
	})
}
