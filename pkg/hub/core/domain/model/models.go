package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bduoto/omtx-hub/pkg/hub/support/util/exception"
	logger "github.com/bduoto/omtx-hub/pkg/hub/support/util/logger"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle state of a job record.
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// String returns the string representation of the JobStatus.
func (s JobStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status is terminal. Terminal jobs never
// transition again.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// JobType distinguishes standalone jobs from the two halves of a batch.
type JobType string

const (
	JobTypeIndividual  JobType = "INDIVIDUAL"
	JobTypeBatchParent JobType = "BATCH_PARENT"
	JobTypeBatchChild  JobType = "BATCH_CHILD"
)

// Task type identifiers. The batch variants are assigned to BATCH_PARENT
// records; their children carry the corresponding single-job task type.
const (
	TaskProteinLigandBinding        = "protein_ligand_binding"
	TaskBatchProteinLigandScreening = "batch_protein_ligand_screening"
)

// SchemaVersionCurrent is the canonical job record shape produced by this
// codebase. Records read back with a lower (or absent) version pass through
// NormalizeRecordFields before any business logic sees them.
const SchemaVersionCurrent = 2

// Payload is an opaque string-keyed map used for task input parameters and
// raw provider result payloads.
type Payload map[string]interface{}

// Value implements driver.Valuer, serializing the Payload to a JSON string
// for SQL-backed persistence.
func (p Payload) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner, decoding a JSON string or byte slice into the
// Payload.
func (p *Payload) Scan(value interface{}) error {
	if value == nil {
		*p = make(Payload)
		return nil
	}
	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("unsupported Scan type for Payload: %T", value)
	}

	if len(b) == 0 {
		*p = make(Payload)
		return nil
	}

	if err := json.Unmarshal(b, p); err != nil {
		return fmt.Errorf("failed to unmarshal Payload JSON: %w", err)
	}
	return nil
}

// NewPayload creates a new empty Payload.
func NewPayload() Payload {
	return make(Payload)
}

// Get retrieves the value for the specified key.
func (p Payload) Get(key string) (interface{}, bool) {
	val, ok := p[key]
	return val, ok
}

// GetString retrieves the value for the specified key as a string.
func (p Payload) GetString(key string) (string, bool) {
	val, ok := p[key]
	if !ok {
		return "", false
	}
	str, ok := val.(string)
	return str, ok
}

// GetFloat64 retrieves the value for the specified key as a float64.
// Integer values are widened, since JSON round trips erase the distinction.
func (p Payload) GetFloat64(key string) (float64, bool) {
	val, ok := p[key]
	if !ok {
		return 0, false
	}
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// GetMap retrieves the value for the specified key as a nested map.
func (p Payload) GetMap(key string) (map[string]interface{}, bool) {
	val, ok := p[key]
	if !ok {
		return nil, false
	}
	switch m := val.(type) {
	case map[string]interface{}:
		return m, true
	case Payload:
		return m, true
	default:
		return nil, false
	}
}

// Copy creates a shallow copy of the Payload.
func (p Payload) Copy() Payload {
	cp := make(Payload, len(p))
	for k, v := range p {
		cp[k] = v
	}
	return cp
}

// Input keys shared between the submitter (which writes them) and the
// reconciler (which reads them back off child records).
const (
	InputKeyProteinSequence = "protein_sequence"
	InputKeyProteinName     = "protein_name"
	InputKeyLigandName      = "ligand_name"
	InputKeyLigandSMILES    = "ligand_smiles"
	InputKeyModelID         = "model_id"
	InputKeyJobName         = "job_name"
)

// ResultKeyError is the key under which a failure message is recorded in a
// job's results payload.
const ResultKeyError = "error"

// LigandSpec is one ligand in a batch request: a display name and a SMILES
// string. The name may be empty; reconciled rows always carry a sequential
// ligand number derived from batch_index, independent of this field.
type LigandSpec struct {
	Name   string `json:"name"`
	SMILES string `json:"smiles"`
}

// BatchRequest is the input to batch submission: one protein target screened
// against an ordered list of ligands.
type BatchRequest struct {
	JobName         string       `json:"job_name"`
	UserID          string       `json:"user_id"`
	ProteinSequence string       `json:"protein_sequence"`
	ProteinName     string       `json:"protein_name"`
	Ligands         []LigandSpec `json:"ligands"`
	ModelID         string       `json:"model_id"`
	// MaxConcurrent caps in-flight submissions to the compute provider.
	// Zero means "use the configured default". Advisory only; the provider
	// is assumed to auto-scale execution once requests are accepted.
	MaxConcurrent int `json:"max_concurrent"`
	// Priority is advisory scheduling metadata carried through to the
	// provider; it is not enforced as backpressure here.
	Priority string `json:"priority"`
}

// Validate checks the structural preconditions for a batch request.
func (r *BatchRequest) Validate() error {
	if r.ProteinSequence == "" {
		return exception.NewHubErrorf("submitter", "batch request missing protein sequence")
	}
	if len(r.Ligands) == 0 {
		return exception.NewHubErrorf("submitter", "batch request contains no ligands")
	}
	if r.UserID == "" {
		return exception.NewHubErrorf("submitter", "batch request missing user id")
	}
	return nil
}

// JobRecord is one document per unit of work: an individual prediction, a
// batch parent, or a batch child (one ligand of a screening batch).
type JobRecord struct {
	ID            string     `json:"id"`
	JobType       JobType    `json:"job_type"`
	TaskType      string     `json:"task_type"`
	Status        JobStatus  `json:"status"`
	UserID        string     `json:"user_id"`
	InputData     Payload    `json:"input_data"`
	BatchParentID string     `json:"batch_parent_id,omitempty"`
	BatchIndex    int        `json:"batch_index"`
	ComputeHandle string     `json:"compute_handle,omitempty"`
	Results       Payload    `json:"results,omitempty"`
	SchemaVersion int        `json:"schema_version"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// NewID generates a new UUID string.
func NewID() string {
	return uuid.New().String()
}

// NewBatchParent creates the BATCH_PARENT record for a batch request.
func NewBatchParent(req *BatchRequest) *JobRecord {
	now := time.Now().UTC()
	input := NewPayload()
	input[InputKeyJobName] = req.JobName
	input[InputKeyProteinSequence] = req.ProteinSequence
	input[InputKeyProteinName] = req.ProteinName
	input[InputKeyModelID] = req.ModelID
	input["ligand_count"] = len(req.Ligands)

	return &JobRecord{
		ID:            NewID(),
		JobType:       JobTypeBatchParent,
		TaskType:      TaskBatchProteinLigandScreening,
		Status:        StatusPending,
		UserID:        req.UserID,
		InputData:     input,
		SchemaVersion: SchemaVersionCurrent,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// NewBatchChild creates the BATCH_CHILD record for the ligand at position
// index within its batch. The index is the stable ordering key for the
// child; reconciled rows are numbered from it.
func NewBatchChild(parent *JobRecord, req *BatchRequest, index int) *JobRecord {
	now := time.Now().UTC()
	ligand := req.Ligands[index]

	input := NewPayload()
	input[InputKeyJobName] = req.JobName
	input[InputKeyProteinSequence] = req.ProteinSequence
	input[InputKeyProteinName] = req.ProteinName
	input[InputKeyLigandName] = ligand.Name
	input[InputKeyLigandSMILES] = ligand.SMILES
	input[InputKeyModelID] = req.ModelID

	return &JobRecord{
		ID:            NewID(),
		JobType:       JobTypeBatchChild,
		TaskType:      TaskProteinLigandBinding,
		Status:        StatusPending,
		UserID:        req.UserID,
		InputData:     input,
		BatchParentID: parent.ID,
		BatchIndex:    index,
		SchemaVersion: SchemaVersionCurrent,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// NewIndividualJob creates a standalone (non-batch) job record.
func NewIndividualJob(taskType, userID string, input Payload) *JobRecord {
	now := time.Now().UTC()
	if input == nil {
		input = NewPayload()
	}
	return &JobRecord{
		ID:            NewID(),
		JobType:       JobTypeIndividual,
		TaskType:      taskType,
		Status:        StatusPending,
		UserID:        userID,
		InputData:     input,
		SchemaVersion: SchemaVersionCurrent,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// isValidTransition checks whether a status transition is allowed. Statuses
// only move forward: pending -> running -> {completed, failed}, with the
// shortcut pending -> failed for submissions rejected by the provider.
func isValidTransition(current, next JobStatus) bool {
	switch current {
	case StatusPending:
		return next == StatusRunning || next == StatusFailed
	case StatusRunning:
		return next == StatusCompleted || next == StatusFailed
	case StatusCompleted, StatusFailed:
		return false
	default:
		return false
	}
}

// TransitionTo transitions the record's status, rejecting any move that the
// state machine does not allow. Terminal jobs never transition again.
func (j *JobRecord) TransitionTo(next JobStatus) error {
	if !isValidTransition(j.Status, next) {
		return exception.NewHubErrorf("model",
			"JobRecord (ID: %s): invalid status transition: %s -> %s", j.ID, j.Status, next)
	}
	j.Status = next
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkAsRunning records a successful submission: the job is running under the
// given compute handle.
func (j *JobRecord) MarkAsRunning(computeHandle string) {
	if err := j.TransitionTo(StatusRunning); err != nil {
		logger.Warnf("Could not update JobRecord (ID: %s) status to running: %v", j.ID, err)
		return
	}
	j.ComputeHandle = computeHandle
}

// MarkAsCompleted records a completed job along with its result payload.
func (j *JobRecord) MarkAsCompleted(results Payload) {
	if err := j.TransitionTo(StatusCompleted); err != nil {
		logger.Warnf("Could not update JobRecord (ID: %s) status to completed: %v", j.ID, err)
		return
	}
	j.Results = results
	now := time.Now().UTC()
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// MarkAsFailed records a failed job with the failure message stored under
// ResultKeyError in the results payload.
func (j *JobRecord) MarkAsFailed(err error) {
	if terr := j.TransitionTo(StatusFailed); terr != nil {
		logger.Warnf("Could not update JobRecord (ID: %s) status to failed: %v", j.ID, terr)
		return
	}
	if j.Results == nil {
		j.Results = NewPayload()
	}
	j.Results[ResultKeyError] = exception.ExtractErrorMessage(err)
	now := time.Now().UTC()
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// IsBatchChild reports whether the record is a child of a batch.
func (j *JobRecord) IsBatchChild() bool {
	return j.JobType == JobTypeBatchChild && j.BatchParentID != ""
}

// LigandNumber returns the stable, human-readable ligand number for a batch
// child ("1", "2", ...). Numbering follows batch_index, not arrival order.
func (j *JobRecord) LigandNumber() string {
	return fmt.Sprintf("%d", j.BatchIndex+1)
}
