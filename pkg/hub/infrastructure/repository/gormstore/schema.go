package gormstore

import (
	"time"

	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"
)

// JobRecordEntity is the SQL schema model for job records. The opaque
// input/result payloads are stored as JSON text columns through the Payload
// Valuer/Scanner.
type JobRecordEntity struct {
	ID            string          `gorm:"primaryKey;size:36"`
	JobType       model.JobType   `gorm:"size:20;index"`
	TaskType      string          `gorm:"size:64"`
	Status        model.JobStatus `gorm:"size:16;index"`
	UserID        string          `gorm:"size:64;index"`
	InputData     model.Payload   `gorm:"type:text"`
	BatchParentID string          `gorm:"size:36;index"`
	BatchIndex    int
	ComputeHandle string        `gorm:"size:128"`
	Results       model.Payload `gorm:"type:text"`
	SchemaVersion int
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

// TableName maps the entity onto the hub_job_records table created by the
// embedded migrations.
func (JobRecordEntity) TableName() string {
	return "hub_job_records"
}

func fromDomainRecord(r *model.JobRecord) *JobRecordEntity {
	if r == nil {
		return nil
	}
	return &JobRecordEntity{
		ID:            r.ID,
		JobType:       r.JobType,
		TaskType:      r.TaskType,
		Status:        r.Status,
		UserID:        r.UserID,
		InputData:     r.InputData,
		BatchParentID: r.BatchParentID,
		BatchIndex:    r.BatchIndex,
		ComputeHandle: r.ComputeHandle,
		Results:       r.Results,
		SchemaVersion: r.SchemaVersion,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		CompletedAt:   r.CompletedAt,
	}
}

func toDomainRecord(e *JobRecordEntity) *model.JobRecord {
	if e == nil {
		return nil
	}
	return &model.JobRecord{
		ID:            e.ID,
		JobType:       e.JobType,
		TaskType:      e.TaskType,
		Status:        e.Status,
		UserID:        e.UserID,
		InputData:     e.InputData,
		BatchParentID: e.BatchParentID,
		BatchIndex:    e.BatchIndex,
		ComputeHandle: e.ComputeHandle,
		Results:       e.Results,
		SchemaVersion: e.SchemaVersion,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
		CompletedAt:   e.CompletedAt,
	}
}
