package model

import (
	"time"

	"github.com/bduoto/omtx-hub/pkg/hub/support/util/exception"

	"github.com/mitchellh/mapstructure"
)

// NormalizeRecordFields decodes a raw document-store map into the canonical
// JobRecord shape. Historical records predate the job_type and
// schema_version fields and stored results under "output_data"; all shape
// detection happens here, once, so the rest of the codebase only ever sees
// the current schema.
func NormalizeRecordFields(fields map[string]interface{}) (*JobRecord, error) {
	var record JobRecord

	config := &mapstructure.DecoderConfig{
		Result:           &record,
		WeaklyTypedInput: true,
		TagName:          "json",
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		),
	}
	decoder, err := mapstructure.NewDecoder(config)
	if err != nil {
		return nil, exception.NewHubError("model", "failed to create record decoder", err, false, false)
	}
	if err := decoder.Decode(fields); err != nil {
		return nil, exception.NewHubError("model", "failed to decode job record fields", err, false, false)
	}

	if record.SchemaVersion < SchemaVersionCurrent {
		upgradeLegacyRecord(&record, fields)
	}

	if record.InputData == nil {
		record.InputData = NewPayload()
	}
	return &record, nil
}

// upgradeLegacyRecord fills in fields that older record shapes lack. The
// inference rules mirror how the legacy data was actually written: children
// always carried batch_parent_id, parents always carried the batch task
// type.
func upgradeLegacyRecord(record *JobRecord, fields map[string]interface{}) {
	if record.JobType == "" {
		switch {
		case record.BatchParentID != "":
			record.JobType = JobTypeBatchChild
		case record.TaskType == TaskBatchProteinLigandScreening:
			record.JobType = JobTypeBatchParent
		default:
			record.JobType = JobTypeIndividual
		}
	}

	// Early records stored the provider payload under "output_data".
	if len(record.Results) == 0 {
		if raw, ok := fields["output_data"].(map[string]interface{}); ok && len(raw) > 0 {
			record.Results = Payload(raw)
		}
	}

	if record.Status == "" {
		record.Status = StatusPending
	}

	record.SchemaVersion = SchemaVersionCurrent
}
