package storage

import "fmt"

// Artifact layout conventions shared by the reconciler, the monitor and any
// external reader of the bucket:
//
//	batches/{batch_id}/batch_results.json   reconciled batch artifact
//	jobs/{job_id}/results.json              raw provider result payload
//	jobs/{job_id}/metadata.json             job input metadata snapshot
//	jobs/{job_id}/structure.{ext}           predicted structure file

// BatchResultsPath returns the object path of the reconciled results
// artifact for a batch.
func BatchResultsPath(batchID string) string {
	return fmt.Sprintf("batches/%s/batch_results.json", batchID)
}

// BatchPrefix returns the object prefix under which all artifacts of a batch
// live.
func BatchPrefix(batchID string) string {
	return fmt.Sprintf("batches/%s/", batchID)
}

// JobResultsPath returns the object path of a job's raw result payload.
func JobResultsPath(jobID string) string {
	return fmt.Sprintf("jobs/%s/results.json", jobID)
}

// JobMetadataPath returns the object path of a job's metadata snapshot.
func JobMetadataPath(jobID string) string {
	return fmt.Sprintf("jobs/%s/metadata.json", jobID)
}

// JobStructurePath returns the object path of a job's structure file with
// the given extension (e.g. "cif", "pdb").
func JobStructurePath(jobID, ext string) string {
	return fmt.Sprintf("jobs/%s/structure.%s", jobID, ext)
}

// JobPrefix returns the object prefix under which all artifacts of a job
// live.
func JobPrefix(jobID string) string {
	return fmt.Sprintf("jobs/%s/", jobID)
}
