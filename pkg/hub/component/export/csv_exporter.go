package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	storage "github.com/bduoto/omtx-hub/pkg/hub/adapter/storage"
	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"
	exception "github.com/bduoto/omtx-hub/pkg/hub/support/util/exception"
)

var csvHeader = []string{
	"job_id", "ligand_name", "ligand_smiles", "status",
	"has_results", "has_structure",
	"affinity", "confidence",
	"ensemble_affinity", "ensemble_probability",
	"iptm", "ptm", "plddt", "complex_plddt", "interface_confidence",
}

// CSVExporter renders batch results as a flat CSV table, one row per job.
type CSVExporter struct {
	objectStore storage.ObjectStore
}

// NewCSVExporter creates a CSVExporter.
func NewCSVExporter(objectStore storage.ObjectStore) *CSVExporter {
	return &CSVExporter{objectStore: objectStore}
}

func (e *CSVExporter) Format() string { return "csv" }

// Export writes batches/{batch_id}/batch_results.csv.
func (e *CSVExporter) Export(ctx context.Context, results *model.BatchResults) error {
	buf := new(bytes.Buffer)
	w := csv.NewWriter(buf)

	if err := w.Write(csvHeader); err != nil {
		return exception.NewHubError(moduleName, "failed to write CSV header", err, false, false)
	}
	for _, row := range results.Jobs {
		record := []string{
			row.JobID,
			row.LigandName,
			row.LigandSMILES,
			string(row.Status),
			strconv.FormatBool(row.HasResults),
			strconv.FormatBool(row.HasStructure),
			formatScore(row.Affinity),
			formatScore(row.Confidence),
			formatScore(row.EnsembleAffinity),
			formatScore(row.EnsembleProbability),
			formatScore(row.IPTM),
			formatScore(row.PTM),
			formatScore(row.PLDDT),
			formatScore(row.ComplexPLDDT),
			formatScore(row.InterfaceConfidence),
		}
		if err := w.Write(record); err != nil {
			return exception.NewHubError(moduleName,
				fmt.Sprintf("failed to write CSV row for job '%s'", row.JobID), err, false, false)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return exception.NewHubError(moduleName, "failed to flush CSV output", err, false, false)
	}

	path := exportPath(results.BatchID, e.Format())
	if err := e.objectStore.Upload(ctx, path, bytes.NewReader(buf.Bytes()), "text/csv"); err != nil {
		return exception.NewHubError(moduleName, "failed to upload CSV export", err, false, true)
	}
	return nil
}

// formatScore renders a nullable score; missing values stay empty cells.
func formatScore(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

var _ Exporter = (*CSVExporter)(nil)
