package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	storage "github.com/bduoto/omtx-hub/pkg/hub/adapter/storage"
	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"
	exception "github.com/bduoto/omtx-hub/pkg/hub/support/util/exception"
	logger "github.com/bduoto/omtx-hub/pkg/hub/support/util/logger"
)

// parquetRow is the flat Parquet schema for one result row. Nullable scores
// map to OPTIONAL columns.
type parquetRow struct {
	JobID        string `parquet:"name=job_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	LigandName   string `parquet:"name=ligand_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	LigandSMILES string `parquet:"name=ligand_smiles, type=BYTE_ARRAY, convertedtype=UTF8"`
	Status       string `parquet:"name=status, type=BYTE_ARRAY, convertedtype=UTF8"`
	HasResults   bool   `parquet:"name=has_results, type=BOOLEAN"`
	HasStructure bool   `parquet:"name=has_structure, type=BOOLEAN"`

	Affinity            *float64 `parquet:"name=affinity, type=DOUBLE, repetitiontype=OPTIONAL"`
	Confidence          *float64 `parquet:"name=confidence, type=DOUBLE, repetitiontype=OPTIONAL"`
	EnsembleAffinity    *float64 `parquet:"name=ensemble_affinity, type=DOUBLE, repetitiontype=OPTIONAL"`
	EnsembleProbability *float64 `parquet:"name=ensemble_probability, type=DOUBLE, repetitiontype=OPTIONAL"`
	IPTM                *float64 `parquet:"name=iptm, type=DOUBLE, repetitiontype=OPTIONAL"`
	PTM                 *float64 `parquet:"name=ptm, type=DOUBLE, repetitiontype=OPTIONAL"`
	PLDDT               *float64 `parquet:"name=plddt, type=DOUBLE, repetitiontype=OPTIONAL"`
	ComplexPLDDT        *float64 `parquet:"name=complex_plddt, type=DOUBLE, repetitiontype=OPTIONAL"`
	InterfaceConfidence *float64 `parquet:"name=interface_confidence, type=DOUBLE, repetitiontype=OPTIONAL"`
}

// ParquetExporter renders batch results as a single-row-group Parquet file.
type ParquetExporter struct {
	objectStore storage.ObjectStore
}

// NewParquetExporter creates a ParquetExporter.
func NewParquetExporter(objectStore storage.ObjectStore) *ParquetExporter {
	return &ParquetExporter{objectStore: objectStore}
}

func (e *ParquetExporter) Format() string { return "parquet" }

// Export writes batches/{batch_id}/batch_results.parquet.
func (e *ParquetExporter) Export(ctx context.Context, results *model.BatchResults) (err error) {
	if len(results.Jobs) == 0 {
		logger.Debugf("Export: Batch '%s' has no rows, skipping Parquet export.", results.BatchID)
		return nil
	}

	buf := new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, new(parquetRow), int64(len(results.Jobs)))
	if err != nil {
		return exception.NewHubError(moduleName, "failed to create Parquet writer", err, false, false)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range results.Jobs {
		record := parquetRow{
			JobID:               row.JobID,
			LigandName:          row.LigandName,
			LigandSMILES:        row.LigandSMILES,
			Status:              string(row.Status),
			HasResults:          row.HasResults,
			HasStructure:        row.HasStructure,
			Affinity:            row.Affinity,
			Confidence:          row.Confidence,
			EnsembleAffinity:    row.EnsembleAffinity,
			EnsembleProbability: row.EnsembleProbability,
			IPTM:                row.IPTM,
			PTM:                 row.PTM,
			PLDDT:               row.PLDDT,
			ComplexPLDDT:        row.ComplexPLDDT,
			InterfaceConfidence: row.InterfaceConfidence,
		}
		if err := pw.Write(record); err != nil {
			return exception.NewHubError(moduleName,
				fmt.Sprintf("failed to write Parquet row for job '%s'", row.JobID), err, false, false)
		}
	}

	// The library panics on some schema mismatches instead of returning an
	// error.
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = exception.NewHubErrorf(moduleName, "Parquet writer panicked during finalize: %v", r)
			}
		}()
		if stopErr := pw.WriteStop(); stopErr != nil {
			err = exception.NewHubError(moduleName, "failed to finalize Parquet file", stopErr, false, false)
		}
	}()
	if err != nil {
		return err
	}

	path := exportPath(results.BatchID, e.Format())
	if err := e.objectStore.Upload(ctx, path, bytes.NewReader(buf.Bytes()), "application/octet-stream"); err != nil {
		return exception.NewHubError(moduleName, "failed to upload Parquet export", err, false, true)
	}
	return nil
}

var _ Exporter = (*ParquetExporter)(nil)
