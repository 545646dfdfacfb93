// Package export renders reconciled batch results into downloadable tabular
// artifacts (CSV and Parquet) next to the canonical JSON artifact.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"

	storage "github.com/bduoto/omtx-hub/pkg/hub/adapter/storage"
	model "github.com/bduoto/omtx-hub/pkg/hub/core/domain/model"
	exception "github.com/bduoto/omtx-hub/pkg/hub/support/util/exception"
	logger "github.com/bduoto/omtx-hub/pkg/hub/support/util/logger"
	serialization "github.com/bduoto/omtx-hub/pkg/hub/support/util/serialization"
)

const moduleName = "export"

// Exporter renders one batch results view into one output format.
type Exporter interface {
	// Format returns the file extension this exporter produces ("csv",
	// "parquet").
	Format() string
	// Export writes the rendered artifact for the given results.
	Export(ctx context.Context, results *model.BatchResults) error
}

// exportPath returns the object path of a rendered batch artifact.
func exportPath(batchID, format string) string {
	return fmt.Sprintf("batches/%s/batch_results.%s", batchID, format)
}

// Service runs every registered exporter against the stored artifact of a
// batch.
type Service struct {
	objectStore storage.ObjectStore
	exporters   []Exporter
}

// NewService creates an export Service over the given exporters.
func NewService(objectStore storage.ObjectStore, exporters []Exporter) *Service {
	return &Service{objectStore: objectStore, exporters: exporters}
}

// ExportBatch loads the reconciled artifact of batchID and renders it in
// every registered format. Formats fail independently.
func (s *Service) ExportBatch(ctx context.Context, batchID string) error {
	results, err := s.loadArtifact(ctx, batchID)
	if err != nil {
		return err
	}

	var errs *multierror.Error
	for _, exporter := range s.exporters {
		if err := exporter.Export(ctx, results); err != nil {
			errs = multierror.Append(errs, exception.NewHubError(moduleName,
				fmt.Sprintf("failed to export batch '%s' as %s", batchID, exporter.Format()), err, false, true))
			continue
		}
		logger.Debugf("Export: Batch '%s' exported as %s.", batchID, exporter.Format())
	}
	return errs.ErrorOrNil()
}

func (s *Service) loadArtifact(ctx context.Context, batchID string) (*model.BatchResults, error) {
	reader, err := s.objectStore.Download(ctx, storage.BatchResultsPath(batchID))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, exception.NewHubErrorf(moduleName, "batch '%s' has no reconciled artifact to export", batchID)
		}
		return nil, exception.NewHubError(moduleName, "failed to read batch results artifact", err, false, true)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, exception.NewHubError(moduleName, "failed to read batch results artifact", err, false, true)
	}
	var results model.BatchResults
	if err := serialization.UnmarshalJSON(data, &results); err != nil {
		return nil, err
	}
	return &results, nil
}
