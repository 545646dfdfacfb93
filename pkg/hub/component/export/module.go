package export

import (
	"go.uber.org/fx"

	storage "github.com/bduoto/omtx-hub/pkg/hub/adapter/storage"
)

// NewExportService assembles the Service with the built-in exporters.
func NewExportService(objectStore storage.ObjectStore) *Service {
	return NewService(objectStore, []Exporter{
		NewCSVExporter(objectStore),
		NewParquetExporter(objectStore),
	})
}

// Module provides the export service to Fx.
var Module = fx.Options(
	fx.Provide(NewExportService),
)
