// Package repository wires the configured JobRecordRepository implementation.
package repository

import (
	"context"

	"go.uber.org/fx"

	adapterDocstore "github.com/bduoto/omtx-hub/pkg/hub/adapter/docstore"
	cfg "github.com/bduoto/omtx-hub/pkg/hub/core/config"
	repository "github.com/bduoto/omtx-hub/pkg/hub/core/domain/repository"
	docstoreRepo "github.com/bduoto/omtx-hub/pkg/hub/infrastructure/repository/docstore"
	gormstore "github.com/bduoto/omtx-hub/pkg/hub/infrastructure/repository/gormstore"
	configbinder "github.com/bduoto/omtx-hub/pkg/hub/support/util/configbinder"
	exception "github.com/bduoto/omtx-hub/pkg/hub/support/util/exception"
	logger "github.com/bduoto/omtx-hub/pkg/hub/support/util/logger"
)

const moduleName = "repository"

// JobRecordRepositoryParams holds the dependencies injected via DI.
type JobRecordRepositoryParams struct {
	fx.In
	Config        *cfg.Config
	DocumentStore adapterDocstore.DocumentStore
}

// NewJobRecordRepository selects the record store: the SQL store when a
// database block is configured, otherwise the document store.
func NewJobRecordRepository(p JobRecordRepositoryParams) (repository.JobRecordRepository, error) {
	if len(p.Config.Hub.Database) == 0 {
		return docstoreRepo.NewRepository(p.DocumentStore), nil
	}

	var dbConfig gormstore.DatabaseConfig
	if err := configbinder.BindMap(p.Config.Hub.Database, &dbConfig); err != nil {
		return nil, exception.NewHubError(moduleName, "failed to bind database configuration", err, false, false)
	}
	if dbConfig.Type == "" {
		logger.Warnf("Repository: Database block present but no type set, falling back to the document store.")
		return docstoreRepo.NewRepository(p.DocumentStore), nil
	}

	db, err := gormstore.OpenDB(dbConfig)
	if err != nil {
		return nil, err
	}
	if err := gormstore.Migrate(db, dbConfig.Type); err != nil {
		return nil, err
	}
	return gormstore.NewGormJobRepository(db), nil
}

// Module provides the JobRecordRepository and closes it on shutdown.
var Module = fx.Options(
	fx.Provide(NewJobRecordRepository),
	fx.Invoke(func(lc fx.Lifecycle, repo repository.JobRecordRepository) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return repo.Close()
			},
		})
	}),
)
