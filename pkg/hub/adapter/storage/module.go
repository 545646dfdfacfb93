package storage

import (
	"context"

	"go.uber.org/fx"

	config "github.com/bduoto/omtx-hub/pkg/hub/adapter/storage/config"
	exception "github.com/bduoto/omtx-hub/pkg/hub/support/util/exception"
	logger "github.com/bduoto/omtx-hub/pkg/hub/support/util/logger"
)

// StoreFactory builds an ObjectStore for a backend type. The concrete
// backends register themselves here to keep this package free of their
// client dependencies.
type StoreFactory func(ctx context.Context, cfg config.StorageConfig) (ObjectStore, error)

var storeFactories = map[string]StoreFactory{}

// RegisterStoreFactory registers a backend under its config type name.
// Called from the backend packages' init functions.
func RegisterStoreFactory(storeType string, factory StoreFactory) {
	storeFactories[storeType] = factory
}

// NewObjectStore opens the backend selected by the configuration.
func NewObjectStore(cfg config.StorageConfig) (ObjectStore, error) {
	factory, ok := storeFactories[cfg.Type]
	if !ok {
		return nil, exception.NewHubErrorf("storage", "unsupported object store type: '%s'", cfg.Type)
	}
	store, err := factory(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	logger.Infof("Object store connected (%s).", cfg.Type)
	return store, nil
}

// Module provides the configured ObjectStore and closes it on shutdown.
var Module = fx.Options(
	fx.Provide(NewObjectStore),
	fx.Invoke(func(lc fx.Lifecycle, store ObjectStore) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return store.Close()
			},
		})
	}),
)
