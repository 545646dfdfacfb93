package docstore

import (
	"context"

	"go.uber.org/fx"

	config "github.com/bduoto/omtx-hub/pkg/hub/adapter/docstore/config"
	exception "github.com/bduoto/omtx-hub/pkg/hub/support/util/exception"
	logger "github.com/bduoto/omtx-hub/pkg/hub/support/util/logger"
)

// StoreFactory builds a DocumentStore for a backend type. The concrete
// backends register themselves here to keep this package free of their
// client dependencies.
type StoreFactory func(ctx context.Context, cfg config.DocstoreConfig) (DocumentStore, error)

var storeFactories = map[string]StoreFactory{}

// RegisterStoreFactory registers a backend under its config type name.
// Called from the backend packages' init functions.
func RegisterStoreFactory(storeType string, factory StoreFactory) {
	storeFactories[storeType] = factory
}

// NewDocumentStore opens the backend selected by the configuration.
func NewDocumentStore(cfg config.DocstoreConfig) (DocumentStore, error) {
	factory, ok := storeFactories[cfg.Type]
	if !ok {
		return nil, exception.NewHubErrorf("docstore", "unsupported document store type: '%s'", cfg.Type)
	}
	store, err := factory(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	logger.Infof("Document store connected (%s).", cfg.Type)
	return store, nil
}

// Module provides the configured DocumentStore and closes it on shutdown.
var Module = fx.Options(
	fx.Provide(NewDocumentStore),
	fx.Invoke(func(lc fx.Lifecycle, store DocumentStore) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return store.Close()
			},
		})
	}),
)
