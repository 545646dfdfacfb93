// Package config provides core configuration structures and utilities for the hub.
// This module defines Fx providers for configuration-related components.
package config

import (
	"go.uber.org/fx"

	docstorecfg "github.com/bduoto/omtx-hub/pkg/hub/adapter/docstore/config"
	storagecfg "github.com/bduoto/omtx-hub/pkg/hub/adapter/storage/config"
)

// NewLoggingConfigProvider extracts and provides *LoggingConfig from *Config.
// This allows other Fx components to depend only on the logging configuration.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.Hub.System.Logging
}

// NewDocstoreConfigProvider extracts the document store settings.
func NewDocstoreConfigProvider(cfg *Config) docstorecfg.DocstoreConfig {
	return cfg.Hub.Docstore
}

// NewStorageConfigProvider extracts the object store settings.
func NewStorageConfigProvider(cfg *Config) storagecfg.StorageConfig {
	return cfg.Hub.Storage
}

// Module provides configuration-related components to Fx.
var Module = fx.Options(
	fx.Provide(NewConfigProvider),
	fx.Provide(NewLoggingConfigProvider),
	fx.Provide(NewDocstoreConfigProvider),
	fx.Provide(NewStorageConfigProvider),
)
