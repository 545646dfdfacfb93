package config

import (
	docstorecfg "github.com/bduoto/omtx-hub/pkg/hub/adapter/docstore/config"
	storagecfg "github.com/bduoto/omtx-hub/pkg/hub/adapter/storage/config"
)

// Package config provides structures and utilities for managing application configuration.

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go.
// This is used when loading configuration from an embedded source (e.g., a compiled binary).
type EmbeddedConfig []byte

// LogLevel defines the logging level for the application.
type LogLevel string

const (
	LogLevelTrace  LogLevel = "TRACE"
	LogLevelDebug  LogLevel = "DEBUG"
	LogLevelInfo   LogLevel = "INFO"
	LogLevelWarn   LogLevel = "WARN"
	LogLevelError  LogLevel = "ERROR"
	LogLevelFatal  LogLevel = "FATAL"
	LogLevelSilent LogLevel = "SILENT"
)

// BatchConfig holds configuration for batch submission and completion polling.
type BatchConfig struct {
	// PollingIntervalSeconds is the interval between completion monitor sweeps.
	PollingIntervalSeconds int `yaml:"polling_interval_seconds"`
	// MaxConcurrentSubmissions bounds how many child jobs are handed to the
	// compute provider at the same time.
	MaxConcurrentSubmissions int `yaml:"max_concurrent_submissions"`
	// PollConcurrency bounds how many compute handles one sweep polls in parallel.
	PollConcurrency int `yaml:"poll_concurrency"`
	// APIEndpoint is the base URL of the compute provider's HTTP API.
	APIEndpoint string `yaml:"api_endpoint"`
	// APIKey authenticates requests against the compute provider.
	APIKey string `yaml:"api_key"`
	// RequestTimeoutSeconds is the per-request timeout for provider calls.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
}

// ResultsConfig holds configuration for result reconciliation and ranking.
type ResultsConfig struct {
	// AffinityHigherIsBetter selects the ranking direction for affinity
	// scores. Unset means higher scores rank first.
	AffinityHigherIsBetter *bool `yaml:"affinity_higher_is_better"`
	// TopPredictionsLimit caps the top_predictions list in the batch
	// results artifact.
	TopPredictionsLimit int `yaml:"top_predictions_limit"`
}

// HigherIsBetter resolves the configured ranking direction.
func (r ResultsConfig) HigherIsBetter() bool {
	if r.AffinityHigherIsBetter == nil {
		return true
	}
	return *r.AffinityHigherIsBetter
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// MaskedParameterKeys is a list of keys in job input whose values should be masked in logs.
	MaskedParameterKeys []string `yaml:"masked_parameter_keys"`
}

// NotificationConfig holds settings for batch completion notifications.
type NotificationConfig struct {
	// WebhookURL receives a POST per completed batch when non-empty.
	WebhookURL string `yaml:"webhook_url"`
	// TimeoutSeconds is the per-request timeout for webhook delivery.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG", "TRACE").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the application timezone (e.g., "UTC").
	Timezone string `yaml:"timezone"`
	// Logging is the logging configuration.
	Logging LoggingConfig `yaml:"logging"`
	// MetricsAddress is the listen address for the Prometheus scrape
	// endpoint. Empty disables the endpoint.
	MetricsAddress string `yaml:"metrics_address"`
}

// HubConfig holds all configuration under the "hub" top-level key.
type HubConfig struct {
	// Batch contains submission and polling configuration.
	Batch BatchConfig `yaml:"batch"`
	// Results contains reconciliation and ranking configuration.
	Results ResultsConfig `yaml:"results"`
	// System contains system-wide configuration.
	System SystemConfig `yaml:"system"`
	// Security contains security-related configuration.
	Security SecurityConfig `yaml:"security"`
	// Notification contains batch completion notification configuration.
	Notification NotificationConfig `yaml:"notification"`
	// Docstore selects and configures the job record document store.
	Docstore docstorecfg.DocstoreConfig `yaml:"docstore"`
	// Storage selects and configures the artifact object store.
	Storage storagecfg.StorageConfig `yaml:"storage"`
	// Database holds connection settings for the optional SQL job store,
	// bound onto a typed struct by the gormstore provider.
	Database map[string]interface{} `yaml:"database"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	// Hub contains the top-level configuration for the OMTX Hub.
	Hub HubConfig `yaml:"hub"`
	// EmbeddedConfig holds configuration loaded from an embedded source, not from YAML.
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// GlobalConfig is a pointer to the configuration instance shared across the application.
// It is expected to be set via fx.Supply or fx.Provide.
var GlobalConfig *Config

// NewConfig returns a Config populated with defaults. YAML and environment
// overrides are layered on top by the loader.
func NewConfig() *Config {
	return &Config{
		Hub: HubConfig{
			Batch: BatchConfig{
				PollingIntervalSeconds:   10,
				MaxConcurrentSubmissions: 10,
				PollConcurrency:          5,
				RequestTimeoutSeconds:    30,
			},
			Results: ResultsConfig{
				TopPredictionsLimit: 10,
			},
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: string(LogLevelInfo)},
			},
			Security: SecurityConfig{
				MaskedParameterKeys: []string{"api_key"},
			},
			Notification: NotificationConfig{
				TimeoutSeconds: 10,
			},
			Docstore: docstorecfg.DocstoreConfig{
				Type: "memory",
			},
			Storage: storagecfg.StorageConfig{
				Type:    "local",
				BaseDir: "data/artifacts",
			},
		},
	}
}
