package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"go.uber.org/fx"

	"github.com/bduoto/omtx-hub/pkg/hub/support/util/exception"
	"github.com/bduoto/omtx-hub/pkg/hub/support/util/logger"
)

const moduleName = "config"

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig // EmbeddedConfig contains the raw bytes of the configuration file.
	EnvFilePath    string         `name:"envFilePath" optional:"true"` // EnvFilePath is the path to the .env file, if any.
}

// loadConfig loads configuration from the embedded YAML and environment
// variables, layered over the defaults from NewConfig. It is intended to be
// called once during application startup.
func loadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else {
		if err := godotenv.Load(); err != nil {
			logger.Debugf(".env file not found or could not be loaded: %v", err)
		}
	}

	cfg := NewConfig()

	var yamlConfig Config
	if err := yaml.Unmarshal(embeddedConfig, &yamlConfig); err != nil {
		return nil, exception.NewHubError(moduleName, "failed to unmarshal embedded config", err, false, false)
	}

	mergeConfig(cfg, &yamlConfig)

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewHubError(moduleName, "failed to load config from environment variables", err, false, false)
	}
	return cfg, nil
}

// NewConfigProvider is an Fx provider that loads and provides *Config.
// It also applies the configured log level.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := loadConfig(params.EnvFilePath, params.EmbeddedConfig)
	if err != nil {
		return nil, err
	}

	GlobalConfig = cfg

	logger.SetLogLevel(cfg.Hub.System.Logging.Level)
	logger.Infof("Log level set to: %s", cfg.Hub.System.Logging.Level)

	return cfg, nil
}

// LoadConfig loads configuration from the embedded bytes and environment
// variables without going through Fx. Used by tests and tooling.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	return loadConfig(envFilePath, embeddedConfig)
}

// mergeConfig performs a deep merge from sourceConfig into destConfig.
// Values in sourceConfig overwrite corresponding values in destConfig
// when they are not zero values for their type.
func mergeConfig(destConfig, sourceConfig *Config) {
	mergeHubConfig(&destConfig.Hub, &sourceConfig.Hub)
}

func mergeHubConfig(dest, source *HubConfig) {
	mergeBatchConfig(&dest.Batch, &source.Batch)
	mergeResultsConfig(&dest.Results, &source.Results)
	mergeSystemConfig(&dest.System, &source.System)

	if source.Security.MaskedParameterKeys != nil {
		dest.Security.MaskedParameterKeys = source.Security.MaskedParameterKeys
	}

	if source.Notification.WebhookURL != "" {
		dest.Notification.WebhookURL = source.Notification.WebhookURL
	}
	if source.Notification.TimeoutSeconds != 0 {
		dest.Notification.TimeoutSeconds = source.Notification.TimeoutSeconds
	}

	if source.Docstore.Type != "" {
		dest.Docstore.Type = source.Docstore.Type
	}
	if source.Docstore.ProjectID != "" {
		dest.Docstore.ProjectID = source.Docstore.ProjectID
	}
	if source.Docstore.CredentialsFile != "" {
		dest.Docstore.CredentialsFile = source.Docstore.CredentialsFile
	}

	if source.Storage.Type != "" {
		dest.Storage.Type = source.Storage.Type
	}
	if source.Storage.BucketName != "" {
		dest.Storage.BucketName = source.Storage.BucketName
	}
	if source.Storage.CredentialsFile != "" {
		dest.Storage.CredentialsFile = source.Storage.CredentialsFile
	}
	if source.Storage.BaseDir != "" {
		dest.Storage.BaseDir = source.Storage.BaseDir
	}

	if source.Database != nil {
		if dest.Database == nil {
			dest.Database = make(map[string]interface{})
		}
		for key, value := range source.Database {
			dest.Database[key] = value
		}
	}
}

func mergeBatchConfig(dest, source *BatchConfig) {
	if source.PollingIntervalSeconds != 0 {
		dest.PollingIntervalSeconds = source.PollingIntervalSeconds
	}
	if source.MaxConcurrentSubmissions != 0 {
		dest.MaxConcurrentSubmissions = source.MaxConcurrentSubmissions
	}
	if source.PollConcurrency != 0 {
		dest.PollConcurrency = source.PollConcurrency
	}
	if source.APIEndpoint != "" {
		dest.APIEndpoint = source.APIEndpoint
	}
	if source.APIKey != "" {
		dest.APIKey = source.APIKey
	}
	if source.RequestTimeoutSeconds != 0 {
		dest.RequestTimeoutSeconds = source.RequestTimeoutSeconds
	}
}

func mergeResultsConfig(dest, source *ResultsConfig) {
	if source.AffinityHigherIsBetter != nil {
		dest.AffinityHigherIsBetter = source.AffinityHigherIsBetter
	}
	if source.TopPredictionsLimit != 0 {
		dest.TopPredictionsLimit = source.TopPredictionsLimit
	}
}

func mergeSystemConfig(dest, source *SystemConfig) {
	if source.Timezone != "" {
		dest.Timezone = source.Timezone
	}
	if source.Logging.Level != "" {
		dest.Logging.Level = source.Logging.Level
	}
	if source.MetricsAddress != "" {
		dest.MetricsAddress = source.MetricsAddress
	}
}

// loadStructFromEnv recursively loads configuration values into a struct from
// environment variables, using the "yaml" tag to derive variable names
// (e.g., hub.batch.api_key becomes HUB_BATCH_API_KEY).
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}

		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// setField sets the value of a reflect.Value field based on its kind.
// It handles string, int, float, bool and *bool types.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	case reflect.Ptr:
		if field.Type().Elem().Kind() == reflect.Bool {
			boolValue, err := strconv.ParseBool(value)
			if err != nil {
				return err
			}
			field.Set(reflect.ValueOf(&boolValue))
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for j := range parts {
				parts[j] = strings.TrimSpace(parts[j])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}
	return nil
}
