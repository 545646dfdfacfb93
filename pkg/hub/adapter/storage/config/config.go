package config

// StorageConfig holds configuration for one object storage backend.
type StorageConfig struct {
	Type            string `yaml:"type"`             // Storage backend type ("gcs" or "local").
	BucketName      string `yaml:"bucket_name"`      // Bucket holding all hub artifacts (GCS).
	CredentialsFile string `yaml:"credentials_file"` // Path to a service account key file (GCS).
	BaseDir         string `yaml:"base_dir"`         // Root directory for local file system storage.
}
