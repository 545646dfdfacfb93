package config

// DocstoreConfig holds configuration for the document database backend.
type DocstoreConfig struct {
	Type            string `yaml:"type"`             // Document store type ("firestore" or "memory").
	ProjectID       string `yaml:"project_id"`       // GCP project id (Firestore).
	CredentialsFile string `yaml:"credentials_file"` // Path to a service account key file (Firestore).
}
