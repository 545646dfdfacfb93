// Package storage defines the common interface for object storage adapters.
// It abstracts path-addressed blob storage so that the core can write result
// artifacts to GCS in production and to the local file system in tests and
// self-hosted deployments.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned when the requested object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is key/path-addressed blob storage. Paths are hierarchical
// strings; the layout conventions used by the core live in paths.go.
type ObjectStore interface {
	// Upload writes data to the given path, overwriting any existing
	// object. contentType is the MIME type of the data.
	Upload(ctx context.Context, path string, data io.Reader, contentType string) error

	// Download opens the object at the given path. The returned ReadCloser
	// must be closed by the caller. Missing objects yield
	// ErrObjectNotFound.
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Exists reports whether an object exists at the given path.
	Exists(ctx context.Context, path string) (bool, error)

	// List returns the paths of all objects under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the object at the given path. Deleting a missing
	// object is not an error.
	Delete(ctx context.Context, path string) error

	// Close releases resources held by the adapter.
	Close() error
}
