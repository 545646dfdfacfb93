// Package gcs provides the Google Cloud Storage implementation of the object
// store, holding all hub artifacts in a single bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	gcstorage "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	storageAdapter "github.com/bduoto/omtx-hub/pkg/hub/adapter/storage"
	storageConfig "github.com/bduoto/omtx-hub/pkg/hub/adapter/storage/config"
	logger "github.com/bduoto/omtx-hub/pkg/hub/support/util/logger"
)

// ProviderType is the type identifier of this adapter in configuration.
const ProviderType = "gcs"

func init() {
	storageAdapter.RegisterStoreFactory(ProviderType, NewGCSStore)
}

type gcsStore struct {
	client *gcstorage.Client
	bucket string
}

var _ storageAdapter.ObjectStore = (*gcsStore)(nil)

// NewGCSStore creates an object store backed by the configured GCS bucket.
// When cfg.CredentialsFile is empty, application default credentials apply.
func NewGCSStore(ctx context.Context, cfg storageConfig.StorageConfig) (storageAdapter.ObjectStore, error) {
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("gcs object store: bucket_name must be specified in configuration")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := gcstorage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs object store: failed to create client: %w", err)
	}

	logger.Infof("GCS object store initialized for bucket '%s'.", cfg.BucketName)
	return &gcsStore{client: client, bucket: cfg.BucketName}, nil
}

func (s *gcsStore) Upload(ctx context.Context, path string, data io.Reader, contentType string) error {
	w := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write object '%s' to bucket '%s': %w", path, s.bucket, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize object '%s' in bucket '%s': %w", path, s.bucket, err)
	}
	logger.Debugf("Uploaded object '%s' to bucket '%s'.", path, s.bucket)
	return nil
}

func (s *gcsStore) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(s.bucket).Object(path).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcstorage.ErrObjectNotExist) {
			return nil, storageAdapter.ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to open object '%s' in bucket '%s': %w", path, s.bucket, err)
	}
	return r, nil
}

func (s *gcsStore) Exists(ctx context.Context, path string) (bool, error) {
	_, err := s.client.Bucket(s.bucket).Object(path).Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcstorage.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object '%s' in bucket '%s': %w", path, s.bucket, err)
	}
	return true, nil
}

func (s *gcsStore) List(ctx context.Context, prefix string) ([]string, error) {
	var paths []string
	it := s.client.Bucket(s.bucket).Objects(ctx, &gcstorage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects under prefix '%s' in bucket '%s': %w", prefix, s.bucket, err)
		}
		paths = append(paths, attrs.Name)
	}
	return paths, nil
}

func (s *gcsStore) Delete(ctx context.Context, path string) error {
	err := s.client.Bucket(s.bucket).Object(path).Delete(ctx)
	if err != nil {
		if errors.Is(err, gcstorage.ErrObjectNotExist) {
			return nil
		}
		return fmt.Errorf("failed to delete object '%s' in bucket '%s': %w", path, s.bucket, err)
	}
	return nil
}

func (s *gcsStore) Close() error {
	return s.client.Close()
}
