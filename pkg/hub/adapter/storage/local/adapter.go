// Package local provides a local file system implementation of the object
// store, used by tests and self-hosted deployments.
package local

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	storageAdapter "github.com/bduoto/omtx-hub/pkg/hub/adapter/storage"
	storageConfig "github.com/bduoto/omtx-hub/pkg/hub/adapter/storage/config"
	logger "github.com/bduoto/omtx-hub/pkg/hub/support/util/logger"
)

// ProviderType is the type identifier of this adapter in configuration.
const ProviderType = "local"

func init() {
	storageAdapter.RegisterStoreFactory(ProviderType, func(_ context.Context, cfg storageConfig.StorageConfig) (storageAdapter.ObjectStore, error) {
		return NewLocalStore(cfg)
	})
}

// localStore implements storage.ObjectStore on top of a base directory.
type localStore struct {
	baseDir string
}

var _ storageAdapter.ObjectStore = (*localStore)(nil)

// NewLocalStore creates an object store rooted at cfg.BaseDir, creating the
// directory if necessary.
func NewLocalStore(cfg storageConfig.StorageConfig) (storageAdapter.ObjectStore, error) {
	if cfg.BaseDir == "" {
		return nil, fmt.Errorf("local object store: base_dir must be specified in configuration")
	}
	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("local object store: failed to stat base_dir '%s': %w", cfg.BaseDir, err)
		}
		if err := os.MkdirAll(cfg.BaseDir, 0755); err != nil {
			return nil, fmt.Errorf("local object store: failed to create base_dir '%s': %w", cfg.BaseDir, err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("local object store: base_dir '%s' is not a directory", cfg.BaseDir)
	}

	return &localStore{baseDir: cfg.BaseDir}, nil
}

func (s *localStore) Upload(ctx context.Context, path string, data io.Reader, contentType string) error {
	fullPath, err := s.resolvePath(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory for '%s': %w", fullPath, err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file '%s': %w", fullPath, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, data); err != nil {
		return fmt.Errorf("failed to write data to file '%s': %w", fullPath, err)
	}
	logger.Debugf("Uploaded object '%s' (local store).", path)
	return nil
}

func (s *localStore) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	fullPath, err := s.resolvePath(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storageAdapter.ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to open file '%s': %w", fullPath, err)
	}
	return file, nil
}

func (s *localStore) Exists(ctx context.Context, path string) (bool, error) {
	fullPath, err := s.resolvePath(path)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

func (s *localStore) List(ctx context.Context, prefix string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(s.baseDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.baseDir, p)
		if err != nil {
			return err
		}
		rel = strings.ReplaceAll(rel, "\\", "/")
		if strings.HasPrefix(rel, prefix) {
			paths = append(paths, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects under prefix '%s': %w", prefix, err)
	}
	return paths, nil
}

func (s *localStore) Delete(ctx context.Context, path string) error {
	fullPath, err := s.resolvePath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			logger.Warnf("Attempted to delete non-existent object '%s' (local store).", path)
			return nil
		}
		return fmt.Errorf("failed to delete file '%s': %w", fullPath, err)
	}
	return nil
}

func (s *localStore) Close() error {
	return nil
}

// resolvePath joins the object path onto the base directory and rejects
// paths that would escape it.
func (s *localStore) resolvePath(path string) (string, error) {
	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(path))

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base_dir '%s': %w", s.baseDir, err)
	}
	absFull, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path '%s': %w", fullPath, err)
	}
	if !strings.HasPrefix(absFull, absBase) {
		return "", fmt.Errorf("object path '%s' escapes the storage root", path)
	}
	return fullPath, nil
}
