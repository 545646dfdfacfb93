// Package firestore provides the Cloud Firestore implementation of the
// DocumentStore interface backing job records in production.
package firestore

import (
	"context"
	"errors"
	"fmt"

	cloudfirestore "cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bduoto/omtx-hub/pkg/hub/adapter/docstore"
	docstoreConfig "github.com/bduoto/omtx-hub/pkg/hub/adapter/docstore/config"
	logger "github.com/bduoto/omtx-hub/pkg/hub/support/util/logger"
)

// ProviderType is the type identifier of this adapter in configuration.
const ProviderType = "firestore"

func init() {
	docstore.RegisterStoreFactory(ProviderType, NewFirestoreStore)
}

type firestoreStore struct {
	client *cloudfirestore.Client
}

var _ docstore.DocumentStore = (*firestoreStore)(nil)

// NewFirestoreStore creates a DocumentStore backed by Cloud Firestore. When
// cfg.CredentialsFile is empty, application default credentials apply.
func NewFirestoreStore(ctx context.Context, cfg docstoreConfig.DocstoreConfig) (docstore.DocumentStore, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("firestore document store: project_id must be specified in configuration")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := cloudfirestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore document store: failed to create client: %w", err)
	}

	logger.Infof("Firestore document store initialized for project '%s'.", cfg.ProjectID)
	return &firestoreStore{client: client}, nil
}

func (s *firestoreStore) Create(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	_, err := s.client.Collection(collection).Doc(id).Create(ctx, fields)
	if err != nil {
		return fmt.Errorf("failed to create document '%s' in collection '%s': %w", id, collection, err)
	}
	return nil
}

func (s *firestoreStore) Get(ctx context.Context, collection, id string) (map[string]interface{}, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, docstore.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document '%s' from collection '%s': %w", id, collection, err)
	}
	return snap.Data(), nil
}

func (s *firestoreStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	// Doc.Update patches only the listed fields and fails on a missing
	// document, unlike Set with MergeAll which would upsert. FieldPath keeps
	// keys containing dots from being read as nested paths.
	updates := make([]cloudfirestore.Update, 0, len(fields))
	for key, value := range fields {
		updates = append(updates, cloudfirestore.Update{
			FieldPath: cloudfirestore.FieldPath{key},
			Value:     value,
		})
	}
	_, err := s.client.Collection(collection).Doc(id).Update(ctx, updates)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return docstore.ErrDocumentNotFound
		}
		return fmt.Errorf("failed to update document '%s' in collection '%s': %w", id, collection, err)
	}
	return nil
}

func (s *firestoreStore) Query(ctx context.Context, collection string, spec docstore.QuerySpec) ([]docstore.Document, error) {
	q := s.client.Collection(collection).Query
	for _, f := range spec.Filters {
		q = q.Where(f.Field, "==", f.Value)
	}
	if spec.OrderBy != "" {
		q = q.OrderBy(spec.OrderBy, cloudfirestore.Asc)
	}
	if spec.Limit > 0 {
		q = q.Limit(spec.Limit)
	}

	var out []docstore.Document
	it := q.Documents(ctx)
	defer it.Stop()
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query collection '%s': %w", collection, err)
		}
		out = append(out, docstore.Document{ID: snap.Ref.ID, Fields: snap.Data()})
	}
	return out, nil
}

func (s *firestoreStore) Close() error {
	return s.client.Close()
}
