// Package memory provides an in-memory DocumentStore implementation used by
// tests and local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bduoto/omtx-hub/pkg/hub/adapter/docstore"
	docstoreConfig "github.com/bduoto/omtx-hub/pkg/hub/adapter/docstore/config"
)

// ProviderType is the type identifier of this adapter in configuration.
const ProviderType = "memory"

func init() {
	docstore.RegisterStoreFactory(ProviderType, func(_ context.Context, _ docstoreConfig.DocstoreConfig) (docstore.DocumentStore, error) {
		return NewMemoryStore(), nil
	})
}

// MemoryStore is an in-memory implementation of docstore.DocumentStore.
// All operations copy field maps on the way in and out so callers can never
// mutate stored state behind the store's back.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]interface{}
}

var _ docstore.DocumentStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]map[string]interface{}),
	}
}

func (s *MemoryStore) Create(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]map[string]interface{})
		s.collections[collection] = coll
	}
	if _, exists := coll[id]; exists {
		return fmt.Errorf("document '%s' already exists in collection '%s'", id, collection)
	}
	coll[id] = copyFields(fields)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, docstore.ErrDocumentNotFound
	}
	return copyFields(doc), nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return docstore.ErrDocumentNotFound
	}
	// Merge semantics: untouched fields survive the update.
	for k, v := range fields {
		doc[k] = v
	}
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, collection string, spec docstore.QuerySpec) ([]docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []docstore.Document
	for id, doc := range s.collections[collection] {
		if matchesFilters(doc, spec.Filters) {
			out = append(out, docstore.Document{ID: id, Fields: copyFields(doc)})
		}
	}

	if spec.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			return lessFieldValue(out[i].Fields[spec.OrderBy], out[j].Fields[spec.OrderBy])
		})
	}
	if spec.Limit > 0 && len(out) > spec.Limit {
		out = out[:spec.Limit]
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func matchesFilters(doc map[string]interface{}, filters []docstore.FieldFilter) bool {
	for _, f := range filters {
		val, ok := doc[f.Field]
		if !ok {
			return false
		}
		if fmt.Sprintf("%v", val) != fmt.Sprintf("%v", f.Value) {
			return false
		}
	}
	return true
}

// lessFieldValue compares two field values for ordering, treating numeric
// values numerically and everything else lexically.
func lessFieldValue(a, b interface{}) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af < bf
	}
	return fmt.Sprintf("%v", a) < fmt.Sprintf("%v", b)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func copyFields(fields map[string]interface{}) map[string]interface{} {
	cp := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if nested, ok := v.(map[string]interface{}); ok {
			cp[k] = copyFields(nested)
			continue
		}
		cp[k] = v
	}
	return cp
}
