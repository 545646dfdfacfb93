// Package docstore defines the common interface for the document database
// backing job records. It abstracts a Firestore-style collection/document
// store so that the core can run against Firestore in production and an
// in-memory implementation in tests.
package docstore

import (
	"context"
	"errors"
)

// ErrDocumentNotFound is returned when the requested document does not exist.
var ErrDocumentNotFound = errors.New("document not found")

// FieldFilter is one equality constraint on a document field.
type FieldFilter struct {
	Field string
	Value interface{}
}

// QuerySpec describes a query over one collection. Implementations must
// support at least two simultaneous field filters (batch_parent_id plus an
// optional status filter) without client-side full-collection scans.
type QuerySpec struct {
	Filters []FieldFilter
	// OrderBy names a field to order ascending by; empty means natural
	// order.
	OrderBy string
	// Limit caps the number of documents returned; zero means no limit.
	Limit int
}

// Document is one stored document with its id and raw fields.
type Document struct {
	ID     string
	Fields map[string]interface{}
}

// DocumentStore is a collection/document database with get, field-equality
// query and partial update. Updates are merges: fields absent from the
// update map are left untouched.
type DocumentStore interface {
	Create(ctx context.Context, collection, id string, fields map[string]interface{}) error
	Get(ctx context.Context, collection, id string) (map[string]interface{}, error)
	Update(ctx context.Context, collection, id string, fields map[string]interface{}) error
	Query(ctx context.Context, collection string, spec QuerySpec) ([]Document, error)
	Close() error
}
