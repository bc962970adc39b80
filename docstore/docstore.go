// Package docstore abstracts the remote document database: tenant-scoped
// collections of id-keyed documents with live full-snapshot
// subscriptions, create/update by id, and server-assigned timestamps.
package docstore

import "context"

// Document is one remote document: its generated id plus the raw field
// map as delivered by the backend.
type Document struct {
	ID     string
	Fields map[string]any
}

// Snapshot is one notification on a live subscription: either the full
// current document set of the collection (in delivery order), or an
// error. An error snapshot does not end the stream; the backend may
// recover and deliver further snapshots on the same subscription.
type Snapshot struct {
	Docs []Document
	Err  error
}

// ServerTimestamp is a sentinel field value replaced by the backend's
// write time. Adapters translate it to their native representation.
type serverTimestamp struct{}

var ServerTimestamp = serverTimestamp{}

// Backend is the full contract consumed by the data layer. All calls
// are non-blocking requests against the remote database; there is no
// multi-document atomicity.
type Backend interface {
	// Subscribe opens a live subscription on a collection path. The
	// returned channel carries full-collection snapshots until ctx is
	// cancelled, after which it is closed.
	Subscribe(ctx context.Context, path string) (<-chan Snapshot, error)

	// Create stores a new document and returns its generated id.
	Create(ctx context.Context, path string, fields map[string]any) (string, error)

	// Update performs a partial update: only the supplied fields are
	// written, all others are left untouched server-side. Updating an
	// id that does not exist fails; it never creates a document.
	Update(ctx context.Context, path string, id string, fields map[string]any) error

	// Get fetches a single document by id. Missing documents are
	// reported as an error by the adapter.
	Get(ctx context.Context, path string, id string) (Document, error)
}
