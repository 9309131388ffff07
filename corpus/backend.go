// Package corpus implements the content-addressed snapshot store: an
// append-only versioned object store keyed by logical store id, with
// content hashing, lineage, and a pluggable Backend.
package corpus

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Backend/Store lookups that find nothing.
var ErrNotFound = errors.New("corpus: not found")

// ParentRef is a directed edge from a snapshot to a snapshot it was derived
// from (§3 "Parent references").
type ParentRef struct {
	StoreID string
	Version string
	Role    string
}

// SnapshotMeta is one row of the relational index (§3 "Snapshot").
type SnapshotMeta struct {
	StoreID     string
	Version     string
	ContentHash string
	CreatedAt   time.Time
	Tags        []string
	Metadata    map[string]string
	Parents     []ParentRef
}

// PutOptions configures a Store.Put call.
type PutOptions struct {
	Tags     []string
	Metadata map[string]string
	Parents  []ParentRef
}

// Backend is a key-value blob store plus a relational index over snapshot
// metadata (§4.1). Two implementations are provided: MemoryBackend for
// tests/dev, and a cloud binding (Postgres index + S3-compatible blobs).
type Backend interface {
	// PutBlob writes raw bytes under key, overwriting any existing blob.
	PutBlob(ctx context.Context, key string, data []byte) error
	// GetBlob reads raw bytes for key, returning ErrNotFound if absent.
	GetBlob(ctx context.Context, key string) ([]byte, error)
	// DeleteBlob removes a blob. Deleting an absent key is not an error.
	DeleteBlob(ctx context.Context, key string) error
	// HeadBlob reports whether a blob exists.
	HeadBlob(ctx context.Context, key string) (bool, error)
	// ListBlobs lists keys under a prefix.
	ListBlobs(ctx context.Context, prefix string) ([]string, error)

	// InsertSnapshot atomically inserts an index row. Every parent must
	// already exist (foreign-key enforced) or the call fails and nothing
	// is written.
	InsertSnapshot(ctx context.Context, meta SnapshotMeta) error
	// GetSnapshot looks up one row by (store_id, version).
	GetSnapshot(ctx context.Context, storeID, version string) (SnapshotMeta, error)
	// GetLatestSnapshot returns the row with the greatest created_at for
	// storeID, ties broken by version lexicographically descending.
	GetLatestSnapshot(ctx context.Context, storeID string) (SnapshotMeta, error)
	// ListSnapshots returns every row for storeID, newest-first.
	ListSnapshots(ctx context.Context, storeID string) ([]SnapshotMeta, error)
	// DeleteSnapshot removes one row and its parent edges.
	DeleteSnapshot(ctx context.Context, storeID, version string) error
	// ListStoreIDsWithPrefix lists every store id that has the given
	// prefix and at least one snapshot row; it deletes nothing. Connection
	// deletion (§6 DELETE /connections) uses it to find the stores to wipe.
	ListStoreIDsWithPrefix(ctx context.Context, prefix string) ([]string, error)
}
