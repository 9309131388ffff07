package corpus

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store is a content-addressed, versioned object store for values of type T,
// combining a Backend (blob + relational index) with a Codec (encode/decode)
// per §4.1. Every Put is content-hashed and assigned a fresh version; Get and
// GetLatest return both the decoded value and its snapshot metadata.
type Store[T any] struct {
	storeID string
	backend Backend
	codec   Codec[T]
}

// NewStore binds a storeID (see the storeid package for its grammar) to a
// Backend and Codec.
func NewStore[T any](storeID string, backend Backend, codec Codec[T]) *Store[T] {
	return &Store[T]{storeID: storeID, backend: backend, codec: codec}
}

func blobKey(storeID, version string) string {
	return storeID + "/" + version
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Put encodes value, computes its content hash, writes the blob, and inserts
// an index row with a freshly generated version. If opts.Parents is present,
// every parent (store_id, version) must already exist or the whole call
// fails atomically without writing anything (§3 "Parent references").
func (s *Store[T]) Put(ctx context.Context, value T, opts PutOptions) (SnapshotMeta, error) {
	data, err := s.codec.Encode(value)
	if err != nil {
		return SnapshotMeta{}, fmt.Errorf("corpus: encode: %w", err)
	}

	version := uuid.NewString()
	meta := SnapshotMeta{
		StoreID:     s.storeID,
		Version:     version,
		ContentHash: contentHash(data),
		CreatedAt:   time.Now().UTC(),
		Tags:        opts.Tags,
		Metadata:    opts.Metadata,
		Parents:     opts.Parents,
	}

	if err := s.backend.PutBlob(ctx, blobKey(s.storeID, version), data); err != nil {
		return SnapshotMeta{}, fmt.Errorf("corpus: put blob: %w", err)
	}
	if err := s.backend.InsertSnapshot(ctx, meta); err != nil {
		_ = s.backend.DeleteBlob(ctx, blobKey(s.storeID, version))
		return SnapshotMeta{}, err
	}
	return meta, nil
}

// Get decodes the value stored at a specific version.
func (s *Store[T]) Get(ctx context.Context, version string) (T, SnapshotMeta, error) {
	var zero T
	meta, err := s.backend.GetSnapshot(ctx, s.storeID, version)
	if err != nil {
		return zero, SnapshotMeta{}, err
	}
	data, err := s.backend.GetBlob(ctx, blobKey(s.storeID, version))
	if err != nil {
		return zero, SnapshotMeta{}, err
	}
	value, err := s.codec.Decode(data)
	if err != nil {
		return zero, SnapshotMeta{}, fmt.Errorf("corpus: decode: %w", err)
	}
	return value, meta, nil
}

// GetLatest returns the most recent snapshot for this store id: the row
// with the greatest created_at, ties broken by version lexicographically.
func (s *Store[T]) GetLatest(ctx context.Context) (T, SnapshotMeta, error) {
	var zero T
	meta, err := s.backend.GetLatestSnapshot(ctx, s.storeID)
	if err != nil {
		return zero, SnapshotMeta{}, err
	}
	data, err := s.backend.GetBlob(ctx, blobKey(s.storeID, meta.Version))
	if err != nil {
		return zero, SnapshotMeta{}, err
	}
	value, err := s.codec.Decode(data)
	if err != nil {
		return zero, SnapshotMeta{}, fmt.Errorf("corpus: decode: %w", err)
	}
	return value, meta, nil
}

// List returns snapshot metadata for this store id, newest first. Callers
// who only need the most recent few should prefer GetLatest; List is for
// history/lineage inspection (e.g. the refresh audit trail).
func (s *Store[T]) List(ctx context.Context) ([]SnapshotMeta, error) {
	return s.backend.ListSnapshots(ctx, s.storeID)
}

// Delete removes one version. Deleting a version with children does not
// cascade; callers that need cascading deletes use the Backend's
// ListStoreIDsWithPrefix directly (§6 DELETE /connections).
func (s *Store[T]) Delete(ctx context.Context, version string) error {
	if err := s.backend.DeleteBlob(ctx, blobKey(s.storeID, version)); err != nil {
		return err
	}
	return s.backend.DeleteSnapshot(ctx, s.storeID, version)
}

// StoreID returns the logical store id this Store is bound to.
func (s *Store[T]) StoreID() string {
	return s.storeID
}
