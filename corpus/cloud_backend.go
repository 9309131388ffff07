package corpus

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/lib/pq"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// CloudBackend binds the Backend interface to a Postgres relational index
// (github.com/lib/pq) and an S3-compatible object store
// (github.com/minio/minio-go/v7), the production pairing described in §4.1.
type CloudBackend struct {
	db     *sql.DB
	objs   *minio.Client
	bucket string
}

// NewCloudBackend wires an already-connected *sql.DB and *minio.Client.
// The caller is responsible for running schema migrations (out of CORE
// scope per §1) and ensuring the bucket exists.
func NewCloudBackend(db *sql.DB, objs *minio.Client, bucket string) *CloudBackend {
	return &CloudBackend{db: db, objs: objs, bucket: bucket}
}

// Schema is the relational index DDL this backend assumes exists.
const Schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	store_id     TEXT NOT NULL,
	version      TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	tags         TEXT[],
	metadata     JSONB,
	PRIMARY KEY (store_id, version)
);
CREATE INDEX IF NOT EXISTS snapshots_store_id_created_at_idx ON snapshots (store_id, created_at DESC);
CREATE TABLE IF NOT EXISTS snapshot_parents (
	store_id        TEXT NOT NULL,
	version         TEXT NOT NULL,
	parent_store_id TEXT NOT NULL,
	parent_version  TEXT NOT NULL,
	role            TEXT NOT NULL,
	FOREIGN KEY (store_id, version) REFERENCES snapshots (store_id, version) ON DELETE CASCADE,
	FOREIGN KEY (parent_store_id, parent_version) REFERENCES snapshots (store_id, version)
);
`

func (b *CloudBackend) PutBlob(ctx context.Context, key string, data []byte) error {
	_, err := b.objs.PutObject(ctx, b.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}

func (b *CloudBackend) GetBlob(ctx context.Context, key string) ([]byte, error) {
	obj, err := b.objs.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (b *CloudBackend) DeleteBlob(ctx context.Context, key string) error {
	return b.objs.RemoveObject(ctx, b.bucket, key, minio.RemoveObjectOptions{})
}

func (b *CloudBackend) HeadBlob(ctx context.Context, key string) (bool, error) {
	_, err := b.objs.StatObject(ctx, b.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.Code == "NotFound" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (b *CloudBackend) ListBlobs(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range b.objs.ListObjects(ctx, b.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

func (b *CloudBackend) InsertSnapshot(ctx context.Context, meta SnapshotMeta) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	metaJSON, err := json.Marshal(meta.Metadata)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (store_id, version, content_hash, created_at, tags, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		meta.StoreID, meta.Version, meta.ContentHash, meta.CreatedAt, pq.Array(meta.Tags), metaJSON,
	); err != nil {
		return err
	}

	for _, p := range meta.Parents {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM snapshots WHERE store_id = $1 AND version = $2)`,
			p.StoreID, p.Version,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return &ParentNotFoundError{StoreID: p.StoreID, Version: p.Version}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO snapshot_parents (store_id, version, parent_store_id, parent_version, role)
			 VALUES ($1, $2, $3, $4, $5)`,
			meta.StoreID, meta.Version, p.StoreID, p.Version, p.Role,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (b *CloudBackend) GetSnapshot(ctx context.Context, storeID, version string) (SnapshotMeta, error) {
	return b.scanOne(ctx, `SELECT store_id, version, content_hash, created_at, tags, metadata
		FROM snapshots WHERE store_id = $1 AND version = $2`, storeID, version)
}

func (b *CloudBackend) GetLatestSnapshot(ctx context.Context, storeID string) (SnapshotMeta, error) {
	return b.scanOne(ctx, `SELECT store_id, version, content_hash, created_at, tags, metadata
		FROM snapshots WHERE store_id = $1 ORDER BY created_at DESC, version DESC LIMIT 1`, storeID)
}

func (b *CloudBackend) scanOne(ctx context.Context, query string, args ...any) (SnapshotMeta, error) {
	row := b.db.QueryRowContext(ctx, query, args...)
	var meta SnapshotMeta
	var tags pq.StringArray
	var metaJSON []byte
	if err := row.Scan(&meta.StoreID, &meta.Version, &meta.ContentHash, &meta.CreatedAt, &tags, &metaJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SnapshotMeta{}, ErrNotFound
		}
		return SnapshotMeta{}, err
	}
	meta.Tags = []string(tags)
	if len(metaJSON) > 0 {
		_ = json.Unmarshal(metaJSON, &meta.Metadata)
	}
	parents, err := b.loadParents(ctx, meta.StoreID, meta.Version)
	if err != nil {
		return SnapshotMeta{}, err
	}
	meta.Parents = parents
	return meta, nil
}

func (b *CloudBackend) loadParents(ctx context.Context, storeID, version string) ([]ParentRef, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT parent_store_id, parent_version, role FROM snapshot_parents WHERE store_id = $1 AND version = $2`,
		storeID, version)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var parents []ParentRef
	for rows.Next() {
		var p ParentRef
		if err := rows.Scan(&p.StoreID, &p.Version, &p.Role); err != nil {
			return nil, err
		}
		parents = append(parents, p)
	}
	return parents, rows.Err()
}

func (b *CloudBackend) ListSnapshots(ctx context.Context, storeID string) ([]SnapshotMeta, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT store_id, version, content_hash, created_at, tags, metadata
		 FROM snapshots WHERE store_id = $1 ORDER BY created_at DESC, version DESC`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metas []SnapshotMeta
	for rows.Next() {
		var meta SnapshotMeta
		var tags pq.StringArray
		var metaJSON []byte
		if err := rows.Scan(&meta.StoreID, &meta.Version, &meta.ContentHash, &meta.CreatedAt, &tags, &metaJSON); err != nil {
			return nil, err
		}
		meta.Tags = []string(tags)
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &meta.Metadata)
		}
		metas = append(metas, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range metas {
		parents, err := b.loadParents(ctx, metas[i].StoreID, metas[i].Version)
		if err != nil {
			return nil, err
		}
		metas[i].Parents = parents
	}
	return metas, nil
}

func (b *CloudBackend) DeleteSnapshot(ctx context.Context, storeID, version string) error {
	_, err := b.db.ExecContext(ctx, `DELETE FROM snapshots WHERE store_id = $1 AND version = $2`, storeID, version)
	return err
}

func (b *CloudBackend) ListStoreIDsWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT DISTINCT store_id FROM snapshots WHERE store_id LIKE $1`, escapeLikePrefix(prefix)+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func escapeLikePrefix(prefix string) string {
	r := strings.NewReplacer("\\", "\\\\", "%", "\\%", "_", "\\_")
	return r.Replace(prefix)
}

// NewMinioClient is a thin convenience constructor kept next to CloudBackend
// so callers don't need a separate import of the minio package just to wire
// credentials together.
func NewMinioClient(endpoint, accessKey, secretKey string, useSSL bool) (*minio.Client, error) {
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
}
