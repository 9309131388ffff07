package db

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"
)

// ApiKeyRepo is the relational store for ApiKey rows.
type ApiKeyRepo struct {
	db *sql.DB
}

func NewApiKeyRepo(db *sql.DB) *ApiKeyRepo { return &ApiKeyRepo{db: db} }

// HashKey hashes an opaque bearer secret the way keys are stored and
// looked up — never the plaintext secret itself (§3 ApiKey).
func HashKey(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// LookupByPlaintext resolves a bearer token to its owning user, touching
// last_used_at on success. Returns ErrNotFound for an unknown key.
func (r *ApiKeyRepo) LookupByPlaintext(ctx context.Context, secret string) (ApiKey, error) {
	hash := HashKey(secret)
	var k ApiKey
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, key_hash, name, last_used_at, created_at FROM api_keys WHERE key_hash = $1`,
		hash,
	).Scan(&k.ID, &k.UserID, &k.KeyHash, &k.Name, &k.LastUsedAt, &k.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ApiKey{}, ErrNotFound
	}
	if err != nil {
		return ApiKey{}, err
	}
	now := time.Now().UTC()
	_, _ = r.db.ExecContext(ctx, `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`, k.ID, now)
	k.LastUsedAt = &now
	return k, nil
}
