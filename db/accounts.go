package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// AccountRepo is the relational store for Account rows.
type AccountRepo struct {
	db *sql.DB
}

func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{db: db} }

// CreateAccountInput mirrors the POST /connections request body (§6);
// tokens are expected already-encrypted by the caller.
type CreateAccountInput struct {
	ProfileID             string
	Platform              Platform
	PlatformUserID        *string
	PlatformUsername      *string
	AccessTokenEncrypted  string
	RefreshTokenEncrypted *string
	TokenExpiresAt        *time.Time
}

func (r *AccountRepo) Create(ctx context.Context, in CreateAccountInput) (Account, error) {
	a := Account{
		ID:                    uuid.NewString(),
		ProfileID:             in.ProfileID,
		Platform:              in.Platform,
		PlatformUserID:        in.PlatformUserID,
		PlatformUsername:      in.PlatformUsername,
		AccessTokenEncrypted:  in.AccessTokenEncrypted,
		RefreshTokenEncrypted: in.RefreshTokenEncrypted,
		TokenExpiresAt:        in.TokenExpiresAt,
		IsActive:              true,
		CreatedAt:             time.Now().UTC(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, profile_id, platform, platform_user_id, platform_username,
			access_token_encrypted, refresh_token_encrypted, token_expires_at, is_active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.ProfileID, a.Platform, a.PlatformUserID, a.PlatformUsername,
		a.AccessTokenEncrypted, a.RefreshTokenEncrypted, a.TokenExpiresAt, a.IsActive, a.CreatedAt,
	)
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

func (r *AccountRepo) Get(ctx context.Context, id string) (Account, error) {
	return r.scanOne(ctx, `SELECT id, profile_id, platform, platform_user_id, platform_username,
		access_token_encrypted, refresh_token_encrypted, token_expires_at, is_active, last_fetched_at, created_at
		FROM accounts WHERE id = $1`, id)
}

func (r *AccountRepo) scanOne(ctx context.Context, query string, args ...any) (Account, error) {
	var a Account
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&a.ID, &a.ProfileID, &a.Platform, &a.PlatformUserID, &a.PlatformUsername,
		&a.AccessTokenEncrypted, &a.RefreshTokenEncrypted, &a.TokenExpiresAt, &a.IsActive, &a.LastFetchedAt, &a.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	return a, err
}

func (r *AccountRepo) ListByProfile(ctx context.Context, profileID string) ([]Account, error) {
	return r.list(ctx, `SELECT id, profile_id, platform, platform_user_id, platform_username,
		access_token_encrypted, refresh_token_encrypted, token_expires_at, is_active, last_fetched_at, created_at
		FROM accounts WHERE profile_id = $1 ORDER BY created_at ASC`, profileID)
}

func (r *AccountRepo) ListActiveByProfile(ctx context.Context, profileID string) ([]Account, error) {
	return r.list(ctx, `SELECT id, profile_id, platform, platform_user_id, platform_username,
		access_token_encrypted, refresh_token_encrypted, token_expires_at, is_active, last_fetched_at, created_at
		FROM accounts WHERE profile_id = $1 AND is_active = true ORDER BY created_at ASC`, profileID)
}

// ListActiveByUser returns every active account across all of a user's
// profiles, joining through profiles (§4.7 "reassemble the timeline once
// over all accounts, not only inline ones").
func (r *AccountRepo) ListActiveByUser(ctx context.Context, userID string) ([]Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT a.id, a.profile_id, a.platform, a.platform_user_id, a.platform_username,
		a.access_token_encrypted, a.refresh_token_encrypted, a.token_expires_at, a.is_active, a.last_fetched_at, a.created_at
		FROM accounts a JOIN profiles p ON p.id = a.profile_id
		WHERE p.user_id = $1 AND a.is_active = true ORDER BY a.created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.ProfileID, &a.Platform, &a.PlatformUserID, &a.PlatformUsername,
			&a.AccessTokenEncrypted, &a.RefreshTokenEncrypted, &a.TokenExpiresAt, &a.IsActive, &a.LastFetchedAt, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListAllActivePaged supports the §4.8 scheduled sweep, which enumerates
// all active accounts across all users in pages.
func (r *AccountRepo) ListAllActivePaged(ctx context.Context, afterID string, limit int) ([]Account, error) {
	return r.list(ctx, `SELECT id, profile_id, platform, platform_user_id, platform_username,
		access_token_encrypted, refresh_token_encrypted, token_expires_at, is_active, last_fetched_at, created_at
		FROM accounts WHERE is_active = true AND id > $1 ORDER BY id ASC LIMIT $2`, afterID, limit)
}

func (r *AccountRepo) list(ctx context.Context, query string, args ...any) ([]Account, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.ProfileID, &a.Platform, &a.PlatformUserID, &a.PlatformUsername,
			&a.AccessTokenEncrypted, &a.RefreshTokenEncrypted, &a.TokenExpiresAt, &a.IsActive, &a.LastFetchedAt, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AccountRepo) SetActive(ctx context.Context, id string, isActive bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE accounts SET is_active = $2 WHERE id = $1`, id, isActive)
	return err
}

func (r *AccountRepo) TouchLastFetched(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE accounts SET last_fetched_at = $2 WHERE id = $1`, id, at)
	return err
}

func (r *AccountRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	return err
}

// OwnerUserID resolves the user_id owning an account, by joining through
// its profile. Used by ownership checks (§6).
func (r *AccountRepo) OwnerUserID(ctx context.Context, accountID string) (string, error) {
	var userID string
	err := r.db.QueryRowContext(ctx,
		`SELECT p.user_id FROM accounts a JOIN profiles p ON p.id = a.profile_id WHERE a.id = $1`,
		accountID,
	).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return userID, err
}
