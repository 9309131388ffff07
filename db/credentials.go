package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/f0rbit/timeline/apierr"
)

// CredentialsRepo is the relational store for PlatformCredentials rows.
type CredentialsRepo struct {
	db *sql.DB
}

func NewCredentialsRepo(db *sql.DB) *CredentialsRepo { return &CredentialsRepo{db: db} }

// CreateCredentialsInput mirrors POST /credentials/:platform. client_secret
// is expected already-encrypted by the caller.
type CreateCredentialsInput struct {
	ProfileID             string
	Platform              Platform
	ClientID              string
	ClientSecretEncrypted string
	RedirectURI           *string
	RedditUsername        *string
	Metadata              map[string]any
}

// ValidateReddit enforces the Reddit-specific validation named in §6:
// reddit_username required, client_id length >= 14, client_secret length >= 20.
// clientSecretPlaintextLen is the length of the secret before encryption.
func ValidateReddit(in CreateCredentialsInput, clientSecretPlaintextLen int) error {
	if in.Platform != PlatformReddit {
		return nil
	}
	if in.RedditUsername == nil || *in.RedditUsername == "" {
		return apierr.MissingParam("reddit_username")
	}
	if len(in.ClientID) < 14 {
		return apierr.InvalidFormat("client_id must be at least 14 characters for reddit")
	}
	if clientSecretPlaintextLen < 20 {
		return apierr.InvalidFormat("client_secret must be at least 20 characters for reddit")
	}
	return nil
}

func (r *CredentialsRepo) Create(ctx context.Context, in CreateCredentialsInput) (PlatformCredentials, error) {
	c := PlatformCredentials{
		ID:                    uuid.NewString(),
		ProfileID:             in.ProfileID,
		Platform:              in.Platform,
		ClientID:              in.ClientID,
		ClientSecretEncrypted: in.ClientSecretEncrypted,
		RedirectURI:           in.RedirectURI,
		RedditUsername:        in.RedditUsername,
		IsVerified:            false,
		Metadata:              in.Metadata,
		CreatedAt:             time.Now().UTC(),
	}
	metaJSON, err := json.Marshal(c.Metadata)
	if err != nil {
		return PlatformCredentials{}, err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO platform_credentials
			(id, profile_id, platform, client_id, client_secret_encrypted, redirect_uri, reddit_username, is_verified, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.ProfileID, c.Platform, c.ClientID, c.ClientSecretEncrypted, c.RedirectURI, c.RedditUsername, c.IsVerified, metaJSON, c.CreatedAt,
	)
	if err != nil {
		return PlatformCredentials{}, err
	}
	return c, nil
}

func (r *CredentialsRepo) GetByPlatform(ctx context.Context, profileID string, platform Platform) (PlatformCredentials, error) {
	var c PlatformCredentials
	var metaJSON []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT id, profile_id, platform, client_id, client_secret_encrypted, redirect_uri, reddit_username, is_verified, metadata, created_at
		 FROM platform_credentials WHERE profile_id = $1 AND platform = $2`, profileID, platform,
	).Scan(&c.ID, &c.ProfileID, &c.Platform, &c.ClientID, &c.ClientSecretEncrypted, &c.RedirectURI, &c.RedditUsername, &c.IsVerified, &metaJSON, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return PlatformCredentials{}, ErrNotFound
	}
	if err != nil {
		return PlatformCredentials{}, err
	}
	if len(metaJSON) > 0 {
		_ = json.Unmarshal(metaJSON, &c.Metadata)
	}
	return c, nil
}

func (r *CredentialsRepo) Delete(ctx context.Context, profileID string, platform Platform) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM platform_credentials WHERE profile_id = $1 AND platform = $2`, profileID, platform)
	return err
}
