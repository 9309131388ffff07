// Package db holds the relational models and queries backing the
// non-corpus entities of §3: users, profiles, accounts, api keys, rate
// limits, profile filters, and platform credentials. It uses
// database/sql with github.com/lib/pq as the driver, matching the
// pack's preference for hand-written SQL over an ORM.
package db

import "time"

// User is an external identity created by the authentication
// collaborator (out of scope here; rows are read, not minted).
type User struct {
	ID             string
	Email          *string
	Name           *string
	ExternalUserID string
}

// Platform enumerates the supported external platforms (§3 Account).
type Platform string

const (
	PlatformGitHub  Platform = "github"
	PlatformBluesky Platform = "bluesky"
	PlatformYouTube Platform = "youtube"
	PlatformDevpad  Platform = "devpad"
	PlatformReddit  Platform = "reddit"
	PlatformTwitter Platform = "twitter"
)

// ValidPlatform reports whether p is one of the enumerated platforms.
func ValidPlatform(p string) bool {
	switch Platform(p) {
	case PlatformGitHub, PlatformBluesky, PlatformYouTube, PlatformDevpad, PlatformReddit, PlatformTwitter:
		return true
	}
	return false
}

// Profile is a named view over a subset of a user's accounts.
type Profile struct {
	ID          string
	UserID      string
	Slug        string
	Name        string
	Description *string
	Theme       *string
	CreatedAt   time.Time
}

// Account is a credential + identity on one platform, bound to a profile.
type Account struct {
	ID                    string
	ProfileID             string
	Platform              Platform
	PlatformUserID        *string
	PlatformUsername      *string
	AccessTokenEncrypted  string
	RefreshTokenEncrypted *string
	TokenExpiresAt        *time.Time
	IsActive              bool
	LastFetchedAt         *time.Time
	CreatedAt             time.Time
}

// ApiKey authenticates a bearer request to a User.
type ApiKey struct {
	ID         string
	UserID     string
	KeyHash    string
	Name       string
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// RateLimit is the gate's authoritative per-account state (§4.2).
type RateLimit struct {
	AccountID           string
	Remaining           *int
	LimitTotal          *int
	ResetAt             *time.Time
	ConsecutiveFailures int
	LastFailureAt       *time.Time
	CircuitOpenUntil    *time.Time
}

// FilterType and FilterKey enumerate ProfileFilter's discriminators (§4.6).
type FilterType string
type FilterKey string

const (
	FilterInclude FilterType = "include"
	FilterExclude FilterType = "exclude"

	FilterKeyRepo      FilterKey = "repo"
	FilterKeySubreddit FilterKey = "subreddit"
	FilterKeyKeyword   FilterKey = "keyword"
)

// ProfileFilter narrows a profile's assembled timeline (§4.6).
type ProfileFilter struct {
	ID          string
	ProfileID   string
	AccountID   string
	FilterType  FilterType
	FilterKey   FilterKey
	FilterValue string
}

// PlatformCredentials are per-profile OAuth app credentials for a platform.
type PlatformCredentials struct {
	ID                    string
	ProfileID             string
	Platform              Platform
	ClientID              string
	ClientSecretEncrypted string
	RedirectURI           *string
	RedditUsername        *string
	IsVerified            bool
	Metadata              map[string]any
	CreatedAt             time.Time
}

// AccountSetting is one key-value row of an account's settings map
// (§6 GET/PUT /connections/:account_id/settings).
type AccountSetting struct {
	AccountID string
	Key       string
	Value     string
}
