// Package provider implements one fetcher per external platform (§4.2).
// Every provider exposes a single fetch(token) method returning a
// platform-shaped result or a typed ProviderError; the gate and ingest
// packages are the only callers.
package provider

import (
	"context"
	"fmt"
)

// Platform identifies which external service a Provider talks to.
type Platform string

const (
	GitHub  Platform = "github"
	Reddit  Platform = "reddit"
	Twitter Platform = "twitter"
	Bluesky Platform = "bluesky"
	YouTube Platform = "youtube"
	Devpad  Platform = "devpad"
)

// Provider fetches one account's latest activity from a platform.
type Provider interface {
	Platform() Platform
	Fetch(ctx context.Context, accessToken string) (Result, error)
}

// Result is the union of every platform's fetch payload. Exactly one
// field is populated, selected by the Provider that produced it.
type Result struct {
	GitHub  *GitHubResult
	Reddit  *RedditResult
	Twitter *TwitterResult
	Bluesky *BlueskyResult
	YouTube *YouTubeResult
	Devpad  *DevpadResult

	// RateLimit carries the headers the gate needs after a successful
	// fetch (§4.2 "extract headers X-RateLimit-{Remaining,Limit,Reset}").
	RateLimit RateLimitHeaders
}

// RateLimitHeaders is the subset of response headers the gate consumes.
type RateLimitHeaders struct {
	Remaining *int
	Limit     *int
	ResetAt   *int64 // unix seconds; nil if the provider didn't send one
}

// ErrorKind enumerates ProviderError's discriminator (§4.2).
type ErrorKind string

const (
	KindRateLimited    ErrorKind = "rate_limited"
	KindAuthExpired    ErrorKind = "auth_expired"
	KindAPIError       ErrorKind = "api_error"
	KindNetworkError   ErrorKind = "network_error"
	KindUnknownPlatform ErrorKind = "unknown_platform"
)

// Error is the typed failure a Provider.Fetch returns. Ingestion recovers
// every kind internally (§7 "never surfaced to callers of read endpoints").
type Error struct {
	Kind       ErrorKind
	Status     int    // populated for KindAPIError
	Message    string
	RetryAfter int // seconds; populated for KindRateLimited
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("provider: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func RateLimited(retryAfterSeconds int) *Error {
	return &Error{Kind: KindRateLimited, Message: "rate limited", RetryAfter: retryAfterSeconds}
}

func AuthExpired() *Error {
	return &Error{Kind: KindAuthExpired, Message: "access token expired or revoked"}
}

func APIError(status int, message string) *Error {
	return &Error{Kind: KindAPIError, Status: status, Message: message}
}

func NetworkError(cause error) *Error {
	return &Error{Kind: KindNetworkError, Message: "network error", Cause: cause}
}

func UnknownPlatform(platform string) *Error {
	return &Error{Kind: KindUnknownPlatform, Message: "unknown platform: " + platform}
}
