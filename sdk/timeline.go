// Package sdk provides a Go client for the timeline aggregation service's
// /api/v1 HTTP surface.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Version is the SDK version.
const Version = "1.0.0"

// DefaultBaseURL is the default service base URL.
const DefaultBaseURL = "http://localhost:8080"

// ============================================================
// Client
// ============================================================

// Client is the timeline service API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	userAgent  string
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new API client. apiKey is sent as a bearer token
// on every request (§5 "Authorization: Bearer <key>").
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		apiKey:    apiKey,
		userAgent: fmt.Sprintf("timeline-go-sdk/%s", Version),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// request performs an HTTP request against the service's /api/v1 surface.
func (c *Client) request(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api/v1"+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// ============================================================
// Error types
// ============================================================

// Error represents a §7 API error envelope.
type Error struct {
	StatusCode int    `json:"status_code"`
	Label      string `json:"error"`
	Message    string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("timeline: %s (status %d)", e.Message, e.StatusCode)
}

// apiError lets the typed errors below embed Error under a field name
// that does not hide its Error method.
type apiError = Error

// AuthenticationError indicates a missing or invalid bearer key.
type AuthenticationError struct{ apiError }

// AuthorizationError indicates the caller does not own the resource.
type AuthorizationError struct{ apiError }

// NotFoundError indicates the resource does not exist.
type NotFoundError struct{ apiError }

// ValidationError indicates a malformed or missing request field.
type ValidationError struct{ apiError }

// ConflictError indicates a uniqueness conflict (e.g. a taken slug).
type ConflictError struct{ apiError }

func parseError(statusCode int, body []byte) error {
	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &envelope)

	baseErr := Error{
		StatusCode: statusCode,
		Label:      envelope.Error,
		Message:    envelope.Message,
	}
	if baseErr.Message == "" {
		baseErr.Message = http.StatusText(statusCode)
	}

	switch statusCode {
	case 401:
		return &AuthenticationError{apiError: baseErr}
	case 403:
		return &AuthorizationError{apiError: baseErr}
	case 404:
		return &NotFoundError{apiError: baseErr}
	case 400:
		return &ValidationError{apiError: baseErr}
	case 409:
		return &ConflictError{apiError: baseErr}
	default:
		return &baseErr
	}
}

// ============================================================
// Models
// ============================================================

// Profile is a named view over a subset of a user's accounts.
type Profile struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Theme       *string   `json:"theme,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Account is a credential + identity on one platform, bound to a profile.
type Account struct {
	ID               string            `json:"id"`
	ProfileID        string            `json:"profile_id"`
	Platform         string            `json:"platform"`
	PlatformUserID   *string           `json:"platform_user_id,omitempty"`
	PlatformUsername *string           `json:"platform_username,omitempty"`
	IsActive         bool              `json:"is_active"`
	LastFetchedAt    *time.Time        `json:"last_fetched_at,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	Settings         map[string]string `json:"settings,omitempty"`
}

// ProfileFilter narrows a profile's assembled timeline.
type ProfileFilter struct {
	ID          string `json:"id"`
	ProfileID   string `json:"profile_id"`
	AccountID   string `json:"account_id"`
	FilterType  string `json:"filter_type"`
	FilterKey   string `json:"filter_key"`
	FilterValue string `json:"filter_value"`
}

// Credentials is a profile's per-platform OAuth app credentials, with the
// client secret redacted (the service never returns it).
type Credentials struct {
	ID             string         `json:"id"`
	ProfileID      string         `json:"profile_id"`
	Platform       string         `json:"platform"`
	ClientID       string         `json:"client_id"`
	RedirectURI    *string        `json:"redirect_uri,omitempty"`
	RedditUsername *string        `json:"reddit_username,omitempty"`
	IsVerified     bool           `json:"is_verified"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// CommitGroup is a same-(repo,branch,day) grouping of commit items.
type CommitGroup struct {
	Type              string           `json:"type"`
	Repo              string           `json:"repo"`
	Branch            string           `json:"branch"`
	Date              string           `json:"date"`
	Commits           []map[string]any `json:"commits"`
	TotalAdditions    int              `json:"total_additions"`
	TotalDeletions    int              `json:"total_deletions"`
	TotalFilesChanged int              `json:"total_files_changed"`
}

// DateGroup buckets timeline entries by UTC date.
type DateGroup struct {
	Date  string `json:"date"`
	Items []any  `json:"items"`
}

// Snapshot is a user or profile timeline as returned by the timeline
// endpoints.
type Snapshot struct {
	UserID      string      `json:"user_id"`
	GeneratedAt string      `json:"generated_at"`
	Groups      []DateGroup `json:"groups"`
	ProfileID   string      `json:"profile_id,omitempty"`
	ProfileSlug string      `json:"profile_slug,omitempty"`
	ProfileName string      `json:"profile_name,omitempty"`
}

// RawSnapshot is a single-platform raw read as returned by
// GET /timeline/:user_id/raw/:platform.
type RawSnapshot struct {
	Platform  string          `json:"platform"`
	AccountID string          `json:"account_id"`
	Version   string          `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	Data      json.RawMessage `json:"data"`
}

// ============================================================
// Timeline methods
// ============================================================

// GetTimeline returns the authenticated user's assembled timeline,
// optionally bounded by a from/to range of YYYY-MM-DD dates, both
// inclusive, matched against each date group's date.
func (c *Client) GetTimeline(ctx context.Context, userID string, from, to string) (*Snapshot, error) {
	path := "/timeline/" + url.PathEscape(userID)
	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}
	if to != "" {
		q.Set("to", to)
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var snapshot Snapshot
	if err := c.request(ctx, http.MethodGet, path, nil, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// GetRawTimeline returns an account's latest unaggregated platform data.
func (c *Client) GetRawTimeline(ctx context.Context, userID, platform, accountID string) (*RawSnapshot, error) {
	path := fmt.Sprintf("/timeline/%s/raw/%s?account_id=%s",
		url.PathEscape(userID), url.PathEscape(platform), url.QueryEscape(accountID))
	var raw RawSnapshot
	if err := c.request(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return &raw, nil
}

// ============================================================
// Profile methods
// ============================================================

// ListProfiles returns the authenticated user's profiles.
func (c *Client) ListProfiles(ctx context.Context) ([]Profile, error) {
	var out struct {
		Profiles []Profile `json:"profiles"`
	}
	if err := c.request(ctx, http.MethodGet, "/profiles", nil, &out); err != nil {
		return nil, err
	}
	return out.Profiles, nil
}

// CreateProfileRequest is the request to create a profile.
type CreateProfileRequest struct {
	Slug        string  `json:"slug"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Theme       *string `json:"theme,omitempty"`
}

// CreateProfile creates a new profile.
func (c *Client) CreateProfile(ctx context.Context, req *CreateProfileRequest) (*Profile, error) {
	var profile Profile
	if err := c.request(ctx, http.MethodPost, "/profiles", req, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetProfile returns a profile by id.
func (c *Client) GetProfile(ctx context.Context, id string) (*Profile, error) {
	var profile Profile
	if err := c.request(ctx, http.MethodGet, "/profiles/"+url.PathEscape(id), nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// PatchProfileRequest is the request to update a profile's mutable fields.
type PatchProfileRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Theme       *string `json:"theme,omitempty"`
}

// PatchProfile updates a profile.
func (c *Client) PatchProfile(ctx context.Context, id string, req *PatchProfileRequest) (*Profile, error) {
	var profile Profile
	if err := c.request(ctx, http.MethodPatch, "/profiles/"+url.PathEscape(id), req, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// DeleteProfile deletes a profile. Its accounts cascade per §3.
func (c *Client) DeleteProfile(ctx context.Context, id string) error {
	return c.request(ctx, http.MethodDelete, "/profiles/"+url.PathEscape(id), nil, nil)
}

// GetProfileTimeline returns a profile-scoped, filter-applied timeline.
// limit and before are optional; pass 0 and "" to omit them.
func (c *Client) GetProfileTimeline(ctx context.Context, slug string, limit int, before string) (*Snapshot, error) {
	path := "/profiles/" + url.PathEscape(slug) + "/timeline"
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if before != "" {
		q.Set("before", before)
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var snapshot Snapshot
	if err := c.request(ctx, http.MethodGet, path, nil, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// ============================================================
// Filter methods
// ============================================================

// ListFilters returns a profile's filters.
func (c *Client) ListFilters(ctx context.Context, profileID string) ([]ProfileFilter, error) {
	var out struct {
		Filters []ProfileFilter `json:"filters"`
	}
	if err := c.request(ctx, http.MethodGet, "/profiles/"+url.PathEscape(profileID)+"/filters", nil, &out); err != nil {
		return nil, err
	}
	return out.Filters, nil
}

// CreateFilterRequest is the request to create a profile filter.
type CreateFilterRequest struct {
	AccountID   string `json:"account_id"`
	FilterType  string `json:"filter_type"`
	FilterKey   string `json:"filter_key"`
	FilterValue string `json:"filter_value"`
}

// CreateFilter creates a profile filter.
func (c *Client) CreateFilter(ctx context.Context, profileID string, req *CreateFilterRequest) (*ProfileFilter, error) {
	var filter ProfileFilter
	if err := c.request(ctx, http.MethodPost, "/profiles/"+url.PathEscape(profileID)+"/filters", req, &filter); err != nil {
		return nil, err
	}
	return &filter, nil
}

// DeleteFilter deletes a profile filter.
func (c *Client) DeleteFilter(ctx context.Context, profileID, filterID string) error {
	return c.request(ctx, http.MethodDelete,
		"/profiles/"+url.PathEscape(profileID)+"/filters/"+url.PathEscape(filterID), nil, nil)
}

// ============================================================
// Connection methods
// ============================================================

// ListConnections returns a profile's connected accounts.
func (c *Client) ListConnections(ctx context.Context, profileID string, includeSettings bool) ([]Account, error) {
	path := "/connections?profile_id=" + url.QueryEscape(profileID)
	if includeSettings {
		path += "&include_settings=true"
	}
	var out struct {
		Accounts []Account `json:"accounts"`
	}
	if err := c.request(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Accounts, nil
}

// CreateConnectionRequest is the request to link a platform account.
type CreateConnectionRequest struct {
	ProfileID        string     `json:"profile_id"`
	Platform         string     `json:"platform"`
	AccessToken      string     `json:"access_token"`
	RefreshToken     *string    `json:"refresh_token,omitempty"`
	PlatformUserID   *string    `json:"platform_user_id,omitempty"`
	PlatformUsername *string    `json:"platform_username,omitempty"`
	TokenExpiresAt   *time.Time `json:"token_expires_at,omitempty"`
}

// CreateConnectionResult is returned by CreateConnection.
type CreateConnectionResult struct {
	AccountID string `json:"account_id"`
	ProfileID string `json:"profile_id"`
}

// CreateConnection links a new platform account to a profile.
func (c *Client) CreateConnection(ctx context.Context, req *CreateConnectionRequest) (*CreateConnectionResult, error) {
	var result CreateConnectionResult
	if err := c.request(ctx, http.MethodPost, "/connections", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SetConnectionActive activates or deactivates a connected account.
func (c *Client) SetConnectionActive(ctx context.Context, accountID string, isActive bool) error {
	body := map[string]bool{"is_active": isActive}
	return c.request(ctx, http.MethodPatch, "/connections/"+url.PathEscape(accountID), body, nil)
}

// DeleteConnection removes a connected account and its stored data.
func (c *Client) DeleteConnection(ctx context.Context, accountID string) error {
	return c.request(ctx, http.MethodDelete, "/connections/"+url.PathEscape(accountID), nil, nil)
}

// RefreshResult is returned by RefreshConnection.
type RefreshResult struct {
	Status   string `json:"status"`
	Platform string `json:"platform"`
}

// RefreshConnection triggers an on-demand fetch for one account.
func (c *Client) RefreshConnection(ctx context.Context, accountID string) (*RefreshResult, error) {
	var result RefreshResult
	if err := c.request(ctx, http.MethodPost, "/connections/"+url.PathEscape(accountID)+"/refresh", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RefreshAllResult is returned by RefreshAllConnections.
type RefreshAllResult struct {
	Status            string         `json:"status"`
	Succeeded         int            `json:"succeeded"`
	Failed            int            `json:"failed"`
	Total             int            `json:"total"`
	CooperativeQueued map[string]int `json:"cooperative_queued,omitempty"`
}

// RefreshAllConnections triggers an on-demand fetch for every active
// account belonging to the authenticated user.
func (c *Client) RefreshAllConnections(ctx context.Context) (*RefreshAllResult, error) {
	var result RefreshAllResult
	if err := c.request(ctx, http.MethodPost, "/connections/refresh-all", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetConnectionSettings returns an account's settings map.
func (c *Client) GetConnectionSettings(ctx context.Context, accountID string) (map[string]string, error) {
	var settings map[string]string
	if err := c.request(ctx, http.MethodGet, "/connections/"+url.PathEscape(accountID)+"/settings", nil, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// PutConnectionSettings replaces an account's settings map.
func (c *Client) PutConnectionSettings(ctx context.Context, accountID string, settings map[string]string) (map[string]string, error) {
	var result map[string]string
	if err := c.request(ctx, http.MethodPut, "/connections/"+url.PathEscape(accountID)+"/settings", settings, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ListRepos returns the repos a GitHub account's meta store has recorded.
func (c *Client) ListRepos(ctx context.Context, accountID string) ([]string, error) {
	var out struct {
		Repos []string `json:"repos"`
	}
	if err := c.request(ctx, http.MethodGet, "/connections/"+url.PathEscape(accountID)+"/repos", nil, &out); err != nil {
		return nil, err
	}
	return out.Repos, nil
}

// ListSubreddits returns the subreddits a Reddit account has posted to.
func (c *Client) ListSubreddits(ctx context.Context, accountID string) ([]string, error) {
	var out struct {
		Subreddits []string `json:"subreddits"`
	}
	if err := c.request(ctx, http.MethodGet, "/connections/"+url.PathEscape(accountID)+"/subreddits", nil, &out); err != nil {
		return nil, err
	}
	return out.Subreddits, nil
}

// ============================================================
// Credentials methods
// ============================================================

// CreateCredentialsRequest is the request to store per-profile OAuth app
// credentials for a platform.
type CreateCredentialsRequest struct {
	ProfileID      string         `json:"profile_id"`
	ClientID       string         `json:"client_id"`
	ClientSecret   string         `json:"client_secret"`
	RedirectURI    *string        `json:"redirect_uri,omitempty"`
	RedditUsername *string        `json:"reddit_username,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// GetCredentials returns a profile's credentials for a platform, with the
// client secret redacted.
func (c *Client) GetCredentials(ctx context.Context, platform, profileID string) (*Credentials, error) {
	path := "/credentials/" + url.PathEscape(platform) + "?profile_id=" + url.QueryEscape(profileID)
	var creds Credentials
	if err := c.request(ctx, http.MethodGet, path, nil, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// CreateCredentials stores new OAuth app credentials for a platform.
func (c *Client) CreateCredentials(ctx context.Context, platform string, req *CreateCredentialsRequest) (*Credentials, error) {
	var creds Credentials
	if err := c.request(ctx, http.MethodPost, "/credentials/"+url.PathEscape(platform), req, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// DeleteCredentials removes a profile's credentials for a platform.
func (c *Client) DeleteCredentials(ctx context.Context, platform, profileID string) error {
	path := "/credentials/" + url.PathEscape(platform) + "?profile_id=" + url.QueryEscape(profileID)
	return c.request(ctx, http.MethodDelete, path, nil, nil)
}

// ============================================================
// Health check
// ============================================================

// Health represents service health.
type Health struct {
	Status string `json:"status"`
}

// HealthCheck checks service health via the unauthenticated /healthz route.
func (c *Client) HealthCheck(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, parseError(resp.StatusCode, body)
	}
	var health Health
	if err := json.Unmarshal(body, &health); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &health, nil
}
