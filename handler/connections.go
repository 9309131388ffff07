package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/f0rbit/timeline/apierr"
	"github.com/f0rbit/timeline/corpus"
	"github.com/f0rbit/timeline/crypto"
	"github.com/f0rbit/timeline/db"
	"github.com/f0rbit/timeline/middleware"
	"github.com/f0rbit/timeline/provider"
	"github.com/f0rbit/timeline/refresh"
	"github.com/f0rbit/timeline/storeid"
	"github.com/f0rbit/timeline/timeline"
)

// ConnectionsHandler serves the §6 /connections surface: account CRUD,
// refresh dispatch, per-account settings, and the repos/subreddits
// listing endpoints.
type ConnectionsHandler struct {
	Profiles     *db.ProfileRepo
	Accounts     *db.AccountRepo
	Settings     *db.SettingsRepo
	RateLimits   *db.RateLimitRepo
	Backend      corpus.Backend
	Box          *crypto.Box
	Orchestrator *refresh.Orchestrator
	Log          zerolog.Logger
}

func NewConnectionsHandler(profiles *db.ProfileRepo, accounts *db.AccountRepo, settings *db.SettingsRepo, rateLimits *db.RateLimitRepo, backend corpus.Backend, box *crypto.Box, orchestrator *refresh.Orchestrator, log zerolog.Logger) *ConnectionsHandler {
	return &ConnectionsHandler{
		Profiles: profiles, Accounts: accounts, Settings: settings, RateLimits: rateLimits,
		Backend: backend, Box: box, Orchestrator: orchestrator,
		Log: log.With().Str("component", "handler.connections").Logger(),
	}
}

type accountView struct {
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

func toAccountView(a db.Account) accountView {
	return accountView{
		ID: a.ID, ProfileID: a.ProfileID, Platform: string(a.Platform),
		PlatformUserID: a.PlatformUserID, PlatformUsername: a.PlatformUsername,
		IsActive: a.IsActive, LastFetchedAt: a.LastFetchedAt, CreatedAt: a.CreatedAt,
	}
}

// List handles GET /api/v1/connections?profile_id=&include_settings=.
func (h *ConnectionsHandler) List(w http.ResponseWriter, r *http.Request) {
	profileID := r.URL.Query().Get("profile_id")
	if profileID == "" {
		apierr.Write(w, apierr.MissingParam("profile_id"))
		return
	}

	userID := middleware.UserID(r.Context())
	if _, err := middleware.RequireProfileOwner(r.Context(), h.Profiles, userID, profileID); err != nil {
		apierr.Write(w, err)
		return
	}

	accounts, err := h.Accounts.ListByProfile(r.Context(), profileID)
	if err != nil {
		apierr.Write(w, apierr.Internal(err))
		return
	}

	includeSettings := r.URL.Query().Get("include_settings") == "true"
	views := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		v := toAccountView(a)
		if includeSettings {
			settings, err := h.Settings.GetAll(r.Context(), a.ID)
			if err != nil {
				apierr.Write(w, apierr.Internal(err))
				return
			}
			v.Settings = settings
		}
		views = append(views, v)
	}

	writeJSON(w, http.StatusOK, map[string]any{"accounts": views})
}

// createConnectionRequest mirrors the §6 POST /connections body.
type createConnectionRequest struct {
	ProfileID        string     `json:"profile_id"`
	Platform         string     `json:"platform"`
	AccessToken      string     `json:"access_token"`
	RefreshToken     *string    `json:"refresh_token,omitempty"`
	PlatformUserID   *string    `json:"platform_user_id,omitempty"`
	PlatformUsername *string    `json:"platform_username,omitempty"`
	TokenExpiresAt   *time.Time `json:"token_expires_at,omitempty"`
}

// Create handles POST /api/v1/connections.
func (h *ConnectionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createConnectionRequest
	if err := decodeBody(r, &req); err != nil {
		apierr.Write(w, err)
		return
	}
	if req.ProfileID == "" {
		apierr.Write(w, apierr.MissingParam("profile_id"))
		return
	}
	if req.AccessToken == "" {
		apierr.Write(w, apierr.MissingParam("access_token"))
		return
	}
	if !db.ValidPlatform(req.Platform) {
		apierr.Write(w, apierr.InvalidEnum("platform must be one of: github, bluesky, youtube, devpad, reddit, twitter"))
		return
	}

	userID := middleware.UserID(r.Context())
	if _, err := middleware.RequireProfileOwner(r.Context(), h.Profiles, userID, req.ProfileID); err != nil {
		apierr.Write(w, err)
		return
	}

	accessEnc, err := h.Box.EncryptString(req.AccessToken)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	var refreshEnc *string
	if req.RefreshToken != nil {
		enc, err := h.Box.EncryptString(*req.RefreshToken)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		refreshEnc = &enc
	}

	account, err := h.Accounts.Create(r.Context(), db.CreateAccountInput{
		ProfileID:             req.ProfileID,
		Platform:              db.Platform(req.Platform),
		PlatformUserID:        req.PlatformUserID,
		PlatformUsername:      req.PlatformUsername,
		AccessTokenEncrypted:  accessEnc,
		RefreshTokenEncrypted: refreshEnc,
		TokenExpiresAt:        req.TokenExpiresAt,
	})
	if err != nil {
		apierr.Write(w, apierr.Internal(err))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"account_id": account.ID, "profile_id": account.ProfileID})
}

type patchConnectionRequest struct {
	IsActive *bool `json:"is_active"`
}

// Patch handles PATCH /api/v1/connections/:account_id.
func (h *ConnectionsHandler) Patch(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")
	userID := middleware.UserID(r.Context())
	if _, err := middleware.RequireAccountOwner(r.Context(), h.Accounts, userID, accountID); err != nil {
		apierr.Write(w, err)
		return
	}

	var req patchConnectionRequest
	if err := decodeBody(r, &req); err != nil {
		apierr.Write(w, err)
		return
	}
	if req.IsActive == nil {
		apierr.Write(w, apierr.MissingParam("is_active"))
		return
	}
	if err := h.Accounts.SetActive(r.Context(), accountID, *req.IsActive); err != nil {
		apierr.Write(w, apierr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_active": *req.IsActive})
}

// Delete handles DELETE /api/v1/connections/:account_id, cascading
// through the rate-limit row, settings, the account row, and every
// platform-scoped corpus store for this account, then queuing a
// timeline reassembly for the owning user (§6).
func (h *ConnectionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")
	userID := middleware.UserID(r.Context())
	account, err := middleware.RequireAccountOwner(r.Context(), h.Accounts, userID, accountID)
	if err != nil {
		apierr.Write(w, err)
		return
	}

	ctx := r.Context()
	prefixes := platformStorePrefixes(account.Platform, accountID)
	deletedStores := 0
	for _, prefix := range prefixes {
		ids, err := h.Backend.ListStoreIDsWithPrefix(ctx, prefix)
		if err != nil {
			apierr.Write(w, apierr.Internal(err))
			return
		}
		for _, id := range ids {
			snaps, err := h.Backend.ListSnapshots(ctx, id)
			if err != nil {
				apierr.Write(w, apierr.Internal(err))
				return
			}
			for _, snap := range snaps {
				_ = h.Backend.DeleteBlob(ctx, id+"/"+snap.Version)
				_ = h.Backend.DeleteSnapshot(ctx, id, snap.Version)
			}
			deletedStores++
		}
	}

	if err := h.RateLimits.Delete(ctx, accountID); err != nil {
		apierr.Write(w, apierr.Internal(err))
		return
	}
	if err := h.Settings.DeleteAll(ctx, accountID); err != nil {
		apierr.Write(w, apierr.Internal(err))
		return
	}
	if err := h.Accounts.Delete(ctx, accountID); err != nil {
		apierr.Write(w, apierr.Internal(err))
		return
	}

	if h.Orchestrator != nil {
		bgCtx := context.WithoutCancel(ctx)
		go func() {
			accounts, err := h.Accounts.ListActiveByUser(bgCtx, userID)
			if err == nil {
				_, err = h.Orchestrator.Assembler.AssembleForUser(bgCtx, userID, accounts, timeline.Window{})
			}
			if err != nil {
				h.Log.Error().Err(err).Str("user_id", userID).Msg("post-delete reassembly")
			}
		}()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"deleted":         true,
		"account_id":      accountID,
		"platform":        string(account.Platform),
		"deleted_stores":  deletedStores,
		"affected_users":  []string{userID},
	})
}

// platformStorePrefixes enumerates every corpus store-id prefix an
// account's platform can have written to, used by Delete's cascade.
func platformStorePrefixes(platform db.Platform, accountID string) []string {
	switch platform {
	case db.PlatformGitHub:
		return []string{"github/" + accountID + "/"}
	case db.PlatformReddit:
		return []string{"reddit/" + accountID + "/"}
	case db.PlatformTwitter:
		return []string{"twitter/" + accountID + "/"}
	default:
		return []string{"raw/" + string(platform) + "/" + accountID}
	}
}

// Refresh handles POST /api/v1/connections/:account_id/refresh.
func (h *ConnectionsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")
	userID := middleware.UserID(r.Context())
	if _, err := middleware.RequireAccountOwner(r.Context(), h.Accounts, userID, accountID); err != nil {
		apierr.Write(w, err)
		return
	}

	result, err := h.Orchestrator.RefreshSingleAccount(r.Context(), userID, accountID)
	if err != nil {
		if errors.Is(err, refresh.ErrInactive) {
			apierr.Write(w, &apierr.Error{Kind: apierr.KindInvalidEnum, Label: apierr.LabelBadRequest, Status: 400, Message: "account is inactive"})
			return
		}
		apierr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(result.Status), "platform": result.Platform})
}

// RefreshAll handles POST /api/v1/connections/refresh-all.
func (h *ConnectionsHandler) RefreshAll(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	result, err := h.Orchestrator.RefreshAllAccounts(r.Context(), userID)
	if err != nil {
		apierr.Write(w, apierr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":               string(result.Status),
		"succeeded":            result.Succeeded,
		"failed":               result.Failed,
		"total":                result.Total,
		"cooperative_queued":   result.CooperativeQueued,
	})
}

// GetSettings handles GET /api/v1/connections/:account_id/settings.
func (h *ConnectionsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")
	userID := middleware.UserID(r.Context())
	if _, err := middleware.RequireAccountOwner(r.Context(), h.Accounts, userID, accountID); err != nil {
		apierr.Write(w, err)
		return
	}
	settings, err := h.Settings.GetAll(r.Context(), accountID)
	if err != nil {
		apierr.Write(w, apierr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// PutSettings handles PUT /api/v1/connections/:account_id/settings.
func (h *ConnectionsHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")
	userID := middleware.UserID(r.Context())
	if _, err := middleware.RequireAccountOwner(r.Context(), h.Accounts, userID, accountID); err != nil {
		apierr.Write(w, err)
		return
	}
	var settings map[string]string
	if err := decodeBody(r, &settings); err != nil {
		apierr.Write(w, err)
		return
	}
	if err := h.Settings.PutAll(r.Context(), accountID, settings); err != nil {
		apierr.Write(w, apierr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// Repos handles GET /api/v1/connections/:account_id/repos — reads the
// github meta store's repo list (§6).
func (h *ConnectionsHandler) Repos(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")
	userID := middleware.UserID(r.Context())
	account, err := middleware.RequireAccountOwner(r.Context(), h.Accounts, userID, accountID)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	if account.Platform != db.PlatformGitHub {
		apierr.Write(w, apierr.InvalidFormat("account platform is not github"))
		return
	}

	codec := corpus.NewJSONCodec[provider.GitHubMeta]()
	store := corpus.NewStore[provider.GitHubMeta](storeid.GitHubMeta(accountID).String(), h.Backend, codec)
	meta, _, err := store.GetLatest(r.Context())
	if err != nil {
		if errors.Is(err, corpus.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]any{"repos": []string{}})
			return
		}
		apierr.Write(w, apierr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"repos": meta.Repos})
}

// Subreddits handles GET /api/v1/connections/:account_id/subreddits.
// Reddit's meta store carries no subreddit list (only username), so
// this derives the set from the account's latest posts shard.
func (h *ConnectionsHandler) Subreddits(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")
	userID := middleware.UserID(r.Context())
	account, err := middleware.RequireAccountOwner(r.Context(), h.Accounts, userID, accountID)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	if account.Platform != db.PlatformReddit {
		apierr.Write(w, apierr.InvalidFormat("account platform is not reddit"))
		return
	}

	codec := corpus.NewJSONCodec[[]provider.RedditPost]()
	store := corpus.NewStore[[]provider.RedditPost](storeid.Reddit(accountID, storeid.SubPosts).String(), h.Backend, codec)
	posts, _, err := store.GetLatest(r.Context())
	if err != nil {
		if errors.Is(err, corpus.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]any{"subreddits": []string{}})
			return
		}
		apierr.Write(w, apierr.Internal(err))
		return
	}

	seen := make(map[string]bool)
	var subs []string
	for _, p := range posts {
		if p.Subreddit == "" || seen[p.Subreddit] {
			continue
		}
		seen[p.Subreddit] = true
		subs = append(subs, p.Subreddit)
	}
	writeJSON(w, http.StatusOK, map[string]any{"subreddits": subs})
}
