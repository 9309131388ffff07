package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/f0rbit/timeline/apierr"
	"github.com/f0rbit/timeline/crypto"
	"github.com/f0rbit/timeline/db"
	"github.com/f0rbit/timeline/middleware"
)

// CredentialsHandler serves the §6 /credentials/:platform surface:
// per-profile OAuth app credential storage.
type CredentialsHandler struct {
	Profiles    *db.ProfileRepo
	Credentials *db.CredentialsRepo
	Box         *crypto.Box
	Log         zerolog.Logger
}

func NewCredentialsHandler(profiles *db.ProfileRepo, credentials *db.CredentialsRepo, box *crypto.Box, log zerolog.Logger) *CredentialsHandler {
	return &CredentialsHandler{Profiles: profiles, Credentials: credentials, Box: box, Log: log.With().Str("component", "handler.credentials").Logger()}
}

// Get handles GET /api/v1/credentials/:platform?profile_id=.
func (h *CredentialsHandler) Get(w http.ResponseWriter, r *http.Request) {
	platform := chi.URLParam(r, "platform")
	profileID := r.URL.Query().Get("profile_id")
	if profileID == "" {
		apierr.Write(w, apierr.MissingParam("profile_id"))
		return
	}
	if !db.ValidPlatform(platform) {
		apierr.Write(w, apierr.InvalidEnum("platform must be one of the supported platforms"))
		return
	}

	userID := middleware.UserID(r.Context())
	if _, err := middleware.RequireProfileOwner(r.Context(), h.Profiles, userID, profileID); err != nil {
		apierr.Write(w, err)
		return
	}

	creds, err := h.Credentials.GetByPlatform(r.Context(), profileID, db.Platform(platform))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			apierr.Write(w, apierr.NotFound("credentials"))
			return
		}
		apierr.Write(w, apierr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, redactedCredentials(creds))
}

type credentialsView struct {
	ID             string         `json:"id"`
	ProfileID      string         `json:"profile_id"`
	Platform       string         `json:"platform"`
	ClientID       string         `json:"client_id"`
	RedirectURI    *string        `json:"redirect_uri,omitempty"`
	RedditUsername *string        `json:"reddit_username,omitempty"`
	IsVerified     bool           `json:"is_verified"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

func redactedCredentials(c db.PlatformCredentials) credentialsView {
	return credentialsView{
		ID: c.ID, ProfileID: c.ProfileID, Platform: string(c.Platform), ClientID: c.ClientID,
		RedirectURI: c.RedirectURI, RedditUsername: c.RedditUsername, IsVerified: c.IsVerified, Metadata: c.Metadata,
	}
}

type createCredentialsRequest struct {
	ProfileID      string         `json:"profile_id"`
	ClientID       string         `json:"client_id"`
	ClientSecret   string         `json:"client_secret"`
	RedirectURI    *string        `json:"redirect_uri,omitempty"`
	RedditUsername *string        `json:"reddit_username,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Create handles POST /api/v1/credentials/:platform.
func (h *CredentialsHandler) Create(w http.ResponseWriter, r *http.Request) {
	platformStr := chi.URLParam(r, "platform")
	if !db.ValidPlatform(platformStr) {
		apierr.Write(w, apierr.InvalidEnum("platform must be one of the supported platforms"))
		return
	}
	platform := db.Platform(platformStr)

	var req createCredentialsRequest
	if err := decodeBody(r, &req); err != nil {
		apierr.Write(w, err)
		return
	}
	if req.ProfileID == "" {
		apierr.Write(w, apierr.MissingParam("profile_id"))
		return
	}
	if req.ClientID == "" {
		apierr.Write(w, apierr.MissingParam("client_id"))
		return
	}
	if req.ClientSecret == "" {
		apierr.Write(w, apierr.MissingParam("client_secret"))
		return
	}

	userID := middleware.UserID(r.Context())
	if _, err := middleware.RequireProfileOwner(r.Context(), h.Profiles, userID, req.ProfileID); err != nil {
		apierr.Write(w, err)
		return
	}

	in := db.CreateCredentialsInput{
		ProfileID:      req.ProfileID,
		Platform:       platform,
		ClientID:       req.ClientID,
		RedirectURI:    req.RedirectURI,
		RedditUsername: req.RedditUsername,
		Metadata:       req.Metadata,
	}
	if err := db.ValidateReddit(in, len(req.ClientSecret)); err != nil {
		apierr.Write(w, err)
		return
	}

	secretEnc, err := h.Box.EncryptString(req.ClientSecret)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	in.ClientSecretEncrypted = secretEnc

	creds, err := h.Credentials.Create(r.Context(), in)
	if err != nil {
		apierr.Write(w, apierr.Internal(err))
		return
	}
	writeJSON(w, http.StatusCreated, redactedCredentials(creds))
}

// Delete handles DELETE /api/v1/credentials/:platform?profile_id=.
func (h *CredentialsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	platform := chi.URLParam(r, "platform")
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
	if err := h.Credentials.Delete(r.Context(), profileID, db.Platform(platform)); err != nil {
		apierr.Write(w, apierr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
