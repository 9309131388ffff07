package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/f0rbit/timeline/apierr"
	"github.com/f0rbit/timeline/corpus"
	"github.com/f0rbit/timeline/db"
	"github.com/f0rbit/timeline/middleware"
	"github.com/f0rbit/timeline/timeline"
)

// ProfilesHandler serves the §6 /profiles surface: CRUD plus the
// profile-scoped timeline read.
type ProfilesHandler struct {
	Profiles  *db.ProfileRepo
	Assembler *timeline.Assembler
	Log       zerolog.Logger
}

func NewProfilesHandler(profiles *db.ProfileRepo, assembler *timeline.Assembler, log zerolog.Logger) *ProfilesHandler {
	return &ProfilesHandler{Profiles: profiles, Assembler: assembler, Log: log.With().Str("component", "handler.profiles").Logger()}
}

// List handles GET /api/v1/profiles.
func (h *ProfilesHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	profiles, err := h.Profiles.ListByUser(r.Context(), userID)
	if err != nil {
		apierr.Write(w, apierr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": profiles})
}

type createProfileRequest struct {
	Slug        string  `json:"slug"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Theme       *string `json:"theme,omitempty"`
}

// Create handles POST /api/v1/profiles.
func (h *ProfilesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if err := decodeBody(r, &req); err != nil {
		apierr.Write(w, err)
		return
	}
	if req.Slug == "" {
		apierr.Write(w, apierr.MissingParam("slug"))
		return
	}
	if req.Name == "" {
		apierr.Write(w, apierr.MissingParam("name"))
		return
	}

	userID := middleware.UserID(r.Context())
	profile, err := h.Profiles.Create(r.Context(), userID, req.Slug, req.Name, req.Description, req.Theme)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

// Get handles GET /api/v1/profiles/:id.
func (h *ProfilesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	userID := middleware.UserID(r.Context())
	profile, err := middleware.RequireProfileOwner(r.Context(), h.Profiles, userID, id)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type patchProfileRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Theme       *string `json:"theme,omitempty"`
}

// Patch handles PATCH /api/v1/profiles/:id.
func (h *ProfilesHandler) Patch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	userID := middleware.UserID(r.Context())
	if _, err := middleware.RequireProfileOwner(r.Context(), h.Profiles, userID, id); err != nil {
		apierr.Write(w, err)
		return
	}

	var req patchProfileRequest
	if err := decodeBody(r, &req); err != nil {
		apierr.Write(w, err)
		return
	}
	if err := h.Profiles.Update(r.Context(), id, req.Name, req.Description, req.Theme); err != nil {
		apierr.Write(w, apierr.Internal(err))
		return
	}
	profile, err := h.Profiles.Get(r.Context(), id)
	if err != nil {
		apierr.Write(w, apierr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Delete handles DELETE /api/v1/profiles/:id. Accounts cascade via the
// relational schema's ON DELETE CASCADE (§3 "On profile deletion,
// accounts cascade").
func (h *ProfilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	userID := middleware.UserID(r.Context())
	if _, err := middleware.RequireProfileOwner(r.Context(), h.Profiles, userID, id); err != nil {
		apierr.Write(w, err)
		return
	}
	if err := h.Profiles.Delete(r.Context(), id); err != nil {
		apierr.Write(w, apierr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// Timeline handles GET /api/v1/profiles/:slug/timeline?limit=&before=
// per §4.6 and §6.
func (h *ProfilesHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	userID := middleware.UserID(r.Context())

	profile, err := h.Profiles.GetBySlug(r.Context(), userID, slug)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			apierr.Write(w, apierr.NotFound("profile"))
			return
		}
		apierr.Write(w, apierr.Internal(err))
		return
	}

	window := timeline.Window{}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, convErr := strconv.Atoi(limitStr)
		if convErr != nil {
			apierr.Write(w, apierr.InvalidFormat("limit must be an integer"))
			return
		}
		if err := timeline.ValidateLimit(limit); err != nil {
			apierr.Write(w, err)
			return
		}
		window.Limit = limit
	}
	if beforeStr := r.URL.Query().Get("before"); beforeStr != "" {
		before, err := timeline.ParseBefore(beforeStr)
		if err != nil {
			apierr.Write(w, err)
			return
		}
		window.Before = before
	}

	meta, err := h.Assembler.AssembleForProfile(r.Context(), userID, profile, window)
	if err != nil {
		apierr.Write(w, apierr.Internal(err))
		return
	}

	codec := corpus.NewJSONCodec[timeline.Snapshot]()
	store := corpus.NewStore[timeline.Snapshot](meta.StoreID, h.Assembler.Backend, codec)
	snapshot, _, err := store.Get(r.Context(), meta.Version)
	if err != nil {
		apierr.Write(w, apierr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}
