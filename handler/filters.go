package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/f0rbit/timeline/apierr"
	"github.com/f0rbit/timeline/db"
	"github.com/f0rbit/timeline/middleware"
)

// FiltersHandler serves the §6 /profiles/:id/filters surface (§4.6
// ProfileFilter management).
type FiltersHandler struct {
	Profiles *db.ProfileRepo
	Accounts *db.AccountRepo
	Filters  *db.FilterRepo
	Log      zerolog.Logger
}

func NewFiltersHandler(profiles *db.ProfileRepo, accounts *db.AccountRepo, filters *db.FilterRepo, log zerolog.Logger) *FiltersHandler {
	return &FiltersHandler{Profiles: profiles, Accounts: accounts, Filters: filters, Log: log.With().Str("component", "handler.filters").Logger()}
}

// List handles GET /api/v1/profiles/:id/filters.
func (h *FiltersHandler) List(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "id")
	userID := middleware.UserID(r.Context())
	if _, err := middleware.RequireProfileOwner(r.Context(), h.Profiles, userID, profileID); err != nil {
		apierr.Write(w, err)
		return
	}
	filters, err := h.Filters.ListByProfile(r.Context(), profileID)
	if err != nil {
		apierr.Write(w, apierr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"filters": filters})
}

type createFilterRequest struct {
	AccountID   string `json:"account_id"`
	FilterType  string `json:"filter_type"`
	FilterKey   string `json:"filter_key"`
	FilterValue string `json:"filter_value"`
}

// Create handles POST /api/v1/profiles/:id/filters.
func (h *FiltersHandler) Create(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "id")
	userID := middleware.UserID(r.Context())
	if _, err := middleware.RequireProfileOwner(r.Context(), h.Profiles, userID, profileID); err != nil {
		apierr.Write(w, err)
		return
	}

	var req createFilterRequest
	if err := decodeBody(r, &req); err != nil {
		apierr.Write(w, err)
		return
	}
	if req.AccountID == "" {
		apierr.Write(w, apierr.MissingParam("account_id"))
		return
	}
	if req.FilterValue == "" {
		apierr.Write(w, apierr.MissingParam("filter_value"))
		return
	}
	if err := db.AssertFilterTypeAndKey(req.FilterType, req.FilterKey); err != nil {
		apierr.Write(w, err)
		return
	}

	account, err := middleware.RequireAccountOwner(r.Context(), h.Accounts, userID, req.AccountID)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	if account.ProfileID != profileID {
		apierr.Write(w, apierr.WrongOwner("account does not belong to this profile"))
		return
	}

	filter, err := h.Filters.Create(r.Context(), profileID, req.AccountID, db.FilterType(req.FilterType), db.FilterKey(req.FilterKey), req.FilterValue)
	if err != nil {
		apierr.Write(w, apierr.Internal(err))
		return
	}
	writeJSON(w, http.StatusCreated, filter)
}

// Delete handles DELETE /api/v1/profiles/:id/filters/:filter_id.
func (h *FiltersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "id")
	filterID := chi.URLParam(r, "filter_id")
	userID := middleware.UserID(r.Context())
	if _, err := middleware.RequireProfileOwner(r.Context(), h.Profiles, userID, profileID); err != nil {
		apierr.Write(w, err)
		return
	}
	filter, err := middleware.RequireFilterOwner(r.Context(), h.Filters, h.Profiles, userID, filterID)
	if err != nil {
		apierr.Write(w, err)
		return
	}
	if filter.ProfileID != profileID {
		apierr.Write(w, apierr.NotFound("filter"))
		return
	}
	if err := h.Filters.Delete(r.Context(), filterID); err != nil {
		apierr.Write(w, apierr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
